// Package jsonstream writes snapshots incrementally as one JSON object keyed by
// match time.
package jsonstream

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/internal/snapshot"
)

// Config holds stream output settings
type Config struct {
	Path     string
	Compress bool
}

// Backend streams `{"<matchTime>":{"dire":…,"radiant":…},…}` to a file.
type Backend struct {
	cfg    Config
	logger *slog.Logger

	file    io.WriteCloser
	gz      *gzip.Writer
	buf     *bufio.Writer
	written int
	closed  bool
	mu      sync.Mutex
}

// New creates a stream backend. Nothing is opened until Init.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger}
}

// Init opens the output file and writes the opening brace.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if dir := filepath.Dir(b.cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(b.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	b.attach(f)
	b.logger.Debug("Opened snapshot stream", "path", b.cfg.Path, "compress", b.cfg.Compress)

	if _, err := b.buf.WriteString("{"); err != nil {
		return fmt.Errorf("failed to write snapshot stream: %w", err)
	}
	return nil
}

// attach wires the writer chain over w.
func (b *Backend) attach(w io.WriteCloser) {
	b.file = w
	var out io.Writer = w
	if b.cfg.Compress {
		b.gz = gzip.NewWriter(w)
		out = b.gz
	}
	b.buf = bufio.NewWriter(out)
}

// StartMatch is a no-op; the stream carries no header.
func (b *Backend) StartMatch(*core.Match) error {
	return nil
}

// RecordSnapshot appends one `"<matchTime>":{...}` member.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buf == nil || b.closed {
		return errors.New("snapshot stream is not open")
	}

	payload, err := snapshot.Encode(s)
	if err != nil {
		return err
	}

	if b.written > 0 {
		if err := b.buf.WriteByte(','); err != nil {
			return fmt.Errorf("failed to write snapshot stream: %w", err)
		}
	}
	if _, err := b.buf.WriteString(strconv.Quote(snapshot.Key(*s)) + ":"); err != nil {
		return fmt.Errorf("failed to write snapshot stream: %w", err)
	}
	if _, err := b.buf.Write(payload); err != nil {
		return fmt.Errorf("failed to write snapshot stream: %w", err)
	}
	b.written++
	return nil
}

// EndMatch flushes buffered samples.
func (b *Backend) EndMatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buf == nil || b.closed {
		return nil
	}
	if err := b.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot stream: %w", err)
	}
	return nil
}

// Close writes the closing brace and releases the file. It is safe to call
// more than once and after a failed write.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buf == nil || b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if _, err := b.buf.WriteString("}"); err != nil {
		errs = append(errs, fmt.Errorf("failed to close snapshot stream: %w", err))
	}
	if err := b.buf.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush snapshot stream: %w", err))
	}
	if b.gz != nil {
		if err := b.gz.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to finish gzip stream: %w", err))
		}
	}
	if err := b.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close output file: %w", err))
	}

	b.logger.Debug("Closed snapshot stream", "path", b.cfg.Path, "samples", b.written)
	return errors.Join(errs...)
}

// Written returns the number of samples recorded.
func (b *Backend) Written() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written
}
