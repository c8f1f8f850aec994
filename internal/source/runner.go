// Package source is the reference decoder and tick scheduler for entity-frame
// streams. It replays a recorded stream of entity deltas into a live State and
// hands every tick to a replay.TickHandler, in order, on the calling goroutine.
package source

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

const maxFrameSize = 64 << 20

// Runner drives a TickHandler over one replay file.
type Runner struct {
	path   string
	logger *slog.Logger
}

// NewRunner creates a runner for the replay at path.
func NewRunner(path string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{path: path, logger: logger}
}

// Open opens a replay file, transparently decompressing .bz2 and .gz inputs.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".bz2"):
		return readCloser{Reader: bzip2.NewReader(f), close: f.Close}, nil
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to open gzip replay: %w", err)
		}
		return readCloser{Reader: gz, close: func() error {
			_ = gz.Close()
			return f.Close()
		}}, nil
	default:
		return f, nil
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error {
	return r.close()
}

// Run decodes the replay and delivers each tick to h. It stops at the end of the
// stream or at the first error from the decoder or the handler.
func (r *Runner) Run(h replay.TickHandler) (err error) {
	rc, err := Open(r.path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close replay: %w", cerr)
		}
	}()

	return Replay(rc, h, r.logger)
}

// Replay runs h over an already opened frame stream.
func Replay(in io.Reader, h replay.TickHandler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1<<20), maxFrameSize)

	state := NewState()
	lastTick := -1
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		frame, err := DecodeFrame(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if frame.Tick <= lastTick {
			return fmt.Errorf("line %d: %w: tick %d after %d", line, ErrBadFrame, frame.Tick, lastTick)
		}
		if err := frame.Apply(state); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		lastTick = frame.Tick

		if err := h.OnTick(state); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read replay: %w", err)
	}

	logger.Debug("Replay stream exhausted", "frames", line, "state", state.String())
	return nil
}
