// Package monitor reports the progress of a running sampling job.
package monitor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dota-timeslice/replay-sampler/internal/metrics"
	json "github.com/goccy/go-json"
)

// DefaultInterval is used when Dependencies.Interval is not set.
const DefaultInterval = 10 * time.Second

// ProgressSource is read from the monitor goroutine and must be safe for
// concurrent use. *metrics.Metrics implements it.
type ProgressSource interface {
	Progress() metrics.Progress
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger     *slog.Logger
	Source     ProgressSource
	Replay     string
	StatusPath string // optional status file rewritten every interval
	Interval   time.Duration
}

// Status is the content of the status file.
type Status struct {
	Time    time.Time `json:"time"`
	Replay  string    `json:"replay"`
	Running bool      `json:"running"`
	metrics.Progress
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current job status
func (s *Service) GetStatus() Status {
	return Status{
		Time:     time.Now().UTC(),
		Replay:   s.deps.Replay,
		Running:  s.IsRunning(),
		Progress: s.deps.Source.Progress(),
	}
}

// WriteStatus rewrites the status file, if one is configured.
func (s *Service) WriteStatus(st Status) error {
	if s.deps.StatusPath == "" {
		return nil
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.deps.StatusPath), 0755); err != nil {
		return fmt.Errorf("failed to create status dir: %w", err)
	}
	// readers never see a partial file
	tmp := s.deps.StatusPath + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return os.Rename(tmp, s.deps.StatusPath)
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		logger := s.deps.Logger
		logger.Debug("Starting status monitor", "interval", s.deps.Interval, "statusPath", s.deps.StatusPath)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				st := s.GetStatus()
				logger.Info("Sampling progress",
					"ticks", st.Ticks,
					"samples", st.Samples,
					"lastMatchTime", st.LastMatchTime)
				if err := s.WriteStatus(st); err != nil {
					logger.Warn("Error writing status file", "error", err)
				}
			}
		}
	}()
}

// Stop stops the status monitor and writes a final status.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()

	<-done
	if err := s.WriteStatus(s.GetStatus()); err != nil {
		s.deps.Logger.Warn("Error writing status file", "error", err)
	}
}
