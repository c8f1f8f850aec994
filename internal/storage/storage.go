// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
)

// Backend is the interface all snapshot sinks must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management
	StartMatch(m *core.Match) error
	EndMatch() error

	// Sample recording; s is never mutated after the call
	RecordSnapshot(s *core.Snapshot) error
}

// Multi fans every call out to its backends in order.
type Multi struct {
	backends []Backend
}

// NewMulti creates a fan-out over backends. Nil entries are dropped.
func NewMulti(backends ...Backend) *Multi {
	valid := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			valid = append(valid, b)
		}
	}
	return &Multi{backends: valid}
}

// Len returns the number of backends.
func (m *Multi) Len() int {
	return len(m.backends)
}

// Init initializes every backend. On failure the backends already
// initialized are closed again.
func (m *Multi) Init() error {
	for i, b := range m.backends {
		if err := b.Init(); err != nil {
			errs := []error{err}
			for j := i - 1; j >= 0; j-- {
				errs = append(errs, m.backends[j].Close())
			}
			return errors.Join(errs...)
		}
	}
	return nil
}

// Close closes every backend, even when some fail.
func (m *Multi) Close() error {
	var errs []error
	for _, b := range m.backends {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}

// StartMatch forwards to every backend and stops at the first error.
func (m *Multi) StartMatch(match *core.Match) error {
	for _, b := range m.backends {
		if err := b.StartMatch(match); err != nil {
			return err
		}
	}
	return nil
}

// EndMatch forwards to every backend.
func (m *Multi) EndMatch() error {
	var errs []error
	for _, b := range m.backends {
		errs = append(errs, b.EndMatch())
	}
	return errors.Join(errs...)
}

// RecordSnapshot forwards to every backend and stops at the first error.
func (m *Multi) RecordSnapshot(s *core.Snapshot) error {
	for _, b := range m.backends {
		if err := b.RecordSnapshot(s); err != nil {
			return err
		}
	}
	return nil
}
