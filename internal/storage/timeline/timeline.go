// Package timeline implements the storage.Backend interface by exporting each
// sample as InfluxDB team and player points.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dota-timeslice/replay-sampler/internal/influx"
	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Writer is the part of influx.Manager the backend uses.
type Writer interface {
	Connect(ctx context.Context) error
	WritePoint(point *influxdb2_write.Point) error
	Close() error
}

var _ Writer = (*influx.Manager)(nil)

// Backend streams samples to an InfluxDB bucket.
type Backend struct {
	w      Writer
	logger *slog.Logger

	replay    string
	startedAt time.Time
	points    int
}

// New creates a timeline backend over w.
func New(w Writer, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{w: w, logger: logger}
}

// Init connects the writer.
func (b *Backend) Init() error {
	if b.w == nil {
		return errors.New("timeline backend has no writer")
	}
	if err := b.w.Connect(context.Background()); err != nil {
		return fmt.Errorf("failed to connect timeline: %w", err)
	}
	return nil
}

// StartMatch records the replay tag and the time base of the points.
func (b *Backend) StartMatch(m *core.Match) error {
	b.replay = filepath.Base(m.Replay)
	b.startedAt = m.StartedAt
	if b.startedAt.IsZero() {
		b.startedAt = time.Now().UTC()
	}
	b.points = 0
	return nil
}

// RecordSnapshot writes one totals point per team and one point per player.
// Write failures are logged; the timeline is auxiliary output.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	at := influx.SampleTime(b.startedAt, s.MatchTime)
	for _, team := range []*core.Team{s.Radiant, s.Dire} {
		if team == nil {
			continue
		}
		b.write(influx.TeamPoint(b.replay, at, s.MatchTime, team))
		for _, p := range team.Players {
			b.write(influx.PlayerPoint(b.replay, at, s.MatchTime, p))
		}
	}
	return nil
}

func (b *Backend) write(p *influxdb2_write.Point) {
	if err := b.w.WritePoint(p); err != nil {
		b.logger.Warn("Failed to write timeline point", "measurement", p.Name(), "error", err)
		return
	}
	b.points++
}

// EndMatch logs how many points the match produced.
func (b *Backend) EndMatch() error {
	b.logger.Debug("Timeline export finished", "replay", b.replay, "points", b.points)
	return nil
}

// Close flushes and closes the writer.
func (b *Backend) Close() error {
	if b.w == nil {
		return nil
	}
	return b.w.Close()
}
