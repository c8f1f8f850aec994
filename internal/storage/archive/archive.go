// Package archive implements the storage.Backend interface on a GORM database,
// keeping every snapshot as a JSON payload plus queryable per-player,
// per-building and per-ward rows.
package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dota-timeslice/replay-sampler/internal/database"
	"github.com/dota-timeslice/replay-sampler/internal/model"
	"github.com/dota-timeslice/replay-sampler/internal/model/convert"
	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/internal/snapshot"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the archive backend.
type Dependencies struct {
	Manager *database.Manager
	Logger  *slog.Logger
}

// Backend archives snapshots in SQLite or Postgres.
type Backend struct {
	deps    Dependencies
	db      *gorm.DB
	match   *model.Match
	samples int
}

// New creates a new archive backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init connects the manager when needed and migrates the schema.
func (b *Backend) Init() error {
	m := b.deps.Manager
	if m == nil {
		return errors.New("archive backend has no database manager")
	}
	if !m.IsValid {
		if err := m.Connect(); err != nil {
			return fmt.Errorf("failed to connect archive: %w", err)
		}
	}
	if err := m.Setup(); err != nil {
		return fmt.Errorf("failed to setup archive: %w", err)
	}
	b.db = m.DB
	return nil
}

// StartMatch inserts the match row all samples hang off.
func (b *Backend) StartMatch(m *core.Match) error {
	if b.db == nil {
		return errors.New("archive backend not initialized")
	}
	row := convert.CoreToMatch(*m)
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to archive match: %w", err)
	}
	b.match = &row
	b.samples = 0
	b.deps.Logger.Debug("Archiving match", "matchId", row.ID, "replay", row.Replay)
	return nil
}

// RecordSnapshot writes the payload and its flattened rows in one transaction.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	if b.match == nil {
		return errors.New("archive backend has no active match")
	}
	payload, err := snapshot.Encode(s)
	if err != nil {
		return err
	}

	matchID := b.match.ID
	err = b.db.Transaction(func(tx *gorm.DB) error {
		row := convert.CoreToSnapshot(matchID, *s, payload)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if players := convert.CoreToPlayerSamples(matchID, *s); len(players) > 0 {
			if err := tx.Create(&players).Error; err != nil {
				return err
			}
		}
		if buildings := convert.CoreToBuildingSamples(matchID, *s); len(buildings) > 0 {
			if err := tx.Create(&buildings).Error; err != nil {
				return err
			}
		}
		if wards := convert.CoreToWardSamples(matchID, *s); len(wards) > 0 {
			if err := tx.Create(&wards).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to archive snapshot at %d: %w", s.MatchTime, err)
	}
	b.samples++
	return nil
}

// EndMatch stamps the match with its end time and sample count.
func (b *Backend) EndMatch() error {
	if b.match == nil {
		return nil
	}
	err := b.db.Model(b.match).Updates(map[string]any{
		"ended_at": sql.NullTime{Time: time.Now().UTC(), Valid: true},
		"samples":  b.samples,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to finish archived match: %w", err)
	}
	matchID := b.match.ID
	b.match = nil
	if err := b.verify(matchID); err != nil {
		return err
	}
	b.deps.Logger.Debug("Archived match", "matchId", matchID, "samples", b.samples)
	return nil
}

// Close releases the database connection.
func (b *Backend) Close() error {
	if b.deps.Manager == nil {
		return nil
	}
	return b.deps.Manager.Close()
}

// MatchID returns the archived ID of the active match, zero when none.
func (b *Backend) MatchID() uint {
	if b.match == nil {
		return 0
	}
	return b.match.ID
}

// verify reads the finished match back and checks that every recorded
// snapshot decodes, in strictly increasing match time.
func (b *Backend) verify(matchID uint) error {
	snaps, err := LoadSnapshots(b.db, matchID)
	if err != nil {
		return fmt.Errorf("failed to verify archived match %d: %w", matchID, err)
	}
	if len(snaps) != b.samples {
		return fmt.Errorf("archived match %d holds %d snapshots, recorded %d", matchID, len(snaps), b.samples)
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i].MatchTime <= snaps[i-1].MatchTime {
			return fmt.Errorf("archived match %d repeats match time %d", matchID, snaps[i].MatchTime)
		}
	}
	return nil
}

// LoadSnapshots reads a match's snapshots back in match time order.
func LoadSnapshots(db *gorm.DB, matchID uint) ([]core.Snapshot, error) {
	var rows []model.Snapshot
	if err := db.Where("match_id = ?", matchID).Order("match_time").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	out := make([]core.Snapshot, 0, len(rows))
	for _, r := range rows {
		s, err := convert.SnapshotToCore(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
