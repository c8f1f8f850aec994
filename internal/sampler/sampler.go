// Package sampler drives the per-tick pipeline: clock, roster, extraction,
// structures, wards and snapshot emission.
package sampler

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dota-timeslice/replay-sampler/internal/clock"
	"github.com/dota-timeslice/replay-sampler/internal/extract"
	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/internal/roster"
	"github.com/dota-timeslice/replay-sampler/internal/snapshot"
	"github.com/dota-timeslice/replay-sampler/internal/storage"
	"github.com/dota-timeslice/replay-sampler/internal/structures"
	"github.com/dota-timeslice/replay-sampler/internal/wards"
	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

// Recorder receives run counters. *metrics.Metrics implements it.
type Recorder interface {
	extract.Recorder
	TickSeen()
	SampleWritten(matchTime int, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) SlotFailure(string)               {}
func (nopRecorder) TickSeen()                        {}
func (nopRecorder) SampleWritten(int, time.Duration) {}

// Options configures a Sampler.
type Options struct {
	Interval         int
	IncludeAbilities bool
	Logger           *slog.Logger
	Recorder         Recorder
}

// Sampler owns both live teams and writes one snapshot per eligible tick.
// It is driven from a single goroutine; only Samples and LogAttrs may be
// called from others.
type Sampler struct {
	clock      *clock.Clock
	roster     *roster.Registry
	extractor  *extract.Extractor
	classifier *structures.Classifier
	backend    storage.Backend
	logger     *slog.Logger
	recorder   Recorder

	radiant *core.Team
	dire    *core.Team
	teams   map[int]*core.Team

	pos position
}

// position mirrors the clock for readers on other goroutines.
type position struct {
	started   atomic.Bool
	matchTime atomic.Int64
	samples   atomic.Int64
}

// New creates a sampler writing to backend. It fails on an invalid interval.
func New(backend storage.Backend, opts Options) (*Sampler, error) {
	c, err := clock.New(opts.Interval)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var recorder Recorder = nopRecorder{}
	if opts.Recorder != nil {
		recorder = opts.Recorder
	}

	radiant := core.NewTeam(core.SideRadiant)
	dire := core.NewTeam(core.SideDire)
	return &Sampler{
		clock:  c,
		roster: roster.New(logger),
		extractor: extract.New(extract.Options{
			IncludeAbilities: opts.IncludeAbilities,
			Logger:           logger,
			Recorder:         recorder,
		}),
		classifier: structures.New(logger),
		backend:    backend,
		logger:     logger,
		recorder:   recorder,
		radiant:    radiant,
		dire:       dire,
		teams: map[int]*core.Team{
			core.SideRadiant: radiant,
			core.SideDire:    dire,
		},
	}, nil
}

// OnTick implements replay.TickHandler. Only roster and snapshot write
// failures are returned; missing entities skip the tick.
func (s *Sampler) OnTick(ctx replay.Context) error {
	s.recorder.TickSeen()
	ents := ctx.Entities()

	rules, ok := ents.ByClassName(clock.GameRulesClass)
	if !ok {
		return nil
	}
	matchTime, eligible := s.clock.Advance(ctx.Tick(), clock.ReadGameRules(rules))
	if s.clock.Started() {
		s.pos.matchTime.Store(int64(matchTime))
		s.pos.started.Store(true)
	}
	if !eligible {
		return nil
	}
	started := time.Now()

	extract.ResetTotals(s.radiant, s.dire)

	resource, ok := ents.ByClassName(roster.PlayerResourceClass)
	if !ok {
		s.logger.Debug("Player resource not available", "matchTime", matchTime)
		return nil
	}
	if !s.roster.Bound() {
		if err := s.register(resource); err != nil {
			return err
		}
	}

	now := s.clock.Now()
	w := extract.World{
		Resource: resource,
		Data:     make(map[int]replay.Entity, 2),
		Entities: ents,
		Now:      &now,
	}
	for side := range s.teams {
		if data, ok := ents.ByClassName(extract.DataClass(side)); ok {
			w.Data[side] = data
		}
	}
	if names, ok := ctx.StringTable(replay.EntityNamesTable); ok {
		w.Names = names
	}

	for _, p := range s.roster.Players() {
		extract.Fold(s.teams, p.Team, s.extractor.Player(w, p))
	}

	s.classifier.Update(ents, w.Names, s.teams)
	wards.Update(ents, s.teams, s.logger)

	snap := snapshot.Take(matchTime, s.radiant, s.dire)
	if err := s.backend.RecordSnapshot(&snap); err != nil {
		return fmt.Errorf("failed to write snapshot at matchTime=%d: %w", matchTime, err)
	}
	s.pos.samples.Add(1)
	s.recorder.SampleWritten(matchTime, time.Since(started))
	return nil
}

func (s *Sampler) register(resource replay.Entity) error {
	if err := s.roster.Register(resource); err != nil {
		return fmt.Errorf("failed to register players: %w", err)
	}
	for _, p := range s.roster.Players() {
		team := s.teams[p.Team]
		team.Players = append(team.Players, p)
	}
	s.logger.Info("Players registered",
		"radiant", len(s.radiant.Players), "dire", len(s.dire.Players))
	return nil
}

// Samples is the number of snapshots written so far.
func (s *Sampler) Samples() int {
	return int(s.pos.samples.Load())
}

// LogAttrs returns the sampler position for log enrichment. It is safe to
// call while OnTick runs.
func (s *Sampler) LogAttrs() []slog.Attr {
	if !s.pos.started.Load() {
		return nil
	}
	return []slog.Attr{
		slog.Int64("matchTime", s.pos.matchTime.Load()),
		slog.Int64("samples", s.pos.samples.Load()),
	}
}
