// Package clock derives match time from the gamerules entity and decides which
// ticks are sampled.
package clock

import (
	"errors"
	"fmt"
	"math"

	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

// TickRate is the number of simulation ticks per game second.
const TickRate = 30

// PostGameState is the first game state at which sampling stops.
const PostGameState = 6

// GameRulesClass is the entity carrying the game rules.
const GameRulesClass = "CDOTAGamerulesProxy"

// ErrInvalidInterval is returned for a sampling interval below one second.
var ErrInvalidInterval = errors.New("sampling interval must be a positive integer")

// Reading is one tick's worth of gamerules fields. Nil means not reported.
type Reading struct {
	GameStartTime    *float32
	GameState        *int
	GameTime         *float32
	Paused           *bool
	PauseStartTick   *int
	TotalPausedTicks *int
}

// ReadGameRules pulls the clock fields off the gamerules entity.
func ReadGameRules(e replay.Entity) Reading {
	return Reading{
		GameStartTime:    replay.Ptr(replay.Float(e, "m_pGameRules.m_flGameStartTime")),
		GameState:        replay.Ptr(replay.Int(e, "m_pGameRules.m_nGameState")),
		GameTime:         replay.Ptr(replay.Float(e, "m_pGameRules.m_fGameTime")),
		Paused:           replay.Ptr(replay.Bool(e, "m_pGameRules.m_bGamePaused")),
		PauseStartTick:   replay.Ptr(replay.Int(e, "m_pGameRules.m_nPauseStartTick")),
		TotalPausedTicks: replay.Ptr(replay.Int(e, "m_pGameRules.m_nTotalPausedTicks")),
	}
}

// Clock tracks match time across ticks. The zero value is not usable; use New.
type Clock struct {
	interval  int
	start     int
	started   bool
	now       int
	matchTime int
	lastKey   int // match time of the last eligible tick
}

// New creates a clock sampling every interval seconds.
func New(interval int) (*Clock, error) {
	if interval < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidInterval, interval)
	}
	return &Clock{interval: interval}, nil
}

// Started reports whether the game start time has been latched.
func (c *Clock) Started() bool {
	return c.started
}

// Now is the game time in whole seconds as of the last clocked tick.
func (c *Clock) Now() int {
	return c.now
}

// Advance folds one tick into the clock and reports the match time and whether
// the tick should be sampled. Eligible match times strictly increase, so a
// frozen clock during a pause never yields the same key twice.
func (c *Clock) Advance(tick int, r Reading) (matchTime int, eligible bool) {
	if !c.started && r.GameStartTime != nil && *r.GameStartTime > 0 {
		c.start = int(math.Floor(float64(*r.GameStartTime)))
		c.started = true
	}
	if !c.started {
		return 0, false
	}
	if r.GameState == nil || *r.GameState >= PostGameState {
		return c.matchTime, false
	}

	c.now = current(tick, r)
	c.matchTime = c.now - c.start

	if c.matchTime <= c.lastKey || tick%(TickRate*c.interval) != 0 {
		return c.matchTime, false
	}
	c.lastKey = c.matchTime
	return c.matchTime, true
}

func current(tick int, r Reading) int {
	if r.GameTime != nil {
		return int(math.Floor(float64(*r.GameTime)))
	}

	effective := tick
	if r.Paused != nil && *r.Paused && r.PauseStartTick != nil {
		effective = *r.PauseStartTick
	}
	paused := 0
	if r.TotalPausedTicks != nil {
		paused = *r.TotalPausedTicks
	}
	return int(math.Floor(float64(effective-paused) / TickRate))
}
