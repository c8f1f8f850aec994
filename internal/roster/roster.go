// Package roster binds the ten participating players to stable output slots.
package roster

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

const (
	// PlayerCount is the number of players a complete roster binds.
	PlayerCount = 10
	// MaxScan bounds the candidate indices probed on the player resource.
	MaxScan = 30
	// DireSlotBase offsets dire slot values from radiant ones.
	DireSlotBase = 128
)

// PlayerResourceClass is the entity holding roster-scoped player data.
const PlayerResourceClass = "CDOTA_PlayerResource"

// ErrIncompleteRoster is returned when fewer than PlayerCount players are found.
var ErrIncompleteRoster = errors.New("incomplete roster")

// SlotValue computes the canonical slot value of a side's team slot.
func SlotValue(side, teamSlot int) int {
	if side == core.SideRadiant {
		return teamSlot
	}
	return DireSlotBase + teamSlot
}

// Registry holds the bound players. Registration happens once; later calls
// are no-ops.
type Registry struct {
	logger  *slog.Logger
	players []*core.Player
	bound   bool
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Bound reports whether registration has succeeded.
func (r *Registry) Bound() bool {
	return r.bound
}

// Register scans the player resource and binds PlayerCount players in the
// order their indices are encountered.
func (r *Registry) Register(resource replay.Entity) error {
	if r.bound {
		return nil
	}

	var found []*core.Player
	for i := 0; i < MaxScan && len(found) < PlayerCount; i++ {
		p, err := probe(resource, i)
		if err != nil {
			r.logger.Debug("Skipping player candidate", "index", i, "error", err)
			continue
		}
		if p == nil {
			continue
		}
		p.Key = strconv.Itoa(len(found))
		found = append(found, p)
	}

	if len(found) < PlayerCount {
		return fmt.Errorf("%w: expected %d players, found %d", ErrIncompleteRoster, PlayerCount, len(found))
	}

	for _, p := range found {
		r.logger.Debug("Registered player",
			"key", p.Key, "value", p.Value, "team", p.Team, "name", p.Name, "index", p.Index)
	}
	r.players = found
	r.bound = true
	r.logger.Debug("Roster bound", "bindings", r.Bindings())
	return nil
}

var (
	errNoTeam     = errors.New("team not reported")
	errNoTeamSlot = errors.New("team slot not reported")
)

// probe reads one candidate. A nil player with nil error means the candidate
// is not on a playing side.
func probe(resource replay.Entity, i int) (*core.Player, error) {
	side, ok := replay.Int(resource, "m_vecPlayerData.%i.m_iPlayerTeam", i)
	if !ok {
		return nil, errNoTeam
	}
	if !core.ValidSide(side) {
		return nil, nil
	}
	teamSlot, ok := replay.Int(resource, "m_vecPlayerTeamData.%i.m_iTeamSlot", i)
	if !ok {
		return nil, errNoTeamSlot
	}

	name, _ := replay.String(resource, "m_vecPlayerData.%i.m_iszPlayerName", i)
	steamID, _ := replay.Int64(resource, "m_vecPlayerData.%i.m_iPlayerSteamID", i)

	return &core.Player{
		Value:    SlotValue(side, teamSlot),
		Team:     side,
		Name:     name,
		SteamID:  steamID,
		Index:    i,
		TeamSlot: teamSlot,
		HeroState: core.HeroState{
			Inventory: []core.Item{},
		},
	}, nil
}

// Players returns the bound players in registration order.
func (r *Registry) Players() []*core.Player {
	return r.players
}

// Bindings maps registration keys to slot values.
func (r *Registry) Bindings() map[string]int {
	out := make(map[string]int, len(r.players))
	for _, p := range r.players {
		out[p.Key] = p.Value
	}
	return out
}
