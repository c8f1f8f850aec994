// Package structures classifies tower, barracks and ancient entities into
// canonical building keys and keeps their last known state.
package structures

import (
	"log/slog"
	"strings"

	"github.com/dota-timeslice/replay-sampler/internal/extract"
	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

// ClassMarkers select structure entities by class name.
var ClassMarkers = []string{"Tower", "Barracks", "Fort"}

// Tier-4 keys.
const (
	Tier4A = "tier4a"
	Tier4B = "tier4b"
)

type rule struct {
	marker string
	key    string
}

// rules are checked in order; the first marker contained in the name wins.
var rules = []rule{
	{"tower1_top", "topTier1"},
	{"tower2_top", "topTier2"},
	{"tower3_top", "topTier3"},
	{"tower1_mid", "midTier1"},
	{"tower2_mid", "midTier2"},
	{"tower3_mid", "midTier3"},
	{"tower1_bot", "botTier1"},
	{"tower2_bot", "botTier2"},
	{"tower3_bot", "botTier3"},
	{"tower4", ""},
	{"rax_melee_top", "topRaxMelee"},
	{"rax_range_top", "topRaxRanged"},
	{"rax_melee_mid", "midRaxMelee"},
	{"rax_range_mid", "midRaxRanged"},
	{"rax_melee_bot", "botRaxMelee"},
	{"rax_range_bot", "botRaxRanged"},
	{"fort", "ancient"},
}

// IsStructure reports whether a class name belongs to a structure family.
func IsStructure(className string) bool {
	for _, m := range ClassMarkers {
		if strings.Contains(className, m) {
			return true
		}
	}
	return false
}

// Key maps a raw structure name to its canonical key. Tier-4 towers report
// tier4=true and an empty key unless the name places them top or bottom.
func Key(name string) (key string, tier4 bool, ok bool) {
	for _, r := range rules {
		if !strings.Contains(name, r.marker) {
			continue
		}
		if r.key != "" {
			return r.key, false, true
		}
		switch {
		case strings.Contains(name, "top"):
			return Tier4A, true, true
		case strings.Contains(name, "bot"):
			return Tier4B, true, true
		}
		return "", true, true
	}
	return "", false, false
}

// Classifier updates team building maps from live structures.
type Classifier struct {
	logger *slog.Logger
	// tier4 remembers the slot given to an unplaced tier-4 tower, per side.
	tier4 map[int]map[string]string
}

// New creates a Classifier.
func New(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		logger: logger,
		tier4:  make(map[int]map[string]string),
	}
}

type sighting struct {
	team   *core.Team
	key    string
	name   string
	health int
}

// Update classifies every live structure into its side's building map, then
// marks known buildings that were not seen this tick as destroyed. Tier-4
// towers placed by name are resolved before unplaced ones.
func (c *Classifier) Update(ents replay.Entities, names replay.StringTable, teams map[int]*core.Team) {
	if names == nil {
		c.logger.Debug("EntityNames table not available, skipping structures")
		return
	}

	seen := make(map[int]map[string]bool, len(teams))
	for side := range teams {
		seen[side] = make(map[string]bool)
	}

	var placed, unplaced []sighting
	for _, e := range ents.All() {
		if !IsStructure(e.ClassName()) {
			continue
		}
		health, okH := replay.Int(e, "m_iHealth")
		side, okT := replay.Int(e, "m_iTeamNum")
		if !okH || !okT || !core.ValidSide(side) {
			continue
		}
		team, ok := teams[side]
		if !ok {
			continue
		}
		name, ok := extract.EntityName(names, e)
		if !ok {
			continue
		}
		seen[side][name] = true

		key, tier4, ok := Key(name)
		if !ok {
			continue
		}
		s := sighting{team: team, key: key, name: name, health: health}
		if tier4 && key == "" {
			unplaced = append(unplaced, s)
			continue
		}
		if tier4 {
			c.claim(team, key, name)
		}
		placed = append(placed, s)
	}

	for _, s := range placed {
		s.team.Buildings[s.key] = core.Building{Name: s.name, Team: s.team.ID, Health: s.health}
	}
	for _, s := range unplaced {
		key, ok := c.tier4Slot(s.team, s.name)
		if !ok {
			c.logger.Warn("No free tier-4 slot", "team", s.team.ID, "name", s.name)
			continue
		}
		s.team.Buildings[key] = core.Building{Name: s.name, Team: s.team.ID, Health: s.health}
	}

	for side, team := range teams {
		for key, b := range team.Buildings {
			if !seen[side][b.Name] {
				team.Buildings[key] = core.Building{Name: b.Name, Team: side, Health: 0}
			}
		}
	}
}

func otherTier4(key string) string {
	if key == Tier4A {
		return Tier4B
	}
	return Tier4A
}

func (c *Classifier) assigned(team int) map[string]string {
	a, ok := c.tier4[team]
	if !ok {
		a = make(map[string]string)
		c.tier4[team] = a
	}
	return a
}

// claim gives key to a tier-4 tower placed by name. An unplaced tower that
// held the key by discovery order moves to the other slot.
func (c *Classifier) claim(team *core.Team, key, name string) {
	assigned := c.assigned(team.ID)
	for other, held := range assigned {
		if held != key || other == name {
			continue
		}
		to := otherTier4(key)
		assigned[other] = to
		if b, ok := team.Buildings[key]; ok && b.Name == other {
			team.Buildings[to] = b
			delete(team.Buildings, key)
		}
		c.logger.Debug("Moved tier-4 slot for tower placed by name", "team", team.ID, "name", other, "key", to)
	}
}

// tier4Slot assigns an unplaced tier-4 tower to the first free slot. The
// assignment is kept for the rest of the run unless a tower placed by name
// claims it.
func (c *Classifier) tier4Slot(team *core.Team, name string) (string, bool) {
	assigned := c.assigned(team.ID)
	if key, ok := assigned[name]; ok {
		return key, true
	}

	for _, key := range []string{Tier4A, Tier4B} {
		if b, taken := team.Buildings[key]; taken && b.Name != name {
			continue
		}
		assigned[name] = key
		c.logger.Debug("Assigned tier-4 slot by discovery order", "team", team.ID, "name", name, "key", key)
		return key, true
	}
	return "", false
}
