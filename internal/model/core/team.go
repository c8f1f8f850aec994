// internal/model/core/team.go
package core

// Side numbers as the engine reports them in m_iTeamNum.
const (
	SideRadiant = 2
	SideDire    = 3
)

// ValidSide reports whether side is one of the two playing sides.
func ValidSide(side int) bool {
	return side == SideRadiant || side == SideDire
}

// Team is the live state of one side. It is owned by the sampler and mutated
// in place every sampled tick.
type Team struct {
	ID            int                 `json:"teamId"`
	Players       []*Player           `json:"players"`
	Buildings     map[string]Building `json:"buildings"`
	ObserverWards []Ward              `json:"observerWards"`
	Totals
}

// Totals are the interval counters folded from the side's players. They are
// zeroed at the start of every sampled tick.
type Totals struct {
	TotalCampsStacked  int `json:"totalCampsStacked"`
	TotalRunePickups   int `json:"totalRunePickups"`
	TotalTowersKilled  int `json:"totalTowersKilled"`
	TotalRoshansKilled int `json:"totalRoshansKilled"`
	TotalSmokesUsed    int `json:"totalSmokesUsed"`
}

// NewTeam creates an empty team for side.
func NewTeam(side int) *Team {
	return &Team{
		ID:            side,
		Players:       []*Player{},
		Buildings:     make(map[string]Building),
		ObserverWards: []Ward{},
	}
}

// Add accumulates c into the totals.
func (t *Totals) Add(c Totals) {
	t.TotalCampsStacked += c.TotalCampsStacked
	t.TotalRunePickups += c.TotalRunePickups
	t.TotalTowersKilled += c.TotalTowersKilled
	t.TotalRoshansKilled += c.TotalRoshansKilled
	t.TotalSmokesUsed += c.TotalSmokesUsed
}

// Building is the last observed state of a structure. Records are replaced
// wholesale, never mutated.
type Building struct {
	Name   string `json:"name"`
	Team   int    `json:"team"`
	Health int    `json:"health"`
}

// Ward is an alive observer ward position.
type Ward struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Snapshot is an independent copy of both sides at one match time.
type Snapshot struct {
	MatchTime int   `json:"-"`
	Radiant   *Team `json:"radiant"`
	Dire      *Team `json:"dire"`
}

// Clone returns a copy of the team that shares no mutable state with t.
// Building values are immutable and are copied by value.
func (t *Team) Clone() *Team {
	c := &Team{
		ID:            t.ID,
		Players:       make([]*Player, len(t.Players)),
		Buildings:     make(map[string]Building, len(t.Buildings)),
		ObserverWards: make([]Ward, len(t.ObserverWards)),
		Totals:        t.Totals,
	}
	for i, p := range t.Players {
		c.Players[i] = p.Clone()
	}
	for k, b := range t.Buildings {
		c.Buildings[k] = b
	}
	copy(c.ObserverWards, t.ObserverWards)
	return c
}
