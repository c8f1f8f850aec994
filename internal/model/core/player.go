// internal/model/core/player.go
package core

// Player is one registered participant. Identity fields are bound once at
// registration; Stats and HeroState are replaced every sample.
type Player struct {
	Key     string `json:"key"`
	Value   int    `json:"value"`
	Team    int    `json:"team"`
	Name    string `json:"name"`
	SteamID int64  `json:"steamId"`

	// Index is the roster index the player was bound from.
	Index int `json:"-"`
	// TeamSlot keys the side-scoped data arrays.
	TeamSlot int `json:"-"`

	Stats
	HeroState
}

// Stats are the per-sample attributes read from the player resource and the
// side data entities. Nil means the engine did not report the field.
type Stats struct {
	HeroID      *int `json:"heroId"`
	HeroVariant *int `json:"heroVariant"`

	Level *int `json:"level"`
	XP    *int `json:"xp"`

	Networth    *int `json:"networth"`
	TotalGold   *int `json:"totalGold"`
	CurrentGold int  `json:"currentGold"`

	RespawnSeconds  *int     `json:"respawnSeconds"`
	BuybackCooldown *float32 `json:"buybackCooldown"`

	HeroDamage               *int     `json:"heroDamage"`
	TowerDamage              *int     `json:"towerDamage"`
	DamageTakenPreReduction  int      `json:"damageTakenPreReduction"`
	DamageTakenPostReduction int      `json:"damageTakenPostReduction"`
	Healing                  *float32 `json:"healing"`

	Kills   *int `json:"kills"`
	Deaths  *int `json:"deaths"`
	Assists *int `json:"assists"`

	LastHits *int `json:"lastHits"`
	Denies   *int `json:"denies"`

	TeamfightParticipation *float32 `json:"teamfightParticipation"`

	ObsPlaced *int `json:"obsPlaced"`
	SenPlaced *int `json:"senPlaced"`
}

// HeroState is read from the selected hero entity. It keeps its previous value
// on ticks where the hero handle does not resolve.
type HeroState struct {
	X         *float32  `json:"x"`
	Y         *float32  `json:"y"`
	LifeState *int      `json:"lifeState"`
	Unit      *string   `json:"unit"`
	Inventory []Item    `json:"inventory"`
	Abilities []Ability `json:"abilities,omitempty"`
}

// Item is an occupied inventory slot.
type Item struct {
	ID                  string `json:"id"`
	Slot                int    `json:"slot"`
	NumCharges          int    `json:"num_charges,omitempty"`
	NumSecondaryCharges int    `json:"num_secondary_charges,omitempty"`
}

// Ability is a learned hero ability.
type Ability struct {
	ID    string `json:"id"`
	Level *int   `json:"abilityLevel"`
}

// Clone returns a deep copy of the player.
func (p *Player) Clone() *Player {
	c := *p
	c.Stats = p.Stats.clone()
	c.HeroState = p.HeroState.clone()
	return &c
}

func (s Stats) clone() Stats {
	s.HeroID = clonePtr(s.HeroID)
	s.HeroVariant = clonePtr(s.HeroVariant)
	s.Level = clonePtr(s.Level)
	s.XP = clonePtr(s.XP)
	s.Networth = clonePtr(s.Networth)
	s.TotalGold = clonePtr(s.TotalGold)
	s.RespawnSeconds = clonePtr(s.RespawnSeconds)
	s.BuybackCooldown = clonePtr(s.BuybackCooldown)
	s.HeroDamage = clonePtr(s.HeroDamage)
	s.TowerDamage = clonePtr(s.TowerDamage)
	s.Healing = clonePtr(s.Healing)
	s.Kills = clonePtr(s.Kills)
	s.Deaths = clonePtr(s.Deaths)
	s.Assists = clonePtr(s.Assists)
	s.LastHits = clonePtr(s.LastHits)
	s.Denies = clonePtr(s.Denies)
	s.TeamfightParticipation = clonePtr(s.TeamfightParticipation)
	s.ObsPlaced = clonePtr(s.ObsPlaced)
	s.SenPlaced = clonePtr(s.SenPlaced)
	return s
}

func (h HeroState) clone() HeroState {
	h.X = clonePtr(h.X)
	h.Y = clonePtr(h.Y)
	h.LifeState = clonePtr(h.LifeState)
	h.Unit = clonePtr(h.Unit)
	if h.Inventory != nil {
		inventory := make([]Item, len(h.Inventory))
		copy(inventory, h.Inventory)
		h.Inventory = inventory
	}
	if h.Abilities != nil {
		abilities := make([]Ability, len(h.Abilities))
		for i, a := range h.Abilities {
			abilities[i] = Ability{ID: a.ID, Level: clonePtr(a.Level)}
		}
		h.Abilities = abilities
	}
	return h
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
