package extract

import (
	"testing"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/internal/source"
	"github.com/dota-timeslice/replay-sampler/pkg/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder map[string]int

func (c countingRecorder) SlotFailure(kind string) { c[kind]++ }

func TestCurrentGold(t *testing.T) {
	assert.Equal(t, 150, CurrentGold(replay.Ptr(100, true), replay.Ptr(50, true)))
	assert.Equal(t, 100, CurrentGold(replay.Ptr(100, true), nil))
	assert.Equal(t, 0, CurrentGold(nil, nil))
}

func TestBuybackCooldown(t *testing.T) {
	tests := []struct {
		name   string
		expiry *float32
		now    *int
		want   *float32
	}{
		{"remaining", replay.Ptr(float32(120), true), replay.Ptr(100, true), replay.Ptr(float32(20), true)},
		{"expired", replay.Ptr(float32(80), true), replay.Ptr(100, true), replay.Ptr(float32(0), true)},
		{"floored", replay.Ptr(float32(120.75), true), replay.Ptr(100, true), replay.Ptr(float32(20), true)},
		{"unknown expiry", nil, replay.Ptr(100, true), nil},
		{"unknown time", replay.Ptr(float32(120), true), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuybackCooldown(tt.expiry, tt.now))
		})
	}
}

func TestDamageTaken(t *testing.T) {
	data := &source.Entity{Class: DataRadiantClass, Props: map[string]any{
		"m_vecDataTeam.0002.m_iDamageByTypeReceivedPreReduction.0000": int64(100),
		"m_vecDataTeam.0002.m_iDamageByTypeReceivedPreReduction.0001": int64(20),
		"m_vecDataTeam.0002.m_iDamageByTypeReceivedPreReduction.0002": int64(3),
		// only one type reported post reduction
		"m_vecDataTeam.0002.m_iDamageByTypeReceivedPostReduction.0001": int64(15),
	}}

	assert.Equal(t, 123, DamageTaken(data, "m_iDamageByTypeReceivedPreReduction", 2))
	assert.Equal(t, 15, DamageTaken(data, "m_iDamageByTypeReceivedPostReduction", 2))
	assert.Equal(t, 0, DamageTaken(nil, "m_iDamageByTypeReceivedPreReduction", 2))
}

func TestHidden(t *testing.T) {
	assert.True(t, Hidden("special_bonus_attack_speed_20"))
	assert.True(t, Hidden("plus_high_five"))
	assert.True(t, Hidden("abyssal_underlord_portal_warp"))
	assert.False(t, Hidden("axe_berserkers_call"))
}

const heroHandle = 1029

// world builds a world with one radiant player bound from roster index 3 at
// team slot 1. The hero carries a tango in slot 0, a blink dagger in slot 2 and
// an item handle that does not resolve in slot 5.
func world(t *testing.T) (*source.State, *core.Player) {
	t.Helper()
	s := source.NewState()

	s.Upsert(source.Entity{Index: 1, Handle: 1, Class: "CDOTA_PlayerResource", Props: map[string]any{
		"m_vecPlayerTeamData.0003.m_hSelectedHero":            int64(heroHandle),
		"m_vecPlayerTeamData.0003.m_nSelectedHeroID":          int64(2),
		"m_vecPlayerTeamData.0003.m_iLevel":                   int64(7),
		"m_vecPlayerTeamData.0003.m_iKills":                   int64(3),
		"m_vecPlayerTeamData.0003.m_iDeaths":                  int64(1),
		"m_vecPlayerTeamData.0003.m_flTeamFightParticipation": float64(0.5),
		// slot-indexed values must not leak into the roster-indexed lookup
		"m_vecPlayerTeamData.0001.m_iLevel": int64(25),
	}})
	s.Upsert(source.Entity{Index: 2, Handle: 2, Class: DataRadiantClass, Props: map[string]any{
		"m_vecDataTeam.0001.m_iReliableGold":         int64(100),
		"m_vecDataTeam.0001.m_iUnreliableGold":       int64(50),
		"m_vecDataTeam.0001.m_iNetWorth":             int64(4200),
		"m_vecDataTeam.0001.m_flBuybackCooldownTime": float64(120),
		"m_vecDataTeam.0001.m_iCampsStacked":         int64(2),
		"m_vecDataTeam.0001.m_iRunePickups":          int64(4),
		"m_vecDataTeam.0001.m_fHealing":              float64(12.5),
	}})
	s.Upsert(source.Entity{Index: 10, Handle: heroHandle, Class: "CDOTA_Unit_Hero_Axe", Props: map[string]any{
		"CBodyComponent.m_cellX": int64(5),
		"CBodyComponent.m_cellY": int64(100),
		"CBodyComponent.m_vecX":  float64(64),
		"CBodyComponent.m_vecY":  float64(32),
		"m_lifeState":            int64(0),
		"m_hItems.0000":          int64(2001),
		"m_hItems.0001":          int64(replay.EmptyHandle),
		"m_hItems.0002":          int64(2002),
		"m_hItems.0003":          int64(replay.EmptyHandle),
		"m_hItems.0004":          int64(replay.EmptyHandle),
		"m_hItems.0005":          int64(9999),
		"m_hItems.0006":          int64(replay.EmptyHandle),
		"m_hItems.0007":          int64(replay.EmptyHandle),
		"m_hAbilities.0000":      int64(3001),
		"m_hAbilities.0001":      int64(3002),
		"m_hAbilities.0002":      int64(replay.EmptyHandle),
	}})
	s.Upsert(source.Entity{Index: 20, Handle: 2001, Class: "CDOTA_Item_Tango", Props: map[string]any{
		"m_pEntity.m_nameStringableIndex": int64(40),
		"m_iCurrentCharges":               int64(3),
		"m_iSecondaryCharges":             int64(0),
	}})
	s.Upsert(source.Entity{Index: 21, Handle: 2002, Class: "CDOTA_Item_BlinkDagger", Props: map[string]any{
		"m_pEntity.m_nameStringableIndex": int64(41),
	}})
	s.Upsert(source.Entity{Index: 30, Handle: 3001, Class: "CDOTA_Ability_Axe_BerserkersCall", Props: map[string]any{
		"m_pEntity.m_nameStringableIndex": int64(50),
		"m_iLevel":                        int64(2),
	}})
	s.Upsert(source.Entity{Index: 31, Handle: 3002, Class: "CDOTA_Ability_Special_Bonus", Props: map[string]any{
		"m_pEntity.m_nameStringableIndex": int64(51),
	}})
	s.SetName(replay.EntityNamesTable, 40, "item_tango")
	s.SetName(replay.EntityNamesTable, 41, "item_blink")
	s.SetName(replay.EntityNamesTable, 50, "axe_berserkers_call")
	s.SetName(replay.EntityNamesTable, 51, "special_bonus_armor_5")

	p := &core.Player{Key: "0", Value: 1, Team: core.SideRadiant, Index: 3, TeamSlot: 1}
	return s, p
}

func worldOf(s *source.State, now int) World {
	resource, _ := s.ByClassName("CDOTA_PlayerResource")
	radiant, _ := s.ByClassName(DataRadiantClass)
	names, _ := s.StringTable(replay.EntityNamesTable)
	return World{
		Resource: resource,
		Data:     map[int]replay.Entity{core.SideRadiant: radiant},
		Entities: s,
		Names:    names,
		Now:      &now,
	}
}

func TestPlayer(t *testing.T) {
	s, p := world(t)
	rec := countingRecorder{}
	x := New(Options{Recorder: rec})

	totals := x.Player(worldOf(s, 100), p)

	require.NotNil(t, p.Level)
	assert.Equal(t, 7, *p.Level)
	assert.Equal(t, 2, *p.HeroID)
	assert.Nil(t, p.HeroVariant)
	assert.Equal(t, 3, *p.Kills)
	assert.Nil(t, p.Assists)
	assert.Equal(t, float32(0.5), *p.TeamfightParticipation)

	assert.Equal(t, 150, p.CurrentGold)
	assert.Equal(t, 4200, *p.Networth)
	assert.Equal(t, float32(20), *p.BuybackCooldown)
	assert.Equal(t, float32(12.5), *p.Healing)
	assert.Nil(t, p.TotalGold)
	assert.Equal(t, 0, p.DamageTakenPreReduction)

	require.NotNil(t, p.X)
	assert.Equal(t, float32(5.5), *p.X)
	assert.Equal(t, float32(100.25), *p.Y)
	assert.Equal(t, "CDOTA_Unit_Hero_Axe", *p.Unit)
	assert.Equal(t, 0, *p.LifeState)

	assert.Equal(t, []core.Item{
		{ID: "item_tango", Slot: 0, NumCharges: 3},
		{ID: "item_blink", Slot: 2},
	}, p.Inventory)
	assert.Equal(t, 1, rec["item"])
	assert.Nil(t, p.Abilities)

	assert.Equal(t, core.Totals{TotalCampsStacked: 2, TotalRunePickups: 4}, totals)
}

func TestPlayer_UnresolvedHeroKeepsHeroState(t *testing.T) {
	s, p := world(t)
	x := New(Options{})

	x.Player(worldOf(s, 100), p)
	require.NotNil(t, p.X)
	inventory := p.Inventory

	// hero leaves the world; the stats keep updating
	s.Delete(10)
	res, _ := s.ByClassName("CDOTA_PlayerResource")
	s.Upsert(source.Entity{Index: res.(*source.Entity).Index, Props: map[string]any{
		"m_vecPlayerTeamData.0003.m_iLevel": int64(8),
	}})

	x.Player(worldOf(s, 130), p)
	assert.Equal(t, 8, *p.Level)
	assert.Equal(t, float32(5.5), *p.X)
	assert.Equal(t, "CDOTA_Unit_Hero_Axe", *p.Unit)
	assert.Equal(t, inventory, p.Inventory)
	assert.Equal(t, float32(0), *p.BuybackCooldown)
}

func TestPlayer_StatsAreReplaced(t *testing.T) {
	s, p := world(t)
	x := New(Options{})

	x.Player(worldOf(s, 100), p)
	require.NotNil(t, p.Kills)

	res, _ := s.ByClassName("CDOTA_PlayerResource")
	delete(res.(*source.Entity).Props, "m_vecPlayerTeamData.0003.m_iKills")

	x.Player(worldOf(s, 100), p)
	assert.Nil(t, p.Kills)
}

func TestInventory_SentinelSlotsOmitted(t *testing.T) {
	s, _ := world(t)
	hero, ok := s.ByHandle(heroHandle)
	require.True(t, ok)

	items := New(Options{}).Inventory(worldOf(s, 0), hero)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.NotEmpty(t, it.ID)
	}
}

func TestInventory_NoNameTable(t *testing.T) {
	s, _ := world(t)
	hero, _ := s.ByHandle(heroHandle)
	rec := countingRecorder{}

	w := worldOf(s, 0)
	w.Names = nil
	items := New(Options{Recorder: rec}).Inventory(w, hero)
	assert.Empty(t, items)
	assert.NotNil(t, items)
	assert.Equal(t, 3, rec["item"])
}

func TestAbilities(t *testing.T) {
	s, p := world(t)
	x := New(Options{IncludeAbilities: true})

	x.Player(worldOf(s, 0), p)
	require.Len(t, p.Abilities, 1)
	assert.Equal(t, "axe_berserkers_call", p.Abilities[0].ID)
	assert.Equal(t, 2, *p.Abilities[0].Level)
}

func TestAbilities_LegacyPath(t *testing.T) {
	s, _ := world(t)
	s.Upsert(source.Entity{Index: 11, Handle: 1100, Class: "CDOTA_Unit_Hero_Axe", Props: map[string]any{
		"m_vecAbilities.0000": int64(3001),
	}})
	hero, _ := s.ByHandle(1100)

	abilities := New(Options{}).Abilities(worldOf(s, 0), hero)
	require.Len(t, abilities, 1)
	assert.Equal(t, "axe_berserkers_call", abilities[0].ID)
}

func TestTotals(t *testing.T) {
	radiant := core.NewTeam(core.SideRadiant)
	dire := core.NewTeam(core.SideDire)
	teams := map[int]*core.Team{core.SideRadiant: radiant, core.SideDire: dire}

	radiant.TotalSmokesUsed = 9
	ResetTotals(radiant, dire)
	assert.Equal(t, core.Totals{}, radiant.Totals)

	Fold(teams, core.SideRadiant, core.Totals{TotalRunePickups: 2, TotalSmokesUsed: 1})
	Fold(teams, core.SideRadiant, core.Totals{TotalRunePickups: 3})
	Fold(teams, core.SideDire, core.Totals{TotalTowersKilled: 1})
	Fold(teams, 1, core.Totals{TotalTowersKilled: 5})

	assert.Equal(t, core.Totals{TotalRunePickups: 5, TotalSmokesUsed: 1}, radiant.Totals)
	assert.Equal(t, core.Totals{TotalTowersKilled: 1}, dire.Totals)

	data := &source.Entity{Props: map[string]any{
		"m_vecDataTeam.0004.m_iRoshanKills": int64(1),
		"m_vecDataTeam.0004.m_iTowerKills":  int64(2),
	}}
	assert.Equal(t, core.Totals{TotalRoshansKilled: 1, TotalTowersKilled: 2}, ReadTotals(data, 4))
	assert.Equal(t, core.Totals{}, ReadTotals(nil, 4))
}
