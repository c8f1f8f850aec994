package snapshot

import (
	"testing"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/pkg/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveTeams() (*core.Team, *core.Team) {
	radiant := core.NewTeam(core.SideRadiant)
	dire := core.NewTeam(core.SideDire)

	x := float32(5.5)
	radiant.Players = append(radiant.Players, &core.Player{
		Key: "0", Value: 0, Team: 2, Name: "a", SteamID: 1,
		Stats: core.Stats{Level: replay.Ptr(3, true), CurrentGold: 150},
		HeroState: core.HeroState{
			X:         &x,
			Inventory: []core.Item{{ID: "item_tango", Slot: 0, NumCharges: 3}},
		},
	})
	radiant.Buildings["ancient"] = core.Building{Name: "npc_dota_goodguys_fort", Team: 2, Health: 4500}
	radiant.ObserverWards = []core.Ward{{X: 1, Y: 2}}
	radiant.TotalRunePickups = 4
	return radiant, dire
}

func TestTake_IsIndependent(t *testing.T) {
	radiant, dire := liveTeams()
	snap := Take(30, radiant, dire)

	live := radiant.Players[0]
	*live.Level = 9
	*live.X = 100
	live.Inventory[0].NumCharges = 1
	live.Inventory = append(live.Inventory, core.Item{ID: "item_blink", Slot: 1})
	radiant.Buildings["ancient"] = core.Building{Name: "npc_dota_goodguys_fort", Team: 2, Health: 0}
	radiant.ObserverWards[0].X = 50
	radiant.TotalRunePickups = 0

	p := snap.Radiant.Players[0]
	assert.NotSame(t, live, p)
	assert.Equal(t, 3, *p.Level)
	assert.Equal(t, float32(5.5), *p.X)
	assert.Equal(t, []core.Item{{ID: "item_tango", Slot: 0, NumCharges: 3}}, p.Inventory)
	assert.Equal(t, 4500, snap.Radiant.Buildings["ancient"].Health)
	assert.Equal(t, float32(1), snap.Radiant.ObserverWards[0].X)
	assert.Equal(t, 4, snap.Radiant.TotalRunePickups)
	assert.Equal(t, "30", Key(snap))
}

func TestEncode_SortedKeys(t *testing.T) {
	b, err := Encode(map[string]any{
		"radiant": map[string]any{"z": 1, "a": []any{map[string]any{"y": 1, "b": 2}}},
		"dire":    map[string]any{"m": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"dire":{"m":null},"radiant":{"a":[{"b":2,"y":1}],"z":1}}`, string(b))
}

func TestEncode_Snapshot(t *testing.T) {
	radiant, dire := liveTeams()
	b, err := Encode(Take(30, radiant, dire))
	require.NoError(t, err)
	out := string(b)

	assert.Regexp(t, `^\{"dire":\{"buildings":\{\},"observerWards":\[\],"players":\[\],"teamId":3,`, out)
	assert.Contains(t, out, `"buildings":{"ancient":{"health":4500,"name":"npc_dota_goodguys_fort","team":2}}`)
	assert.Contains(t, out, `"inventory":[{"id":"item_tango","num_charges":3,"slot":0}]`)
	assert.Contains(t, out, `"kills":null`)
	assert.Contains(t, out, `"currentGold":150`)
	assert.Contains(t, out, `"x":5.5`)
	assert.NotContains(t, out, `"abilities"`)
	assert.NotContains(t, out, `MatchTime`)
}

func TestEncode_Deterministic(t *testing.T) {
	radiant, dire := liveTeams()
	for i := 0; i < 8; i++ {
		radiant.Buildings["k"+string(rune('a'+i))] = core.Building{Name: "n", Team: 2, Health: i}
	}
	first, err := Encode(Take(1, radiant, dire))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Encode(Take(1, radiant, dire))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
