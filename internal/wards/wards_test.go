package wards

import (
	"testing"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/internal/source"
	"github.com/stretchr/testify/assert"
)

func ward(idx, side, life int, cellX int64) source.Entity {
	return source.Entity{Index: idx, Handle: 500 + idx, Class: ObserverWardClass, Props: map[string]any{
		"m_iTeamNum":             int64(side),
		"m_lifeState":            int64(life),
		"CBodyComponent.m_cellX": cellX,
		"CBodyComponent.m_cellY": int64(10),
		"CBodyComponent.m_vecX":  float64(64),
		"CBodyComponent.m_vecY":  float64(0),
	}}
}

func teams() map[int]*core.Team {
	return map[int]*core.Team{
		core.SideRadiant: core.NewTeam(core.SideRadiant),
		core.SideDire:    core.NewTeam(core.SideDire),
	}
}

func TestUpdate(t *testing.T) {
	s := source.NewState()
	s.Upsert(ward(1, 2, LifeStateAlive, 5))
	s.Upsert(ward(2, 3, LifeStateAlive, 7))
	s.Upsert(ward(3, 3, 1, 9))
	s.Upsert(ward(4, 5, LifeStateAlive, 9))
	s.Upsert(source.Entity{Index: 5, Class: "CDOTA_NPC_Sentry_Ward", Props: ward(5, 2, 0, 1).Props})

	tt := teams()
	Update(s, tt, nil)

	assert.Equal(t, []core.Ward{{X: 5.5, Y: 10}}, tt[core.SideRadiant].ObserverWards)
	assert.Equal(t, []core.Ward{{X: 7.5, Y: 10}}, tt[core.SideDire].ObserverWards)
}

func TestUpdate_RebuiltEachSample(t *testing.T) {
	s := source.NewState()
	s.Upsert(ward(1, 2, LifeStateAlive, 5))
	tt := teams()
	Update(s, tt, nil)
	before := tt[core.SideRadiant].ObserverWards
	assert.Len(t, before, 1)

	s.Delete(1)
	Update(s, tt, nil)
	assert.Empty(t, tt[core.SideRadiant].ObserverWards)
	assert.NotNil(t, tt[core.SideRadiant].ObserverWards)
	// the previous list is not reused
	assert.Len(t, before, 1)
}

func TestUpdate_MissingPosition(t *testing.T) {
	s := source.NewState()
	w := ward(1, 2, LifeStateAlive, 5)
	delete(w.Props, "CBodyComponent.m_vecY")
	s.Upsert(w)

	tt := teams()
	Update(s, tt, nil)
	assert.Empty(t, tt[core.SideRadiant].ObserverWards)
}
