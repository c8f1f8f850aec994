// Package wards rebuilds the alive observer ward list of each side.
package wards

import (
	"log/slog"

	"github.com/dota-timeslice/replay-sampler/internal/geo"
	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

// ObserverWardClass is the entity class of placed observer wards.
const ObserverWardClass = "CDOTA_NPC_Observer_Ward"

// LifeStateAlive is the m_lifeState value of a living unit.
const LifeStateAlive = 0

// Update clears every team's ward list and refills it from alive observer wards.
func Update(ents replay.Entities, teams map[int]*core.Team, logger *slog.Logger) {
	for _, team := range teams {
		team.ObserverWards = []core.Ward{}
	}

	for _, e := range ents.All() {
		if e.ClassName() != ObserverWardClass {
			continue
		}
		side, okT := replay.Int(e, "m_iTeamNum")
		life, okL := replay.Int(e, "m_lifeState")
		if !okT || !okL || life != LifeStateAlive {
			continue
		}
		team, ok := teams[side]
		if !ok {
			continue
		}
		x, y, err := geo.Position(e)
		if err != nil {
			if logger != nil {
				logger.Debug("Skipping observer ward", "team", side, "error", err)
			}
			continue
		}
		team.ObserverWards = append(team.ObserverWards, core.Ward{X: x, Y: y})
	}
}
