package extract

import (
	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

// ReadTotals reads a player's interval counters from the side data entity.
// Unknown counters count as zero.
func ReadTotals(data replay.Entity, teamSlot int) core.Totals {
	read := func(field string) int {
		v, _ := replay.Int(data, "m_vecDataTeam.%i."+field, teamSlot)
		return v
	}
	return core.Totals{
		TotalCampsStacked:  read("m_iCampsStacked"),
		TotalRunePickups:   read("m_iRunePickups"),
		TotalTowersKilled:  read("m_iTowerKills"),
		TotalRoshansKilled: read("m_iRoshanKills"),
		TotalSmokesUsed:    read("m_iSmokesUsed"),
	}
}

// ResetTotals zeroes the interval counters of every team.
func ResetTotals(teams ...*core.Team) {
	for _, t := range teams {
		t.Totals = core.Totals{}
	}
}

// Fold adds a player's counters to the team of the player's side. Players on
// any other side are ignored.
func Fold(teams map[int]*core.Team, side int, c core.Totals) {
	t, ok := teams[side]
	if !ok {
		return
	}
	t.Totals.Add(c)
}
