// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"sort"

	"github.com/dota-timeslice/replay-sampler/internal/geo"
	"github.com/dota-timeslice/replay-sampler/internal/model"
	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"gorm.io/datatypes"
)

// CoreToMatch converts a core.Match to a GORM model.Match.
func CoreToMatch(m core.Match) model.Match {
	return model.Match{
		Replay:    m.Replay,
		Interval:  m.Interval,
		StartedAt: m.StartedAt,
	}
}

// CoreToSnapshot wraps an encoded snapshot payload in a GORM model.Snapshot.
func CoreToSnapshot(matchID uint, s core.Snapshot, payload []byte) model.Snapshot {
	return model.Snapshot{
		MatchID:   matchID,
		MatchTime: s.MatchTime,
		Payload:   datatypes.JSON(payload),
	}
}

// CoreToPlayerSamples flattens both teams' players, radiant first.
func CoreToPlayerSamples(matchID uint, s core.Snapshot) []model.PlayerSample {
	var out []model.PlayerSample
	for _, team := range sides(s) {
		for _, p := range team.Players {
			out = append(out, model.PlayerSample{
				MatchID:     matchID,
				MatchTime:   s.MatchTime,
				Team:        p.Team,
				Slot:        p.Value,
				SteamID:     p.SteamID,
				Name:        p.Name,
				HeroID:      p.HeroID,
				Level:       p.Level,
				Networth:    p.Networth,
				CurrentGold: p.CurrentGold,
				Kills:       p.Kills,
				Deaths:      p.Deaths,
				Assists:     p.Assists,
				LifeState:   p.LifeState,
				Position:    geo.OptionalPoint(p.X, p.Y),
			})
		}
	}
	return out
}

// CoreToBuildingSamples flattens both teams' buildings ordered by side and key.
func CoreToBuildingSamples(matchID uint, s core.Snapshot) []model.BuildingSample {
	var out []model.BuildingSample
	for _, team := range sides(s) {
		keys := make([]string, 0, len(team.Buildings))
		for k := range team.Buildings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b := team.Buildings[k]
			out = append(out, model.BuildingSample{
				MatchID:   matchID,
				MatchTime: s.MatchTime,
				Team:      team.ID,
				Key:       k,
				Name:      b.Name,
				Health:    b.Health,
			})
		}
	}
	return out
}

// CoreToWardSamples flattens both teams' observer wards.
func CoreToWardSamples(matchID uint, s core.Snapshot) []model.WardSample {
	var out []model.WardSample
	for _, team := range sides(s) {
		for _, w := range team.ObserverWards {
			out = append(out, model.WardSample{
				MatchID:   matchID,
				MatchTime: s.MatchTime,
				Team:      team.ID,
				Position:  geo.Point(w.X, w.Y),
			})
		}
	}
	return out
}

func sides(s core.Snapshot) []*core.Team {
	teams := make([]*core.Team, 0, 2)
	for _, t := range []*core.Team{s.Radiant, s.Dire} {
		if t != nil {
			teams = append(teams, t)
		}
	}
	return teams
}
