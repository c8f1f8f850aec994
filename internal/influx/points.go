package influx

import (
	"strconv"
	"time"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written per sample.
const (
	TeamMeasurement   = "team_totals"
	PlayerMeasurement = "player_stats"
)

// SideName returns the tag value for a side.
func SideName(side int) string {
	switch side {
	case core.SideRadiant:
		return "radiant"
	case core.SideDire:
		return "dire"
	default:
		return strconv.Itoa(side)
	}
}

// SampleTime places a match time on the wall clock of the run.
func SampleTime(startedAt time.Time, matchTime int) time.Time {
	return startedAt.Add(time.Duration(matchTime) * time.Second)
}

// TeamPoint builds the per-sample totals point of one team.
func TeamPoint(replay string, at time.Time, matchTime int, t *core.Team) *influxdb2_write.Point {
	standing := 0
	for _, b := range t.Buildings {
		if b.Health > 0 {
			standing++
		}
	}
	return influxdb2_write.NewPoint(
		TeamMeasurement,
		map[string]string{
			"replay": replay,
			"side":   SideName(t.ID),
		},
		map[string]interface{}{
			"match_time":     matchTime,
			"camps_stacked":  t.TotalCampsStacked,
			"rune_pickups":   t.TotalRunePickups,
			"towers_killed":  t.TotalTowersKilled,
			"roshans_killed": t.TotalRoshansKilled,
			"smokes_used":    t.TotalSmokesUsed,
			"observer_wards": len(t.ObserverWards),
			"buildings_up":   standing,
		},
		at,
	)
}

// PlayerPoint builds the per-sample stats point of one player. Fields the
// engine did not report are left out.
func PlayerPoint(replay string, at time.Time, matchTime int, p *core.Player) *influxdb2_write.Point {
	point := influxdb2_write.NewPointWithMeasurement(PlayerMeasurement).
		AddTag("replay", replay).
		AddTag("side", SideName(p.Team)).
		AddTag("slot", strconv.Itoa(p.Value)).
		AddTag("steam_id", strconv.FormatInt(p.SteamID, 10)).
		AddField("match_time", matchTime).
		AddField("current_gold", p.CurrentGold).
		AddField("damage_taken_pre", p.DamageTakenPreReduction).
		AddField("damage_taken_post", p.DamageTakenPostReduction).
		SetTime(at)

	ints := map[string]*int{
		"hero_id":         p.HeroID,
		"level":           p.Level,
		"xp":              p.XP,
		"networth":        p.Networth,
		"total_gold":      p.TotalGold,
		"kills":           p.Kills,
		"deaths":          p.Deaths,
		"assists":         p.Assists,
		"last_hits":       p.LastHits,
		"denies":          p.Denies,
		"hero_damage":     p.HeroDamage,
		"tower_damage":    p.TowerDamage,
		"respawn_seconds": p.RespawnSeconds,
		"obs_placed":      p.ObsPlaced,
		"sen_placed":      p.SenPlaced,
		"life_state":      p.LifeState,
	}
	for name, v := range ints {
		if v != nil {
			point.AddField(name, *v)
		}
	}

	floats := map[string]*float32{
		"healing":                 p.Healing,
		"buyback_cooldown":        p.BuybackCooldown,
		"teamfight_participation": p.TeamfightParticipation,
		"x":                       p.X,
		"y":                       p.Y,
	}
	for name, v := range floats {
		if v != nil {
			point.AddField(name, float64(*v))
		}
	}
	return point
}
