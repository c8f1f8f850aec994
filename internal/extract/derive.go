package extract

import (
	"math"

	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

// DamageTypes are the damage type indices summed into damage taken.
var DamageTypes = []int{0, 1, 2}

// CurrentGold sums reliable and unreliable gold. Unknown parts count as zero.
func CurrentGold(reliable, unreliable *int) int {
	return orZero(reliable) + orZero(unreliable)
}

// DamageTaken sums a per-damage-type counter over DamageTypes for one team slot.
// field is the counter name under m_vecDataTeam, e.g.
// "m_iDamageByTypeReceivedPreReduction".
func DamageTaken(data replay.Entity, field string, teamSlot int) int {
	total := 0
	for _, t := range DamageTypes {
		v, _ := replay.Int(data, "m_vecDataTeam.%i."+field+"."+replay.ArrayIdx(t), teamSlot)
		total += v
	}
	return total
}

// BuybackCooldown is the whole seconds left until buyback is available again.
// It is unknown unless both the expiry time and the current game time are.
func BuybackCooldown(expiry *float32, now *int) *float32 {
	if expiry == nil || now == nil {
		return nil
	}
	remaining := float32(math.Floor(math.Max(0, float64(*expiry)-float64(*now))))
	return &remaining
}

func orZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
