package extract

import (
	"errors"
	"strings"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

// AbilitySlots is the number of hero ability slots probed.
const AbilitySlots = 32

// HiddenAbilityPrefixes name generic and talent abilities left out of records.
var HiddenAbilityPrefixes = []string{
	"ability_",
	"plus_",
	"generic_",
	"twin_gate_",
	"abyssal_underlord_portal",
	"special_bonus_",
	"attribute_bonus",
}

// Hidden reports whether an ability name is filtered out.
func Hidden(name string) bool {
	for _, prefix := range HiddenAbilityPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Abilities reads the hero's abilities. Older replays network them under
// m_vecAbilities instead of m_hAbilities.
func (x *Extractor) Abilities(w World, hero replay.Entity) []core.Ability {
	abilities := make([]core.Ability, 0, AbilitySlots)
	for i := 0; i < AbilitySlots; i++ {
		e, name, err := resolveSlot(w, hero, i, "m_hAbilities.%i", "m_vecAbilities.%i")
		if errors.Is(err, errEmptySlot) || errors.Is(err, ErrMissingHandle) {
			continue
		}
		if err != nil {
			x.logger.Warn("Failed to read ability slot", "unit", hero.ClassName(), "slot", i, "error", err)
			x.recorder.SlotFailure("ability")
			continue
		}
		if Hidden(name) {
			continue
		}
		abilities = append(abilities, core.Ability{
			ID:    name,
			Level: replay.Ptr(replay.Int(e, "m_iLevel")),
		})
	}
	return abilities
}
