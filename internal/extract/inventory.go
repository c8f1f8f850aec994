package extract

import (
	"errors"
	"fmt"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

// InventorySlots is the number of hero item slots.
const InventorySlots = 8

var (
	// ErrUnresolvedHandle is returned when a slot handle does not resolve to a live entity.
	ErrUnresolvedHandle = errors.New("handle does not resolve")
	// ErrUnresolvedName is returned when a slot entity has no name in the EntityNames table.
	ErrUnresolvedName = errors.New("name does not resolve")
	// ErrMissingHandle is returned when a slot handle is not reported at all.
	ErrMissingHandle = errors.New("handle not reported")

	errEmptySlot = errors.New("empty slot")
)

// Inventory reads the occupied item slots of hero. Empty slots are skipped and
// slots that fail to resolve are logged and omitted.
func (x *Extractor) Inventory(w World, hero replay.Entity) []core.Item {
	items := make([]core.Item, 0, InventorySlots)
	for i := 0; i < InventorySlots; i++ {
		item, err := x.item(w, hero, i)
		if errors.Is(err, errEmptySlot) {
			continue
		}
		if errors.Is(err, ErrMissingHandle) {
			x.logger.Debug("Inventory slot not reported", "unit", hero.ClassName(), "slot", i)
			continue
		}
		if err != nil {
			x.logger.Warn("Failed to read inventory slot", "unit", hero.ClassName(), "slot", i, "error", err)
			x.recorder.SlotFailure("item")
			continue
		}
		items = append(items, item)
	}
	return items
}

func (x *Extractor) item(w World, hero replay.Entity, slot int) (core.Item, error) {
	e, name, err := resolveSlot(w, hero, slot, "m_hItems.%i")
	if err != nil {
		return core.Item{}, err
	}

	charges, _ := replay.Int(e, "m_iCurrentCharges")
	secondary, _ := replay.Int(e, "m_iSecondaryCharges")
	return core.Item{
		ID:                  name,
		Slot:                slot,
		NumCharges:          charges,
		NumSecondaryCharges: secondary,
	}, nil
}

// resolveSlot follows the handle at one of paths on owner to its entity and name.
// The first reported path wins.
func resolveSlot(w World, owner replay.Entity, slot int, paths ...string) (replay.Entity, string, error) {
	handle, found := 0, false
	for _, path := range paths {
		if h, ok := replay.Int(owner, path, slot); ok {
			handle, found = h, true
			break
		}
	}
	if !found {
		return nil, "", ErrMissingHandle
	}
	if handle == replay.EmptyHandle {
		return nil, "", errEmptySlot
	}

	if w.Entities == nil {
		return nil, "", fmt.Errorf("%w: %d", ErrUnresolvedHandle, handle)
	}
	e, ok := w.Entities.ByHandle(handle)
	if !ok {
		return nil, "", fmt.Errorf("%w: %d", ErrUnresolvedHandle, handle)
	}

	name, ok := EntityName(w.Names, e)
	if !ok {
		return nil, "", fmt.Errorf("%w: handle %d", ErrUnresolvedName, handle)
	}
	return e, name, nil
}

// EntityName resolves the EntityNames entry of e.
func EntityName(names replay.StringTable, e replay.Entity) (string, bool) {
	if names == nil {
		return "", false
	}
	idx, ok := replay.Int(e, "m_pEntity.m_nameStringableIndex")
	if !ok {
		return "", false
	}
	return names.NameByIndex(idx)
}
