// Package extract pulls per-player records and team totals out of the live
// entity world.
package extract

import (
	"log/slog"

	"github.com/dota-timeslice/replay-sampler/internal/geo"
	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

// Side data entity classes.
const (
	DataRadiantClass = "CDOTA_DataRadiant"
	DataDireClass    = "CDOTA_DataDire"
)

// DataClass returns the side data entity class for side.
func DataClass(side int) string {
	if side == core.SideRadiant {
		return DataRadiantClass
	}
	return DataDireClass
}

// Recorder is notified of recoverable slot failures.
type Recorder interface {
	SlotFailure(kind string)
}

type nopRecorder struct{}

func (nopRecorder) SlotFailure(string) {}

// Options configures an Extractor.
type Options struct {
	IncludeAbilities bool
	Logger           *slog.Logger
	Recorder         Recorder
}

// World is the per-tick view an Extractor reads from.
type World struct {
	// Resource is the CDOTA_PlayerResource entity.
	Resource replay.Entity
	// Data holds the side data entities keyed by side. Missing sides read as absent.
	Data     map[int]replay.Entity
	Entities replay.Entities
	// Names is the EntityNames string table, nil when not yet received.
	Names replay.StringTable
	// Now is the current game time in whole seconds, nil when unknown.
	Now *int
}

// Extractor fills player records.
type Extractor struct {
	includeAbilities bool
	logger           *slog.Logger
	recorder         Recorder
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	x := &Extractor{
		includeAbilities: opts.IncludeAbilities,
		logger:           opts.Logger,
		recorder:         opts.Recorder,
	}
	if x.logger == nil {
		x.logger = slog.Default()
	}
	if x.recorder == nil {
		x.recorder = nopRecorder{}
	}
	return x
}

// Player refreshes p from the world and returns its contribution to the team
// totals. Stats are replaced; hero state is replaced only when the selected hero
// resolves.
func (x *Extractor) Player(w World, p *core.Player) core.Totals {
	data := w.Data[p.Team]
	p.Stats = ReadStats(w.Resource, data, p.Index, p.TeamSlot, w.Now)

	if hero, ok := x.selectedHero(w, p); ok {
		p.HeroState = x.heroState(w, hero, p.HeroState)
	}

	return ReadTotals(data, p.TeamSlot)
}

// ReadStats reads the roster-scoped fields at index and the side-scoped fields
// at teamSlot.
func ReadStats(resource, data replay.Entity, index, teamSlot int, now *int) core.Stats {
	const (
		roster = "m_vecPlayerTeamData.%i."
		side   = "m_vecDataTeam.%i."
	)

	reliable := replay.Ptr(replay.Int(data, side+"m_iReliableGold", teamSlot))
	unreliable := replay.Ptr(replay.Int(data, side+"m_iUnreliableGold", teamSlot))
	buybackExpiry := replay.Ptr(replay.Float(data, side+"m_flBuybackCooldownTime", teamSlot))

	return core.Stats{
		HeroID:      replay.Ptr(replay.Int(resource, roster+"m_nSelectedHeroID", index)),
		HeroVariant: replay.Ptr(replay.Int(resource, roster+"m_nSelectedHeroVariant", index)),

		Level: replay.Ptr(replay.Int(resource, roster+"m_iLevel", index)),
		XP:    replay.Ptr(replay.Int(data, side+"m_iTotalEarnedXP", teamSlot)),

		Networth:    replay.Ptr(replay.Int(data, side+"m_iNetWorth", teamSlot)),
		TotalGold:   replay.Ptr(replay.Int(data, side+"m_iTotalEarnedGold", teamSlot)),
		CurrentGold: CurrentGold(reliable, unreliable),

		RespawnSeconds:  replay.Ptr(replay.Int(resource, roster+"m_iRespawnSeconds", index)),
		BuybackCooldown: BuybackCooldown(buybackExpiry, now),

		HeroDamage:               replay.Ptr(replay.Int(data, side+"m_iHeroDamage", teamSlot)),
		TowerDamage:              replay.Ptr(replay.Int(data, side+"m_iTowerDamage", teamSlot)),
		DamageTakenPreReduction:  DamageTaken(data, "m_iDamageByTypeReceivedPreReduction", teamSlot),
		DamageTakenPostReduction: DamageTaken(data, "m_iDamageByTypeReceivedPostReduction", teamSlot),
		Healing:                  replay.Ptr(replay.Float(data, side+"m_fHealing", teamSlot)),

		Kills:   replay.Ptr(replay.Int(resource, roster+"m_iKills", index)),
		Deaths:  replay.Ptr(replay.Int(resource, roster+"m_iDeaths", index)),
		Assists: replay.Ptr(replay.Int(resource, roster+"m_iAssists", index)),

		LastHits: replay.Ptr(replay.Int(data, side+"m_iLastHitCount", teamSlot)),
		Denies:   replay.Ptr(replay.Int(data, side+"m_iDenyCount", teamSlot)),

		TeamfightParticipation: replay.Ptr(replay.Float(resource, roster+"m_flTeamFightParticipation", index)),

		ObsPlaced: replay.Ptr(replay.Int(data, side+"m_iObserverWardsPlaced", teamSlot)),
		SenPlaced: replay.Ptr(replay.Int(data, side+"m_iSentryWardsPlaced", teamSlot)),
	}
}

func (x *Extractor) selectedHero(w World, p *core.Player) (replay.Entity, bool) {
	handle, ok := replay.Int(w.Resource, "m_vecPlayerTeamData.%i.m_hSelectedHero", p.Index)
	if !ok || handle == replay.EmptyHandle || w.Entities == nil {
		return nil, false
	}
	return w.Entities.ByHandle(handle)
}

func (x *Extractor) heroState(w World, hero replay.Entity, prev core.HeroState) core.HeroState {
	next := prev

	if px, py, err := geo.Position(hero); err == nil {
		next.X = &px
		next.Y = &py
	}
	unit := hero.ClassName()
	next.Unit = &unit
	next.LifeState = replay.Ptr(replay.Int(hero, "m_lifeState"))
	next.Inventory = x.Inventory(w, hero)
	if x.includeAbilities {
		next.Abilities = x.Abilities(w, hero)
	}
	return next
}
