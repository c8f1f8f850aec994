package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ArchiveInfo{},
	&Match{},
	&Snapshot{},
	&PlayerSample{},
	&BuildingSample{},
	&WardSample{},
}

// SchemaVersion is bumped whenever a table changes shape.
const SchemaVersion = 1

////////////////////////
// SYSTEM MODELS
////////////////////////

// ArchiveInfo records which schema the archive was created with
type ArchiveInfo struct {
	gorm.Model
	SchemaVersion int    `json:"schemaVersion"`
	CreatedBy     string `json:"createdBy" gorm:"size:127"`
}

func (*ArchiveInfo) TableName() string {
	return "archive_infos"
}

////////////////////////
// SAMPLING MODELS
////////////////////////

// Match is one sampling run over a replay
type Match struct {
	gorm.Model
	Replay    string       `json:"replay" gorm:"size:512;index:idx_match_replay"`
	Interval  int          `json:"interval"`
	StartedAt time.Time    `json:"startedAt"`
	EndedAt   sql.NullTime `json:"endedAt"`
	Samples   int          `json:"samples"`
}

func (*Match) TableName() string {
	return "matches"
}

// Snapshot holds the encoded snapshot of both teams at one match time
type Snapshot struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	MatchID   uint           `json:"matchId" gorm:"index:idx_snapshot_match_time,priority:1"`
	Match     Match          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	MatchTime int            `json:"matchTime" gorm:"index:idx_snapshot_match_time,priority:2"`
	Payload   datatypes.JSON `json:"payload"`
}

func (*Snapshot) TableName() string {
	return "snapshots"
}

// PlayerSample is the queryable subset of one player's sampled state
type PlayerSample struct {
	ID          uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	MatchID     uint       `json:"matchId" gorm:"index:idx_player_sample_match_time,priority:1"`
	Match       Match      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	MatchTime   int        `json:"matchTime" gorm:"index:idx_player_sample_match_time,priority:2"`
	Team        int        `json:"team"`
	Slot        int        `json:"slot"`
	SteamID     int64      `json:"steamId" gorm:"index:idx_player_sample_steam_id"`
	Name        string     `json:"name" gorm:"size:127"`
	HeroID      *int       `json:"heroId"`
	Level       *int       `json:"level"`
	Networth    *int       `json:"networth"`
	CurrentGold int        `json:"currentGold"`
	Kills       *int       `json:"kills"`
	Deaths      *int       `json:"deaths"`
	Assists     *int       `json:"assists"`
	LifeState   *int       `json:"lifeState"`
	Position    geom.Point `json:"position"`
}

func (*PlayerSample) TableName() string {
	return "player_samples"
}

// BuildingSample is one structure's health at a sampled match time
type BuildingSample struct {
	ID        uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	MatchID   uint   `json:"matchId" gorm:"index:idx_building_sample_match_time,priority:1"`
	Match     Match  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	MatchTime int    `json:"matchTime" gorm:"index:idx_building_sample_match_time,priority:2"`
	Team      int    `json:"team"`
	Key       string `json:"key" gorm:"size:16"`
	Name      string `json:"name" gorm:"size:127"`
	Health    int    `json:"health"`
}

func (*BuildingSample) TableName() string {
	return "building_samples"
}

// WardSample is an observer ward alive at a sampled match time
type WardSample struct {
	ID        uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	MatchID   uint       `json:"matchId" gorm:"index:idx_ward_sample_match_time,priority:1"`
	Match     Match      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	MatchTime int        `json:"matchTime" gorm:"index:idx_ward_sample_match_time,priority:2"`
	Team      int        `json:"team"`
	Position  geom.Point `json:"position"`
}

func (*WardSample) TableName() string {
	return "ward_samples"
}
