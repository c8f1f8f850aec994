// internal/model/core/match.go
package core

import "time"

// Match describes one sampling run over a replay.
type Match struct {
	Replay    string    `json:"replay"`
	Interval  int       `json:"interval"`
	StartedAt time.Time `json:"startedAt"`
}
