// Package snapshot copies live team state and encodes it with stable key order.
package snapshot

import (
	"fmt"
	"strconv"

	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	json "github.com/goccy/go-json"
	"github.com/tidwall/pretty"
)

var sortKeys = &pretty.Options{SortKeys: true}

// Take copies both teams at matchTime. The snapshot shares no mutable state
// with the live teams.
func Take(matchTime int, radiant, dire *core.Team) core.Snapshot {
	return core.Snapshot{
		MatchTime: matchTime,
		Radiant:   radiant.Clone(),
		Dire:      dire.Clone(),
	}
}

// Key is the output key of a snapshot.
func Key(s core.Snapshot) string {
	return strconv.Itoa(s.MatchTime)
}

// Encode marshals v as compact JSON with every object's keys sorted.
func Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return pretty.Ugly(pretty.PrettyOptions(raw, sortKeys)), nil
}
