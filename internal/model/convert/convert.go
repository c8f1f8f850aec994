package convert

import (
	"fmt"

	"github.com/dota-timeslice/replay-sampler/internal/model"
	"github.com/dota-timeslice/replay-sampler/internal/model/core"
	json "github.com/goccy/go-json"
)

// SnapshotToCore decodes an archived payload into a core.Snapshot.
func SnapshotToCore(s model.Snapshot) (core.Snapshot, error) {
	out := core.Snapshot{MatchTime: s.MatchTime}
	if err := json.Unmarshal(s.Payload, &out); err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to decode snapshot at %d: %w", s.MatchTime, err)
	}
	return out, nil
}
