package source

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// ErrBadFrame is returned for frames that cannot be decoded or arrive out of order.
var ErrBadFrame = errors.New("bad frame")

// Frame is one line of an entity-frame stream: the entity changes and string
// table additions that happened at Tick.
type Frame struct {
	Tick         int                          `json:"tick"`
	Entities     []FrameEntity                `json:"entities"`
	Deleted      []int                        `json:"deleted"`
	StringTables map[string]map[string]string `json:"stringTables"`
}

// FrameEntity is an entity upsert. Props are merged into the existing entity.
type FrameEntity struct {
	Index  int            `json:"index"`
	Handle int            `json:"handle"`
	Class  string         `json:"class"`
	Props  map[string]any `json:"props"`
}

// DecodeFrame parses one frame line.
func DecodeFrame(line []byte) (Frame, error) {
	var f Frame
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&f); err != nil {
		return f, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	for i := range f.Entities {
		for k, v := range f.Entities[i].Props {
			f.Entities[i].Props[k] = normalize(v)
		}
	}
	return f, nil
}

// normalize turns decoded numbers into int64 when integral, float64 otherwise.
func normalize(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil {
		return f
	}
	return string(n)
}

// Apply folds the frame into the world and advances it to the frame's tick.
func (f Frame) Apply(s *State) error {
	for table, entries := range f.StringTables {
		for k, name := range entries {
			idx, err := strconv.Atoi(k)
			if err != nil {
				return fmt.Errorf("%w: string table %s index %q", ErrBadFrame, table, k)
			}
			s.SetName(table, idx, name)
		}
	}
	for _, idx := range f.Deleted {
		s.Delete(idx)
	}
	for _, e := range f.Entities {
		s.Upsert(Entity{Index: e.Index, Handle: e.Handle, Class: e.Class, Props: e.Props})
	}
	s.SetTick(f.Tick)
	return nil
}
