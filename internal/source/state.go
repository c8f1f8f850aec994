package source

import (
	"sort"
	"strconv"

	"github.com/dota-timeslice/replay-sampler/pkg/replay"
)

// Entity is a decoded entity held by State.
type Entity struct {
	Index  int
	Handle int
	Class  string
	Props  map[string]any
}

// ClassName implements replay.Entity.
func (e *Entity) ClassName() string {
	return e.Class
}

// Property implements replay.Entity.
func (e *Entity) Property(path string) (any, bool) {
	v, ok := e.Props[path]
	return v, ok
}

// Table is an index → name string table.
type Table map[int]string

// NameByIndex implements replay.StringTable.
func (t Table) NameByIndex(idx int) (string, bool) {
	name, ok := t[idx]
	return name, ok
}

// State is the live entity world at the current tick. It implements
// replay.Context and replay.Entities.
type State struct {
	tick     int
	entities map[int]*Entity
	byHandle map[int]*Entity
	tables   map[string]Table
}

// NewState creates an empty world at tick 0.
func NewState() *State {
	return &State{
		entities: make(map[int]*Entity),
		byHandle: make(map[int]*Entity),
		tables:   make(map[string]Table),
	}
}

// SetTick moves the world to tick.
func (s *State) SetTick(tick int) {
	s.tick = tick
}

// Upsert inserts an entity or merges props into the existing one at the same index.
// A changed class replaces the entity.
func (s *State) Upsert(e Entity) *Entity {
	cur, ok := s.entities[e.Index]
	if !ok || (e.Class != "" && cur.Class != e.Class) {
		if ok {
			delete(s.byHandle, cur.Handle)
		}
		cur = &Entity{Index: e.Index, Handle: e.Handle, Class: e.Class, Props: make(map[string]any, len(e.Props))}
		s.entities[e.Index] = cur
	}
	if e.Handle != 0 && e.Handle != cur.Handle {
		delete(s.byHandle, cur.Handle)
		cur.Handle = e.Handle
	}
	for k, v := range e.Props {
		cur.Props[k] = v
	}
	if cur.Handle != 0 {
		s.byHandle[cur.Handle] = cur
	}
	return cur
}

// Delete removes the entity at index, if any.
func (s *State) Delete(index int) {
	cur, ok := s.entities[index]
	if !ok {
		return
	}
	delete(s.byHandle, cur.Handle)
	delete(s.entities, index)
}

// SetName sets one entry of a string table, creating the table if needed.
func (s *State) SetName(table string, idx int, name string) {
	t, ok := s.tables[table]
	if !ok {
		t = make(Table)
		s.tables[table] = t
	}
	t[idx] = name
}

// Tick implements replay.Context.
func (s *State) Tick() int {
	return s.tick
}

// Entities implements replay.Context.
func (s *State) Entities() replay.Entities {
	return s
}

// StringTable implements replay.Context.
func (s *State) StringTable(name string) (replay.StringTable, bool) {
	t, ok := s.tables[name]
	if !ok {
		return nil, false
	}
	return t, true
}

// ByClassName returns the lowest-index entity of the class.
func (s *State) ByClassName(name string) (replay.Entity, bool) {
	var found *Entity
	for _, e := range s.entities {
		if e.Class == name && (found == nil || e.Index < found.Index) {
			found = e
		}
	}
	if found == nil {
		return nil, false
	}
	return found, true
}

// ByHandle implements replay.Entities.
func (s *State) ByHandle(handle int) (replay.Entity, bool) {
	e, ok := s.byHandle[handle]
	if !ok {
		return nil, false
	}
	return e, true
}

// All returns entities ordered by index.
func (s *State) All() []replay.Entity {
	idx := make([]int, 0, len(s.entities))
	for i := range s.entities {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]replay.Entity, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.entities[i])
	}
	return out
}

// String is a short description for logs.
func (s *State) String() string {
	return "tick=" + strconv.Itoa(s.tick) + " entities=" + strconv.Itoa(len(s.entities))
}
