// Package replay defines the boundary between the sampler and the demo decoder
// that feeds it. The decoder owns entity state; the sampler only reads it through
// these interfaces.
package replay

// Entity is a live, decoder-owned entity at the current tick.
type Entity interface {
	// ClassName is the serializer class of the entity (e.g. "CDOTA_PlayerResource").
	ClassName() string
	// Property returns the raw value at a dotted field path, or false if the
	// entity has no such field or it is unset.
	Property(path string) (any, bool)
}

// Entities resolves live entities. Lookups report "not found" with a false
// return, never with an error.
type Entities interface {
	ByClassName(name string) (Entity, bool)
	ByHandle(handle int) (Entity, bool)
	// All returns every live entity in decoder iteration order.
	All() []Entity
}

// StringTable maps an index to a name.
type StringTable interface {
	NameByIndex(idx int) (string, bool)
}

// Context is the view the scheduler hands to a tick handler.
type Context interface {
	Tick() int
	Entities() Entities
	StringTable(name string) (StringTable, bool)
}

// TickHandler is invoked once per decoded tick, in increasing tick order.
// A returned error stops the run.
type TickHandler interface {
	OnTick(ctx Context) error
}

// TickHandlerFunc adapts a function to TickHandler.
type TickHandlerFunc func(ctx Context) error

// OnTick calls f(ctx).
func (f TickHandlerFunc) OnTick(ctx Context) error {
	return f(ctx)
}

// EntityNamesTable is the string table holding entity and item names.
const EntityNamesTable = "EntityNames"

// EmptyHandle is the handle value of an unset entity reference.
const EmptyHandle = 0xFFFFFF
