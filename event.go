package phase

import "strings"

// SpawnType classifies why entities were produced during an unwind.
type SpawnType int

const (
	// SpawnBlockSpawning marks entities produced by a block.
	SpawnBlockSpawning SpawnType = iota
	// SpawnDispense marks entities produced by a dispenser.
	SpawnDispense
	// SpawnDroppedItem marks entities produced as block drops.
	SpawnDroppedItem
)

// String returns the string representation of the spawn type.
func (t SpawnType) String() string {
	switch t {
	case SpawnBlockSpawning:
		return "BlockSpawning"
	case SpawnDispense:
		return "Dispense"
	case SpawnDroppedItem:
		return "DroppedItem"
	default:
		return "Unknown"
	}
}

// Cause is the provenance attached to an event.
type Cause struct {
	Source    Source
	SpawnType SpawnType
	Notifier  *User
	Owner     *User
}

// newCause builds a cause chain from a block snapshot and optional users.
func newCause(snap BlockSnapshot, t SpawnType, notifier, owner *User) Cause {
	return Cause{
		Source:    BlockOrigin{Snapshot: snap},
		SpawnType: t,
		Notifier:  notifier,
		Owner:     owner,
	}
}

// Chain returns the cause objects in order: source, notifier, owner.
// Absent users are omitted.
func (c Cause) Chain() []any {
	chain := []any{c.Source}
	if c.Notifier != nil {
		chain = append(chain, *c.Notifier)
	}
	if c.Owner != nil {
		chain = append(chain, *c.Owner)
	}
	return chain
}

// Event is implemented by every event posted to a Bus.
type Event interface {
	Cause() Cause
	Cancelled() bool
	Cancel()
}

// eventBase provides the shared Event implementation.
type eventBase struct {
	cause     Cause
	cancelled bool
}

// Cause returns the event's provenance.
func (e *eventBase) Cause() Cause { return e.cause }

// Cancelled returns true if a handler cancelled the event.
func (e *eventBase) Cancelled() bool { return e.cancelled }

// Cancel prevents the event's entities from being committed.
func (e *eventBase) Cancel() { e.cancelled = true }

// Uncancel reverses an earlier Cancel.
func (e *eventBase) Uncancel() { e.cancelled = false }

// SpawnEntityEvent is posted before captured entities are spawned.
// Handlers may edit Entities; the resulting slice is what gets committed.
type SpawnEntityEvent struct {
	eventBase
	State    State
	Entities []*Entity
}

// DropVariant distinguishes the shapes of DropItemEvent.
type DropVariant int

const (
	// DropCustom is posted for item stacks a block queued to drop.
	DropCustom DropVariant = iota
	// DropDestruct is posted for items produced by a block being destroyed.
	DropDestruct
	// DropDispense is posted for items fired out of a dispenser.
	DropDispense
)

// String returns the string representation of the variant.
func (v DropVariant) String() string {
	switch v {
	case DropCustom:
		return "Custom"
	case DropDestruct:
		return "Destruct"
	case DropDispense:
		return "Dispense"
	default:
		return "Unknown"
	}
}

// DropItemEvent is posted before captured item entities are spawned.
type DropItemEvent struct {
	eventBase
	State    State
	Variant  DropVariant
	Entities []*Entity
}

// eventName returns the metric label for an event.
func eventName(e Event) string {
	switch ev := e.(type) {
	case *SpawnEntityEvent:
		return "spawn_entity"
	case *DropItemEvent:
		return "drop_item_" + strings.ToLower(ev.Variant.String())
	default:
		return "unknown"
	}
}
