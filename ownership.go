package phase

import (
	"github.com/df-mc/dragonfly/server/block/cube"
)

// ChunkMeta exposes per-block provenance kept by the host.
type ChunkMeta interface {
	// BlockNotifier returns the user that last notified the block at pos.
	BlockNotifier(pos cube.Pos) (User, bool)
	// BlockOwner returns the user that placed the block at pos.
	BlockOwner(pos cube.Pos) (User, bool)
}

// OwnershipTable is an in-memory ChunkMeta. Like the rest of a world's
// tracking state it must only be used from the world's simulation thread.
type OwnershipTable struct {
	notifiers map[cube.Pos]User
	owners    map[cube.Pos]User
}

// NewOwnershipTable creates an empty table.
func NewOwnershipTable() *OwnershipTable {
	return &OwnershipTable{
		notifiers: make(map[cube.Pos]User),
		owners:    make(map[cube.Pos]User),
	}
}

// SetNotifier records the notifier of the block at pos.
func (t *OwnershipTable) SetNotifier(pos cube.Pos, u User) {
	t.notifiers[pos] = u
}

// SetOwner records the owner of the block at pos.
func (t *OwnershipTable) SetOwner(pos cube.Pos, u User) {
	t.owners[pos] = u
}

// Clear forgets both users of the block at pos.
func (t *OwnershipTable) Clear(pos cube.Pos) {
	delete(t.notifiers, pos)
	delete(t.owners, pos)
}

// BlockNotifier implements ChunkMeta.
func (t *OwnershipTable) BlockNotifier(pos cube.Pos) (User, bool) {
	u, ok := t.notifiers[pos]
	return u, ok
}

// BlockOwner implements ChunkMeta.
func (t *OwnershipTable) BlockOwner(pos cube.Pos) (User, bool) {
	u, ok := t.owners[pos]
	return u, ok
}
