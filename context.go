package phase

import (
	"github.com/samber/oops"
)

// PhaseContext buffers the side effects of one tracked operation.
//
// A context is owned by the Tracker it is pushed onto. It accepts captures
// only while its phase is active; once unwound it is closed and every
// capture call reports false.
type PhaseContext struct {
	source   Source
	notifier *User
	owner    *User

	entities []*Entity
	items    []*Entity
	stacks   []ItemDrop
	blocks   []BlockChange

	// named is the extensible side channel for causal values.
	named map[string]any

	// result is written during unwind when the tracked call must be
	// reported as failed after the fact (piston moves).
	result *ResultSlot

	closed bool
}

// ContextOption configures a PhaseContext.
type ContextOption func(*PhaseContext)

// WithNotifier sets the user that notified the change.
func WithNotifier(u User) ContextOption {
	return func(c *PhaseContext) {
		c.notifier = &u
	}
}

// WithOwner sets the user that owns the source.
func WithOwner(u User) ContextOption {
	return func(c *PhaseContext) {
		c.owner = &u
	}
}

// WithNamed attaches a named causal value.
func WithNamed(name string, value any) ContextOption {
	return func(c *PhaseContext) {
		if c.named == nil {
			c.named = make(map[string]any)
		}
		c.named[name] = value
	}
}

// WithResultSlot attaches the slot the unwind writes its outcome to.
func WithResultSlot(slot *ResultSlot) ContextOption {
	return func(c *PhaseContext) {
		c.result = slot
	}
}

// NewContext creates a context for the given source. src may be nil.
func NewContext(src Source, opts ...ContextOption) *PhaseContext {
	c := &PhaseContext{source: src}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewBlockContext creates a context rooted at a block snapshot. The
// notifier and owner are looked up from meta at the snapshot position
// unless opts override them.
func NewBlockContext(snap BlockSnapshot, meta ChunkMeta, opts ...ContextOption) *PhaseContext {
	c := NewContext(BlockOrigin{Snapshot: snap})
	if meta != nil {
		if u, ok := meta.BlockNotifier(snap.Pos); ok {
			c.notifier = &u
		}
		if u, ok := meta.BlockOwner(snap.Pos); ok {
			c.owner = &u
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the causal source, or nil.
func (c *PhaseContext) Source() Source {
	return c.source
}

// BlockSource returns the block snapshot source, if the source is a block.
func (c *PhaseContext) BlockSource() (BlockSnapshot, bool) {
	if o, ok := c.source.(BlockOrigin); ok {
		return o.Snapshot, true
	}
	return BlockSnapshot{}, false
}

// EntitySource returns the entity source, if the source is an entity.
func (c *PhaseContext) EntitySource() (*Entity, bool) {
	if o, ok := c.source.(EntityOrigin); ok && o.Entity != nil {
		return o.Entity, true
	}
	return nil, false
}

// Notifier returns the notifier, if set.
func (c *PhaseContext) Notifier() (User, bool) {
	if c.notifier == nil {
		return User{}, false
	}
	return *c.notifier, true
}

// Owner returns the owner, if set.
func (c *PhaseContext) Owner() (User, bool) {
	if c.owner == nil {
		return User{}, false
	}
	return *c.owner, true
}

// Named returns a named causal value.
func (c *PhaseContext) Named(name string) (any, bool) {
	v, ok := c.named[name]
	return v, ok
}

// ResultSlot returns the attached result slot, or nil.
func (c *PhaseContext) ResultSlot() *ResultSlot {
	return c.result
}

// Closed returns true once the context has been unwound.
func (c *PhaseContext) Closed() bool {
	return c.closed
}

// CaptureEntity buffers a spawned entity.
func (c *PhaseContext) CaptureEntity(e *Entity) bool {
	if c.closed || e == nil {
		return false
	}
	c.entities = append(c.entities, e)
	return true
}

// CaptureItem buffers a spawned item entity.
func (c *PhaseContext) CaptureItem(e *Entity) bool {
	if c.closed || e == nil {
		return false
	}
	c.items = append(c.items, e)
	return true
}

// CaptureItemStack buffers an item stack drop.
func (c *PhaseContext) CaptureItemStack(d ItemDrop) bool {
	if c.closed {
		return false
	}
	c.stacks = append(c.stacks, d)
	return true
}

// CaptureBlock buffers a block change.
func (c *PhaseContext) CaptureBlock(b BlockChange) bool {
	if c.closed {
		return false
	}
	c.blocks = append(c.blocks, b)
	return true
}

// Entities returns the captured entities.
func (c *PhaseContext) Entities() []*Entity { return c.entities }

// Items returns the captured item entities.
func (c *PhaseContext) Items() []*Entity { return c.items }

// ItemStacks returns the captured item stack drops.
func (c *PhaseContext) ItemStacks() []ItemDrop { return c.stacks }

// Blocks returns the captured block changes.
func (c *PhaseContext) Blocks() []BlockChange { return c.blocks }

// close discards all captures and rejects further ones.
func (c *PhaseContext) close() {
	c.closed = true
	c.entities = nil
	c.items = nil
	c.stacks = nil
	c.blocks = nil
}

// checkOpen returns an error if the context was already unwound.
func (c *PhaseContext) checkOpen() error {
	if c.closed {
		return oops.Code(CodeContextClosed).Wrap(ErrContextClosed)
	}
	return nil
}

// ResultSlot carries a boolean outcome from an unwind back to the host
// call that started the tracked operation.
type ResultSlot struct {
	value  bool
	set    bool
	writes int
}

// NewResultSlot returns a slot pre-filled with the host call's own result.
func NewResultSlot(initial bool) *ResultSlot {
	return &ResultSlot{value: initial}
}

// Set overrides the result.
func (r *ResultSlot) Set(v bool) {
	r.value = v
	r.set = true
	r.writes++
}

// Value returns the result and whether the unwind overrode it.
func (r *ResultSlot) Value() (bool, bool) {
	return r.value, r.set
}

// Writes returns how many times the result was overridden.
func (r *ResultSlot) Writes() int {
	return r.writes
}
