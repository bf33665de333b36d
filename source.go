package phase

import (
	"reflect"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// EntityType identifies the kind of an entity, e.g. "minecraft:zombie".
type EntityType string

const (
	// PlayerType is the type of player entities. Players are never capped.
	PlayerType EntityType = "minecraft:player"

	// ItemType is the type of dropped item entities.
	ItemType EntityType = "minecraft:item"
)

// User is a player identity recorded as the notifier or owner of a change.
type User struct {
	ID   uuid.UUID
	Name string
}

// Entity is an entity produced during a tracked operation. Entities are
// held in a PhaseContext until the operation unwinds and are only spawned
// into the world if the event carrying them is not cancelled.
type Entity struct {
	ID       uuid.UUID
	Type     EntityType
	Position mgl64.Vec3

	// Parts is the number of hit-box parts. Values above one mark a
	// multi-part entity such as the ender dragon.
	Parts int

	// Stack is the carried stack of an ItemType entity.
	Stack item.Stack

	creator uuid.UUID
}

// NewEntity creates an entity of the given type with a fresh ID.
func NewEntity(t EntityType, pos mgl64.Vec3) *Entity {
	return &Entity{ID: uuid.New(), Type: t, Position: pos}
}

// NewItemEntity creates an item entity carrying the stack.
func NewItemEntity(stack item.Stack, pos mgl64.Vec3) *Entity {
	return &Entity{ID: uuid.New(), Type: ItemType, Position: pos, Stack: stack}
}

// IsPlayer returns true if the entity is a player.
func (e *Entity) IsPlayer() bool {
	return e.Type == PlayerType
}

// IsMultipart returns true if the entity is made of several hit-box parts.
func (e *Entity) IsMultipart() bool {
	return e.Parts > 1
}

// Creator returns the UUID of the user that caused this entity, if any.
func (e *Entity) Creator() (uuid.UUID, bool) {
	return e.creator, e.creator != uuid.Nil
}

// SetCreator stamps the user that caused this entity.
func (e *Entity) SetCreator(id uuid.UUID) {
	e.creator = id
}

// ItemDrop is an item stack queued to drop at a position. It becomes an
// item entity when the operation unwinds.
type ItemDrop struct {
	Stack    item.Stack
	Position mgl64.Vec3
}

// Create returns the item entity for this drop.
func (d ItemDrop) Create() *Entity {
	return NewItemEntity(d.Stack, d.Position)
}

// BlockChange is a buffered block replacement.
type BlockChange struct {
	Pos         cube.Pos
	Original    world.Block
	Replacement world.Block
}

// BlockSnapshot captures a block at a position.
type BlockSnapshot struct {
	Pos   cube.Pos
	Block world.Block
}

// Source is the causal origin of a tracked operation.
// It is either a BlockOrigin or an EntityOrigin; a nil Source means none.
type Source interface {
	isSource()
}

// BlockOrigin is a Source rooted at a block.
type BlockOrigin struct {
	Snapshot BlockSnapshot
}

// EntityOrigin is a Source rooted at an entity.
type EntityOrigin struct {
	Entity *Entity
}

func (BlockOrigin) isSource()  {}
func (EntityOrigin) isSource() {}

// SourceKind distinguishes block-type from entity-type collision sources.
type SourceKind uint8

const (
	// SourceBlock is a block-type source.
	SourceBlock SourceKind = iota
	// SourceEntity is an entity-type source.
	SourceEntity
)

// String returns the string representation of SourceKind.
func (k SourceKind) String() string {
	switch k {
	case SourceBlock:
		return "block"
	case SourceEntity:
		return "entity"
	default:
		return "unknown"
	}
}

// SourceKey identifies a block type or entity type.
type SourceKey struct {
	Kind SourceKind
	Name string
}

// BlockKey returns the SourceKey of a block's type.
func BlockKey(b world.Block) SourceKey {
	if b == nil {
		return SourceKey{Kind: SourceBlock}
	}
	name, _ := b.EncodeBlock()
	return SourceKey{Kind: SourceBlock, Name: name}
}

// EntityKey returns the SourceKey of an entity type.
func EntityKey(t EntityType) SourceKey {
	return SourceKey{Kind: SourceEntity, Name: string(t)}
}

// String returns the string representation of the key.
func (k SourceKey) String() string {
	return k.Kind.String() + ":" + k.Name
}

// sameBlock reports whether two blocks have the same name and properties.
func sameBlock(a, b world.Block) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	an, ap := a.EncodeBlock()
	bn, bp := b.EncodeBlock()
	if an != bn {
		return false
	}
	if len(ap) == 0 && len(bp) == 0 {
		return true
	}
	return reflect.DeepEqual(ap, bp)
}
