package phase

import (
	"io"
	"log/slog"

	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// --- Fake worlds ---

type fakeWorld struct {
	clientSide bool
	spawned    []*Entity
}

func (w *fakeWorld) IsClientSide() bool   { return w.clientSide }
func (w *fakeWorld) ForceSpawn(e *Entity) { w.spawned = append(w.spawned, e) }

type fakeBlockWorld struct {
	fakeWorld
	blocks map[cube.Pos]world.Block
	writes int
}

func newFakeBlockWorld() *fakeBlockWorld {
	return &fakeBlockWorld{blocks: make(map[cube.Pos]world.Block)}
}

func (w *fakeBlockWorld) Block(pos cube.Pos) world.Block {
	if b, ok := w.blocks[pos]; ok {
		return b
	}
	return block.Air{}
}

func (w *fakeBlockWorld) SetBlock(pos cube.Pos, b world.Block) {
	w.blocks[pos] = b
	w.writes++
}

// --- Recording handler ---

type recorder struct {
	events       []Event
	cancelSpawns bool
	cancelDrops  map[DropVariant]bool
}

func (r *recorder) HandleSpawn(e *SpawnEntityEvent) {
	r.events = append(r.events, e)
	if r.cancelSpawns {
		e.Cancel()
	}
}

func (r *recorder) HandleDrop(e *DropItemEvent) {
	r.events = append(r.events, e)
	if r.cancelDrops[e.Variant] {
		e.Cancel()
	}
}

// --- Test helpers ---

var (
	alice = User{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Name: "alice"}
	bob   = User{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Name: "bob"}
	carol = User{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000c"), Name: "carol"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stoneSnapshot() BlockSnapshot {
	return BlockSnapshot{Pos: cube.Pos{1, 64, 1}, Block: block.Stone{}}
}

func zombie() *Entity {
	return NewEntity("minecraft:zombie", mgl64.Vec3{1, 65, 1})
}

func stickDrop() ItemDrop {
	return ItemDrop{Stack: item.NewStack(item.Stick{}, 1), Position: mgl64.Vec3{1.5, 64.5, 1.5}}
}

func stickItem() *Entity {
	return NewItemEntity(item.NewStack(item.Stick{}, 1), mgl64.Vec3{1.5, 64.5, 1.5})
}

func newTestEngine(handler any, meta ChunkMeta) (*Engine, *Bus) {
	bus := NewBus(discardLogger())
	if handler != nil {
		if err := bus.Register(handler); err != nil {
			panic(err)
		}
	}
	return NewEngine(bus, nil, meta, discardLogger()), bus
}
