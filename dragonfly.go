package phase

import (
	"log/slog"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/entity"
	"github.com/df-mc/dragonfly/server/world"
)

// Spawner creates the Dragonfly entity handle for a committed Entity.
type Spawner func(e *Entity) *world.EntityHandle

// TxWorld adapts a Dragonfly transaction to BlockWorld.
//
// Item entities are spawned as Dragonfly items. Every other entity type
// needs a Spawner; entities without one are dropped with a warning.
//
// Concurrency:
// A TxWorld is only valid inside the transaction it was created for.
type TxWorld struct {
	tx       *world.Tx
	spawners map[EntityType]Spawner
	log      *slog.Logger
}

// NewTxWorld wraps tx.
func NewTxWorld(tx *world.Tx, spawners map[EntityType]Spawner, log *slog.Logger) *TxWorld {
	if log == nil {
		log = slog.Default()
	}
	return &TxWorld{tx: tx, spawners: spawners, log: log}
}

// Tx returns the wrapped transaction.
func (w *TxWorld) Tx() *world.Tx {
	return w.tx
}

// IsClientSide implements World. Dragonfly worlds are always authoritative.
func (w *TxWorld) IsClientSide() bool {
	return false
}

// Block implements BlockWorld.
func (w *TxWorld) Block(pos cube.Pos) world.Block {
	return w.tx.Block(pos)
}

// SetBlock implements BlockWorld.
func (w *TxWorld) SetBlock(pos cube.Pos, b world.Block) {
	w.tx.SetBlock(pos, b, nil)
}

// ForceSpawn implements World.
func (w *TxWorld) ForceSpawn(e *Entity) {
	if e.Type == ItemType {
		opts := world.EntitySpawnOpts{Position: e.Position, ID: e.ID}
		w.tx.AddEntity(entity.NewItem(opts, e.Stack))
		return
	}
	spawn, ok := w.spawners[e.Type]
	if !ok {
		w.log.Warn("phase: no spawner for entity type", "type", string(e.Type), "id", e.ID)
		return
	}
	if h := spawn(e); h != nil {
		w.tx.AddEntity(h)
	}
}
