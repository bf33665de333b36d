// Package phase tracks block-originated world operations on Dragonfly servers.
//
// While a block decays, drops its items, dispenses or is pushed by a piston,
// the entities, item stacks and block changes it produces are captured into
// a PhaseContext instead of being applied. When the operation ends the
// captures are unwound: each category is offered to event handlers with a
// cause chain naming the block and the responsible users, and only
// uncancelled results are committed to the world.
//
// The package also caps entity collision queries per block or entity type,
// with limits read from a live-reloadable YAML configuration.
//
// # Quick Start
//
// Initialize phase tracking in your server setup:
//
//	mngr := phase.NewBuilder().
//	    ConfigFile("phase.yml", true).
//	    Handler(&DropFilter{}).
//	    Metrics(prometheus.DefaultRegisterer).
//	    Init()
//	defer mngr.Shutdown()
//
// Track an operation:
//
//	snap := phase.BlockSnapshot{Pos: pos, Block: tx.Block(pos)}
//	ctx := phase.NewBlockContext(snap, ownership)
//	err := mngr.Exec(w, phase.BlockDropItems, ctx, func(tx *world.Tx, ctx *phase.PhaseContext) {
//	    ctx.CaptureItemStack(phase.ItemDrop{Stack: drop, Position: pos.Vec3Centre()})
//	})
//
// Exec blocks until the transaction ends. Inside a transaction, use ExecTx.
//
// # Handlers
//
// Handlers are structs whose single-argument methods take an event pointer:
//
//	type DropFilter struct{}
//
//	func (DropFilter) HandleDrop(e *phase.DropItemEvent) {
//	    if e.Variant == phase.DropDispense {
//	        e.Cancel()
//	    }
//	}
//
// # Configuration
//
//	collisions:
//	  default-max: -1
//	  blocks:
//	    minecraft:hopper: 8
//	  entities:
//	    minecraft:minecart: 16
//	  worlds:
//	    nether:
//	      blocks:
//	        minecraft:hopper: 4
package phase

// Version is the phase version.
const Version = "1.0.0"
