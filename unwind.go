package phase

import (
	"log/slog"
	"slices"

	"github.com/samber/oops"
)

// Engine reconciles the captures of a finished tracked operation.
//
// For every capture category the terminal state handles, the engine builds
// a cause chain, posts one event carrying the whole category, and commits
// the event's entities only if no handler cancelled it. Empty categories
// never produce an event.
type Engine struct {
	bus      *Bus
	pipeline BlockCapturePipeline
	meta     ChunkMeta
	log      *slog.Logger
}

// NewEngine creates an engine. A nil bus posts to nobody, a nil pipeline
// applies blocks with ApplyPipeline and a nil meta records no block users.
func NewEngine(bus *Bus, pipeline BlockCapturePipeline, meta ChunkMeta, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if bus == nil {
		bus = NewBus(log)
	}
	if pipeline == nil {
		pipeline = ApplyPipeline{}
	}
	return &Engine{
		bus:      bus,
		pipeline: pipeline,
		meta:     meta,
		log:      log,
	}
}

// Bus returns the engine's event bus.
func (e *Engine) Bus() *Bus {
	return e.bus
}

// Unwind reconciles ctx for the terminal state into w.
//
// It returns a ContractViolation if state needs a block source that ctx
// does not carry; nothing is committed in that case. Pipeline failures are
// handled here and never returned.
func (e *Engine) Unwind(w World, state State, ctx *PhaseContext) error {
	if ctx == nil {
		ctx = NewContext(nil)
	}
	Unwinds.WithLabelValues(state.String()).Inc()

	switch state {
	case BlockDecay:
		return e.unwindDecay(w, ctx)
	case BlockDropItems:
		return e.unwindDropItems(w, ctx)
	case Dispense:
		return e.unwindDispense(w, ctx)
	case PistonMoving:
		e.unwindPiston(w, ctx)
		return nil
	case RestoringBlocks:
		// Restores are written back by the host; captures are discarded.
		return nil
	case BlockAdded, BlockBreak:
		return nil
	default:
		return oops.
			Code(CodeInvalidState).
			With("state", int(state)).
			Errorf("phase: cannot unwind unknown state %d", int(state))
	}
}

func (e *Engine) unwindDecay(w World, ctx *PhaseContext) error {
	snap, err := e.blockSource(BlockDecay, ctx, "a decaying block snapshot")
	if err != nil {
		return err
	}
	notifier, owner := e.blockUsers(snap)

	if len(ctx.Items()) > 0 {
		// Item entities captured during decay are not reconciled.
		e.log.Debug("phase: ignoring captured items during decay", "count", len(ctx.Items()))
	}
	if entities := ctx.Entities(); len(entities) > 0 {
		cause := newCause(snap, SpawnBlockSpawning, ctx.notifier, ctx.owner)
		e.postSpawn(w, BlockDecay, cause, entities, nil)
	}
	if blocks := ctx.Blocks(); len(blocks) > 0 {
		e.processBlocks(w, BlockDecay, blocks, ctx)
	}
	if drops := ctx.ItemStacks(); len(drops) > 0 {
		cause := newCause(snap, SpawnBlockSpawning, notifier, owner)
		e.postDrop(w, BlockDecay, DropCustom, cause, createDrops(drops))
	}
	return nil
}

func (e *Engine) unwindDropItems(w World, ctx *PhaseContext) error {
	snap, err := e.blockSource(BlockDropItems, ctx, "a block dropping items")
	if err != nil {
		return err
	}

	if items := ctx.Items(); len(items) > 0 {
		cause := newCause(snap, SpawnDroppedItem, ctx.notifier, ctx.owner)
		e.postDrop(w, BlockDropItems, DropDestruct, cause, items)
	}
	if entities := ctx.Entities(); len(entities) > 0 {
		cause := newCause(snap, SpawnDroppedItem, ctx.notifier, ctx.owner)
		e.postSpawn(w, BlockDropItems, cause, entities, nil)
	}

	notifier, owner := e.blockUsers(snap)
	if blocks := ctx.Blocks(); len(blocks) > 0 {
		e.processBlocks(w, BlockDropItems, blocks, ctx)
	}
	if drops := ctx.ItemStacks(); len(drops) > 0 {
		cause := newCause(snap, SpawnBlockSpawning, notifier, owner)
		e.postDrop(w, BlockDropItems, DropCustom, cause, createDrops(drops))
	}
	return nil
}

func (e *Engine) unwindDispense(w World, ctx *PhaseContext) error {
	snap, err := e.blockSource(Dispense, ctx, "a block dispensing items")
	if err != nil {
		return err
	}

	if items := ctx.Items(); len(items) > 0 {
		cause := newCause(snap, SpawnDispense, ctx.notifier, ctx.owner)
		e.postDrop(w, Dispense, DropDispense, cause, items)
	}
	if entities := ctx.Entities(); len(entities) > 0 {
		cause := newCause(snap, SpawnDispense, ctx.notifier, ctx.owner)
		creator := ctx.notifier
		if creator == nil {
			creator = ctx.owner
		}
		e.postSpawn(w, Dispense, cause, entities, creator)
	}
	if stacks, blocks := len(ctx.ItemStacks()), len(ctx.Blocks()); stacks > 0 || blocks > 0 {
		// Dispensers only reconcile item entities and entities.
		e.log.Debug("phase: ignoring captured stacks and blocks during dispense",
			"stacks", stacks,
			"blocks", blocks)
	}
	return nil
}

func (e *Engine) unwindPiston(w World, ctx *PhaseContext) {
	blocks := ctx.Blocks()
	if len(blocks) == 0 {
		return
	}
	if e.processBlocks(w, PistonMoving, blocks, ctx) {
		return
	}
	if slot := ctx.ResultSlot(); slot != nil {
		slot.Set(false)
	}
}

// blockSource resolves the mandatory block snapshot of state.
func (e *Engine) blockSource(state State, ctx *PhaseContext, what string) (BlockSnapshot, error) {
	snap, ok := ctx.BlockSource()
	if !ok {
		err := contractViolation(state, what)
		ContractViolations.WithLabelValues(state.String()).Inc()
		logError(e.log, "phase: unwind aborted", err)
		return BlockSnapshot{}, err
	}
	return snap, nil
}

// blockUsers returns the notifier and owner recorded for the snapshot's position.
func (e *Engine) blockUsers(snap BlockSnapshot) (notifier, owner *User) {
	if e.meta == nil {
		return nil, nil
	}
	if u, ok := e.meta.BlockNotifier(snap.Pos); ok {
		notifier = &u
	}
	if u, ok := e.meta.BlockOwner(snap.Pos); ok {
		owner = &u
	}
	return notifier, owner
}

// processBlocks runs the capture pipeline and reports whether it succeeded.
func (e *Engine) processBlocks(w World, state State, blocks []BlockChange, ctx *PhaseContext) bool {
	err := e.pipeline.Process(w, slices.Clone(blocks), state, ctx)
	if err == nil {
		return true
	}
	PipelineFailures.WithLabelValues(state.String()).Inc()
	e.log.Warn("phase: block capture pipeline failed",
		"state", state.String(),
		"blocks", len(blocks),
		"error", err)
	return false
}

// postSpawn posts a SpawnEntityEvent and commits its entities unless cancelled.
// A non-nil creator is stamped onto each committed entity.
func (e *Engine) postSpawn(w World, state State, cause Cause, entities []*Entity, creator *User) {
	ev := &SpawnEntityEvent{
		eventBase: eventBase{cause: cause},
		State:     state,
		Entities:  slices.Clone(entities),
	}
	e.bus.Post(ev)
	recordEvent(ev)
	if ev.Cancelled() {
		return
	}
	for _, ent := range ev.Entities {
		if ent == nil {
			continue
		}
		if creator != nil {
			ent.SetCreator(creator.ID)
		}
		w.ForceSpawn(ent)
		EntitiesCommitted.WithLabelValues(state.String()).Inc()
	}
}

// postDrop posts a DropItemEvent and commits its entities unless cancelled.
func (e *Engine) postDrop(w World, state State, variant DropVariant, cause Cause, entities []*Entity) {
	if len(entities) == 0 {
		return
	}
	ev := &DropItemEvent{
		eventBase: eventBase{cause: cause},
		State:     state,
		Variant:   variant,
		Entities:  slices.Clone(entities),
	}
	e.bus.Post(ev)
	recordEvent(ev)
	if ev.Cancelled() {
		return
	}
	for _, ent := range ev.Entities {
		if ent == nil {
			continue
		}
		w.ForceSpawn(ent)
		EntitiesCommitted.WithLabelValues(state.String()).Inc()
	}
}

// createDrops turns queued item stacks into item entities.
func createDrops(drops []ItemDrop) []*Entity {
	out := make([]*Entity, 0, len(drops))
	for _, d := range drops {
		if d.Stack.Empty() {
			continue
		}
		out = append(out, d.Create())
	}
	return out
}
