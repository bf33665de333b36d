package phase

import (
	"log/slog"

	"github.com/samber/oops"
)

// frame is one entry of a Tracker's phase stack.
type frame struct {
	state State
	ctx   *PhaseContext
}

// Tracker is the phase stack of a single world.
//
// Concurrency:
// A Tracker belongs to one world and must only be used from that world's
// simulation thread, the same way Dragonfly serialises a world's
// transactions. Nested operations push on top of each other and are popped
// strictly last-in-first-out.
type Tracker struct {
	name       string
	stack      []frame
	explosions int

	engine *Engine
	filter *Filter
	log    *slog.Logger
}

// NewTracker creates a tracker for the named world. A nil filter gets one
// backed by an unlimited registry.
func NewTracker(name string, engine *Engine, filter *Filter, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	if filter == nil {
		filter = NewFilter(NewRegistry(nil, log))
	}
	return &Tracker{
		name:   name,
		engine: engine,
		filter: filter,
		log:    log,
	}
}

// Name returns the name of the tracked world.
func (t *Tracker) Name() string {
	return t.name
}

// Filter returns the tracker's collision filter.
func (t *Tracker) Filter() *Filter {
	return t.filter
}

// AllowCollision reports whether a collision candidate list of the given
// size may grow under the active phase.
func (t *Tracker) AllowCollision(size int) bool {
	return t.filter.Allow(size, t)
}

// Depth returns the number of active phases.
func (t *Tracker) Depth() int {
	return len(t.stack)
}

// Current returns the innermost active phase.
func (t *Tracker) Current() (State, *PhaseContext, bool) {
	if len(t.stack) == 0 {
		return 0, nil, false
	}
	top := t.stack[len(t.stack)-1]
	return top.state, top.ctx, true
}

// CurrentContext returns the innermost active context, or nil when idle.
func (t *Tracker) CurrentContext() *PhaseContext {
	_, ctx, _ := t.Current()
	return ctx
}

// Push enters state with ctx. A nil ctx is replaced by an empty one.
func (t *Tracker) Push(state State, ctx *PhaseContext) error {
	if !state.Valid() {
		return oops.
			Code(CodeInvalidState).
			With("world", t.name).
			With("state", int(state)).
			Errorf("phase: unknown state %d", int(state))
	}
	if ctx == nil {
		ctx = NewContext(nil)
	}
	if err := ctx.checkOpen(); err != nil {
		return oops.With("world", t.name).With("state", state.String()).Wrap(err)
	}

	t.stack = append(t.stack, frame{state: state, ctx: ctx})
	return nil
}

// Switch moves the innermost phase to state in place. Block states never
// switch directly into one another, so this always fails.
func (t *Tracker) Switch(state State) error {
	current, _, ok := t.Current()
	if !ok {
		return oops.Code(CodeInvalidState).With("world", t.name).Wrap(ErrNoPhase)
	}
	if !current.CanSwitchTo(state) {
		return oops.
			Code(CodeInvalidState).
			With("world", t.name).
			With("from", current.String()).
			With("to", state.String()).
			Wrap(ErrInvalidTransition)
	}
	t.stack[len(t.stack)-1].state = state
	return nil
}

// Pop leaves the innermost phase and unwinds its captures into w.
// The context is closed whether or not the unwind succeeds.
func (t *Tracker) Pop(w World) error {
	if len(t.stack) == 0 {
		return oops.Code(CodeInvalidState).With("world", t.name).Wrap(ErrNoPhase)
	}
	top := t.stack[len(t.stack)-1]
	t.stack[len(t.stack)-1] = frame{}
	t.stack = t.stack[:len(t.stack)-1]

	defer top.ctx.close()

	if t.engine == nil {
		return nil
	}
	return t.engine.Unwind(w, top.state, top.ctx)
}

// Track runs fn inside state. The phase is popped and unwound after fn
// returns, even if fn panics.
func (t *Tracker) Track(w World, state State, ctx *PhaseContext, fn func(ctx *PhaseContext)) error {
	if ctx == nil {
		ctx = NewContext(nil)
	}
	if err := t.Push(state, ctx); err != nil {
		return err
	}

	popped := false
	defer func() {
		if !popped {
			if popErr := t.Pop(w); popErr != nil {
				logError(t.log, "phase: unwind after panic failed", popErr)
			}
		}
	}()

	fn(ctx)

	popped = true
	return t.Pop(w)
}

// SpawnEntityOrCapture buffers e in the active context if the active state
// allows entity spawns. It returns false if the spawn is rejected or no
// phase is active, in which case the host spawns (or drops) e itself.
func (t *Tracker) SpawnEntityOrCapture(e *Entity) bool {
	state, ctx, ok := t.Current()
	if !ok || !state.AllowsEntitySpawns() {
		return false
	}
	if e.Type == ItemType {
		return ctx.CaptureItem(e)
	}
	return ctx.CaptureEntity(e)
}

// CaptureBlock buffers a block change if the active state requires block
// capturing. It returns false if the host should apply the change directly.
func (t *Tracker) CaptureBlock(change BlockChange) bool {
	state, ctx, ok := t.Current()
	if !ok || !state.RequiresBlockCapturing() {
		return false
	}
	return ctx.CaptureBlock(change)
}

// IsRestoring reports whether a block change with the given flags is part
// of a restore and should not propagate side effects.
func (t *Tracker) IsRestoring(flags UpdateFlags) bool {
	state, _, ok := t.Current()
	return ok && state.IsRestoring(flags)
}

// BeginExplosion marks the world as processing an explosion. Collision caps
// do not apply until the matching EndExplosion.
func (t *Tracker) BeginExplosion() {
	t.explosions++
}

// EndExplosion ends the innermost explosion.
func (t *Tracker) EndExplosion() {
	if t.explosions > 0 {
		t.explosions--
	}
}

// ProcessingExplosion returns true while an explosion is being processed.
func (t *Tracker) ProcessingExplosion() bool {
	return t.explosions > 0
}
