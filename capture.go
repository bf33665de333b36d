package phase

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/samber/oops"
)

// World is the part of the host world the unwind commits into.
type World interface {
	// IsClientSide returns true for non-authoritative worlds. Capping and
	// tracking only apply to the simulation side.
	IsClientSide() bool
	// ForceSpawn adds the entity to the world, bypassing capture.
	ForceSpawn(e *Entity)
}

// BlockWorld is a World that can read and write blocks.
type BlockWorld interface {
	World
	Block(pos cube.Pos) world.Block
	SetBlock(pos cube.Pos, b world.Block)
}

// BlockCapturePipeline commits captured block changes.
// A non-nil error means nothing was committed.
type BlockCapturePipeline interface {
	Process(w World, blocks []BlockChange, state State, ctx *PhaseContext) error
}

// PipelineFunc adapts a function to BlockCapturePipeline.
type PipelineFunc func(w World, blocks []BlockChange, state State, ctx *PhaseContext) error

// Process implements BlockCapturePipeline.
func (f PipelineFunc) Process(w World, blocks []BlockChange, state State, ctx *PhaseContext) error {
	return f(w, blocks, state, ctx)
}

// ApplyPipeline writes captured changes to a BlockWorld.
//
// Changes are checked in capture order against the block each position
// will hold by then: the world's block for the first change at a position,
// the previous replacement for later ones. The first mismatch fails the
// batch before anything is written.
type ApplyPipeline struct{}

// Process implements BlockCapturePipeline.
func (ApplyPipeline) Process(w World, blocks []BlockChange, state State, _ *PhaseContext) error {
	bw, ok := w.(BlockWorld)
	if !ok {
		return oops.
			Code(CodePipelineFailure).
			With("state", state.String()).
			Errorf("phase: world %T cannot set blocks", w)
	}

	pending := make(map[cube.Pos]world.Block, len(blocks))
	for _, change := range blocks {
		current, ok := pending[change.Pos]
		if !ok {
			current = bw.Block(change.Pos)
		}
		if !sameBlock(current, change.Original) {
			return oops.
				Code(CodePipelineFailure).
				With("state", state.String()).
				With("pos", change.Pos).
				Wrap(ErrPipelineMismatch)
		}
		pending[change.Pos] = change.Replacement
	}

	for _, change := range blocks {
		bw.SetBlock(change.Pos, change.Replacement)
	}
	return nil
}
