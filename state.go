package phase

// State represents a block-related phase of a tracked operation.
// States never transition directly into one another: each is pushed
// fresh onto a Tracker and popped back off when the operation ends.
type State int

const (
	// BlockDecay is entered while a block decays (leaves, crops).
	BlockDecay State = iota

	// RestoringBlocks is entered while previously captured blocks are
	// written back. Spawns are rejected and nothing is unwound.
	RestoringBlocks

	// Dispense is entered while a dispenser fires.
	Dispense

	// BlockDropItems is entered while a block drops its items.
	BlockDropItems

	// BlockAdded is entered while a block is added to the world.
	BlockAdded

	// BlockBreak is entered while a block breaks.
	BlockBreak

	// PistonMoving is entered while a piston pushes or pulls blocks.
	PistonMoving

	// stateCount is the total number of states.
	stateCount
)

// UpdateFlags mirrors the flags a host passes alongside a block change.
type UpdateFlags int

// UpdateNeighbours is set when neighbouring blocks should be notified of a change.
const UpdateNeighbours UpdateFlags = 1

// statePolicy holds the static policy bits of a State.
type statePolicy struct {
	name           string
	allowsSpawns   bool
	capturesBlocks bool
	requiresSource bool
}

var policies = [stateCount]statePolicy{
	BlockDecay:      {name: "BlockDecay", allowsSpawns: true, capturesBlocks: true, requiresSource: true},
	RestoringBlocks: {name: "RestoringBlocks"},
	Dispense:        {name: "Dispense", allowsSpawns: true, capturesBlocks: true, requiresSource: true},
	BlockDropItems:  {name: "BlockDropItems", allowsSpawns: true, capturesBlocks: true, requiresSource: true},
	BlockAdded:      {name: "BlockAdded", allowsSpawns: true, capturesBlocks: true},
	BlockBreak:      {name: "BlockBreak", allowsSpawns: true, capturesBlocks: true},
	PistonMoving:    {name: "PistonMoving", allowsSpawns: true, capturesBlocks: true},
}

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool {
	return s >= 0 && s < stateCount
}

// AllowsEntitySpawns reports whether entities spawned during s are captured.
func (s State) AllowsEntitySpawns() bool {
	return s.Valid() && policies[s].allowsSpawns
}

// RequiresBlockCapturing reports whether block changes during s are buffered.
func (s State) RequiresBlockCapturing() bool {
	return s.Valid() && policies[s].capturesBlocks
}

// RequiresSource reports whether unwinding s needs a block snapshot source.
func (s State) RequiresSource() bool {
	return s.Valid() && policies[s].requiresSource
}

// IsRestoring reports whether a change made under s with the given flags
// should skip side-effect propagation.
func (s State) IsRestoring(flags UpdateFlags) bool {
	return s == RestoringBlocks && flags&UpdateNeighbours == 0
}

// CanSwitchTo reports whether s may transition directly into next.
// Block states always return to neutral first.
func (s State) CanSwitchTo(State) bool {
	return false
}

// String returns the string representation of the state.
func (s State) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return policies[s].name
}

// States returns every declared state in declaration order.
func States() []State {
	out := make([]State, 0, stateCount)
	for s := BlockDecay; s < stateCount; s++ {
		out = append(out, s)
	}
	return out
}
