package phase

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLimits is a LimitProvider that records how often it is consulted.
type countingLimits struct {
	caps  map[SourceKey]int
	calls int
}

func (c *countingLimits) MaxCollisions(_ string, key SourceKey) int {
	c.calls++
	if v, ok := c.caps[key]; ok {
		return v
	}
	return -1
}

func trackerWithLimits(limits LimitProvider) *Tracker {
	return NewTracker("overworld", nil, NewFilter(NewRegistry(limits, discardLogger())), discardLogger())
}

func entityList(n int) []*Entity {
	list := make([]*Entity, n)
	for i := range list {
		list[i] = zombie()
	}
	return list
}

func TestAllowCapsAtBlockLimit(t *testing.T) {
	stone := BlockKey(block.Stone{})
	tr := trackerWithLimits(&countingLimits{caps: map[SourceKey]int{stone: 2}})
	require.NoError(t, tr.Push(BlockBreak, NewContext(BlockOrigin{Snapshot: stoneSnapshot()})))

	before := testutil.ToFloat64(CollisionsCapped.WithLabelValues("block"))

	assert.True(t, tr.AllowCollision(0))
	assert.True(t, tr.AllowCollision(1))
	assert.False(t, tr.AllowCollision(2))
	assert.False(t, tr.AllowCollision(3))

	assert.Equal(t, before+2, testutil.ToFloat64(CollisionsCapped.WithLabelValues("block")))
}

func TestAllowUsesEntitySourceWithoutBlock(t *testing.T) {
	z := zombie()
	tr := trackerWithLimits(&countingLimits{caps: map[SourceKey]int{EntityKey(z.Type): 1}})
	require.NoError(t, tr.Push(BlockBreak, NewContext(EntityOrigin{Entity: z})))

	assert.True(t, tr.AllowCollision(0))
	assert.False(t, tr.AllowCollision(1))
}

func TestAllowWithoutSourceOrPhase(t *testing.T) {
	tr := trackerWithLimits(&countingLimits{caps: map[SourceKey]int{}})
	assert.True(t, tr.AllowCollision(1000), "no active phase")

	require.NoError(t, tr.Push(BlockBreak, NewContext(nil)))
	assert.True(t, tr.AllowCollision(1000), "no source")

	assert.True(t, NewFilter(NewRegistry(nil, nil)).Allow(1000, nil), "no tracker")
}

func TestAllowNeverCapsExplosions(t *testing.T) {
	stone := BlockKey(block.Stone{})
	tr := trackerWithLimits(&countingLimits{caps: map[SourceKey]int{stone: 0}})
	require.NoError(t, tr.Push(BlockBreak, NewContext(BlockOrigin{Snapshot: stoneSnapshot()})))

	tr.BeginExplosion()
	assert.True(t, tr.AllowCollision(500))
	tr.EndExplosion()
	assert.False(t, tr.AllowCollision(0))
}

func TestZeroLimitRefusesFirstAppend(t *testing.T) {
	stone := BlockKey(block.Stone{})
	tr := trackerWithLimits(&countingLimits{caps: map[SourceKey]int{stone: 0}})
	require.NoError(t, tr.Push(BlockBreak, NewContext(BlockOrigin{Snapshot: stoneSnapshot()})))

	w := &fakeWorld{}
	list := tr.Filter().Collect(w, tr, zombie(), entityList(5))
	assert.Empty(t, list)
}

func TestCollectStopsAtCap(t *testing.T) {
	stone := BlockKey(block.Stone{})
	tr := trackerWithLimits(&countingLimits{caps: map[SourceKey]int{stone: 3}})
	require.NoError(t, tr.Push(BlockBreak, NewContext(BlockOrigin{Snapshot: stoneSnapshot()})))

	w := &fakeWorld{}
	candidates := entityList(10)
	list := tr.Filter().Collect(w, tr, zombie(), candidates)

	require.Len(t, list, 3)
	assert.Equal(t, candidates[:3], list)
}

func TestCollisionBypasses(t *testing.T) {
	stone := BlockKey(block.Stone{})
	tr := trackerWithLimits(&countingLimits{caps: map[SourceKey]int{stone: 0}})
	require.NoError(t, tr.Push(BlockBreak, NewContext(BlockOrigin{Snapshot: stoneSnapshot()})))
	f := tr.Filter()
	full := entityList(4)

	t.Run("client side", func(t *testing.T) {
		assert.True(t, f.AllowEntityCollision(&fakeWorld{clientSide: true}, tr, zombie(), full))
		assert.True(t, f.AllowTypeCollision(&fakeWorld{clientSide: true}, tr, "minecraft:zombie", full))
	})

	t.Run("player collider", func(t *testing.T) {
		p := NewEntity(PlayerType, zombie().Position)
		assert.True(t, f.AllowEntityCollision(&fakeWorld{}, tr, p, full))
	})

	t.Run("multipart collider", func(t *testing.T) {
		dragon := NewEntity("minecraft:ender_dragon", zombie().Position)
		dragon.Parts = 8
		assert.True(t, f.AllowEntityCollision(&fakeWorld{}, tr, dragon, full))
	})

	t.Run("player and item type queries", func(t *testing.T) {
		assert.True(t, f.AllowTypeCollision(&fakeWorld{}, tr, PlayerType, full))
		assert.True(t, f.AllowTypeCollision(&fakeWorld{}, tr, ItemType, full))
	})

	t.Run("capped otherwise", func(t *testing.T) {
		assert.False(t, f.AllowEntityCollision(&fakeWorld{}, tr, zombie(), full))
		assert.False(t, f.AllowTypeCollision(&fakeWorld{}, tr, "minecraft:zombie", full))
	})
}

func TestCollectTypeFiltersByType(t *testing.T) {
	tr := trackerWithLimits(nil)
	candidates := append(entityList(2), stickItem(), zombie())
	list := tr.Filter().CollectType(&fakeWorld{}, tr, "minecraft:zombie", candidates)
	assert.Len(t, list, 3)
}

func TestRegistryRefreshesLazily(t *testing.T) {
	stone := BlockKey(block.Stone{})
	limits := &countingLimits{caps: map[SourceKey]int{stone: 5}}
	tr := trackerWithLimits(limits)
	require.NoError(t, tr.Push(BlockBreak, NewContext(BlockOrigin{Snapshot: stoneSnapshot()})))

	tr.AllowCollision(0)
	tr.AllowCollision(1)
	tr.AllowCollision(2)
	assert.Equal(t, 1, limits.calls, "cap is derived once until invalidated")

	src := tr.Filter().Registry().Source(stone)
	assert.False(t, src.RequiresRefresh())
	assert.Equal(t, 5, src.MaxCollisions())

	tr.Filter().Registry().Invalidate()
	assert.True(t, tr.Filter().Registry().Source(stone).RequiresRefresh())

	tr.AllowCollision(0)
	assert.Equal(t, 2, limits.calls)
}

func TestRegistrySetLimitsAppliesOnNextQuery(t *testing.T) {
	stone := BlockKey(block.Stone{})
	tr := trackerWithLimits(&countingLimits{caps: map[SourceKey]int{stone: 1}})
	require.NoError(t, tr.Push(BlockBreak, NewContext(BlockOrigin{Snapshot: stoneSnapshot()})))

	assert.False(t, tr.AllowCollision(1))

	tr.Filter().Registry().SetLimits(&countingLimits{caps: map[SourceKey]int{stone: 10}})
	assert.True(t, tr.AllowCollision(1))
	assert.False(t, tr.AllowCollision(10))

	tr.Filter().Registry().SetLimits(nil)
	assert.True(t, tr.AllowCollision(10000))
}

func TestRegistryCreatesSourcesOnDemand(t *testing.T) {
	r := NewRegistry(nil, discardLogger())
	assert.Equal(t, 0, r.Len())

	src := r.Source(EntityKey("minecraft:minecart"))
	assert.True(t, src.RequiresRefresh())
	assert.Equal(t, EntityKey("minecraft:minecart"), src.Key())
	assert.Same(t, src, r.Source(EntityKey("minecraft:minecart")))
	assert.Equal(t, 1, r.Len())
}

func TestSourceKeys(t *testing.T) {
	assert.Equal(t, SourceKey{Kind: SourceBlock, Name: "minecraft:stone"}, BlockKey(block.Stone{}))
	assert.Equal(t, "entity:minecraft:zombie", EntityKey("minecraft:zombie").String())
	assert.True(t, sameBlock(block.Stone{}, block.Stone{}))
	assert.False(t, sameBlock(block.Stone{}, block.Air{}))
	assert.False(t, sameBlock(block.Stone{}, nil))
}
