package phase

import (
	"log/slog"
	"sync/atomic"
)

// LimitProvider derives collision caps from live configuration.
// A negative result means unlimited.
type LimitProvider interface {
	MaxCollisions(world string, key SourceKey) int
}

// Unlimited is a LimitProvider that never caps.
type Unlimited struct{}

// MaxCollisions implements LimitProvider.
func (Unlimited) MaxCollisions(string, SourceKey) int { return -1 }

// limitsBox lets the provider be swapped atomically regardless of its dynamic type.
type limitsBox struct {
	LimitProvider
}

// CollisionSource is the cached collision cap of one block or entity type.
type CollisionSource struct {
	key           SourceKey
	maxCollisions int
	needsRefresh  bool
}

// Key returns the source's type key.
func (s *CollisionSource) Key() SourceKey {
	return s.key
}

// MaxCollisions returns the cached cap. Negative means unlimited.
func (s *CollisionSource) MaxCollisions() int {
	return s.maxCollisions
}

// RequiresRefresh returns true if the cap must be re-derived before use.
func (s *CollisionSource) RequiresRefresh() bool {
	return s.needsRefresh
}

// SetRequiresRefresh marks or clears the refresh flag.
func (s *CollisionSource) SetRequiresRefresh(v bool) {
	s.needsRefresh = v
}

// Registry holds the collision sources of every block and entity type.
//
// Concurrency:
// Sources are read and refreshed on the world simulation thread only.
// SetLimits and Invalidate may be called from any goroutine; they mark the
// registry stale and the flags are applied on the next lookup.
type Registry struct {
	sources map[SourceKey]*CollisionSource
	limits  atomic.Pointer[limitsBox]
	stale   atomic.Bool
	log     *slog.Logger
}

// NewRegistry creates a registry backed by the given provider.
// A nil provider means every source is unlimited.
func NewRegistry(limits LimitProvider, log *slog.Logger) *Registry {
	if limits == nil {
		limits = Unlimited{}
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		sources: make(map[SourceKey]*CollisionSource),
		log:     log,
	}
	r.limits.Store(&limitsBox{limits})
	return r
}

// Source returns the collision source for key, creating it if needed.
// New sources start out requiring a refresh.
func (r *Registry) Source(key SourceKey) *CollisionSource {
	if r.stale.Swap(false) {
		for _, src := range r.sources {
			src.needsRefresh = true
		}
	}

	src, ok := r.sources[key]
	if !ok {
		src = &CollisionSource{key: key, needsRefresh: true}
		r.sources[key] = src
	}
	return src
}

// initializeCollisionState re-derives the cap of src from live configuration.
func (r *Registry) initializeCollisionState(src *CollisionSource, world string) {
	src.maxCollisions = r.limits.Load().MaxCollisions(world, src.key)
	CollisionRefreshes.WithLabelValues(src.key.Kind.String()).Inc()
	r.log.Debug("phase: refreshed collision limit",
		"source", src.key.String(),
		"world", world,
		"max", src.maxCollisions)
}

// refresh re-derives the cap of src if it is flagged.
func (r *Registry) refresh(src *CollisionSource, world string) {
	if !src.RequiresRefresh() {
		return
	}
	r.initializeCollisionState(src, world)
	src.SetRequiresRefresh(false)
}

// Invalidate flags every source for refresh on its next use.
func (r *Registry) Invalidate() {
	r.stale.Store(true)
}

// SetLimits swaps the live configuration and invalidates every source.
func (r *Registry) SetLimits(limits LimitProvider) {
	if limits == nil {
		limits = Unlimited{}
	}
	r.limits.Store(&limitsBox{limits})
	r.Invalidate()
}

// Len returns the number of known sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// Filter decides whether collision queries may keep growing their
// candidate lists under the active phase.
type Filter struct {
	registry *Registry
}

// NewFilter creates a filter over the registry.
func NewFilter(r *Registry) *Filter {
	return &Filter{registry: r}
}

// Registry returns the filter's registry.
func (f *Filter) Registry() *Registry {
	return f.registry
}

// Allow reports whether one more entity may be appended to a candidate
// list that currently holds size entries.
//
// Explosions are never capped. Otherwise the active context's block
// source is consulted first, then its entity source; with neither the
// append is allowed.
func (f *Filter) Allow(size int, t *Tracker) bool {
	if t == nil {
		return true
	}
	if t.ProcessingExplosion() {
		return true
	}

	ctx := t.CurrentContext()
	if ctx == nil {
		return true
	}

	var key SourceKey
	if snap, ok := ctx.BlockSource(); ok {
		key = BlockKey(snap.Block)
	} else if e, ok := ctx.EntitySource(); ok {
		key = EntityKey(e.Type)
	} else {
		return true
	}

	src := f.registry.Source(key)
	f.registry.refresh(src, t.Name())

	if limit := src.MaxCollisions(); limit >= 0 && size >= limit {
		CollisionsCapped.WithLabelValues(key.Kind.String()).Inc()
		return false
	}
	return true
}

// AllowEntityCollision is consulted while collecting the entities that
// collide with collider. Players and multi-part entities are never capped.
func (f *Filter) AllowEntityCollision(w World, t *Tracker, collider *Entity, list []*Entity) bool {
	if w == nil || w.IsClientSide() || collider == nil || collider.IsPlayer() || collider.IsMultipart() {
		return true
	}
	return f.Allow(len(list), t)
}

// AllowTypeCollision is consulted while collecting entities of a given
// type. Player and item queries (hoppers) are never capped.
func (f *Filter) AllowTypeCollision(w World, t *Tracker, typ EntityType, list []*Entity) bool {
	if w == nil || w.IsClientSide() || typ == PlayerType || typ == ItemType {
		return true
	}
	return f.Allow(len(list), t)
}

// Collect builds the list of candidates colliding with collider, stopping
// at the first append the filter refuses.
func (f *Filter) Collect(w World, t *Tracker, collider *Entity, candidates []*Entity) []*Entity {
	list := make([]*Entity, 0, len(candidates))
	for _, c := range candidates {
		if c == collider {
			continue
		}
		if !f.AllowEntityCollision(w, t, collider, list) {
			break
		}
		list = append(list, c)
	}
	return list
}

// CollectType builds the list of candidates of type typ, stopping at the
// first append the filter refuses.
func (f *Filter) CollectType(w World, t *Tracker, typ EntityType, candidates []*Entity) []*Entity {
	list := make([]*Entity, 0, len(candidates))
	for _, c := range candidates {
		if c.Type != typ {
			continue
		}
		if !f.AllowTypeCollision(w, t, typ, list) {
			break
		}
		list = append(list, c)
	}
	return list
}
