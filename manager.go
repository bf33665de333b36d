package phase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/world"
)

// Manager is the central phase coordinator.
// It owns one Tracker per world, the event bus and the live configuration.
// Multiple Manager instances can coexist in the same process for running
// multiple isolated servers.
type Manager struct {
	bus      *Bus
	engine   *Engine
	spawners map[EntityType]Spawner
	log      *slog.Logger

	// config is the live configuration, swapped on reload
	config atomic.Pointer[Config]

	// trackers holds the phase stack of every world seen so far, by name
	trackers   map[string]*Tracker
	trackersMu sync.RWMutex

	watcher *ConfigWatcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// newManager creates a new manager.
func newManager(cfg *Config, engine *Engine, spawners map[EntityType]Spawner, log *slog.Logger) *Manager {
	m := &Manager{
		bus:      engine.Bus(),
		engine:   engine,
		spawners: spawners,
		log:      log,
		trackers: make(map[string]*Tracker),
	}
	m.config.Store(cfg)
	return m
}

// Bus returns the event bus handlers are registered on.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Engine returns the unwind engine shared by all trackers.
func (m *Manager) Engine() *Engine {
	return m.engine
}

// Config returns the live configuration.
func (m *Manager) Config() *Config {
	return m.config.Load()
}

// Tracker returns the tracker of w, creating it on first use.
func (m *Manager) Tracker(w *world.World) *Tracker {
	return m.TrackerFor(w.Name())
}

// TrackerFor returns the tracker of the named world, creating it on first use.
// Each tracker caches collision caps for its own world.
func (m *Manager) TrackerFor(name string) *Tracker {
	m.trackersMu.RLock()
	t, ok := m.trackers[name]
	m.trackersMu.RUnlock()
	if ok {
		return t
	}

	m.trackersMu.Lock()
	defer m.trackersMu.Unlock()
	if t, ok := m.trackers[name]; ok {
		return t
	}
	filter := NewFilter(NewRegistry(m.config.Load(), m.log))
	t = NewTracker(name, m.engine, filter, m.log.With("world", name))
	m.trackers[name] = t
	return t
}

// TrackerCount returns the number of worlds with a tracker.
func (m *Manager) TrackerCount() int {
	m.trackersMu.RLock()
	defer m.trackersMu.RUnlock()
	return len(m.trackers)
}

// SetConfig swaps the live configuration. Every tracker re-derives its
// collision caps lazily on the next query.
//
// Concurrency:
// Safe to call from any goroutine, typically the config watcher's.
func (m *Manager) SetConfig(cfg *Config) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m.config.Store(cfg)

	m.trackersMu.RLock()
	defer m.trackersMu.RUnlock()
	for _, t := range m.trackers {
		t.Filter().Registry().SetLimits(cfg)
	}
}

// Exec runs fn as a tracked operation inside a transaction on w and waits
// for the transaction to finish. Captures made through the tracker are
// unwound into the transaction before it ends, so the world and any
// ResultSlot reflect the outcome once Exec returns.
//
// Exec must not be called from inside a transaction on w; use ExecTx there.
func (m *Manager) Exec(w *world.World, state State, ctx *PhaseContext, fn func(tx *world.Tx, ctx *PhaseContext)) error {
	var err error
	<-w.Exec(func(tx *world.Tx) {
		err = m.ExecTx(tx, state, ctx, fn)
	})
	return err
}

// ExecTx runs fn as a tracked operation in the already open transaction tx.
// It returns the error of Tracker.Track, which is also logged.
func (m *Manager) ExecTx(tx *world.Tx, state State, ctx *PhaseContext, fn func(tx *world.Tx, ctx *PhaseContext)) error {
	t := m.Tracker(tx.World())
	tw := NewTxWorld(tx, m.spawners, m.log)
	err := t.Track(tw, state, ctx, func(ctx *PhaseContext) {
		fn(tx, ctx)
	})
	if err != nil {
		logError(m.log, "phase: tracked operation failed", err)
	}
	return err
}

// startWatcher reloads the configuration in the background until Shutdown.
func (m *Manager) startWatcher(w *ConfigWatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	m.watcher = w
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		w.Start(ctx)
	}()
}

// Shutdown stops the config watcher, if any.
func (m *Manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			m.log.Warn("phase: close config watcher", "error", err)
		}
	}
	m.wg.Wait()
}
