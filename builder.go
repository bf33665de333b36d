package phase

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Builder configures phase tracking before initialization.
// Use NewBuilder() to create a builder and chain configuration methods.
type Builder struct {
	config     *Config
	configPath string
	watch      bool
	handlers   []any
	pipeline   BlockCapturePipeline
	meta       ChunkMeta
	spawners   map[EntityType]Spawner
	log        *slog.Logger
	registerer prometheus.Registerer
}

// NewBuilder creates a new builder.
func NewBuilder() *Builder {
	return &Builder{spawners: make(map[EntityType]Spawner)}
}

// Config sets the initial configuration. It is ignored if ConfigFile is set.
func (b *Builder) Config(cfg *Config) *Builder {
	b.config = cfg
	return b
}

// ConfigFile loads the configuration from a YAML file. With watch set the
// file is reloaded on change until the manager shuts down.
func (b *Builder) ConfigFile(path string, watch bool) *Builder {
	b.configPath = path
	b.watch = watch
	return b
}

// Handler registers an event handler on the bus.
//
// Example:
//
//	builder.Handler(&DropLogger{})
func (b *Builder) Handler(h any) *Builder {
	b.handlers = append(b.handlers, h)
	return b
}

// Pipeline sets the block capture pipeline. Defaults to ApplyPipeline.
func (b *Builder) Pipeline(p BlockCapturePipeline) *Builder {
	b.pipeline = p
	return b
}

// ChunkMeta sets the source of per-block notifier and owner records.
func (b *Builder) ChunkMeta(meta ChunkMeta) *Builder {
	b.meta = meta
	return b
}

// Spawner registers how committed entities of type t are created.
func (b *Builder) Spawner(t EntityType, s Spawner) *Builder {
	b.spawners[t] = s
	return b
}

// Logger sets the logger. Defaults to slog.Default().
func (b *Builder) Logger(log *slog.Logger) *Builder {
	b.log = log
	return b
}

// Metrics registers the package metrics with reg during Init.
func (b *Builder) Metrics(reg prometheus.Registerer) *Builder {
	b.registerer = reg
	return b
}

// Init initializes phase tracking with the configured settings.
// Returns the Manager instance which should be stored and used to track operations.
func (b *Builder) Init() *Manager {
	log := b.log
	if log == nil {
		log = slog.Default()
	}

	cfg := b.config
	if b.configPath != "" {
		loaded, err := LoadConfig(b.configPath, nil)
		if err != nil {
			panic("phase: failed to load config: " + err.Error())
		}
		cfg = loaded
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if b.registerer != nil {
		RegisterMetrics(b.registerer)
	}

	bus := NewBus(log)
	for _, h := range b.handlers {
		if err := bus.Register(h); err != nil {
			panic("phase: failed to register handler: " + err.Error())
		}
	}

	engine := NewEngine(bus, b.pipeline, b.meta, log)
	m := newManager(cfg, engine, b.spawners, log)

	if b.configPath != "" && b.watch {
		w, err := NewConfigWatcher(b.configPath, m.SetConfig, log)
		if err != nil {
			panic("phase: failed to watch config: " + err.Error())
		}
		m.startWatcher(w)
	}

	return m
}
