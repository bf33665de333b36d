package phase

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the live configuration consulted by the collision registry.
type Config struct {
	Collisions CollisionConfig `koanf:"collisions"`
}

// CollisionConfig holds the per-source collision caps. Keys of Blocks are
// block names and keys of Entities are entity type identifiers. A negative
// cap means unlimited.
type CollisionConfig struct {
	DefaultMax int                             `koanf:"default-max"`
	Blocks     map[string]int                  `koanf:"blocks"`
	Entities   map[string]int                  `koanf:"entities"`
	Worlds     map[string]WorldCollisionConfig `koanf:"worlds"`
}

// WorldCollisionConfig overrides the global caps for one world.
type WorldCollisionConfig struct {
	Blocks   map[string]int `koanf:"blocks"`
	Entities map[string]int `koanf:"entities"`
}

// DefaultConfig returns a configuration that caps nothing.
func DefaultConfig() *Config {
	return &Config{
		Collisions: CollisionConfig{DefaultMax: -1},
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
// Flags that were set on the command line override the file; flags may be nil.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	errb := oops.Code(CodeConfigLoad).With("path", path)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errb.Wrapf(err, "phase: read config")
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, errb.Wrapf(err, "phase: read flags")
		}
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errb.Wrapf(err, "phase: decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errb.Wrap(err)
	}
	return cfg, nil
}

// Validate rejects caps below -1.
func (c *Config) Validate() error {
	cc := c.Collisions
	if cc.DefaultMax < -1 {
		return oops.
			Code(CodeConfigLoad).
			With("key", "collisions.default-max").
			Errorf("phase: collision cap %d is below -1", cc.DefaultMax)
	}
	check := func(prefix string, caps map[string]int) error {
		for name, v := range caps {
			if v < -1 {
				return oops.
					Code(CodeConfigLoad).
					With("key", prefix+"."+name).
					Errorf("phase: collision cap %d is below -1", v)
			}
		}
		return nil
	}
	if err := check("collisions.blocks", cc.Blocks); err != nil {
		return err
	}
	if err := check("collisions.entities", cc.Entities); err != nil {
		return err
	}
	for world, wc := range cc.Worlds {
		if err := check("collisions.worlds."+world+".blocks", wc.Blocks); err != nil {
			return err
		}
		if err := check("collisions.worlds."+world+".entities", wc.Entities); err != nil {
			return err
		}
	}
	return nil
}

// MaxCollisions implements LimitProvider. A world override wins over the
// global entry, which wins over the default.
func (c *Config) MaxCollisions(world string, key SourceKey) int {
	cc := c.Collisions
	if wc, ok := cc.Worlds[world]; ok {
		if v, ok := wc.caps(key.Kind)[key.Name]; ok {
			return v
		}
	}
	if v, ok := cc.caps(key.Kind)[key.Name]; ok {
		return v
	}
	return cc.DefaultMax
}

func (c CollisionConfig) caps(kind SourceKind) map[string]int {
	if kind == SourceEntity {
		return c.Entities
	}
	return c.Blocks
}

func (c WorldCollisionConfig) caps(kind SourceKind) map[string]int {
	if kind == SourceEntity {
		return c.Entities
	}
	return c.Blocks
}
