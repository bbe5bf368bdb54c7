// Package config loads the world simulation settings from YAML or TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/worldstream/internal/core/activity"
	"github.com/zeusync/worldstream/internal/core/animation"
	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/world"
)

var (
	ErrInvalidConfig     = errors.New("invalid config")
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

type Config struct {
	Simulation SimulationConfig `yaml:"simulation" toml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Assets     AssetsConfig     `yaml:"assets" toml:"assets"`
	World      world.Config     `yaml:"world" toml:"world"`
	Activity   activity.Config  `yaml:"activity" toml:"activity"`
	Animation  animation.Config `yaml:"animation" toml:"animation"`
	Control    ControlConfig    `yaml:"control" toml:"control"`
}

type SimulationConfig struct {
	TickRate time.Duration `yaml:"tick_rate" toml:"tick_rate"`
	// MaxDelta clamps the frame delta after stalls.
	MaxDelta time.Duration `yaml:"max_delta" toml:"max_delta"`
	// StartPaused boots into the paused state until the first focus event.
	StartPaused bool `yaml:"start_paused" toml:"start_paused"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "json" or "console"
}

type AssetsConfig struct {
	Root          string                `yaml:"root" toml:"root"`
	Workers       int                   `yaml:"workers" toml:"workers"`
	Queue         int                   `yaml:"queue" toml:"queue"`
	PollInterval  time.Duration         `yaml:"poll_interval" toml:"poll_interval"`
	WaitTimeout   time.Duration         `yaml:"wait_timeout" toml:"wait_timeout"`
	TrackInFlight bool                  `yaml:"track_in_flight" toml:"track_in_flight"`
	Catalog       []assets.CatalogEntry `yaml:"catalog" toml:"catalog"`
}

// Options maps the section onto registry options.
func (c AssetsConfig) Options() assets.Options {
	return assets.Options{
		PollInterval:  c.PollInterval,
		WaitTimeout:   c.WaitTimeout,
		TrackInFlight: c.TrackInFlight,
	}
}

type ControlConfig struct {
	Enabled      bool          `yaml:"enabled" toml:"enabled"`
	Addr         string        `yaml:"addr" toml:"addr"`
	InboxSize    int           `yaml:"inbox_size" toml:"inbox_size"`
	WriteTimeout time.Duration `yaml:"write_timeout" toml:"write_timeout"`
}

func Default() *Config {
	act := activity.DefaultConfig()
	anim := animation.DefaultConfig()
	wld := world.DefaultConfig()

	return &Config{
		Simulation: SimulationConfig{
			TickRate: time.Second / 60,
			MaxDelta: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Assets: AssetsConfig{
			Root:         "assets",
			Workers:      4,
			Queue:        256,
			PollInterval: 5 * time.Millisecond,
			WaitTimeout:  30 * time.Second,
			Catalog: []assets.CatalogEntry{
				{Kind: assets.KindImage, Path: wld.GroundTexture},
				{Kind: assets.KindScene, Path: act.MobScene},
				{Kind: assets.KindScene, Path: wld.PlayerScene},
				{Kind: assets.KindAnimationClip, Path: anim.Ling.Clip},
				{Kind: assets.KindAnimationClip, Path: anim.Player.Clip},
			},
		},
		World:     wld,
		Activity:  act,
		Animation: anim,
		Control: ControlConfig{
			Enabled:      true,
			Addr:         "127.0.0.1:8089",
			InboxSize:    64,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (log.Level, error) {
	return log.ParseLevel(c.Logging.Level)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Simulation.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("simulation.tick_rate must be positive, got %s", c.Simulation.TickRate))
	}
	if c.Simulation.MaxDelta < c.Simulation.TickRate {
		errs = append(errs, fmt.Errorf("simulation.max_delta %s is below tick_rate", c.Simulation.MaxDelta))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if f := log.Format(c.Logging.Format); f != log.FormatJSON && f != log.FormatConsole {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	if c.Assets.Workers <= 0 {
		errs = append(errs, fmt.Errorf("assets.workers must be positive, got %d", c.Assets.Workers))
	}
	if c.Assets.PollInterval <= 0 {
		errs = append(errs, errors.New("assets.poll_interval must be positive"))
	}
	for i, e := range c.Assets.Catalog {
		if e.Path == "" || e.Kind == 0 {
			errs = append(errs, fmt.Errorf("assets.catalog[%d] needs kind and path", i))
		}
	}
	if c.Control.Enabled && c.Control.Addr == "" {
		errs = append(errs, errors.New("control.addr is required when control is enabled"))
	}
	if c.Control.InboxSize <= 0 {
		errs = append(errs, fmt.Errorf("control.inbox_size must be positive, got %d", c.Control.InboxSize))
	}

	for _, v := range []interface{ Validate() error }{c.World, c.Activity, c.Animation} {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
