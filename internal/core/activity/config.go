package activity

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid activity config")

type SpawnerPlacement struct {
	Count          int     `yaml:"count" toml:"count"`
	MinRadius      float32 `yaml:"min_radius" toml:"min_radius"`
	MaxRadius      float32 `yaml:"max_radius" toml:"max_radius"`
	ColliderRadius float32 `yaml:"collider_radius" toml:"collider_radius"`
}

type Config struct {
	SpawnerThreshold float32 `yaml:"spawner_threshold" toml:"spawner_threshold"`
	MobThreshold     float32 `yaml:"mob_threshold" toml:"mob_threshold"`

	// Spawn cooldown is sampled uniformly from [CooldownMin, CooldownMax) on
	// every check.
	CooldownMin float64 `yaml:"cooldown_min" toml:"cooldown_min"`
	CooldownMax float64 `yaml:"cooldown_max" toml:"cooldown_max"`

	ClusterSize int     `yaml:"cluster_size" toml:"cluster_size"`
	MobRadius   float32 `yaml:"mob_radius" toml:"mob_radius"`
	MobSpacing  float32 `yaml:"mob_spacing" toml:"mob_spacing"`
	MobSpeed    float32 `yaml:"mob_speed" toml:"mob_speed"`
	MobScene    string  `yaml:"mob_scene" toml:"mob_scene"`

	CensusInterval time.Duration    `yaml:"census_interval" toml:"census_interval"`
	Spawners       SpawnerPlacement `yaml:"spawners" toml:"spawners"`
}

func DefaultConfig() Config {
	return Config{
		SpawnerThreshold: 100,
		MobThreshold:     50,
		CooldownMin:      3,
		CooldownMax:      5,
		ClusterSize:      4,
		MobRadius:        0.5,
		MobSpacing:       1.1,
		MobSpeed:         3,
		MobScene:         "models/spike_ling_0.glb#Scene0",
		CensusInterval:   5 * time.Second,
		Spawners: SpawnerPlacement{
			Count:          200,
			MinRadius:      20,
			MaxRadius:      150,
			ColliderRadius: 0.1,
		},
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.SpawnerThreshold <= 0 || c.MobThreshold <= 0 {
		errs = append(errs, errors.New("thresholds must be positive"))
	}
	if c.CooldownMin < 0 || c.CooldownMax <= c.CooldownMin {
		errs = append(errs, fmt.Errorf("cooldown range [%v,%v) is empty", c.CooldownMin, c.CooldownMax))
	}
	if c.ClusterSize < 0 {
		errs = append(errs, fmt.Errorf("cluster_size must not be negative, got %d", c.ClusterSize))
	}
	if c.MobRadius <= 0 {
		errs = append(errs, fmt.Errorf("mob_radius must be positive, got %v", c.MobRadius))
	}
	if c.MobSpeed < 0 {
		errs = append(errs, fmt.Errorf("mob_speed must not be negative, got %v", c.MobSpeed))
	}
	s := c.Spawners
	if s.Count > 0 && (s.MinRadius < 0 || s.MaxRadius <= s.MinRadius) {
		errs = append(errs, fmt.Errorf("spawners radius range [%v,%v) is empty", s.MinRadius, s.MaxRadius))
	}
	if s.Count > 0 && s.ColliderRadius <= 0 {
		errs = append(errs, errors.New("spawners.collider_radius must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
