package world

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid world config")

type DecorationConfig struct {
	Count     int     `yaml:"count" toml:"count"`
	MinRadius float32 `yaml:"min_radius" toml:"min_radius"`
	MaxRadius float32 `yaml:"max_radius" toml:"max_radius"`
	Scene     string  `yaml:"scene" toml:"scene"`

	ColliderHalfHeight float32 `yaml:"collider_half_height" toml:"collider_half_height"`
	ColliderRadius     float32 `yaml:"collider_radius" toml:"collider_radius"`
}

type Config struct {
	ChunkSize     int              `yaml:"chunk_size" toml:"chunk_size"`
	Radius        int32            `yaml:"radius" toml:"radius"`
	GroundTexture string           `yaml:"ground_texture" toml:"ground_texture"`
	PlayerEye     float32          `yaml:"player_eye" toml:"player_eye"`
	PlayerScene   string           `yaml:"player_scene" toml:"player_scene"`
	Seed          uint64           `yaml:"seed" toml:"seed"`
	Decoration    DecorationConfig `yaml:"decoration" toml:"decoration"`
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:     50,
		Radius:        5,
		GroundTexture: "textures/gravier_16px.png",
		PlayerEye:     2,
		PlayerScene:   "models/test_runner.glb#Scene0",
		Decoration: DecorationConfig{
			Count:              60,
			MinRadius:          10,
			MaxRadius:          150,
			Scene:              "models/deco/stalagmite_base.glb#Scene0",
			ColliderHalfHeight: 6.5,
			ColliderRadius:     2,
		},
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.Radius <= 0 {
		errs = append(errs, fmt.Errorf("radius must be positive, got %d", c.Radius))
	}
	if c.GroundTexture == "" {
		errs = append(errs, errors.New("ground_texture is required"))
	}
	d := c.Decoration
	if d.Count < 0 {
		errs = append(errs, fmt.Errorf("decoration.count must not be negative, got %d", d.Count))
	}
	if d.Count > 0 {
		if d.MinRadius < 0 || d.MaxRadius <= d.MinRadius {
			errs = append(errs, fmt.Errorf("decoration radius range [%v,%v) is empty", d.MinRadius, d.MaxRadius))
		}
		if d.Scene == "" {
			errs = append(errs, errors.New("decoration.scene is required"))
		}
		if d.ColliderHalfHeight <= 0 || d.ColliderRadius <= 0 {
			errs = append(errs, errors.New("decoration collider must have positive size"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
