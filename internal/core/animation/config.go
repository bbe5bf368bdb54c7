package animation

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid animation config")

// ClipConfig is the clip an entity type loops once its animation player is
// linked.
type ClipConfig struct {
	Clip  string  `yaml:"clip" toml:"clip"`
	Speed float32 `yaml:"speed" toml:"speed"`
	Loop  bool    `yaml:"loop" toml:"loop"`
}

type Config struct {
	Player ClipConfig `yaml:"player" toml:"player"`
	Ling   ClipConfig `yaml:"ling" toml:"ling"`
}

func DefaultConfig() Config {
	return Config{
		Player: ClipConfig{Clip: "models/test_runner.glb#Animation1", Speed: 0.8, Loop: true},
		Ling:   ClipConfig{Clip: "models/spike_ling_0.glb#Animation1", Speed: 2, Loop: true},
	}
}

// For returns the clip configured for typ.
func (c Config) For(typ EntityType) (ClipConfig, bool) {
	switch typ {
	case TypePlayer:
		return c.Player, true
	case TypeLing:
		return c.Ling, true
	default:
		return ClipConfig{}, false
	}
}

func (c Config) Validate() error {
	var errs []error
	for _, typ := range []EntityType{TypePlayer, TypeLing} {
		clip, _ := c.For(typ)
		if clip.Clip == "" {
			errs = append(errs, fmt.Errorf("%s: clip is required", typ))
		}
		if clip.Speed <= 0 {
			errs = append(errs, fmt.Errorf("%s: speed must be positive, got %v", typ, clip.Speed))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
