package animation

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/events"
	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems"
)

var ErrClipFailed = errors.New("animation clip failed to load")

// ClipIndex resolves clip paths to registry refs and reports their load
// state. *assets.Registry satisfies it.
type ClipIndex interface {
	Lookup(path assets.Key) (assets.Ref, bool)
	State(ref assets.Ref) (assets.LoadState, error)
}

// Director starts the configured clip on every fresh link. Links whose top
// entity has no known type yet, or whose clip is not loaded yet, wait for a
// later update. A clip that failed to load drops the link.
type Director struct {
	cfg      Config
	graph    scene.Graph
	linker   *Linker
	types    *Types
	clips    ClipIndex
	playback Playback
	bus      bus.EventBus
	logger   log.Log

	waiting []Link
}

var _ systems.System = (*Director)(nil)

func NewDirector(
	cfg Config,
	graph scene.Graph,
	linker *Linker,
	types *Types,
	clips ClipIndex,
	playback Playback,
	eventBus bus.EventBus,
	logger log.Log,
) (*Director, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Director{
		cfg:      cfg,
		graph:    graph,
		linker:   linker,
		types:    types,
		clips:    clips,
		playback: playback,
		bus:      eventBus,
		logger:   logger.With(log.Component("animation.director")),
	}, nil
}

// Waiting reports links not started yet.
func (d *Director) Waiting() int { return len(d.waiting) }

// Direct observes entity types, then plays clips for fresh and waiting links.
func (d *Director) Direct() error {
	d.types.Observe(d.graph)

	links := append(d.waiting, d.linker.Fresh()...)
	d.waiting = d.waiting[:0:0]

	var errs []error
	for _, link := range links {
		if !d.graph.Alive(link.Top) || !d.graph.Alive(link.Animated) {
			continue
		}
		started, err := d.start(link)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !started {
			d.waiting = append(d.waiting, link)
		}
	}
	return errors.Join(errs...)
}

func (d *Director) start(link Link) (bool, error) {
	typ, ok := d.types.Get(link.Top)
	if !ok {
		return false, nil
	}
	clip, ok := d.cfg.For(typ)
	if !ok {
		return false, fmt.Errorf("no clip configured for type %q", typ)
	}
	ref, ok := d.clips.Lookup(clip.Clip)
	if !ok {
		return false, nil
	}
	state, err := d.clips.State(ref)
	if err != nil {
		return false, err
	}
	switch state {
	case assets.StateFailed:
		d.logger.Warn("clip unavailable, link dropped",
			log.String("top", link.Top.String()),
			log.String("clip", clip.Clip),
		)
		return false, fmt.Errorf("%w: %s", ErrClipFailed, clip.Clip)
	case assets.StateLoaded:
	default:
		return false, nil
	}

	if err = d.playback.Play(link.Animated, ref, clip.Speed, clip.Loop); err != nil {
		return false, fmt.Errorf("play %s on %s: %w", clip.Clip, link.Animated, err)
	}

	d.logger.Debug("clip started",
		log.String("top", link.Top.String()),
		log.String("type", string(typ)),
		log.String("clip", clip.Clip),
		log.Float32("speed", clip.Speed),
	)
	_ = events.Publish(d.bus, events.TypeClipStarted, events.SourceAnimation, events.ClipStarted{
		Top:      link.Top,
		Animated: link.Animated,
		Type:     string(typ),
		Clip:     clip.Clip,
		Speed:    clip.Speed,
	})
	return true, nil
}

func (d *Director) Name() string                  { return "animation.director" }
func (d *Director) Phase() systems.ExecutionPhase { return systems.PhaseUpdate }
func (d *Director) Priority() systems.Priority    { return systems.PriorityLowest }
func (d *Director) Update(_ context.Context, _ float64) error {
	return d.Direct()
}
