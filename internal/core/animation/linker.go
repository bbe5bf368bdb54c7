package animation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zeusync/worldstream/internal/core/events"
	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems"
)

var (
	ErrParentCycle   = errors.New("parent chain contains a cycle")
	ErrDuplicateLink = errors.New("top entity already linked to an animation player")
)

// ParentIndex answers parent lookups. scene.Graph satisfies it.
type ParentIndex interface {
	Parent(id scene.EntityID) (scene.EntityID, bool)
}

// Top climbs from id to its root ancestor.
func Top(parents ParentIndex, id scene.EntityID) (scene.EntityID, error) {
	visited := map[scene.EntityID]struct{}{id: {}}
	cur := id
	for {
		parent, ok := parents.Parent(cur)
		if !ok {
			return cur, nil
		}
		if _, seen := visited[parent]; seen {
			return scene.NoEntity, fmt.Errorf("%w: at %s from %s", ErrParentCycle, parent, id)
		}
		visited[parent] = struct{}{}
		cur = parent
	}
}

// Link ties a top-level entity to the animation player entity inside it.
type Link struct {
	Top      scene.EntityID
	Animated scene.EntityID
}

// Linker records at most one Link per top entity. The first animation player
// found wins.
type Linker struct {
	graph  scene.Graph
	bus    bus.EventBus
	logger log.Log

	mu    sync.Mutex
	links map[scene.EntityID]scene.EntityID
	// seen holds animated entities already linked or rejected.
	seen  map[scene.EntityID]struct{}
	fresh []Link
}

var _ systems.System = (*Linker)(nil)

func NewLinker(graph scene.Graph, eventBus bus.EventBus, logger log.Log) *Linker {
	return &Linker{
		graph:  graph,
		bus:    eventBus,
		logger: logger.With(log.Component("animation.linker")),
		links:  make(map[scene.EntityID]scene.EntityID),
		seen:   make(map[scene.EntityID]struct{}),
	}
}

// Link resolves animated's top entity and records the link.
func (l *Linker) Link(animated scene.EntityID) (Link, error) {
	top, err := Top(l.graph, animated)
	if err != nil {
		return Link{}, err
	}

	l.mu.Lock()
	l.seen[animated] = struct{}{}
	if existing, ok := l.links[top]; ok {
		l.mu.Unlock()
		l.logger.Warn("multiple animation players for the same top entity",
			log.String("top", top.String()),
			log.String("existing", existing.String()),
			log.String("rejected", animated.String()),
		)
		_ = events.Publish(l.bus, events.TypeLinkDuplicate, events.SourceAnimation, events.LinkDuplicate{
			Top:      top,
			Existing: existing,
			Rejected: animated,
		})
		return Link{}, fmt.Errorf("%w: %s", ErrDuplicateLink, top)
	}
	link := Link{Top: top, Animated: animated}
	l.links[top] = animated
	l.fresh = append(l.fresh, link)
	l.mu.Unlock()

	_ = events.Publish(l.bus, events.TypeLinkCreated, events.SourceAnimation, events.LinkCreated{
		Top:      top,
		Animated: animated,
	})
	return link, nil
}

// Lookup returns the animation player linked to top.
func (l *Linker) Lookup(top scene.EntityID) (scene.EntityID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.links[top]
	return id, ok
}

// Fresh returns links created since the last call and clears the queue.
func (l *Linker) Fresh() []Link {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.fresh
	l.fresh = nil
	return out
}

func (l *Linker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.links)
}

// Scan links every animated entity not seen before and drops links whose
// top entity was despawned. Duplicates are logged and skipped.
func (l *Linker) Scan() error {
	l.mu.Lock()
	for top, animated := range l.links {
		if !l.graph.Alive(top) {
			delete(l.links, top)
			delete(l.seen, animated)
		}
	}
	for id := range l.seen {
		if !l.graph.Alive(id) {
			delete(l.seen, id)
		}
	}
	l.mu.Unlock()

	var errs []error
	for _, id := range l.graph.Tagged(scene.TagAnimated) {
		l.mu.Lock()
		_, seen := l.seen[id]
		l.mu.Unlock()
		if seen {
			continue
		}
		if _, err := l.Link(id); err != nil && !errors.Is(err, ErrDuplicateLink) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Linker) Name() string                  { return "animation.linker" }
func (l *Linker) Phase() systems.ExecutionPhase { return systems.PhaseUpdate }
func (l *Linker) Priority() systems.Priority    { return systems.PriorityLow }
func (l *Linker) Update(_ context.Context, _ float64) error {
	return l.Scan()
}
