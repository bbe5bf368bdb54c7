package activity

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/events"
	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems"
	"github.com/zeusync/worldstream/internal/core/systems/physics"
)

var (
	ErrNoPlayer        = scene.ErrPlayerMissing
	ErrMultiplePlayers = scene.ErrPlayerAmbiguous
	ErrAlreadyTracked  = errors.New("entity already tracked")
)

// Class is the kind of managed entity.
type Class string

const (
	ClassSpawner Class = "spawner"
	ClassMob     Class = "mob"
)

type tracked struct {
	class  Class
	prox   Proximity
	effect Effect
	// elapsed is the spawner cooldown timer in seconds.
	elapsed float64
}

// Manager runs the dormant/active state machine for spawners and mobs each
// tick, then ticks the behaviour of active ones.
type Manager struct {
	cfg     Config
	graph   scene.Graph
	physics physics.World
	bus     bus.EventBus
	logger  log.Log
	rng     *rand.Rand

	playerWatch scene.PlayerWatch

	mu            sync.Mutex
	entities      map[scene.EntityID]*tracked
	mobScene      assets.Ref
	mobsSpawned   int
	censusElapsed float64
}

var _ systems.System = (*Manager)(nil)

// NewManager validates cfg. A nil rng is randomly seeded.
func NewManager(
	cfg Config,
	graph scene.Graph,
	phys physics.World,
	eventBus bus.EventBus,
	logger log.Log,
	rng *rand.Rand,
) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Manager{
		cfg:      cfg,
		graph:    graph,
		physics:  phys,
		bus:      eventBus,
		logger:   logger.With(log.Component("activity")),
		rng:      rng,
		entities: make(map[scene.EntityID]*tracked),
	}, nil
}

func (m *Manager) Config() Config { return m.cfg }

// SetMobScene sets the scene attached to spawned mobs.
func (m *Manager) SetMobScene(ref assets.Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mobScene = ref
}

// Track starts managing id. The entity starts in the given state and the
// effect is applied once so the world matches it.
func (m *Manager) Track(id scene.EntityID, class Class, threshold float32, initial State, effect Effect) error {
	if !m.graph.Alive(id) {
		return fmt.Errorf("track %s: %w", id, scene.ErrEntityNotFound)
	}

	m.mu.Lock()
	if _, ok := m.entities[id]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyTracked, id)
	}
	m.entities[id] = &tracked{
		class:  class,
		prox:   Proximity{Threshold: threshold, State: initial},
		effect: effect,
	}
	m.mu.Unlock()

	if effect != nil {
		return effect.Apply(id, initial == Active)
	}
	return nil
}

func (m *Manager) Untrack(id scene.EntityID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entities, id)
}

// State returns the tracked state of id.
func (m *Manager) State(id scene.EntityID) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.entities[id]
	if !ok {
		return Dormant, false
	}
	return t.prox.State, true
}

// SpawnerElapsed returns a spawner's cooldown timer.
func (m *Manager) SpawnerElapsed(id scene.EntityID) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.entities[id]
	if !ok || t.class != ClassSpawner {
		return 0, false
	}
	return t.elapsed, true
}

// Count returns the number of tracked entities of a class.
func (m *Manager) Count(class Class) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.entities {
		if t.class == class {
			n++
		}
	}
	return n
}

func (m *Manager) MobsSpawned() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mobsSpawned
}

// Tick runs one simulation step of dt seconds. A missing or duplicated
// player skips the tick; the failure is reported on the first skipped tick
// and again only when its cause changes.
func (m *Manager) Tick(dt float64) error {
	_, player, err := scene.FindPlayer(m.graph)
	report, recovered := m.playerWatch.Observe(err)
	if recovered {
		m.logger.Info("player found, activity resumed")
	}
	if err != nil {
		if report == nil {
			return nil
		}
		_ = events.Publish(m.bus, events.TypeTickSkipped, events.SourceActivity, events.TickSkipped{Reason: err.Error()})
		return fmt.Errorf("activity tick skipped: %w", err)
	}
	playerPos := player.Translation

	m.mu.Lock()
	ids := make([]scene.EntityID, 0, len(m.entities))
	for id := range m.entities {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	slices.Sort(ids)

	var errs []error
	for _, id := range ids {
		if err = m.step(id, playerPos, dt); err != nil {
			errs = append(errs, err)
		}
	}

	m.census(dt)
	return errors.Join(errs...)
}

func (m *Manager) step(id scene.EntityID, playerPos mgl32.Vec3, dt float64) error {
	m.mu.Lock()
	t, ok := m.entities[id]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	tr, err := m.graph.WorldTransform(id)
	if err != nil {
		m.Untrack(id)
		return nil
	}

	dist := physics.Distance(tr.Translation, playerPos)
	if m.graph.HasTag(id, scene.TagPendingActivation) {
		_ = m.graph.RemoveTag(id, scene.TagPendingActivation)
	}
	if t.prox.Update(dist) {
		active := t.prox.State == Active
		if t.effect != nil {
			if err = t.effect.Apply(id, active); err != nil {
				err = fmt.Errorf("%s %s effect: %w", t.class, id, err)
			}
		}
		_ = events.Publish(m.bus, events.TypeActivityChanged, events.SourceActivity, events.ActivityChanged{
			Entity:   id,
			Class:    string(t.class),
			Active:   active,
			Distance: dist,
		})
		if err != nil {
			return err
		}
	}

	if t.prox.State != Active {
		return nil
	}
	switch t.class {
	case ClassSpawner:
		return m.tickSpawner(id, t, tr, dt)
	case ClassMob:
		return m.tickMob(id, tr, playerPos)
	}
	return nil
}

func (m *Manager) census(dt float64) {
	interval := m.cfg.CensusInterval.Seconds()
	if interval <= 0 {
		return
	}
	m.mu.Lock()
	m.censusElapsed += dt
	report := m.censusElapsed >= interval
	if report {
		m.censusElapsed -= interval
	}
	total := m.mobsSpawned
	m.mu.Unlock()

	if report {
		m.logger.Info("mob census", log.Int("mobs", total))
	}
}

func (m *Manager) Name() string                  { return "activity" }
func (m *Manager) Phase() systems.ExecutionPhase { return systems.PhaseUpdate }
func (m *Manager) Priority() systems.Priority    { return systems.PriorityNormal }
func (m *Manager) Update(_ context.Context, dt float64) error {
	return m.Tick(dt)
}
