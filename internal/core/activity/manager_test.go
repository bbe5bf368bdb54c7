package activity

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/events"
	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems/physics"
)

type fixture struct {
	graph   *scene.World
	physics *physics.SimpleWorld
	bus     bus.EventBus
	manager *Manager
	events  []bus.Event
}

func newFixture(t *testing.T, cfg Config, logger log.Log) *fixture {
	t.Helper()
	f := &fixture{
		graph: scene.NewWorld(),
		bus:   bus.New(),
	}
	f.physics = physics.NewSimpleWorld(f.graph)
	_, err := f.bus.Subscribe(bus.WildcardType, func(e bus.Event) error {
		f.events = append(f.events, e)
		return nil
	})
	require.NoError(t, err)

	if logger == nil {
		logger = log.Nop()
	}
	f.manager, err = NewManager(cfg, f.graph, f.physics, f.bus, logger, rand.New(rand.NewPCG(7, 11)))
	require.NoError(t, err)
	return f
}

func (f *fixture) spawnPlayer(t *testing.T, pos mgl32.Vec3) scene.EntityID {
	t.Helper()
	id := f.graph.Spawn("player")
	require.NoError(t, f.graph.SetTransform(id, scene.FromTranslation(pos)))
	require.NoError(t, f.graph.AddTag(id, scene.TagPlayer))
	return id
}

func (f *fixture) movePlayer(t *testing.T, id scene.EntityID, pos mgl32.Vec3) {
	t.Helper()
	require.NoError(t, f.graph.SetTransform(id, scene.FromTranslation(pos)))
}

func (f *fixture) spawnSpawner(t *testing.T, pos mgl32.Vec3) scene.EntityID {
	t.Helper()
	id, err := f.manager.spawnSpawner(scene.FromTranslation(pos))
	require.NoError(t, err)
	return id
}

func (f *fixture) eventsOf(typ string) []bus.Event {
	var out []bus.Event
	for _, e := range f.events {
		if e.Type() == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestProximityThreshold(t *testing.T) {
	p := Proximity{Threshold: 50}

	assert.False(t, p.Update(50.5), "already dormant")
	assert.True(t, p.Update(50), "at threshold is active")
	assert.Equal(t, Active, p.State)
	assert.False(t, p.Update(50))
	assert.False(t, p.Update(10))
	assert.True(t, p.Update(50.01))
	assert.Equal(t, Dormant, p.State)
	assert.False(t, p.Update(1000))
}

func TestTickRequiresSinglePlayer(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	err := f.manager.Tick(0.1)
	require.ErrorIs(t, err, ErrNoPlayer)

	first := f.spawnPlayer(t, mgl32.Vec3{})
	second := f.spawnPlayer(t, mgl32.Vec3{1, 0, 0})
	err = f.manager.Tick(0.1)
	require.ErrorIs(t, err, ErrMultiplePlayers)

	skipped := f.eventsOf(events.TypeTickSkipped)
	require.Len(t, skipped, 2)
	assert.NotEmpty(t, skipped[0].Data().(events.TickSkipped).Reason)

	require.NoError(t, f.graph.Despawn(second))
	require.NoError(t, f.manager.Tick(0.1))
	require.NoError(t, f.graph.Despawn(first))
	require.ErrorIs(t, f.manager.Tick(0.1), ErrNoPlayer)
	assert.Len(t, f.eventsOf(events.TypeTickSkipped), 3)
}

func TestMissingPlayerReportedOnce(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)

	require.ErrorIs(t, f.manager.Tick(1.0/60), ErrNoPlayer)
	for range 59 {
		require.NoError(t, f.manager.Tick(1.0/60))
	}
	assert.Len(t, f.eventsOf(events.TypeTickSkipped), 1)
}

func TestSpawnerActivation(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	player := f.spawnPlayer(t, mgl32.Vec3{})
	spawner := f.spawnSpawner(t, mgl32.Vec3{150, 0, 0})

	state, ok := f.manager.State(spawner)
	require.True(t, ok)
	assert.Equal(t, Dormant, state)
	assert.False(t, f.graph.Visible(spawner))
	asleep, err := f.physics.Sleeping(spawner)
	require.NoError(t, err)
	assert.True(t, asleep)

	require.NoError(t, f.manager.Tick(1))
	elapsed, _ := f.manager.SpawnerElapsed(spawner)
	assert.Zero(t, elapsed, "dormant spawners do not count down")

	f.movePlayer(t, player, mgl32.Vec3{50, 0, 0})
	require.NoError(t, f.manager.Tick(1))
	state, _ = f.manager.State(spawner)
	assert.Equal(t, Active, state)
	assert.True(t, f.graph.Visible(spawner))
	asleep, _ = f.physics.Sleeping(spawner)
	assert.False(t, asleep)
	elapsed, _ = f.manager.SpawnerElapsed(spawner)
	assert.Equal(t, 1.0, elapsed)

	// Same distance again must not flip or republish.
	require.NoError(t, f.manager.Tick(1))
	changed := f.eventsOf(events.TypeActivityChanged)
	require.Len(t, changed, 1)
	payload := changed[0].Data().(events.ActivityChanged)
	assert.Equal(t, spawner, payload.Entity)
	assert.True(t, payload.Active)
	assert.InDelta(t, 100, payload.Distance, 1e-4)

	f.movePlayer(t, player, mgl32.Vec3{-10, 0, 0})
	require.NoError(t, f.manager.Tick(1))
	state, _ = f.manager.State(spawner)
	assert.Equal(t, Dormant, state)
	assert.False(t, f.graph.Visible(spawner))
}

func TestSpawnerCooldownSpawnsCluster(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	ref := assets.Ref(3)
	f.manager.SetMobScene(ref)
	f.spawnPlayer(t, mgl32.Vec3{10, 0, 0})
	spawner := f.spawnSpawner(t, mgl32.Vec3{})

	require.NoError(t, f.manager.Tick(2.5))
	assert.Empty(t, f.graph.Tagged(scene.TagMob))

	// 5s is past every cooldown sampled from [3,5).
	require.NoError(t, f.manager.Tick(2.5))
	mobs := f.graph.Tagged(scene.TagMob)
	require.Len(t, mobs, 4)
	elapsed, _ := f.manager.SpawnerElapsed(spawner)
	assert.Zero(t, elapsed)
	assert.Equal(t, 4, f.manager.MobsSpawned())

	for i, id := range mobs {
		tr, err := f.graph.Transform(id)
		require.NoError(t, err)
		assert.InDelta(t, 0.55*float32(i), tr.Translation.X(), 1e-5)
		assert.Zero(t, tr.Translation.Z())

		assert.False(t, f.graph.Visible(id))
		assert.True(t, f.graph.HasTag(id, scene.TagPendingActivation))
		state, ok := f.manager.State(id)
		require.True(t, ok)
		assert.Equal(t, Dormant, state)

		body, ok := f.physics.Body(id)
		require.True(t, ok)
		assert.Equal(t, physics.Dynamic, body.Type)
		assert.Equal(t, physics.ShapeBall, body.Shape.Kind)
		assert.Equal(t, float32(0.5), body.Shape.Radius)
		assert.True(t, body.LockRotation)
		assert.True(t, body.LockTranslationY)
		assert.True(t, body.Sleeping)

		r, ok := f.graph.Renderable(id)
		require.True(t, ok)
		assert.Equal(t, ref, r.Scene)
	}

	spawned := f.eventsOf(events.TypeMobsSpawned)
	require.Len(t, spawned, 1)
	assert.Equal(t, mobs, spawned[0].Data().(events.MobsSpawned).Mobs)

	// Next tick activates them; the spawner restarts from zero.
	require.NoError(t, f.manager.Tick(1))
	assert.Len(t, f.graph.Tagged(scene.TagMob), 4)
	elapsed, _ = f.manager.SpawnerElapsed(spawner)
	assert.Equal(t, 1.0, elapsed)
	for _, id := range mobs {
		state, _ := f.manager.State(id)
		assert.Equal(t, Active, state)
		assert.True(t, f.graph.Visible(id))
		assert.False(t, f.graph.HasTag(id, scene.TagPendingActivation))
	}
}

func TestMobChasesPlayer(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	player := f.spawnPlayer(t, mgl32.Vec3{0, 5, 0})

	mobs, err := f.manager.spawnCluster(mgl32.Vec3{3, 0, 4})
	require.NoError(t, err)
	require.Len(t, mobs, 4)
	mob := mobs[0]

	require.NoError(t, f.manager.Tick(0.1))

	v, err := f.physics.LinearVelocity(mob)
	require.NoError(t, err)
	assert.InDelta(t, -1.8, v.X(), 1e-5)
	assert.Zero(t, v.Y())
	assert.InDelta(t, -2.4, v.Z(), 1e-5)
	assert.InDelta(t, 3, v.Len(), 1e-5)

	tr, err := f.graph.Transform(mob)
	require.NoError(t, err)
	fwd := tr.Forward()
	assert.InDelta(t, -0.6, fwd.X(), 1e-5)
	assert.InDelta(t, -0.8, fwd.Z(), 1e-5)

	// Directly above: no horizontal delta, no motion.
	f.movePlayer(t, player, mgl32.Vec3{3, 5, 4})
	require.NoError(t, f.manager.Tick(0.1))
	v, err = f.physics.LinearVelocity(mob)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{}, v)

	require.NoError(t, f.physics.Step(1))
	tr, _ = f.graph.Transform(mob)
	assert.Equal(t, mgl32.Vec3{3, 0, 4}, tr.Translation)
}

func TestDormantMobDoesNotMove(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.spawnPlayer(t, mgl32.Vec3{})
	mobs, err := f.manager.spawnCluster(mgl32.Vec3{60, 0, 0})
	require.NoError(t, err)

	require.NoError(t, f.manager.Tick(0.1))
	v, err := f.physics.LinearVelocity(mobs[0])
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{}, v)
	state, _ := f.manager.State(mobs[0])
	assert.Equal(t, Dormant, state)
}

func TestDespawnedEntitiesAreUntracked(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	f.spawnPlayer(t, mgl32.Vec3{})
	spawner := f.spawnSpawner(t, mgl32.Vec3{5, 0, 0})
	require.Equal(t, 1, f.manager.Count(ClassSpawner))

	require.NoError(t, f.graph.Despawn(spawner))
	require.NoError(t, f.manager.Tick(0.1))
	assert.Zero(t, f.manager.Count(ClassSpawner))

	err := f.manager.Track(spawner, ClassSpawner, 10, Dormant, nil)
	require.ErrorIs(t, err, scene.ErrEntityNotFound)
}

func TestTrackTwice(t *testing.T) {
	f := newFixture(t, DefaultConfig(), nil)
	id := f.graph.Spawn("thing")
	require.NoError(t, f.manager.Track(id, ClassMob, 10, Dormant, HideOnly{Graph: f.graph}))
	assert.False(t, f.graph.Visible(id))
	require.ErrorIs(t, f.manager.Track(id, ClassMob, 10, Dormant, nil), ErrAlreadyTracked)
}

func TestPlaceSpawners(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawners.Count = 25
	f := newFixture(t, cfg, nil)
	center := mgl32.Vec3{25, 1, 25}

	ids, err := f.manager.PlaceSpawners(center)
	require.NoError(t, err)
	require.Len(t, ids, 25)
	assert.Equal(t, ids, f.graph.Tagged(scene.TagSpawner))

	for _, id := range ids {
		tr, err := f.graph.Transform(id)
		require.NoError(t, err)
		d := physics.HorizontalDistance(center, tr.Translation)
		assert.GreaterOrEqual(t, d, float32(20)-1e-3)
		assert.Less(t, d, float32(150)+1e-3)
		assert.InDelta(t, 1, tr.Translation.Y(), 1e-4)

		body, ok := f.physics.Body(id)
		require.True(t, ok)
		assert.Equal(t, physics.Static, body.Type)
		assert.Equal(t, float32(0.1), body.Shape.Radius)
		assert.True(t, body.Sleeping)
		assert.False(t, f.graph.Visible(id))
	}
}

func TestMobCensusLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := DefaultConfig()
	cfg.CensusInterval = 2 * time.Second
	f := newFixture(t, cfg, log.Wrap(zap.New(core), log.LevelInfo))
	f.spawnPlayer(t, mgl32.Vec3{})

	require.NoError(t, f.manager.Tick(1.5))
	assert.Zero(t, logs.FilterMessage("mob census").Len())
	require.NoError(t, f.manager.Tick(1.5))
	entries := logs.FilterMessage("mob census").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(0), entries[0].ContextMap()["mobs"])
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.CooldownMax = cfg.CooldownMin
	cfg.MobRadius = 0
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "cooldown")
	assert.Contains(t, err.Error(), "mob_radius")
}
