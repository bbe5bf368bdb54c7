package activity

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/worldstream/internal/core/events"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems/physics"
)

var axisY = mgl32.Vec3{0, 1, 0}

// PlaceSpawners scatters the configured number of dormant spawners around
// center at a random radius and angle.
func (m *Manager) PlaceSpawners(center mgl32.Vec3) ([]scene.EntityID, error) {
	p := m.cfg.Spawners
	ids := make([]scene.EntityID, 0, p.Count)
	var errs []error
	for range p.Count {
		r := p.MinRadius + m.rng.Float32()*(p.MaxRadius-p.MinRadius)
		angle := m.rng.Float32() * 2 * math.Pi
		t := scene.FromTranslation(center.Add(mgl32.Vec3{r, 0, 0})).
			RotateAround(center, mgl32.QuatRotate(angle, axisY))

		id, err := m.spawnSpawner(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ids = append(ids, id)
	}

	m.logger.Info("spawners placed",
		log.Int("count", len(ids)),
		log.Int("failed", len(errs)),
	)
	return ids, errors.Join(errs...)
}

func (m *Manager) spawnSpawner(t scene.Transform) (scene.EntityID, error) {
	id := m.graph.Spawn("spawner")
	err := errors.Join(
		m.graph.SetTransform(id, t),
		m.graph.AddTag(id, scene.TagSpawner),
		m.physics.AddBody(id, physics.Body{
			Type:     physics.Static,
			Shape:    physics.Ball(m.cfg.Spawners.ColliderRadius),
			Sleeping: true,
		}),
	)
	if err == nil {
		err = m.Track(id, ClassSpawner, m.cfg.SpawnerThreshold, Dormant, HidePhysics{Graph: m.graph, Physics: m.physics})
	}
	if err != nil {
		_ = m.graph.Despawn(id)
		return scene.NoEntity, fmt.Errorf("spawn spawner: %w", err)
	}
	return id, nil
}

func (m *Manager) tickSpawner(id scene.EntityID, t *tracked, tr scene.Transform, dt float64) error {
	cooldown := m.cfg.CooldownMin + m.rng.Float64()*(m.cfg.CooldownMax-m.cfg.CooldownMin)

	m.mu.Lock()
	t.elapsed += dt
	due := t.elapsed > cooldown
	if due {
		t.elapsed = 0
	}
	m.mu.Unlock()
	if !due {
		return nil
	}

	mobs, err := m.spawnCluster(tr.Translation)
	if len(mobs) > 0 {
		m.logger.Debug("mobs spawned",
			log.String("spawner", id.String()),
			log.Int("mobs", len(mobs)),
		)
		_ = events.Publish(m.bus, events.TypeMobsSpawned, events.SourceActivity, events.MobsSpawned{
			Spawner: id,
			Mobs:    mobs,
		})
	}
	if err != nil {
		return fmt.Errorf("spawner %s: %w", id, err)
	}
	return nil
}

// spawnCluster lines up ClusterSize mobs along +X from origin.
func (m *Manager) spawnCluster(origin mgl32.Vec3) ([]scene.EntityID, error) {
	m.mu.Lock()
	sceneRef := m.mobScene
	m.mu.Unlock()

	step := m.cfg.MobSpacing * m.cfg.MobRadius
	mobs := make([]scene.EntityID, 0, m.cfg.ClusterSize)
	var errs []error
	for i := range m.cfg.ClusterSize {
		pos := origin.Add(mgl32.Vec3{step * float32(i), 0, 0})
		id := m.graph.Spawn("mob")
		err := errors.Join(
			m.graph.SetTransform(id, scene.FromTranslation(pos)),
			m.graph.AddTag(id, scene.TagMob),
			m.graph.AddTag(id, scene.TagPendingActivation),
			m.physics.AddBody(id, physics.Body{
				Type:             physics.Dynamic,
				Shape:            physics.Ball(m.cfg.MobRadius),
				LockRotation:     true,
				LockTranslationY: true,
				Sleeping:         true,
			}),
		)
		if err == nil && sceneRef.Valid() {
			err = m.graph.SetRenderable(id, scene.Renderable{Scene: sceneRef})
		}
		if err == nil {
			err = m.Track(id, ClassMob, m.cfg.MobThreshold, Dormant, HidePhysics{Graph: m.graph, Physics: m.physics})
		}
		if err != nil {
			_ = m.graph.Despawn(id)
			errs = append(errs, fmt.Errorf("spawn mob: %w", err))
			continue
		}
		mobs = append(mobs, id)
	}

	m.mu.Lock()
	m.mobsSpawned += len(mobs)
	m.mu.Unlock()
	return mobs, errors.Join(errs...)
}

// tickMob turns an active mob toward the player and sets its chase velocity.
func (m *Manager) tickMob(id scene.EntityID, tr scene.Transform, playerPos mgl32.Vec3) error {
	dir := physics.HorizontalDirection(tr.Translation, playerPos)

	local, err := m.graph.Transform(id)
	if err != nil {
		return err
	}
	if err = m.graph.SetTransform(id, local.FaceHorizontal(dir)); err != nil {
		return err
	}
	return m.physics.SetLinearVelocity(id, dir.Mul(m.cfg.MobSpeed))
}
