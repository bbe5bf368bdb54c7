package world

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/events"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems/physics"
)

var ErrPlayerExists = errors.New("player already spawned")

// PlayerStart is where SpawnPlayer places the player: the middle of chunk
// (0,0), half an eye height above the ground.
func (s *Streamer) PlayerStart() mgl32.Vec3 {
	half := float32(s.cfg.ChunkSize) / 2
	return mgl32.Vec3{half, s.cfg.PlayerEye / 2, half}
}

// SpawnPlayer creates the player entity with a rotation-locked capsule body.
// The configured player scene is requested detached from any pass and
// attached as the player's renderable.
func (s *Streamer) SpawnPlayer() (scene.EntityID, error) {
	if players := s.graph.Tagged(scene.TagPlayer); len(players) > 0 {
		return scene.NoEntity, fmt.Errorf("%w: %s", ErrPlayerExists, players[0])
	}

	pos := s.PlayerStart()
	id := s.graph.Spawn("player")
	err := errors.Join(
		s.graph.SetTransform(id, scene.FromTranslation(pos)),
		s.graph.AddTag(id, scene.TagPlayer),
		s.physics.AddBody(id, physics.Body{
			Type:         physics.Dynamic,
			Shape:        physics.Capsule(0.6, 0.4),
			LockRotation: true,
		}),
	)
	if err == nil && s.cfg.PlayerScene != "" {
		var ticket assets.Ticket
		ticket, err = s.registry.RequestDetached(assets.KindScene, s.cfg.PlayerScene)
		if err == nil {
			err = s.graph.SetRenderable(id, scene.Renderable{Scene: ticket.Ref})
		}
	}
	if err != nil {
		_ = s.graph.Despawn(id)
		return scene.NoEntity, fmt.Errorf("spawn player: %w", err)
	}

	s.logger.Info("player spawned",
		log.String("entity", id.String()),
		log.Float32("x", pos.X()),
		log.Float32("y", pos.Y()),
		log.Float32("z", pos.Z()),
	)
	_ = events.Publish(s.bus, events.TypePlayerSpawned, events.SourceStreamer, events.PlayerSpawned{
		Entity: id,
		X:      pos.X(),
		Y:      pos.Y(),
		Z:      pos.Z(),
	})
	return id, nil
}
