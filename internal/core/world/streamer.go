// Package world streams terrain chunks and static decoration around the
// player and awaits the assets each streaming pass depends on.
package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/events"
	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/mesh"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems/physics"
)

var ErrPassInFlight = errors.New("a streaming pass is already in flight")

// Streamer builds chunks once per coordinate and scatters decorations on its
// first pass. Every entity of a pass references assets requested under that
// pass's session.
type Streamer struct {
	cfg      Config
	registry *assets.Registry
	graph    scene.Graph
	physics  physics.World
	bus      bus.EventBus
	logger   log.Log
	rng      *rand.Rand
	ground   *mesh.Mesh

	mu        sync.Mutex
	built     map[ChunkCoord]scene.EntityID
	decorated bool
	inFlight  *Pass
}

// NewStreamer validates cfg and prepares the shared chunk mesh. A nil rng is
// seeded from cfg.Seed, or randomly when the seed is zero.
func NewStreamer(
	cfg Config,
	registry *assets.Registry,
	graph scene.Graph,
	phys physics.World,
	eventBus bus.EventBus,
	logger log.Log,
	rng *rand.Rand,
) (*Streamer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		rng = rand.New(rand.NewPCG(seed, xxhash.Sum64String("world.decoration")))
	}
	return &Streamer{
		cfg:      cfg,
		registry: registry,
		graph:    graph,
		physics:  phys,
		bus:      eventBus,
		logger:   logger.With(log.Component("streamer")),
		rng:      rng,
		ground:   mesh.FlatGrid(0, 0, cfg.ChunkSize, cfg.ChunkSize),
		built:    make(map[ChunkCoord]scene.EntityID),
	}, nil
}

func (s *Streamer) Config() Config { return s.cfg }

// Chunk returns the entity built for coord.
func (s *Streamer) Chunk(coord ChunkCoord) (scene.EntityID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.built[coord]
	return id, ok
}

func (s *Streamer) BuiltChunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.built)
}

// InFlight reports whether a pass has begun and not finished.
func (s *Streamer) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight != nil
}

// Stream runs a full pass around playerPos and waits for its assets.
func (s *Streamer) Stream(ctx context.Context, playerPos mgl32.Vec3) (PassReport, error) {
	pass, err := s.Begin(playerPos)
	if err != nil {
		return PassReport{}, err
	}
	return pass.Wait(ctx)
}

// Begin opens a session and spawns every missing chunk in the square around
// the player's chunk. The returned Pass must be completed with Poll or Wait.
func (s *Streamer) Begin(playerPos mgl32.Vec3) (*Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight != nil {
		return nil, ErrPassInFlight
	}

	center := ChunkCoordOf(playerPos, s.cfg.ChunkSize)
	p := &Pass{
		streamer: s,
		session:  s.registry.NewSession(),
		report: PassReport{
			ID:     uuid.NewString(),
			Center: center,
		},
		started: time.Now(),
	}
	p.report.Session = p.session
	if timeout := s.registry.Options().WaitTimeout; timeout > 0 {
		p.deadline = p.started.Add(timeout)
	}
	s.inFlight = p

	_ = events.Publish(s.bus, events.TypePassStarted, events.SourceStreamer, events.PassStarted{
		PassID:  p.report.ID,
		Session: uint32(p.session),
		ChunkX:  center.X,
		ChunkZ:  center.Z,
	})

	for _, coord := range center.Square(s.cfg.Radius) {
		if _, ok := s.built[coord]; ok {
			p.report.Skipped++
			continue
		}
		id, err := s.buildChunk(p, coord)
		if err != nil {
			p.report.Errors = append(p.report.Errors, err)
			if id.IsZero() {
				continue
			}
		}
		s.built[coord] = id
		p.report.Chunks = append(p.report.Chunks, coord)
	}

	if !s.decorated {
		s.decorated = true
		p.report.Decorations = s.scatterDecorations(p)
	}

	s.logger.Debug("streaming pass begun",
		log.String("pass", p.report.ID),
		log.String("center", center.String()),
		log.Int("chunks", len(p.report.Chunks)),
		log.Int("skipped", p.report.Skipped),
		log.Int("decorations", p.report.Decorations),
	)
	return p, nil
}

// buildChunk spawns the chunk entity and its collider child. A non-zero id
// with an error means the chunk exists but is incomplete.
func (s *Streamer) buildChunk(p *Pass, coord ChunkCoord) (scene.EntityID, error) {
	ticket, err := s.registry.Request(p.session, assets.KindImage, s.cfg.GroundTexture)
	if err != nil {
		return scene.NoEntity, fmt.Errorf("chunk %s texture: %w", coord, err)
	}

	id := s.graph.Spawn("chunk" + coord.String())
	var errs []error
	errs = append(errs,
		s.graph.SetTransform(id, scene.FromTranslation(coord.Origin(s.cfg.ChunkSize))),
		s.graph.SetRenderable(id, scene.Renderable{
			Mesh:     s.ground,
			Material: &scene.Material{Texture: ticket.Ref, Color: mgl32.Vec4{1, 1, 1, 1}},
		}),
		s.graph.AddTag(id, scene.TagChunk),
	)

	shape, offset := groundCollider(s.cfg.ChunkSize)
	if err = s.spawnCollider(id, shape, offset); err != nil {
		errs = append(errs, err)
	}

	_ = events.Publish(s.bus, events.TypeChunkBuilt, events.SourceStreamer, events.ChunkBuilt{
		PassID: p.report.ID,
		ChunkX: coord.X,
		ChunkZ: coord.Z,
		Entity: id,
	})

	if err = errors.Join(errs...); err != nil {
		return id, fmt.Errorf("chunk %s: %w", coord, err)
	}
	return id, nil
}

func (s *Streamer) scatterDecorations(p *Pass) int {
	d := s.cfg.Decoration
	placed := 0
	for i := 0; i < d.Count; i++ {
		radius := d.MinRadius + s.rng.Float32()*(d.MaxRadius-d.MinRadius)
		angle := s.rng.Float32() * 2 * math.Pi

		ticket, err := s.registry.Request(p.session, assets.KindScene, d.Scene)
		if err != nil {
			p.report.Errors = append(p.report.Errors, fmt.Errorf("decoration %d scene: %w", i, err))
			continue
		}

		t := scene.FromXYZ(radius, 0, 0).RotateAround(mgl32.Vec3{}, mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0}))
		id := s.graph.Spawn(fmt.Sprintf("decoration%d", i))
		err = errors.Join(
			s.graph.SetTransform(id, t),
			s.graph.SetRenderable(id, scene.Renderable{Scene: ticket.Ref}),
			s.graph.AddTag(id, scene.TagProp),
			s.spawnCollider(id,
				physics.Cone(d.ColliderHalfHeight, d.ColliderRadius),
				mgl32.Vec3{0, d.ColliderHalfHeight, 0},
			),
		)
		if err != nil {
			p.report.Errors = append(p.report.Errors, fmt.Errorf("decoration %d: %w", i, err))
		}
		placed++
	}
	return placed
}

func (s *Streamer) spawnCollider(parent scene.EntityID, shape physics.Shape, offset mgl32.Vec3) error {
	id := s.graph.Spawn(s.graph.Name(parent) + ".collider")
	return errors.Join(
		s.graph.SetParent(id, parent),
		s.graph.SetTransform(id, scene.FromTranslation(offset)),
		s.graph.AddTag(id, scene.TagCollider),
		s.physics.AddBody(id, physics.Body{Type: physics.Static, Shape: shape}),
	)
}

func (s *Streamer) finish(p *Pass) {
	s.mu.Lock()
	if s.inFlight == p {
		s.inFlight = nil
	}
	s.mu.Unlock()
}
