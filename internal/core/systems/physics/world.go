package physics

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems"
)

var (
	ErrNoBody     = errors.New("entity has no body")
	ErrBodyExists = errors.New("entity already has a body")
	ErrStaticBody = errors.New("static bodies cannot move")
)

type BodyType uint8

const (
	Static BodyType = iota
	Dynamic
)

// Body is the physics description attached to a scene entity.
type Body struct {
	Type  BodyType
	Shape Shape
	// LockRotation keeps the simulation from turning the entity.
	LockRotation bool
	// LockTranslationY pins the entity's height.
	LockTranslationY bool
	Sleeping         bool
}

// World is the physics boundary used by the world core.
type World interface {
	AddBody(id scene.EntityID, body Body) error
	RemoveBody(id scene.EntityID) error
	Body(id scene.EntityID) (Body, bool)
	SetLinearVelocity(id scene.EntityID, v mgl32.Vec3) error
	LinearVelocity(id scene.EntityID) (mgl32.Vec3, error)
	SetSleeping(id scene.EntityID, sleeping bool) error
	Sleeping(id scene.EntityID) (bool, error)
	Step(dt float64) error
}

type bodyState struct {
	Body
	velocity mgl32.Vec3
}

// SimpleWorld integrates awake dynamic bodies by their linear velocity and
// writes the result into the scene graph. It does not resolve contacts.
type SimpleWorld struct {
	mu     sync.Mutex
	graph  scene.Graph
	bodies map[scene.EntityID]*bodyState
}

var (
	_ World          = (*SimpleWorld)(nil)
	_ systems.System = (*SimpleWorld)(nil)
)

func NewSimpleWorld(graph scene.Graph) *SimpleWorld {
	return &SimpleWorld{
		graph:  graph,
		bodies: make(map[scene.EntityID]*bodyState),
	}
}

func (w *SimpleWorld) AddBody(id scene.EntityID, body Body) error {
	if err := body.Shape.Validate(); err != nil {
		return err
	}
	if !w.graph.Alive(id) {
		return fmt.Errorf("add body to %s: %w", id, scene.ErrEntityNotFound)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.bodies[id]; ok {
		return fmt.Errorf("%w: %s", ErrBodyExists, id)
	}
	w.bodies[id] = &bodyState{Body: body}
	return nil
}

func (w *SimpleWorld) RemoveBody(id scene.EntityID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.bodies[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNoBody, id)
	}
	delete(w.bodies, id)
	return nil
}

func (w *SimpleWorld) Body(id scene.EntityID) (Body, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return Body{}, false
	}
	return b.Body, true
}

func (w *SimpleWorld) SetLinearVelocity(id scene.EntityID, v mgl32.Vec3) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoBody, id)
	}
	if b.Type == Static {
		return fmt.Errorf("%w: %s", ErrStaticBody, id)
	}
	if b.LockTranslationY {
		v[1] = 0
	}
	b.velocity = v
	return nil
}

func (w *SimpleWorld) LinearVelocity(id scene.EntityID) (mgl32.Vec3, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return mgl32.Vec3{}, fmt.Errorf("%w: %s", ErrNoBody, id)
	}
	return b.velocity, nil
}

func (w *SimpleWorld) SetSleeping(id scene.EntityID, sleeping bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoBody, id)
	}
	b.Sleeping = sleeping
	return nil
}

func (w *SimpleWorld) Sleeping(id scene.EntityID) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNoBody, id)
	}
	return b.Sleeping, nil
}

// Len reports the number of bodies.
func (w *SimpleWorld) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bodies)
}

// Step advances awake dynamic bodies by dt seconds. Bodies whose entity was
// despawned are dropped.
func (w *SimpleWorld) Step(dt float64) error {
	w.mu.Lock()
	ids := make([]scene.EntityID, 0, len(w.bodies))
	moves := make(map[scene.EntityID]mgl32.Vec3)
	for id, b := range w.bodies {
		if !w.graph.Alive(id) {
			delete(w.bodies, id)
			continue
		}
		if b.Type != Dynamic || b.Sleeping || b.velocity.Len() == 0 {
			continue
		}
		ids = append(ids, id)
		moves[id] = b.velocity.Mul(float32(dt))
	}
	w.mu.Unlock()

	slices.Sort(ids)
	var errs []error
	for _, id := range ids {
		t, err := w.graph.Transform(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.Translation = t.Translation.Add(moves[id])
		if err = w.graph.SetTransform(id, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *SimpleWorld) Name() string                  { return "physics" }
func (w *SimpleWorld) Phase() systems.ExecutionPhase { return systems.PhasePostUpdate }
func (w *SimpleWorld) Priority() systems.Priority    { return systems.PriorityLowest }
func (w *SimpleWorld) Update(_ context.Context, dt float64) error {
	return w.Step(dt)
}
