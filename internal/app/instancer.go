package app

import (
	"context"

	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems"
)

// LoadStates reports the load state of a ref. *assets.Registry satisfies it.
type LoadStates interface {
	State(ref assets.Ref) (assets.LoadState, error)
}

// SceneInstancer expands resident scene renderables into a child hierarchy.
// Players and mobs get an animated armature under the scene root, the way a
// loaded character model carries its animation player.
type SceneInstancer struct {
	graph  scene.Graph
	states LoadStates
	logger log.Log
	done   map[scene.EntityID]struct{}
}

var _ systems.System = (*SceneInstancer)(nil)

func NewSceneInstancer(graph scene.Graph, states LoadStates, logger log.Log) *SceneInstancer {
	return &SceneInstancer{
		graph:  graph,
		states: states,
		logger: logger.With(log.Component("instancer")),
		done:   make(map[scene.EntityID]struct{}),
	}
}

// Instance expands every entity whose scene finished loading since the last
// call and returns how many were expanded.
func (s *SceneInstancer) Instance() int {
	for id := range s.done {
		if !s.graph.Alive(id) {
			delete(s.done, id)
		}
	}

	n := 0
	for _, tag := range []scene.Tag{scene.TagPlayer, scene.TagMob, scene.TagProp} {
		animated := tag != scene.TagProp
		for _, id := range s.graph.Tagged(tag) {
			if _, ok := s.done[id]; ok {
				continue
			}
			r, ok := s.graph.Renderable(id)
			if !ok || !r.Scene.Valid() {
				continue
			}
			state, err := s.states.State(r.Scene)
			if err != nil || !state.Terminal() {
				continue
			}
			s.done[id] = struct{}{}
			if state == assets.StateFailed {
				continue
			}
			if s.expand(id, animated) {
				n++
			}
		}
	}
	return n
}

func (s *SceneInstancer) expand(id scene.EntityID, animated bool) bool {
	name := s.graph.Name(id)
	root := s.graph.Spawn(name + ".scene")
	if err := s.graph.SetParent(root, id); err != nil {
		_ = s.graph.Despawn(root)
		s.logger.Warn("scene instance failed", log.String("entity", id.String()), log.Error(err))
		return false
	}
	if !animated {
		return true
	}

	armature := s.graph.Spawn(name + ".armature")
	if err := s.graph.SetParent(armature, root); err != nil {
		_ = s.graph.Despawn(armature)
		s.logger.Warn("armature attach failed", log.String("entity", id.String()), log.Error(err))
		return true
	}
	_ = s.graph.AddTag(armature, scene.TagAnimated)
	return true
}

func (s *SceneInstancer) Name() string                  { return "scene.instancer" }
func (s *SceneInstancer) Phase() systems.ExecutionPhase { return systems.PhaseUpdate }
func (s *SceneInstancer) Priority() systems.Priority    { return systems.PriorityHigh }
func (s *SceneInstancer) Update(_ context.Context, _ float64) error {
	s.Instance()
	return nil
}
