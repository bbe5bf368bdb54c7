// Package activity keeps spawners and mobs dormant while the player is far
// away and runs their behaviour while they are active.
package activity

import (
	"errors"

	"github.com/zeusync/worldstream/internal/core/scene"
	"github.com/zeusync/worldstream/internal/core/systems/physics"
)

type State uint8

const (
	Dormant State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "dormant"
}

// Proximity is the distance rule shared by every managed class: farther than
// Threshold is dormant, at or within it is active.
type Proximity struct {
	Threshold float32
	State     State
}

// Update applies the rule and reports whether the state flipped.
func (p *Proximity) Update(distance float32) bool {
	next := Active
	if distance > p.Threshold {
		next = Dormant
	}
	if next == p.State {
		return false
	}
	p.State = next
	return true
}

// Effect makes an entity's activity state visible to the rest of the world.
type Effect interface {
	Apply(id scene.EntityID, active bool) error
}

type EffectFunc func(id scene.EntityID, active bool) error

func (f EffectFunc) Apply(id scene.EntityID, active bool) error { return f(id, active) }

// HidePhysics toggles visibility and puts the body to sleep while dormant.
type HidePhysics struct {
	Graph   scene.Graph
	Physics physics.World
}

func (e HidePhysics) Apply(id scene.EntityID, active bool) error {
	return errors.Join(
		e.Graph.SetVisible(id, active),
		e.Physics.SetSleeping(id, !active),
	)
}

// HideOnly toggles visibility.
type HideOnly struct {
	Graph scene.Graph
}

func (e HideOnly) Apply(id scene.EntityID, active bool) error {
	return e.Graph.SetVisible(id, active)
}
