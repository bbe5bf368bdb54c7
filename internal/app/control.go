package app

import (
	"context"
	"sync"

	"github.com/zeusync/worldstream/internal/core/events"
	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/observability/log"
	"github.com/zeusync/worldstream/internal/core/systems"
)

// GameState gates the simulation phases.
type GameState uint8

const (
	InGame GameState = iota
	Paused
)

func (s GameState) String() string {
	if s == Paused {
		return "paused"
	}
	return "in_game"
}

// ControlSystem drains the inbox at the start of every tick and applies the
// resulting game state to the runner.
type ControlSystem struct {
	inbox  *Inbox
	runner *systems.Runner
	bus    bus.EventBus
	logger log.Log

	mu    sync.Mutex
	state GameState
}

var _ systems.System = (*ControlSystem)(nil)

func NewControlSystem(inbox *Inbox, runner *systems.Runner, eventBus bus.EventBus, logger log.Log) *ControlSystem {
	return &ControlSystem{
		inbox:  inbox,
		runner: runner,
		bus:    eventBus,
		logger: logger.With(log.Component("control")),
	}
}

func (c *ControlSystem) State() GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState switches the game state and reports whether it changed.
func (c *ControlSystem) SetState(next GameState) bool {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()

	c.runner.SetPaused(next == Paused)
	if prev == next {
		return false
	}
	c.logger.Info("game state changed",
		log.String("from", prev.String()),
		log.String("to", next.String()),
	)
	_ = events.Publish(c.bus, events.TypeStateChanged, events.SourceApp, events.StateChanged{
		From: prev.String(),
		To:   next.String(),
	})
	return true
}

// Apply maps one control event onto the game state.
func (c *ControlSystem) Apply(ev ControlEvent) {
	switch ev.Type {
	case ControlFocus:
		if ev.Locked {
			c.SetState(InGame)
		} else {
			c.SetState(Paused)
		}
	case ControlPause:
		c.SetState(Paused)
	case ControlResume:
		c.SetState(InGame)
	}
}

func (c *ControlSystem) Name() string                  { return "control" }
func (c *ControlSystem) Phase() systems.ExecutionPhase { return systems.PhaseInput }
func (c *ControlSystem) Priority() systems.Priority    { return systems.PriorityHighest }
func (c *ControlSystem) Update(_ context.Context, _ float64) error {
	for _, ev := range c.inbox.Drain() {
		c.Apply(ev)
	}
	return nil
}
