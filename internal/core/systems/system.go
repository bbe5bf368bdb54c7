package systems

import (
	"context"
	"time"
)

// System is one ordered step of the simulation tick.
type System interface {
	Name() string
	Phase() ExecutionPhase
	Priority() Priority
	Update(ctx context.Context, deltaTime float64) error
}

// Priority orders systems inside a phase. Higher runs first.
type Priority uint16

const (
	PriorityLowest  Priority = 200
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// ExecutionPhase defines when a system runs within a tick
type ExecutionPhase uint8

const (
	PhaseInput ExecutionPhase = iota
	PhasePreUpdate
	PhaseUpdate
	PhasePostUpdate
	PhaseLateUpdate
)

func (p ExecutionPhase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post_update"
	case PhaseLateUpdate:
		return "late_update"
	default:
		return "unknown"
	}
}

// Gated reports whether the phase is suspended while the simulation is paused.
func (p ExecutionPhase) Gated() bool {
	return p == PhasePreUpdate || p == PhaseUpdate || p == PhasePostUpdate
}

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	MinExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
	LastExecutionTime    time.Time
}

func (m *Metrics) record(took time.Duration, err error, at time.Time) {
	m.ExecutionCount++
	m.TotalExecutionTime += took
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
	if took > m.MaxExecutionTime {
		m.MaxExecutionTime = took
	}
	if m.MinExecutionTime == 0 || took < m.MinExecutionTime {
		m.MinExecutionTime = took
	}
	m.LastExecutionTime = at
	if err != nil {
		m.ErrorCount++
		m.LastError = err
	}
}

type funcSystem struct {
	name     string
	phase    ExecutionPhase
	priority Priority
	fn       func(ctx context.Context, deltaTime float64) error
}

// Func adapts a plain function into a System.
func Func(name string, phase ExecutionPhase, priority Priority, fn func(ctx context.Context, deltaTime float64) error) System {
	return &funcSystem{name: name, phase: phase, priority: priority, fn: fn}
}

func (f *funcSystem) Name() string          { return f.name }
func (f *funcSystem) Phase() ExecutionPhase { return f.phase }
func (f *funcSystem) Priority() Priority    { return f.priority }
func (f *funcSystem) Update(ctx context.Context, dt float64) error {
	return f.fn(ctx, dt)
}
