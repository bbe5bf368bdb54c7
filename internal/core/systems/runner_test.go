package systems

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/worldstream/internal/core/observability/log"
)

func recorder(calls *[]string, name string, phase ExecutionPhase, prio Priority, err error) System {
	return Func(name, phase, prio, func(context.Context, float64) error {
		*calls = append(*calls, name)
		return err
	})
}

func TestRunner_OrdersByPhaseThenPriority(t *testing.T) {
	r := NewRunner(log.Nop())
	var calls []string

	require.NoError(t, r.Register(recorder(&calls, "physics", PhaseLateUpdate, PriorityNormal, nil)))
	require.NoError(t, r.Register(recorder(&calls, "activity", PhaseUpdate, PriorityNormal, nil)))
	require.NoError(t, r.Register(recorder(&calls, "streaming", PhaseUpdate, PriorityHigh, nil)))
	require.NoError(t, r.Register(recorder(&calls, "control", PhaseInput, PriorityNormal, nil)))

	require.NoError(t, r.Tick(context.Background(), 0.016))
	assert.Equal(t, []string{"control", "streaming", "activity", "physics"}, calls)
	assert.Equal(t, calls, r.ExecutionOrder())
	assert.Equal(t, uint64(1), r.Ticks())
}

func TestRunner_RejectsDuplicateNames(t *testing.T) {
	r := NewRunner(log.Nop())
	var calls []string
	require.NoError(t, r.Register(recorder(&calls, "a", PhaseUpdate, PriorityNormal, nil)))
	assert.ErrorIs(t, r.Register(recorder(&calls, "a", PhaseInput, PriorityNormal, nil)), ErrSystemExists)

	require.NoError(t, r.Unregister("a"))
	assert.ErrorIs(t, r.Unregister("a"), ErrSystemNotFound)
}

func TestRunner_FailureDoesNotStopOthers(t *testing.T) {
	r := NewRunner(log.Nop())
	var calls []string
	boom := errors.New("no player")

	require.NoError(t, r.Register(recorder(&calls, "activity", PhaseUpdate, PriorityHigh, boom)))
	require.NoError(t, r.Register(recorder(&calls, "animation", PhaseUpdate, PriorityLow, nil)))

	var reported []string
	r.OnSystemError(func(name string, err error) {
		reported = append(reported, name)
		assert.ErrorIs(t, err, boom)
	})

	err := r.Tick(context.Background(), 0.016)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"activity", "animation"}, calls)
	assert.Equal(t, []string{"activity"}, reported)

	m, ok := r.Metrics("activity")
	require.True(t, ok)
	assert.Equal(t, uint64(1), m.ExecutionCount)
	assert.Equal(t, uint64(1), m.ErrorCount)
	assert.ErrorIs(t, m.LastError, boom)
}

func TestRunner_PauseGatesUpdatePhases(t *testing.T) {
	r := NewRunner(log.Nop())
	var calls []string

	require.NoError(t, r.Register(recorder(&calls, "control", PhaseInput, PriorityNormal, nil)))
	require.NoError(t, r.Register(recorder(&calls, "activity", PhaseUpdate, PriorityNormal, nil)))
	require.NoError(t, r.Register(recorder(&calls, "physics", PhaseLateUpdate, PriorityNormal, nil)))

	r.SetPaused(true)
	require.NoError(t, r.Tick(context.Background(), 0.016))
	assert.Equal(t, []string{"control", "physics"}, calls)

	calls = nil
	r.SetPaused(false)
	require.NoError(t, r.Tick(context.Background(), 0.016))
	assert.Equal(t, []string{"control", "activity", "physics"}, calls)
}

func TestRunner_InputCanUnpauseSameTick(t *testing.T) {
	r := NewRunner(log.Nop())
	var calls []string

	require.NoError(t, r.Register(Func("control", PhaseInput, PriorityNormal, func(context.Context, float64) error {
		r.SetPaused(false)
		return nil
	})))
	require.NoError(t, r.Register(recorder(&calls, "activity", PhaseUpdate, PriorityNormal, nil)))

	r.SetPaused(true)
	require.NoError(t, r.Tick(context.Background(), 0.016))
	assert.Equal(t, []string{"activity"}, calls)
}

func TestRunner_TickPhase(t *testing.T) {
	r := NewRunner(log.Nop())
	var calls []string
	require.NoError(t, r.Register(recorder(&calls, "control", PhaseInput, PriorityNormal, nil)))
	require.NoError(t, r.Register(recorder(&calls, "activity", PhaseUpdate, PriorityNormal, nil)))

	require.NoError(t, r.TickPhase(context.Background(), PhaseInput, 0))
	assert.Equal(t, []string{"control"}, calls)
}

func TestRunner_StopsOnCancelledContext(t *testing.T) {
	r := NewRunner(log.Nop())
	var calls []string
	require.NoError(t, r.Register(recorder(&calls, "control", PhaseInput, PriorityNormal, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Tick(ctx, 0), context.Canceled)
	assert.Empty(t, calls)
}
