package systems

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zeusync/worldstream/internal/core/observability/log"
)

var (
	ErrSystemExists   = errors.New("system already registered")
	ErrSystemNotFound = errors.New("system not found")
)

// Runner executes systems in phase order each tick. A failing system is
// reported and skipped for that tick; the others still run.
type Runner struct {
	mu       sync.Mutex
	systems  []System
	sorted   bool
	metrics  map[string]*Metrics
	paused   bool
	onError  []func(string, error)
	logger   log.Log
	clock    func() time.Time
	tickSeen uint64
}

func NewRunner(logger log.Log) *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
		metrics: make(map[string]*Metrics),
		logger:  logger.With(log.Component("runner")),
		clock:   time.Now,
	}
}

func (r *Runner) Register(s System) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metrics[s.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
	}
	r.systems = append(r.systems, s)
	r.metrics[s.Name()] = &Metrics{}
	r.sorted = false
	return nil
}

func (r *Runner) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.systems {
		if s.Name() == name {
			r.systems = append(r.systems[:i], r.systems[i+1:]...)
			delete(r.metrics, name)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSystemNotFound, name)
}

// OnSystemError registers a callback invoked for every failed update.
func (r *Runner) OnSystemError(fn func(name string, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = append(r.onError, fn)
}

// SetPaused suspends the pre-update, update and post-update phases.
func (r *Runner) SetPaused(paused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = paused
}

func (r *Runner) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Tick runs every eligible system once. The returned error joins every
// system failure of this tick.
func (r *Runner) Tick(ctx context.Context, dt float64) error {
	return r.run(ctx, dt, func(ExecutionPhase) bool { return true })
}

// TickPhase runs only the systems of one phase.
func (r *Runner) TickPhase(ctx context.Context, phase ExecutionPhase, dt float64) error {
	return r.run(ctx, dt, func(p ExecutionPhase) bool { return p == phase })
}

func (r *Runner) run(ctx context.Context, dt float64, want func(ExecutionPhase) bool) error {
	r.mu.Lock()
	r.ensureSorted()
	order := make([]System, 0, len(r.systems))
	for _, s := range r.systems {
		if want(s.Phase()) {
			order = append(order, s)
		}
	}
	r.tickSeen++
	r.mu.Unlock()

	var errs []error
	for _, s := range order {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		// Input systems may toggle pause mid-tick.
		if s.Phase().Gated() && r.Paused() {
			continue
		}

		start := r.clock()
		err := s.Update(ctx, dt)
		took := r.clock().Sub(start)

		r.mu.Lock()
		if m, ok := r.metrics[s.Name()]; ok {
			m.record(took, err, start)
		}
		callbacks := r.onError
		r.mu.Unlock()

		if err != nil {
			err = fmt.Errorf("system %s: %w", s.Name(), err)
			errs = append(errs, err)
			r.logger.Warn("system update failed",
				log.String("system", s.Name()),
				log.String("phase", s.Phase().String()),
				log.Error(err),
			)
			for _, fn := range callbacks {
				fn(s.Name(), err)
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) Metrics(name string) (Metrics, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.metrics[name]
	if !ok {
		return Metrics{}, false
	}
	return *m, true
}

// ExecutionOrder lists system names in the order Tick runs them.
func (r *Runner) ExecutionOrder() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureSorted()
	names := make([]string, len(r.systems))
	for i, s := range r.systems {
		names[i] = s.Name()
	}
	return names
}

// Ticks reports how many ticks were started.
func (r *Runner) Ticks() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickSeen
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			a, b := r.systems[i], r.systems[j]
			if a.Phase() != b.Phase() {
				return a.Phase() < b.Phase()
			}
			return a.Priority() > b.Priority()
		})
		r.sorted = true
	}
}
