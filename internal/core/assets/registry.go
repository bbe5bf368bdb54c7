// Package assets deduplicates content loads by path and tracks which loads a
// world session is still waiting on.
package assets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zeusync/worldstream/internal/core/observability/log"
)

// Key is a content path. Equal keys always resolve to the same Ref.
type Key = string

// Ref is an opaque handle to a requested asset. The zero Ref is never issued.
type Ref uint32

// NoRef marks an absent asset reference.
const NoRef Ref = 0

func (r Ref) Valid() bool { return r != NoRef }

// Options tune waiting and dedup accounting.
type Options struct {
	// PollInterval is the delay between load-state sweeps in WaitReady.
	PollInterval time.Duration
	// WaitTimeout bounds WaitReady; zero means only the context bounds it.
	WaitTimeout time.Duration
	// TrackInFlight adds deduplicated refs that are still loading to the
	// requesting session's pending set. Resident refs are never tracked.
	TrackInFlight bool
}

func DefaultOptions() Options {
	return Options{
		PollInterval: 5 * time.Millisecond,
		WaitTimeout:  30 * time.Second,
	}
}

// CatalogEntry names one asset to preload.
type CatalogEntry struct {
	Kind Kind   `yaml:"kind" toml:"kind"`
	Path string `yaml:"path" toml:"path"`
}

// Stats is a point-in-time view of the registry tables.
type Stats struct {
	Assets   int
	Sessions int
	Pending  int
	ByKind   map[Kind]int
}

type entry struct {
	kind   Kind
	path   Key
	handle Handle
}

// Registry owns the path index and per-session pending sets. It is driven
// from the simulation goroutine; only the Loader is touched by other goroutines.
type Registry struct {
	mu          sync.Mutex
	loader      Loader
	opts        Options
	logger      log.Log
	entries     []entry
	byPath      map[Key]Ref
	sessions    map[Session]*sessionState
	nextSession Session
}

func NewRegistry(loader Loader, opts Options, logger log.Log) *Registry {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	return &Registry{
		loader:   loader,
		opts:     opts,
		logger:   logger.With(log.Component("assets")),
		byPath:   make(map[Key]Ref),
		sessions: make(map[Session]*sessionState),
	}
}

func (r *Registry) Options() Options { return r.opts }

// NewSession allocates the next session handle with an empty pending set.
func (r *Registry) NewSession() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSession++
	id := r.nextSession
	r.sessions[id] = newSessionState()
	return id
}

// Release forgets a session and its pending set. Refs issued under it stay
// registered and keep loading.
func (r *Registry) Release(session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSession, session)
	}
	delete(r.sessions, session)
	return nil
}

// RequestDetached requests path under a short-lived session that is released
// before returning. Readiness is then tracked per ref through State.
func (r *Registry) RequestDetached(kind Kind, path Key) (Ticket, error) {
	session := r.NewSession()
	defer func() { _ = r.Release(session) }()
	return r.Request(session, kind, path)
}

// Request returns the Ref for path, starting a load only the first time the
// path is seen by the registry. Dedup is global across sessions.
func (r *Registry) Request(session Session, kind Kind, path Key) (Ticket, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Ticket{}, ErrEmptyPath
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.sessions[session]
	if !ok {
		return Ticket{}, fmt.Errorf("%w: %d", ErrUnknownSession, session)
	}

	if ref, known := r.byPath[path]; known {
		e := r.entries[ref-1]
		if e.kind != kind {
			return Ticket{}, fmt.Errorf("%w: %q is %s, requested as %s", ErrKindMismatch, path, e.kind, kind)
		}
		state, _ := r.loader.State(e.handle)
		if state.Terminal() {
			return Ticket{Ref: ref, Status: StatusResident}, nil
		}
		t := Ticket{Ref: ref, Status: StatusInFlight}
		if r.opts.TrackInFlight {
			t.Tracked = st.track(ref)
		}
		return t, nil
	}

	handle := r.loader.Load(kind, path)
	r.entries = append(r.entries, entry{kind: kind, path: path, handle: handle})
	ref := Ref(len(r.entries))
	r.byPath[path] = ref
	st.track(ref)

	r.logger.Debug("asset load issued",
		log.String("path", path),
		log.String("kind", kind.String()),
		log.Uint32("session", uint32(session)),
	)

	return Ticket{Ref: ref, Status: StatusIssued, Tracked: true}, nil
}

// Poll sweeps the session's pending set once without blocking. Terminal refs
// are removed; failed ones are recorded. done is true when nothing is pending.
func (r *Registry) Poll(session Session) (SessionResult, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.sessions[session]
	if !ok {
		return SessionResult{}, false, fmt.Errorf("%w: %d", ErrUnknownSession, session)
	}

	for ref := range st.pending {
		e := r.entries[ref-1]
		state, err := r.loader.State(e.handle)
		if !state.Terminal() {
			continue
		}
		delete(st.pending, ref)
		if state == StateFailed {
			if err == nil {
				err = errors.New("load failed")
			}
			st.failed = append(st.failed, Failure{Ref: ref, Kind: e.kind, Path: e.path, Err: err})
			r.logger.Warn("asset load failed",
				log.String("path", e.path),
				log.String("kind", e.kind.String()),
				log.Error(err),
			)
		}
	}

	if len(st.failed) > 1 {
		sort.Slice(st.failed, func(i, j int) bool { return st.failed[i].Ref < st.failed[j].Ref })
	}

	res := st.result(session)
	return res, res.Ready(), nil
}

// WaitReady suspends the caller until every ref tracked by the session is
// terminal, the context ends, or the configured timeout elapses. When loads
// failed the result lists them and the error wraps ErrAssetsFailed.
func (r *Registry) WaitReady(ctx context.Context, session Session) (SessionResult, error) {
	if r.opts.WaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.WaitTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		res, done, err := r.Poll(session)
		if err != nil {
			return res, err
		}
		if done {
			return res, res.Err()
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return res, fmt.Errorf("%w: session %d has %d pending", ErrWaitTimeout, session, res.Pending)
			}
			return res, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Preload requests every catalog entry under a fresh session, waits for it
// and releases the session.
func (r *Registry) Preload(ctx context.Context, catalog []CatalogEntry) (SessionResult, error) {
	session := r.NewSession()
	defer func() { _ = r.Release(session) }()
	for _, c := range catalog {
		if _, err := r.Request(session, c.Kind, c.Path); err != nil {
			return SessionResult{Session: session}, fmt.Errorf("preload %q: %w", c.Path, err)
		}
	}
	return r.WaitReady(ctx, session)
}

// Pending lists the refs a session still waits on, in ascending order.
func (r *Registry) Pending(session Session) ([]Ref, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.sessions[session]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSession, session)
	}
	out := make([]Ref, 0, len(st.pending))
	for ref := range st.pending {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Lookup returns the Ref already assigned to path.
func (r *Registry) Lookup(path Key) (Ref, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.byPath[strings.TrimSpace(path)]
	return ref, ok
}

// State reports the loader state of a ref.
func (r *Registry) State(ref Ref) (LoadState, error) {
	r.mu.Lock()
	e, err := r.entryLocked(ref)
	r.mu.Unlock()
	if err != nil {
		return StateFailed, err
	}
	return r.loader.State(e.handle)
}

func (r *Registry) Path(ref Ref) (Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.entryLocked(ref)
	return e.path, err
}

func (r *Registry) Kind(ref Ref) (Kind, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.entryLocked(ref)
	return e.kind, err
}

func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		Assets:   len(r.entries),
		Sessions: len(r.sessions),
		ByKind:   make(map[Kind]int),
	}
	for _, e := range r.entries {
		s.ByKind[e.kind]++
	}
	for _, st := range r.sessions {
		s.Pending += len(st.pending)
	}
	return s
}

func (r *Registry) entryLocked(ref Ref) (entry, error) {
	if ref == NoRef || int(ref) > len(r.entries) {
		return entry{}, fmt.Errorf("%w: %d", ErrUnknownRef, ref)
	}
	return r.entries[ref-1], nil
}
