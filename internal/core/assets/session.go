package assets

import (
	"errors"
	"fmt"
)

// Session identifies one batch of asset requests that can be awaited together.
type Session uint32

// Status describes what a Request did with its path.
type Status uint8

const (
	// StatusIssued means a new load was started and tracked by the session.
	StatusIssued Status = iota
	// StatusInFlight means the path was already known and is still loading.
	StatusInFlight
	// StatusResident means the path was already known and reached a terminal state.
	StatusResident
)

func (s Status) String() string {
	switch s {
	case StatusIssued:
		return "issued"
	case StatusInFlight:
		return "in_flight"
	case StatusResident:
		return "resident"
	default:
		return "unknown"
	}
}

// Ticket is the answer to a Request.
type Ticket struct {
	Ref    Ref
	Status Status
	// Tracked is true when the ref joined the requesting session's pending set.
	Tracked bool
}

// Failure records one asset that reached StateFailed.
type Failure struct {
	Ref  Ref
	Kind Kind
	Path Key
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %q: %v", f.Kind, f.Path, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// SessionResult is a snapshot of a session's progress.
type SessionResult struct {
	Session Session
	// Tracked is the number of refs ever added to the pending set.
	Tracked int
	// Pending is the number of refs still loading.
	Pending int
	Failed  []Failure
}

// Ready reports whether nothing is pending.
func (r SessionResult) Ready() bool { return r.Pending == 0 }

// Err joins ErrAssetsFailed with every failure, or returns nil.
func (r SessionResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed)+1)
	errs = append(errs, ErrAssetsFailed)
	for _, f := range r.Failed {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

type sessionState struct {
	pending map[Ref]struct{}
	tracked int
	failed  []Failure
}

func newSessionState() *sessionState {
	return &sessionState{pending: make(map[Ref]struct{})}
}

func (s *sessionState) track(ref Ref) bool {
	if _, ok := s.pending[ref]; ok {
		return false
	}
	s.pending[ref] = struct{}{}
	s.tracked++
	return true
}

func (s *sessionState) result(id Session) SessionResult {
	failed := make([]Failure, len(s.failed))
	copy(failed, s.failed)
	return SessionResult{
		Session: id,
		Tracked: s.tracked,
		Pending: len(s.pending),
		Failed:  failed,
	}
}
