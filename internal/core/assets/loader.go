package assets

// Handle identifies one load issued to a Loader.
type Handle uint64

// LoadState is the lifecycle of a single load.
type LoadState uint8

const (
	StateQueued LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the load has finished, successfully or not.
func (s LoadState) Terminal() bool {
	return s == StateLoaded || s == StateFailed
}

// Loader is the asynchronous content loading facility. Load must not block;
// State must be safe to call from any goroutine. The error returned by State
// describes the failure once the state is StateFailed.
type Loader interface {
	Load(kind Kind, path string) Handle
	State(h Handle) (LoadState, error)
}
