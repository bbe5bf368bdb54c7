package scene

import (
	"errors"
	"fmt"
	"sync"
)

// FindPlayer returns the single entity tagged as the player with its world
// transform.
func FindPlayer(g Graph) (EntityID, Transform, error) {
	players := g.Tagged(TagPlayer)
	switch len(players) {
	case 0:
		return NoEntity, Transform{}, ErrPlayerMissing
	case 1:
	default:
		return NoEntity, Transform{}, fmt.Errorf("%w: found %d", ErrPlayerAmbiguous, len(players))
	}

	t, err := g.WorldTransform(players[0])
	if err != nil {
		return NoEntity, Transform{}, err
	}
	return players[0], t, nil
}

// PlayerWatch latches player lookup failures so a missing or ambiguous player
// is reported once instead of on every tick.
type PlayerWatch struct {
	mu   sync.Mutex
	last error
}

// Observe returns err the first time its cause shows up and nil while the
// same cause repeats. A nil err clears the latch; recovered is true when it
// cleared a failure.
func (w *PlayerWatch) Observe(err error) (report error, recovered bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err == nil {
		recovered = w.last != nil
		w.last = nil
		return nil, recovered
	}
	if w.last != nil && sameCause(w.last, err) {
		return nil, false
	}
	w.last = err
	return err, false
}

func sameCause(a, b error) bool {
	for _, sentinel := range []error{ErrPlayerMissing, ErrPlayerAmbiguous, ErrEntityNotFound} {
		if errors.Is(a, sentinel) || errors.Is(b, sentinel) {
			return errors.Is(a, sentinel) && errors.Is(b, sentinel)
		}
	}
	return a.Error() == b.Error()
}
