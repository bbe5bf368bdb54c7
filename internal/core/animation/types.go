// Package animation links animation players buried in loaded scene
// hierarchies to their top-level entity and starts the clip configured for
// that entity's type.
package animation

import (
	"sync"

	"github.com/zeusync/worldstream/internal/core/scene"
)

// EntityType selects which clip a linked entity plays.
type EntityType string

const (
	TypePlayer EntityType = "player"
	TypeLing   EntityType = "ling"
)

// Types maps top-level entities to their EntityType.
type Types struct {
	mu    sync.RWMutex
	types map[scene.EntityID]EntityType
}

func NewTypes() *Types {
	return &Types{types: make(map[scene.EntityID]EntityType)}
}

func (t *Types) Set(id scene.EntityID, typ EntityType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.types[id] = typ
}

func (t *Types) Get(id scene.EntityID) (EntityType, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	typ, ok := t.types[id]
	return typ, ok
}

func (t *Types) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.types)
}

// Observe types newly seen players and mobs and forgets dead entities. It
// returns how many entities were added.
func (t *Types) Observe(g scene.Graph) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id := range t.types {
		if !g.Alive(id) {
			delete(t.types, id)
		}
	}

	added := 0
	for _, tagged := range []struct {
		tag scene.Tag
		typ EntityType
	}{
		{scene.TagPlayer, TypePlayer},
		{scene.TagMob, TypeLing},
	} {
		for _, id := range g.Tagged(tagged.tag) {
			if _, ok := t.types[id]; ok {
				continue
			}
			t.types[id] = tagged.typ
			added++
		}
	}
	return added
}
