package scene

import (
	"fmt"
	"slices"
	"sync"
)

type node struct {
	name       string
	parent     EntityID
	children   []EntityID
	transform  Transform
	visible    bool
	renderable *Renderable
	tags       map[Tag]struct{}
}

// World is the in-memory Graph used by the headless runtime.
type World struct {
	mu    sync.RWMutex
	pool  *entityPool
	nodes map[EntityID]*node
	tags  map[Tag]map[EntityID]struct{}
}

var _ Graph = (*World)(nil)

func NewWorld() *World {
	return &World{
		pool:  newEntityPool(),
		nodes: make(map[EntityID]*node, 1024),
		tags:  make(map[Tag]map[EntityID]struct{}),
	}
}

func (w *World) Spawn(name string) EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.pool.create()
	w.nodes[id] = &node{
		name:      name,
		transform: Identity(),
		visible:   true,
	}
	return id
}

func (w *World) Despawn(id EntityID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, ok := w.nodes[id]
	if !ok {
		return fmt.Errorf("despawn %s: %w", id, ErrEntityNotFound)
	}
	if !n.parent.IsZero() {
		w.detachLocked(id, n.parent)
	}
	w.despawnLocked(id)
	return nil
}

func (w *World) despawnLocked(id EntityID) {
	n := w.nodes[id]
	for _, child := range n.children {
		w.despawnLocked(child)
	}
	for tag := range n.tags {
		delete(w.tags[tag], id)
	}
	delete(w.nodes, id)
	w.pool.destroy(id)
}

func (w *World) Alive(id EntityID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.nodes[id]
	return ok
}

func (w *World) Name(id EntityID) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if n, ok := w.nodes[id]; ok {
		return n.name
	}
	return ""
}

func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.nodes)
}

func (w *World) SetParent(child, parent EntityID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, ok := w.nodes[child]
	if !ok {
		return fmt.Errorf("set parent of %s: %w", child, ErrEntityNotFound)
	}
	if _, ok = w.nodes[parent]; !ok {
		return fmt.Errorf("set parent to %s: %w", parent, ErrEntityNotFound)
	}

	for cur := parent; !cur.IsZero(); cur = w.nodes[cur].parent {
		if cur == child {
			return fmt.Errorf("%s under %s: %w", child, parent, ErrHierarchyCycle)
		}
	}

	if !c.parent.IsZero() {
		w.detachLocked(child, c.parent)
	}
	c.parent = parent
	w.nodes[parent].children = append(w.nodes[parent].children, child)
	return nil
}

func (w *World) ClearParent(child EntityID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, ok := w.nodes[child]
	if !ok {
		return fmt.Errorf("clear parent of %s: %w", child, ErrEntityNotFound)
	}
	if !c.parent.IsZero() {
		w.detachLocked(child, c.parent)
		c.parent = NoEntity
	}
	return nil
}

func (w *World) detachLocked(child, parent EntityID) {
	p, ok := w.nodes[parent]
	if !ok {
		return
	}
	if i := slices.Index(p.children, child); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
}

func (w *World) Parent(id EntityID) (EntityID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n, ok := w.nodes[id]
	if !ok || n.parent.IsZero() {
		return NoEntity, false
	}
	return n.parent, true
}

func (w *World) Children(id EntityID) []EntityID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if n, ok := w.nodes[id]; ok {
		return slices.Clone(n.children)
	}
	return nil
}

func (w *World) Transform(id EntityID) (Transform, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n, ok := w.nodes[id]
	if !ok {
		return Transform{}, fmt.Errorf("transform of %s: %w", id, ErrEntityNotFound)
	}
	return n.transform, nil
}

func (w *World) SetTransform(id EntityID, t Transform) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[id]
	if !ok {
		return fmt.Errorf("set transform of %s: %w", id, ErrEntityNotFound)
	}
	n.transform = t
	return nil
}

func (w *World) WorldTransform(id EntityID) (Transform, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n, ok := w.nodes[id]
	if !ok {
		return Transform{}, fmt.Errorf("world transform of %s: %w", id, ErrEntityNotFound)
	}
	out := n.transform
	for cur := n.parent; !cur.IsZero(); {
		p := w.nodes[cur]
		out = p.transform.Mul(out)
		cur = p.parent
	}
	return out, nil
}

func (w *World) Visible(id EntityID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n, ok := w.nodes[id]
	return ok && n.visible
}

func (w *World) SetVisible(id EntityID, visible bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[id]
	if !ok {
		return fmt.Errorf("set visibility of %s: %w", id, ErrEntityNotFound)
	}
	n.visible = visible
	return nil
}

func (w *World) SetRenderable(id EntityID, r Renderable) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[id]
	if !ok {
		return fmt.Errorf("set renderable of %s: %w", id, ErrEntityNotFound)
	}
	n.renderable = &r
	return nil
}

func (w *World) Renderable(id EntityID) (Renderable, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n, ok := w.nodes[id]
	if !ok || n.renderable == nil {
		return Renderable{}, false
	}
	return *n.renderable, true
}

func (w *World) AddTag(id EntityID, tag Tag) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[id]
	if !ok {
		return fmt.Errorf("tag %s as %q: %w", id, tag, ErrEntityNotFound)
	}
	if n.tags == nil {
		n.tags = make(map[Tag]struct{}, 2)
	}
	n.tags[tag] = struct{}{}
	set, ok := w.tags[tag]
	if !ok {
		set = make(map[EntityID]struct{})
		w.tags[tag] = set
	}
	set[id] = struct{}{}
	return nil
}

func (w *World) RemoveTag(id EntityID, tag Tag) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[id]
	if !ok {
		return fmt.Errorf("untag %s as %q: %w", id, tag, ErrEntityNotFound)
	}
	delete(n.tags, tag)
	delete(w.tags[tag], id)
	return nil
}

func (w *World) HasTag(id EntityID, tag Tag) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n, ok := w.nodes[id]
	if !ok {
		return false
	}
	_, ok = n.tags[tag]
	return ok
}

func (w *World) Tagged(tag Tag) []EntityID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	set := w.tags[tag]
	out := make([]EntityID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
