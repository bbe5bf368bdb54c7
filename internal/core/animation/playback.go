package animation

import (
	"fmt"
	"sync"

	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/scene"
)

// Playback drives the animation player owned by an entity.
type Playback interface {
	Play(animated scene.EntityID, clip assets.Ref, speed float32, loop bool) error
}

// Playing is the clip an animation player is running.
type Playing struct {
	Clip  assets.Ref
	Speed float32
	Loop  bool
}

// MemoryPlayback records what each animation player was told to play. It is
// the headless stand-in for a renderer's animation system.
type MemoryPlayback struct {
	graph scene.Graph

	mu      sync.Mutex
	playing map[scene.EntityID]Playing
	plays   int
}

var _ Playback = (*MemoryPlayback)(nil)

func NewMemoryPlayback(graph scene.Graph) *MemoryPlayback {
	return &MemoryPlayback{
		graph:   graph,
		playing: make(map[scene.EntityID]Playing),
	}
}

func (p *MemoryPlayback) Play(animated scene.EntityID, clip assets.Ref, speed float32, loop bool) error {
	if !p.graph.Alive(animated) {
		return fmt.Errorf("play on %s: %w", animated, scene.ErrEntityNotFound)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing[animated] = Playing{Clip: clip, Speed: speed, Loop: loop}
	p.plays++
	return nil
}

func (p *MemoryPlayback) Playing(animated scene.EntityID) (Playing, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pl, ok := p.playing[animated]
	return pl, ok
}

// Plays counts every Play call that succeeded.
func (p *MemoryPlayback) Plays() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}
