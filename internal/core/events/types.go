// Package events names the world notifications published on the bus and
// their payloads.
package events

import (
	"github.com/zeusync/worldstream/internal/core/events/bus"
	"github.com/zeusync/worldstream/internal/core/scene"
)

const (
	TypePassStarted   = "world.pass.started"
	TypeChunkBuilt    = "world.chunk.built"
	TypePassFinished  = "world.pass.finished"
	TypeAssetsFailed  = "world.assets.failed"
	TypePlayerSpawned = "world.player.spawned"

	TypeActivityChanged = "activity.state.changed"
	TypeMobsSpawned     = "activity.mobs.spawned"
	TypeTickSkipped     = "activity.tick.skipped"

	TypeLinkCreated   = "animation.link.created"
	TypeLinkDuplicate = "animation.link.duplicate"
	TypeClipStarted   = "animation.clip.started"

	TypeStateChanged = "app.state.changed"
)

const (
	SourceStreamer  = "world"
	SourceActivity  = "activity"
	SourceAnimation = "animation"
	SourceApp       = "app"
)

type PassStarted struct {
	PassID  string `json:"pass_id"`
	Session uint32 `json:"session"`
	ChunkX  int32  `json:"chunk_x"`
	ChunkZ  int32  `json:"chunk_z"`
}

type ChunkBuilt struct {
	PassID string         `json:"pass_id"`
	ChunkX int32          `json:"chunk_x"`
	ChunkZ int32          `json:"chunk_z"`
	Entity scene.EntityID `json:"entity"`
}

type PassFinished struct {
	PassID      string  `json:"pass_id"`
	Session     uint32  `json:"session"`
	Chunks      int     `json:"chunks"`
	Decorations int     `json:"decorations"`
	Failed      int     `json:"failed"`
	Seconds     float64 `json:"seconds"`
}

type AssetsFailed struct {
	PassID  string   `json:"pass_id"`
	Session uint32   `json:"session"`
	Paths   []string `json:"paths"`
}

type PlayerSpawned struct {
	Entity scene.EntityID `json:"entity"`
	X      float32        `json:"x"`
	Y      float32        `json:"y"`
	Z      float32        `json:"z"`
}

type ActivityChanged struct {
	Entity   scene.EntityID `json:"entity"`
	Class    string         `json:"class"`
	Active   bool           `json:"active"`
	Distance float32        `json:"distance"`
}

type MobsSpawned struct {
	Spawner scene.EntityID   `json:"spawner"`
	Mobs    []scene.EntityID `json:"mobs"`
}

type TickSkipped struct {
	Reason string `json:"reason"`
}

type LinkCreated struct {
	Top      scene.EntityID `json:"top"`
	Animated scene.EntityID `json:"animated"`
}

type LinkDuplicate struct {
	Top      scene.EntityID `json:"top"`
	Existing scene.EntityID `json:"existing"`
	Rejected scene.EntityID `json:"rejected"`
}

type ClipStarted struct {
	Top      scene.EntityID `json:"top"`
	Animated scene.EntityID `json:"animated"`
	Type     string         `json:"type"`
	Clip     string         `json:"clip"`
	Speed    float32        `json:"speed"`
}

type StateChanged struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Publish is a nil-safe helper for publishers with an optional bus.
func Publish(b bus.EventBus, typ, source string, data any) error {
	if b == nil {
		return nil
	}
	return b.Publish(bus.NewEvent(typ, source, data))
}
