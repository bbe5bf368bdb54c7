// Package scene is the entity hierarchy the world core builds into: names,
// parent links, transforms, visibility, render attachments and tags.
package scene

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/worldstream/internal/core/assets"
	"github.com/zeusync/worldstream/internal/core/mesh"
)

var (
	ErrEntityNotFound  = errors.New("entity not found")
	ErrHierarchyCycle  = errors.New("parent link would create a cycle")
	ErrPlayerMissing   = errors.New("no player entity")
	ErrPlayerAmbiguous = errors.New("more than one player entity")
)

// Tag marks entities for queries.
type Tag string

const (
	TagPlayer   Tag = "player"
	TagMob      Tag = "mob"
	TagSpawner  Tag = "spawner"
	TagChunk    Tag = "chunk"
	TagProp     Tag = "prop"
	TagCollider Tag = "collider"
	// TagAnimated marks entities that own an animation player.
	TagAnimated Tag = "animated"
	// TagPendingActivation marks freshly spawned mobs awaiting their first
	// proximity check.
	TagPendingActivation Tag = "pending_activation"
)

type Material struct {
	Texture assets.Ref
	Color   mgl32.Vec4
}

// Renderable is what the renderer draws for an entity: either a generated
// mesh with a material, or a loaded scene.
type Renderable struct {
	Mesh     *mesh.Mesh
	Material *Material
	Scene    assets.Ref
}

// Refs lists every asset reference the renderable depends on.
func (r Renderable) Refs() []assets.Ref {
	var refs []assets.Ref
	if r.Material != nil && r.Material.Texture.Valid() {
		refs = append(refs, r.Material.Texture)
	}
	if r.Scene.Valid() {
		refs = append(refs, r.Scene)
	}
	return refs
}

// Graph is the scene graph consumed by the world core.
type Graph interface {
	Spawn(name string) EntityID
	// Despawn removes the entity and all of its descendants.
	Despawn(id EntityID) error
	Alive(id EntityID) bool
	Name(id EntityID) string
	Len() int

	SetParent(child, parent EntityID) error
	ClearParent(child EntityID) error
	Parent(id EntityID) (EntityID, bool)
	Children(id EntityID) []EntityID

	Transform(id EntityID) (Transform, error)
	SetTransform(id EntityID, t Transform) error
	// WorldTransform composes the transforms from the root down to id.
	WorldTransform(id EntityID) (Transform, error)

	Visible(id EntityID) bool
	SetVisible(id EntityID, visible bool) error

	SetRenderable(id EntityID, r Renderable) error
	Renderable(id EntityID) (Renderable, bool)

	AddTag(id EntityID, tag Tag) error
	RemoveTag(id EntityID, tag Tag) error
	HasTag(id EntityID, tag Tag) bool
	// Tagged returns live entities carrying tag in ascending ID order.
	Tagged(tag Tag) []EntityID
}
