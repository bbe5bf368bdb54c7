package mesh

import "github.com/go-gl/mathgl/mgl32"

const (
	verticesPerQuad = 4
	indicesPerQuad  = 6
)

// FlatGrid tiles width×height unit quads on the y=0 plane starting at
// (left, top). Vertices are not shared between quads so each quad keeps its
// own [0,1] UV range. Quad (w, h) spans [left+w, left+w+1] × [top+h, top+h+1].
// Non-positive sizes produce an empty mesh.
func FlatGrid(left, top, width, height int) *Mesh {
	if width <= 0 || height <= 0 {
		return &Mesh{}
	}

	quads := width * height
	m := &Mesh{
		Positions: make([]mgl32.Vec3, quads*verticesPerQuad),
		UVs:       make([]mgl32.Vec2, quads*verticesPerQuad),
		Normals:   make([]mgl32.Vec3, quads*verticesPerQuad),
		Indices:   make([]uint32, quads*indicesPerQuad),
	}

	up := mgl32.Vec3{0, 1, 0}
	for h := 0; h < height; h++ {
		for w := 0; w < width; w++ {
			quad := h*width + w
			v := quad * verticesPerQuad

			x0, x1 := float32(left+w), float32(left+w+1)
			z0, z1 := float32(top+h), float32(top+h+1)

			m.Positions[v] = mgl32.Vec3{x0, 0, z0}
			m.Positions[v+1] = mgl32.Vec3{x1, 0, z0}
			m.Positions[v+2] = mgl32.Vec3{x0, 0, z1}
			m.Positions[v+3] = mgl32.Vec3{x1, 0, z1}

			m.UVs[v] = mgl32.Vec2{0, 0}
			m.UVs[v+1] = mgl32.Vec2{1, 0}
			m.UVs[v+2] = mgl32.Vec2{0, 1}
			m.UVs[v+3] = mgl32.Vec2{1, 1}

			for k := 0; k < verticesPerQuad; k++ {
				m.Normals[v+k] = up
			}

			// Counter-clockwise seen from +Y.
			i := quad * indicesPerQuad
			base := uint32(v)
			m.Indices[i] = base
			m.Indices[i+1] = base + 2
			m.Indices[i+2] = base + 1
			m.Indices[i+3] = base + 1
			m.Indices[i+4] = base + 2
			m.Indices[i+5] = base + 3
		}
	}

	return m
}
