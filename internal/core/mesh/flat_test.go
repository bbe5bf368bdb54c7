package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestFlatGridCounts(t *testing.T) {
	for _, tc := range []struct{ w, h int }{{1, 1}, {3, 2}, {50, 50}} {
		m := FlatGrid(0, 0, tc.w, tc.h)
		require.Len(t, m.Positions, 4*tc.w*tc.h)
		require.Len(t, m.UVs, 4*tc.w*tc.h)
		require.Len(t, m.Normals, 4*tc.w*tc.h)
		require.Len(t, m.Indices, 6*tc.w*tc.h)
		require.NoError(t, m.Validate())
	}
}

func TestFlatGridTrianglesStayInsideTheirQuad(t *testing.T) {
	m := FlatGrid(0, 0, 7, 5)
	for tri := 0; tri < m.TriangleCount(); tri++ {
		a, b, c := m.Indices[tri*3], m.Indices[tri*3+1], m.Indices[tri*3+2]
		quad := a / 4
		require.Equal(t, quad, b/4, "triangle %d", tri)
		require.Equal(t, quad, c/4, "triangle %d", tri)
	}
}

func TestFlatGridWindingFacesUp(t *testing.T) {
	m := FlatGrid(0, 0, 2, 2)
	for tri := 0; tri < m.TriangleCount(); tri++ {
		a := m.Positions[m.Indices[tri*3]]
		b := m.Positions[m.Indices[tri*3+1]]
		c := m.Positions[m.Indices[tri*3+2]]
		n := b.Sub(a).Cross(c.Sub(a))
		require.Greater(t, n.Y(), float32(0), "triangle %d winds away from +Y", tri)
	}
}

func TestFlatGridCoordinates(t *testing.T) {
	m := FlatGrid(-2, 3, 2, 1)

	require.Equal(t, mgl32.Vec3{-2, 0, 3}, m.Positions[0])
	require.Equal(t, mgl32.Vec3{-1, 0, 4}, m.Positions[3])
	require.Equal(t, mgl32.Vec3{-1, 0, 3}, m.Positions[4])
	require.Equal(t, mgl32.Vec3{0, 0, 4}, m.Positions[7])

	for i, uv := range m.UVs {
		require.Equal(t, []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}, {1, 1}}[i%4], uv)
	}
	for _, n := range m.Normals {
		require.Equal(t, mgl32.Vec3{0, 1, 0}, n)
	}

	lo, hi := m.Bounds()
	require.Equal(t, mgl32.Vec3{-2, 0, 3}, lo)
	require.Equal(t, mgl32.Vec3{0, 0, 4}, hi)
}

func TestFlatGridDeterministic(t *testing.T) {
	require.Equal(t, FlatGrid(1, 2, 9, 4), FlatGrid(1, 2, 9, 4))
}

func TestFlatGridEmpty(t *testing.T) {
	m := FlatGrid(0, 0, 0, 5)
	require.Zero(t, m.VertexCount())
	require.NoError(t, m.Validate())
}

func TestValidateRejectsOutOfRangeIndex(t *testing.T) {
	m := FlatGrid(0, 0, 1, 1)
	m.Indices[5] = 99
	require.Error(t, m.Validate())
}
