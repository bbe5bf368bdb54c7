package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/worldstream/internal/core/systems/physics"
)

// ChunkCoord is a terrain tile position in chunk units.
type ChunkCoord struct {
	X int32
	Z int32
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// ChunkCoordOf maps a world position to the chunk containing it.
func ChunkCoordOf(pos mgl32.Vec3, chunkSize int) ChunkCoord {
	size := float64(chunkSize)
	return ChunkCoord{
		X: int32(math.Floor(float64(pos.X()) / size)),
		Z: int32(math.Floor(float64(pos.Z()) / size)),
	}
}

// Origin is the world position of the chunk's (0,0) corner.
func (c ChunkCoord) Origin(chunkSize int) mgl32.Vec3 {
	return mgl32.Vec3{float32(int(c.X) * chunkSize), 0, float32(int(c.Z) * chunkSize)}
}

// Square lists every coordinate with x and z in [c-radius, c+radius), x-major.
func (c ChunkCoord) Square(radius int32) []ChunkCoord {
	if radius <= 0 {
		return nil
	}
	out := make([]ChunkCoord, 0, 4*radius*radius)
	for x := c.X - radius; x < c.X+radius; x++ {
		for z := c.Z - radius; z < c.Z+radius; z++ {
			out = append(out, ChunkCoord{X: x, Z: z})
		}
	}
	return out
}

// groundCollider is the slab under a chunk's mesh footprint, and its offset
// from the chunk origin.
func groundCollider(chunkSize int) (physics.Shape, mgl32.Vec3) {
	half := float32(chunkSize) / 2
	return physics.Cuboid(half, 0.25, half), mgl32.Vec3{half, -0.5, half}
}
