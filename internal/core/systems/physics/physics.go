package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Distance computes Euclidean distance between two points.
func Distance(a, b mgl32.Vec3) float32 {
	return b.Sub(a).Len()
}

// HorizontalDistance ignores the Y axis.
func HorizontalDistance(a, b mgl32.Vec3) float32 {
	return float32(math.Hypot(float64(b.X()-a.X()), float64(b.Z()-a.Z())))
}

// HorizontalDirection is the unit vector from a to b on the XZ plane, or the
// zero vector when they share X and Z.
func HorizontalDirection(a, b mgl32.Vec3) mgl32.Vec3 {
	d := mgl32.Vec3{b.X() - a.X(), 0, b.Z() - a.Z()}
	if d.X() == 0 && d.Z() == 0 {
		return mgl32.Vec3{}
	}
	return d.Normalize()
}
