package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Transform is an entity's placement relative to its parent.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

func Identity() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func FromXYZ(x, y, z float32) Transform {
	t := Identity()
	t.Translation = mgl32.Vec3{x, y, z}
	return t
}

func FromTranslation(v mgl32.Vec3) Transform {
	return FromXYZ(v.X(), v.Y(), v.Z())
}

// RotateAround orbits the transform around point by rot, turning it as well.
func (t Transform) RotateAround(point mgl32.Vec3, rot mgl32.Quat) Transform {
	t.Translation = point.Add(rot.Rotate(t.Translation.Sub(point)))
	t.Rotation = rot.Mul(t.Rotation).Normalize()
	return t
}

// FaceHorizontal turns the transform about +Y so its forward axis (-Z) points
// along dir projected onto the XZ plane. A zero projection leaves it as is.
func (t Transform) FaceHorizontal(dir mgl32.Vec3) Transform {
	if dir.X() == 0 && dir.Z() == 0 {
		return t
	}
	yaw := float32(math.Atan2(float64(-dir.X()), float64(-dir.Z())))
	t.Rotation = mgl32.QuatRotate(yaw, mgl32.Vec3{0, 1, 0})
	return t
}

// Forward is the -Z axis in the transform's frame.
func (t Transform) Forward() mgl32.Vec3 {
	return t.Rotation.Rotate(mgl32.Vec3{0, 0, -1})
}

// Mul composes parent t with child c.
func (t Transform) Mul(c Transform) Transform {
	scaled := mgl32.Vec3{
		t.Scale.X() * c.Translation.X(),
		t.Scale.Y() * c.Translation.Y(),
		t.Scale.Z() * c.Translation.Z(),
	}
	return Transform{
		Translation: t.Translation.Add(t.Rotation.Rotate(scaled)),
		Rotation:    t.Rotation.Mul(c.Rotation),
		Scale: mgl32.Vec3{
			t.Scale.X() * c.Scale.X(),
			t.Scale.Y() * c.Scale.Y(),
			t.Scale.Z() * c.Scale.Z(),
		},
	}
}

func (t Transform) Mat4() mgl32.Mat4 {
	tr := mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z())
	sc := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return tr.Mul4(t.Rotation.Mat4()).Mul4(sc)
}
