package physics

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrInvalidShape = errors.New("invalid collider shape")

// ShapeKind enumerates the supported collider primitives.
type ShapeKind uint8

const (
	ShapeBall ShapeKind = iota + 1
	ShapeCuboid
	ShapeCapsule
	ShapeCone
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBall:
		return "ball"
	case ShapeCuboid:
		return "cuboid"
	case ShapeCapsule:
		return "capsule"
	case ShapeCone:
		return "cone"
	default:
		return "unknown"
	}
}

// Shape is a collider primitive. Capsules and cones are aligned with +Y.
type Shape struct {
	Kind        ShapeKind
	Radius      float32
	HalfHeight  float32
	HalfExtents mgl32.Vec3
}

func Ball(radius float32) Shape {
	return Shape{Kind: ShapeBall, Radius: radius}
}

func Cuboid(hx, hy, hz float32) Shape {
	return Shape{Kind: ShapeCuboid, HalfExtents: mgl32.Vec3{hx, hy, hz}}
}

func Capsule(halfHeight, radius float32) Shape {
	return Shape{Kind: ShapeCapsule, HalfHeight: halfHeight, Radius: radius}
}

func Cone(halfHeight, radius float32) Shape {
	return Shape{Kind: ShapeCone, HalfHeight: halfHeight, Radius: radius}
}

func (s Shape) Validate() error {
	switch s.Kind {
	case ShapeBall:
		if s.Radius <= 0 {
			return fmt.Errorf("%w: ball radius %v", ErrInvalidShape, s.Radius)
		}
	case ShapeCuboid:
		if s.HalfExtents.X() <= 0 || s.HalfExtents.Y() <= 0 || s.HalfExtents.Z() <= 0 {
			return fmt.Errorf("%w: cuboid half extents %v", ErrInvalidShape, s.HalfExtents)
		}
	case ShapeCapsule, ShapeCone:
		if s.Radius <= 0 || s.HalfHeight <= 0 {
			return fmt.Errorf("%w: %s radius %v half height %v", ErrInvalidShape, s.Kind, s.Radius, s.HalfHeight)
		}
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidShape, s.Kind)
	}
	return nil
}

// HalfSize is the half extent of the shape's axis-aligned bounding box.
func (s Shape) HalfSize() mgl32.Vec3 {
	switch s.Kind {
	case ShapeBall:
		return mgl32.Vec3{s.Radius, s.Radius, s.Radius}
	case ShapeCuboid:
		return s.HalfExtents
	case ShapeCapsule:
		return mgl32.Vec3{s.Radius, s.HalfHeight + s.Radius, s.Radius}
	case ShapeCone:
		return mgl32.Vec3{s.Radius, s.HalfHeight, s.Radius}
	default:
		return mgl32.Vec3{}
	}
}
