package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/nachomanzano/goxkt/internal/geometry"
)

// An Entity is a named object aggregating primitive instances, typically a
// single product in the source model.
type Entity struct {
	ID    string
	Index int

	// Matrix carries the modeling transform. It is only consulted when the
	// entity's primitives are reused; otherwise the transform was baked into
	// the primitive positions at creation.
	Matrix mgl32.Mat4

	Instances []int // instance indices, in creation order

	// World-space box over the world-space positions of all used primitives.
	AABB geometry.AABB

	HasReusedPrimitives bool
}

// A Tile is a spatial bucket of entities sharing one positions decode matrix.
type Tile struct {
	AABB         geometry.AABB
	DecodeMatrix mgl32.Mat4
	Entities     []int // entity indices, in model insertion order
}
