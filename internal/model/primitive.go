package model

// A Primitive is a triangle-mesh geometry atom. Positions of a single-use
// primitive are in world space with the modeling matrix already applied;
// positions of a reused primitive stay in object space and every use carries
// its own entity matrix.
type Primitive struct {
	ID    string
	Index int

	Reused  bool
	Color   [3]uint8
	Opacity uint8

	Positions   []float32
	Normals     []float32
	NormalsOct  []int8
	Indices     []uint32
	EdgeIndices []uint32

	// Populated by CreateTiles: quantized against the owning tile's box for
	// single-use primitives, against the shared instanced box otherwise.
	PositionsQuantized []uint16
}

// VertexCount returns the number of vertices in the primitive.
func (p *Primitive) VertexCount() int {
	return len(p.Positions) / 3
}

// A PrimitiveInstance records one use of a primitive by an entity. Instances
// form a dense array whose order fixes the wire layout.
type PrimitiveInstance struct {
	Index     int
	Primitive int // primitive index
	Entity    int // entity index
}
