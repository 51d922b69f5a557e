package model

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/glog"

	"github.com/nachomanzano/goxkt/internal/geometry"
	"github.com/nachomanzano/goxkt/internal/kdtree"
)

const (
	ErrTypeInvalidInput       = "invalid_input"
	ErrTypeDuplicatePrimitive = "duplicate_primitive"
	ErrTypeDuplicateEntity    = "duplicate_entity"
)

// A Model is the in-memory graph the encoder walks: insertion-ordered arenas
// of primitives, instances, entities and tiles. Every cross-reference is a
// dense index into one of the arenas, which makes the flat wire layout the
// natural serialized form.
type Model struct {
	Primitives []*Primitive
	Instances  []*PrimitiveInstance
	Entities   []*Entity
	Tiles      []Tile

	// Decode matrix shared by every reused primitive, derived from the union
	// box of their object-space positions.
	InstancedDecodeMatrix mgl32.Mat4

	EdgeThresholdDegrees float64

	primitivesByID map[string]int
	entitiesByID   map[string]int

	// Accumulated non-fatal build warnings, e.g. dropped references to
	// unknown primitives.
	Warnings []string
}

func New() *Model {
	return &Model{
		InstancedDecodeMatrix: mgl32.Ident4(),
		EdgeThresholdDegrees:  geometry.DefaultEdgeThresholdDegrees,
		primitivesByID:        make(map[string]int),
		entitiesByID:          make(map[string]int),
	}
}

// PrimitiveIndex resolves a primitive id to its arena index.
func (m *Model) PrimitiveIndex(id string) (int, bool) {
	idx, ok := m.primitivesByID[id]
	return idx, ok
}

// EntityIndex resolves an entity id to its arena index.
func (m *Model) EntityIndex(id string) (int, bool) {
	idx, ok := m.entitiesByID[id]
	return idx, ok
}

func validateMesh(positions, normals []float32, indices []uint32) error {
	if len(positions) == 0 || len(positions)%3 != 0 {
		return errors.New("positions must be a non-empty list of triples").
			WithType(ErrTypeInvalidInput).
			WithTag("len", len(positions))
	}
	if len(normals) != len(positions) {
		return errors.New("normals and positions must have the same length").
			WithType(ErrTypeInvalidInput).
			WithTag("positions", len(positions)).
			WithTag("normals", len(normals))
	}
	if len(indices) == 0 || len(indices)%3 != 0 {
		return errors.New("indices must be a non-empty triangle list").
			WithType(ErrTypeInvalidInput).
			WithTag("len", len(indices))
	}
	for _, p := range positions {
		if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return errors.New("positions contain a non-finite value").
				WithType(ErrTypeInvalidInput)
		}
	}
	vertexCount := uint32(len(positions) / 3)
	for _, i := range indices {
		if i >= vertexCount {
			return errors.New("index out of range").
				WithType(ErrTypeInvalidInput).
				WithTag("index", i).
				WithTag("vertex_count", vertexCount)
		}
	}
	return nil
}

func transformPositions(positions []float32, matrix mgl32.Mat4) {
	for i := 0; i < len(positions); i += 3 {
		v := matrix.Mul4x1(mgl32.Vec4{positions[i], positions[i+1], positions[i+2], 1})
		positions[i], positions[i+1], positions[i+2] = v.X(), v.Y(), v.Z()
	}
}

func renormalize(normals []float32, matrix mgl32.Mat4, applyMatrix bool) error {
	normalMatrix := mgl32.Ident4()
	if applyMatrix {
		normalMatrix = matrix.Inv().Transpose()
	}
	for i := 0; i < len(normals); i += 3 {
		n := mgl32.Vec3{normals[i], normals[i+1], normals[i+2]}
		if applyMatrix {
			n = normalMatrix.Mul4x1(n.Vec4(0)).Vec3()
		}
		length := n.Len()
		if length == 0 || math.IsNaN(float64(length)) {
			return errors.New("normal cannot be renormalized").
				WithType(ErrTypeInvalidInput).
				WithTag("vertex", i/3)
		}
		n = n.Mul(1 / length)
		normals[i], normals[i+1], normals[i+2] = n.X(), n.Y(), n.Z()
	}
	return nil
}

func octEncodeAll(normals []float32) []int8 {
	oct := make([]int8, 0, len(normals)/3*2)
	for i := 0; i < len(normals); i += 3 {
		u, v := geometry.OctEncode(normals[i], normals[i+1], normals[i+2])
		oct = append(oct, u, v)
	}
	return oct
}

// CreatePrimitive adds a geometry atom. A single-use primitive is baked into
// world space by modelingMatrix; a reused one keeps its object-space
// coordinates and the matrix is ignored.
func (m *Model) CreatePrimitive(id string, reused bool, modelingMatrix mgl32.Mat4,
	color [3]uint8, opacity float64, positions, normals []float32, indices []uint32) (*Primitive, error) {

	if _, exists := m.primitivesByID[id]; exists {
		return nil, errors.New("primitive already created").
			WithType(ErrTypeDuplicatePrimitive).
			WithTag("primitive_id", id)
	}
	if err := validateMesh(positions, normals, indices); err != nil {
		return nil, errors.New("invalid primitive mesh").
			WithType(ErrTypeInvalidInput).
			WithTag("primitive_id", id).
			Wrap(err)
	}

	// The builder owns its own copies; callers keep their buffers.
	pos := append([]float32(nil), positions...)
	nrm := append([]float32(nil), normals...)
	idx := append([]uint32(nil), indices...)

	edges := geometry.BuildEdgeIndices(pos, idx, m.EdgeThresholdDegrees)

	if !reused {
		transformPositions(pos, modelingMatrix)
	}
	if err := renormalize(nrm, modelingMatrix, !reused); err != nil {
		return nil, errors.New("invalid primitive normals").
			WithType(ErrTypeInvalidInput).
			WithTag("primitive_id", id).
			Wrap(err)
	}

	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}

	p := &Primitive{
		ID:          id,
		Index:       len(m.Primitives),
		Reused:      reused,
		Color:       color,
		Opacity:     uint8(math.Round(opacity * 255)),
		Positions:   pos,
		Normals:     nrm,
		NormalsOct:  octEncodeAll(nrm),
		Indices:     idx,
		EdgeIndices: edges,
	}
	m.Primitives = append(m.Primitives, p)
	m.primitivesByID[id] = p.Index
	return p, nil
}

// CreateEntity adds a named object referencing previously created
// primitives. Unknown primitive ids are dropped with a warning. The entity's
// primitives must be uniformly reused or uniformly single-use; the wire flag
// cannot express a mix.
func (m *Model) CreateEntity(id string, matrix mgl32.Mat4, primitiveIDs []string,
	hasReusedPrimitives bool) (*Entity, error) {

	if _, exists := m.entitiesByID[id]; exists {
		return nil, errors.New("entity already created").
			WithType(ErrTypeDuplicateEntity).
			WithTag("entity_id", id)
	}

	e := &Entity{
		ID:                  id,
		Index:               len(m.Entities),
		Matrix:              matrix,
		AABB:                geometry.EmptyAABB(),
		HasReusedPrimitives: hasReusedPrimitives,
	}

	for _, pid := range primitiveIDs {
		pIdx, ok := m.primitivesByID[pid]
		if !ok {
			warning := "entity " + id + " references unknown primitive " + pid
			m.Warnings = append(m.Warnings, warning)
			glog.Warningf("dropping reference: %s", warning)
			continue
		}
		p := m.Primitives[pIdx]
		if p.Reused != hasReusedPrimitives {
			return nil, errors.New("entity mixes reused and single-use primitives").
				WithType(ErrTypeInvalidInput).
				WithTag("entity_id", id).
				WithTag("primitive_id", pid)
		}

		inst := &PrimitiveInstance{
			Index:     len(m.Instances),
			Primitive: pIdx,
			Entity:    e.Index,
		}
		m.Instances = append(m.Instances, inst)
		e.Instances = append(e.Instances, inst.Index)

		for i := 0; i < len(p.Positions); i += 3 {
			x, y, z := p.Positions[i], p.Positions[i+1], p.Positions[i+2]
			if hasReusedPrimitives {
				v := matrix.Mul4x1(mgl32.Vec4{x, y, z, 1})
				x, y, z = v.X(), v.Y(), v.Z()
			}
			e.AABB.ExpandPoint(float64(x), float64(y), float64(z))
		}
	}

	if e.AABB.IsEmpty() {
		// Every reference was dropped; park the entity at the origin so the
		// tiler still has somewhere to put it.
		e.AABB = geometry.NewAABB(0, 0, 0, 0, 0, 0)
	}

	m.Entities = append(m.Entities, e)
	m.entitiesByID[id] = e.Index
	return e, nil
}

// Validate cross-checks the arena invariants: instance references in range,
// reuse flags consistent with actual instance counts, and per-primitive
// index bounds. Meant for callers that assemble models from untrusted input.
func (m *Model) Validate() error {
	counts := make([]int, len(m.Primitives))
	for _, inst := range m.Instances {
		if inst.Primitive < 0 || inst.Primitive >= len(m.Primitives) {
			return errors.New("instance references primitive out of range").
				WithType(ErrTypeInvalidInput).
				WithTag("instance", inst.Index)
		}
		if inst.Entity < 0 || inst.Entity >= len(m.Entities) {
			return errors.New("instance references entity out of range").
				WithType(ErrTypeInvalidInput).
				WithTag("instance", inst.Index)
		}
		counts[inst.Primitive]++
	}
	for i, p := range m.Primitives {
		if p.Reused != (counts[i] >= 2) {
			return errors.New("primitive reuse flag does not match instance count").
				WithType(ErrTypeInvalidInput).
				WithTag("primitive_id", p.ID).
				WithTag("instances", counts[i])
		}
		vertexCount := uint32(p.VertexCount())
		for _, list := range [][]uint32{p.Indices, p.EdgeIndices} {
			for _, idx := range list {
				if idx >= vertexCount {
					return errors.New("primitive index out of range").
						WithType(ErrTypeInvalidInput).
						WithTag("primitive_id", p.ID).
						WithTag("index", idx).
						WithTag("vertex_count", vertexCount)
				}
			}
		}
	}
	return nil
}

// AABB returns the union world-space box over all entities.
func (m *Model) AABB() geometry.AABB {
	box := geometry.EmptyAABB()
	for _, e := range m.Entities {
		box.Expand(e.AABB)
	}
	return box
}

// instancedAABB is the union of object-space boxes of reused primitives.
func (m *Model) instancedAABB() geometry.AABB {
	box := geometry.EmptyAABB()
	for _, p := range m.Primitives {
		if !p.Reused {
			continue
		}
		for i := 0; i < len(p.Positions); i += 3 {
			box.ExpandPoint(float64(p.Positions[i]), float64(p.Positions[i+1]), float64(p.Positions[i+2]))
		}
	}
	return box
}

// CreateTiles partitions the entities into tiles and quantizes every
// primitive: single-use primitives against their tile's box, reused ones
// against the shared instanced box. Must be called once, after the last
// CreateEntity.
func (m *Model) CreateTiles(maxDepth int) error {
	if len(m.Tiles) > 0 {
		return errors.New("tiles already created").WithType(ErrTypeInvalidInput)
	}
	if len(m.Entities) == 0 {
		return errors.New("model has no entities").WithType(ErrTypeInvalidInput)
	}

	tree := kdtree.New(m.AABB(), maxDepth)
	for _, e := range m.Entities {
		tree.Insert(e.Index, e.AABB)
	}

	flat := tree.Flatten()
	m.Tiles = make([]Tile, 0, len(flat))
	for _, node := range flat {
		tile := Tile{
			AABB:         node.AABB,
			DecodeMatrix: geometry.DecodeMatrix(node.AABB),
			Entities:     node.Items,
		}
		for _, eIdx := range node.Items {
			for _, instIdx := range m.Entities[eIdx].Instances {
				p := m.Primitives[m.Instances[instIdx].Primitive]
				if p.Reused || p.PositionsQuantized != nil {
					continue
				}
				quantized, err := geometry.QuantizePositions(p.Positions, tile.AABB)
				if err != nil {
					return errors.New("tile quantization failed").
						WithType(geometry.ErrTypeQuantizationOverflow).
						WithTag("primitive_id", p.ID).
						Wrap(err)
				}
				p.PositionsQuantized = quantized
			}
		}
		m.Tiles = append(m.Tiles, tile)
	}

	instancedBox := m.instancedAABB()
	if !instancedBox.IsEmpty() {
		m.InstancedDecodeMatrix = geometry.DecodeMatrix(instancedBox)
		for _, p := range m.Primitives {
			if !p.Reused {
				continue
			}
			quantized, err := geometry.QuantizePositions(p.Positions, instancedBox)
			if err != nil {
				return errors.New("instanced quantization failed").
					WithType(geometry.ErrTypeQuantizationOverflow).
					WithTag("primitive_id", p.ID).
					Wrap(err)
			}
			p.PositionsQuantized = quantized
		}
	}
	return nil
}
