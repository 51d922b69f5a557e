// Package scene defines the narrow surface the package parser drives while
// reconstructing a model, plus the pre-resolved scene documents the packer
// ingests. Real builder implementations (viewers, exporters) live outside
// this repository.
package scene

import "github.com/go-gl/mathgl/mgl32"

// PrimitiveTriangles is the only geometry primitive the format carries.
const PrimitiveTriangles = "triangles"

// GeometryCfg describes a shared geometry, quantized and oct-encoded,
// materialized once and referenced by any number of meshes.
type GeometryCfg struct {
	ID                    int
	Primitive             string
	Positions             []uint16
	Normals               []int8
	Indices               []uint32
	EdgeIndices           []uint32
	PositionsDecodeMatrix mgl32.Mat4
}

// MeshCfg describes one drawable. Either GeometryID points at a previously
// created geometry and Matrix positions it, or the mesh is self-contained
// with inline arrays and a decode matrix, in which case the transform is
// already baked into the positions.
type MeshCfg struct {
	ID         int
	GeometryID int // -1 for a self-contained mesh
	Matrix     mgl32.Mat4

	Positions             []uint16
	Normals               []int8
	Indices               []uint32
	EdgeIndices           []uint32
	PositionsDecodeMatrix mgl32.Mat4

	Color   [3]uint8
	Opacity uint8
}

// EntityCfg names an object and the meshes composing it.
type EntityCfg struct {
	ID       string
	IsObject bool
	MeshIDs  []int
}

// Builder receives construction calls from the parser, in dependency order:
// geometries before the meshes that use them, meshes before their entity.
type Builder interface {
	CreateGeometry(cfg GeometryCfg) error
	CreateMesh(cfg MeshCfg) error
	CreateEntity(cfg EntityCfg) error
}
