package xkt

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"

	"github.com/nachomanzano/goxkt/internal/scene"
)

// parsedPackage holds the typed views over the inflated streams, fully
// validated. Builder calls only start once this struct exists, so a
// malformed package never leaves a half-built scene behind.
type parsedPackage struct {
	positions   []uint16
	normals     []int8
	indices     []uint32
	edgeIndices []uint32

	matrices        []float32
	instancedDecode mgl32.Mat4

	posNormPortion []uint32
	indicesPortion []uint32
	edgePortion    []uint32
	colorOpacity   []uint8

	primitiveInstances []uint32

	entityIDs              []string
	entityInstancesPortion []uint32
	entityMatricesPortion  []uint32

	tileAABBs           []float32
	tileDecodeMatrices  []float32
	tileEntitiesPortion []uint32

	numPrimitives  int
	numEntities    int
	numTiles       int
	instanceCounts []int
}

// Parse reads a framed package and replays it into the builder.
func Parse(data []byte, builder scene.Builder) error {
	streams, err := ReadEnvelope(data)
	if err != nil {
		return err
	}
	return ParseStreams(streams, builder)
}

// ParseStreams decompresses the ordered streams and replays the model they
// describe into the builder in dependency order: each geometry before the
// first mesh that uses it, and an entity's meshes before the entity.
func ParseStreams(streams [][]byte, builder scene.Builder) error {
	if len(streams) != StreamCount {
		return errors.New("wrong number of streams").
			WithType(ErrTypeCodec).
			WithTag("count", len(streams))
	}
	pkg, err := inflateAndValidate(streams)
	if err != nil {
		return err
	}
	return pkg.replay(builder)
}

func inflateAndValidate(streams [][]byte) (*parsedPackage, error) {
	raw := make([][]byte, StreamCount)
	names := [StreamCount]string{
		"positions", "normals", "indices", "edge_indices", "matrices",
		"instanced_primitives_decode_matrix",
		"each_primitive_positions_and_normals_portion",
		"each_primitive_indices_portion",
		"each_primitive_edge_indices_portion",
		"each_primitive_color_and_opacity",
		"primitive_instances", "each_entity_id",
		"each_entity_primitive_instances_portion",
		"each_entity_matrices_portion",
		"each_tile_aabb", "each_tile_decode_matrix",
		"each_tile_entities_portion",
	}
	for i, s := range streams {
		inflated, err := inflate(s, names[i])
		if err != nil {
			return nil, err
		}
		raw[i] = inflated
	}

	pkg := &parsedPackage{}
	var err error
	if pkg.positions, err = bytesToU16(raw[streamPositions], names[streamPositions]); err != nil {
		return nil, err
	}
	pkg.normals = bytesToI8(raw[streamNormals])
	if pkg.indices, err = bytesToU32(raw[streamIndices], names[streamIndices]); err != nil {
		return nil, err
	}
	if pkg.edgeIndices, err = bytesToU32(raw[streamEdgeIndices], names[streamEdgeIndices]); err != nil {
		return nil, err
	}
	if pkg.matrices, err = bytesToF32(raw[streamMatrices], names[streamMatrices]); err != nil {
		return nil, err
	}
	instanced, err := bytesToF32(raw[streamInstancedPrimitivesDecodeMatrix], names[streamInstancedPrimitivesDecodeMatrix])
	if err != nil {
		return nil, err
	}
	if len(instanced) != 16 {
		return nil, errors.New("instanced decode matrix must hold 16 floats").
			WithType(ErrTypeCodec).
			WithTag("len", len(instanced))
	}
	copy(pkg.instancedDecode[:], instanced)

	if pkg.posNormPortion, err = bytesToU32(raw[streamEachPrimitivePositionsAndNormalsPortion], names[streamEachPrimitivePositionsAndNormalsPortion]); err != nil {
		return nil, err
	}
	if pkg.indicesPortion, err = bytesToU32(raw[streamEachPrimitiveIndicesPortion], names[streamEachPrimitiveIndicesPortion]); err != nil {
		return nil, err
	}
	if pkg.edgePortion, err = bytesToU32(raw[streamEachPrimitiveEdgeIndicesPortion], names[streamEachPrimitiveEdgeIndicesPortion]); err != nil {
		return nil, err
	}
	pkg.colorOpacity = raw[streamEachPrimitiveColorAndOpacity]
	if len(pkg.colorOpacity)%4 != 0 {
		return nil, sizeError(names[streamEachPrimitiveColorAndOpacity], len(pkg.colorOpacity), 4)
	}
	if pkg.primitiveInstances, err = bytesToU32(raw[streamPrimitiveInstances], names[streamPrimitiveInstances]); err != nil {
		return nil, err
	}
	if err = json.Unmarshal(raw[streamEachEntityID], &pkg.entityIDs); err != nil {
		return nil, errors.New("entity id stream is not a JSON string array").
			WithType(ErrTypeCodec).
			Wrap(err)
	}
	if pkg.entityInstancesPortion, err = bytesToU32(raw[streamEachEntityPrimitiveInstancesPortion], names[streamEachEntityPrimitiveInstancesPortion]); err != nil {
		return nil, err
	}
	if pkg.entityMatricesPortion, err = bytesToU32(raw[streamEachEntityMatricesPortion], names[streamEachEntityMatricesPortion]); err != nil {
		return nil, err
	}
	if pkg.tileAABBs, err = bytesToF32(raw[streamEachTileAABB], names[streamEachTileAABB]); err != nil {
		return nil, err
	}
	if pkg.tileDecodeMatrices, err = bytesToF32(raw[streamEachTileDecodeMatrix], names[streamEachTileDecodeMatrix]); err != nil {
		return nil, err
	}
	if pkg.tileEntitiesPortion, err = bytesToU32(raw[streamEachTileEntitiesPortion], names[streamEachTileEntitiesPortion]); err != nil {
		return nil, err
	}

	if err = pkg.validate(); err != nil {
		return nil, err
	}
	return pkg, nil
}

func countError(what string, got, want int) error {
	return errors.New("stream tables disagree").
		WithType(ErrTypeCodec).
		WithTag("table", what).
		WithTag("got", got).
		WithTag("want", want)
}

func checkPortions(portion []uint32, total int, what string) error {
	prev := uint32(0)
	for _, p := range portion {
		if p < prev || int(p) > total {
			return errors.New("portion table is not monotonic or exceeds its stream").
				WithType(ErrTypeCodec).
				WithTag("table", what).
				WithTag("offset", p)
		}
		prev = p
	}
	return nil
}

func (pkg *parsedPackage) validate() error {
	pkg.numPrimitives = len(pkg.colorOpacity) / 4
	pkg.numEntities = len(pkg.entityIDs)
	if len(pkg.tileAABBs)%6 != 0 {
		return sizeError("each_tile_aabb", len(pkg.tileAABBs), 6)
	}
	pkg.numTiles = len(pkg.tileAABBs) / 6

	if len(pkg.posNormPortion) != pkg.numPrimitives {
		return countError("each_primitive_positions_and_normals_portion", len(pkg.posNormPortion), pkg.numPrimitives)
	}
	if len(pkg.indicesPortion) != pkg.numPrimitives {
		return countError("each_primitive_indices_portion", len(pkg.indicesPortion), pkg.numPrimitives)
	}
	if len(pkg.edgePortion) != pkg.numPrimitives {
		return countError("each_primitive_edge_indices_portion", len(pkg.edgePortion), pkg.numPrimitives)
	}
	if len(pkg.entityInstancesPortion) != pkg.numEntities {
		return countError("each_entity_primitive_instances_portion", len(pkg.entityInstancesPortion), pkg.numEntities)
	}
	if len(pkg.entityMatricesPortion) != pkg.numEntities {
		return countError("each_entity_matrices_portion", len(pkg.entityMatricesPortion), pkg.numEntities)
	}
	if len(pkg.tileDecodeMatrices) != pkg.numTiles*16 {
		return countError("each_tile_decode_matrix", len(pkg.tileDecodeMatrices), pkg.numTiles*16)
	}
	if len(pkg.tileEntitiesPortion) != pkg.numTiles {
		return countError("each_tile_entities_portion", len(pkg.tileEntitiesPortion), pkg.numTiles)
	}
	if len(pkg.positions)%3 != 0 {
		return sizeError("positions", len(pkg.positions), 3)
	}
	if len(pkg.normals) != len(pkg.positions)/3*2 {
		return countError("normals", len(pkg.normals), len(pkg.positions)/3*2)
	}

	if err := checkPortions(pkg.posNormPortion, len(pkg.positions), "each_primitive_positions_and_normals_portion"); err != nil {
		return err
	}
	for _, p := range pkg.posNormPortion {
		if p%3 != 0 {
			return errors.New("positions portion does not fall on a vertex boundary").
				WithType(ErrTypeCodec).
				WithTag("offset", p)
		}
	}
	if err := checkPortions(pkg.indicesPortion, len(pkg.indices), "each_primitive_indices_portion"); err != nil {
		return err
	}
	if err := checkPortions(pkg.edgePortion, len(pkg.edgeIndices), "each_primitive_edge_indices_portion"); err != nil {
		return err
	}
	if err := checkPortions(pkg.entityInstancesPortion, len(pkg.primitiveInstances), "each_entity_primitive_instances_portion"); err != nil {
		return err
	}
	if err := checkPortions(pkg.tileEntitiesPortion, pkg.numEntities, "each_tile_entities_portion"); err != nil {
		return err
	}
	for _, off := range pkg.entityMatricesPortion {
		if off%16 != 0 || int(off)+16 > len(pkg.matrices) {
			return errors.New("entity matrix offset out of range").
				WithType(ErrTypeCodec).
				WithTag("offset", off)
		}
	}

	pkg.instanceCounts = make([]int, pkg.numPrimitives)
	for _, pIdx := range pkg.primitiveInstances {
		if int(pIdx) >= pkg.numPrimitives {
			return errors.New("instance references primitive out of range").
				WithType(ErrTypeCodec).
				WithTag("primitive", pIdx)
		}
		pkg.instanceCounts[pIdx]++
	}
	return nil
}

func portionEnd(portion []uint32, i, total int) int {
	if i+1 < len(portion) {
		return int(portion[i+1])
	}
	return total
}

func (pkg *parsedPackage) primitiveSlices(i int) (positions []uint16, normals []int8, indices, edges []uint32) {
	posStart := int(pkg.posNormPortion[i])
	posEnd := portionEnd(pkg.posNormPortion, i, len(pkg.positions))
	positions = pkg.positions[posStart:posEnd]
	normals = pkg.normals[posStart/3*2 : posEnd/3*2]

	idxStart := int(pkg.indicesPortion[i])
	indices = pkg.indices[idxStart:portionEnd(pkg.indicesPortion, i, len(pkg.indices))]

	edgeStart := int(pkg.edgePortion[i])
	edges = pkg.edgeIndices[edgeStart:portionEnd(pkg.edgePortion, i, len(pkg.edgeIndices))]
	return positions, normals, indices, edges
}

func (pkg *parsedPackage) entityMatrix(i int) mgl32.Mat4 {
	var mat mgl32.Mat4
	off := int(pkg.entityMatricesPortion[i])
	copy(mat[:], pkg.matrices[off:off+16])
	return mat
}

func (pkg *parsedPackage) tileDecodeMatrix(i int) mgl32.Mat4 {
	var mat mgl32.Mat4
	copy(mat[:], pkg.tileDecodeMatrices[i*16:i*16+16])
	return mat
}

// replay walks tiles, entities and instances in wire order, materializing
// each instanced primitive's geometry at most once and skipping entities
// that end up with no meshes.
func (pkg *parsedPackage) replay(builder scene.Builder) error {
	geometryCreated := make([]bool, pkg.numPrimitives)
	nextMeshID := 0

	for tileIdx := 0; tileIdx < pkg.numTiles; tileIdx++ {
		tileDecode := pkg.tileDecodeMatrix(tileIdx)
		entStart := int(pkg.tileEntitiesPortion[tileIdx])
		entEnd := portionEnd(pkg.tileEntitiesPortion, tileIdx, pkg.numEntities)

		for entIdx := entStart; entIdx < entEnd; entIdx++ {
			instStart := int(pkg.entityInstancesPortion[entIdx])
			instEnd := portionEnd(pkg.entityInstancesPortion, entIdx, len(pkg.primitiveInstances))

			var meshIDs []int
			for k := instStart; k < instEnd; k++ {
				primIdx := int(pkg.primitiveInstances[k])
				positions, normals, indices, edges := pkg.primitiveSlices(primIdx)
				color := [3]uint8{
					pkg.colorOpacity[primIdx*4],
					pkg.colorOpacity[primIdx*4+1],
					pkg.colorOpacity[primIdx*4+2],
				}
				opacity := pkg.colorOpacity[primIdx*4+3]

				if pkg.instanceCounts[primIdx] > 1 {
					if !geometryCreated[primIdx] {
						err := builder.CreateGeometry(scene.GeometryCfg{
							ID:                    primIdx,
							Primitive:             scene.PrimitiveTriangles,
							Positions:             positions,
							Normals:               normals,
							Indices:               indices,
							EdgeIndices:           edges,
							PositionsDecodeMatrix: pkg.instancedDecode,
						})
						if err != nil {
							return err
						}
						geometryCreated[primIdx] = true
					}
					err := builder.CreateMesh(scene.MeshCfg{
						ID:         nextMeshID,
						GeometryID: primIdx,
						Matrix:     pkg.entityMatrix(entIdx),
						Color:      color,
						Opacity:    opacity,
					})
					if err != nil {
						return err
					}
				} else {
					err := builder.CreateMesh(scene.MeshCfg{
						ID:                    nextMeshID,
						GeometryID:            -1,
						Positions:             positions,
						Normals:               normals,
						Indices:               indices,
						EdgeIndices:           edges,
						PositionsDecodeMatrix: tileDecode,
						Color:                 color,
						Opacity:               opacity,
					})
					if err != nil {
						return err
					}
				}
				meshIDs = append(meshIDs, nextMeshID)
				nextMeshID++
			}

			if len(meshIDs) == 0 {
				continue
			}
			err := builder.CreateEntity(scene.EntityCfg{
				ID:       pkg.entityIDs[entIdx],
				IsObject: true,
				MeshIDs:  meshIDs,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
