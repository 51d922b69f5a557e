package xkt

import (
	"io"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"

	"github.com/nachomanzano/goxkt/internal/model"
)

// buildStreams lays the model out as the 17 uncompressed element streams.
// Iteration only ever walks insertion-ordered slices, so two encodes of the
// same model are byte-identical here; compression happens afterwards.
func buildStreams(m *model.Model) ([][]byte, error) {
	if len(m.Tiles) == 0 {
		return nil, errors.New("model has no tiles; call CreateTiles before encoding").
			WithType(model.ErrTypeInvalidInput)
	}

	// Per-primitive concatenated arrays and their portion tables. Portions
	// count elements, not bytes; positions and oct normals share one table
	// (a normal pair per vertex, so the normals offset is portion/3*2).
	var (
		positions            []uint16
		normals              []int8
		indices              []uint32
		edgeIndices          []uint32
		posAndNormalsPortion []uint32
		indicesPortion       []uint32
		edgeIndicesPortion   []uint32
		colorAndOpacity      []uint8
	)
	for _, p := range m.Primitives {
		if p.PositionsQuantized == nil {
			return nil, errors.New("primitive was never quantized").
				WithType(model.ErrTypeInvalidInput).
				WithTag("primitive_id", p.ID)
		}
		posAndNormalsPortion = append(posAndNormalsPortion, uint32(len(positions)))
		indicesPortion = append(indicesPortion, uint32(len(indices)))
		edgeIndicesPortion = append(edgeIndicesPortion, uint32(len(edgeIndices)))

		positions = append(positions, p.PositionsQuantized...)
		normals = append(normals, p.NormalsOct...)
		indices = append(indices, p.Indices...)
		edgeIndices = append(edgeIndices, p.EdgeIndices...)
		colorAndOpacity = append(colorAndOpacity, p.Color[0], p.Color[1], p.Color[2], p.Opacity)
	}

	// Entities are written in tile order: tiles in flattening order,
	// entities within a tile in model insertion order. Every per-entity
	// stream indexes this reordered space.
	var (
		entityIDs           []string
		matrices            []float32
		matricesPortion     []uint32
		primitiveInstances  []uint32
		instancesPortion    []uint32
		tileAABBs           []float32
		tileDecodeMatrices  []float32
		tileEntitiesPortion []uint32
	)
	tileEntityCount := 0
	for _, tile := range m.Tiles {
		tileEntitiesPortion = append(tileEntitiesPortion, uint32(tileEntityCount))
		box := tile.AABB.Array()
		for _, v := range box {
			tileAABBs = append(tileAABBs, float32(v))
		}
		tileDecodeMatrices = append(tileDecodeMatrices, tile.DecodeMatrix[:]...)

		for _, eIdx := range tile.Entities {
			e := m.Entities[eIdx]
			entityIDs = append(entityIDs, e.ID)
			matricesPortion = append(matricesPortion, uint32(len(matrices)))
			matrices = append(matrices, e.Matrix[:]...)

			instancesPortion = append(instancesPortion, uint32(len(primitiveInstances)))
			for _, instIdx := range e.Instances {
				primitiveInstances = append(primitiveInstances, uint32(m.Instances[instIdx].Primitive))
			}
			tileEntityCount++
		}
	}
	if tileEntityCount != len(m.Entities) {
		return nil, errors.New("tiles do not cover every entity").
			WithType(model.ErrTypeInvalidInput).
			WithTag("tiled", tileEntityCount).
			WithTag("entities", len(m.Entities))
	}

	idJSON, err := json.Marshal(entityIDs)
	if err != nil {
		return nil, errors.New("encoding entity ids failed").
			WithType(ErrTypeCodec).
			Wrap(err)
	}

	streams := make([][]byte, StreamCount)
	streams[streamPositions] = u16Bytes(positions)
	streams[streamNormals] = i8Bytes(normals)
	streams[streamIndices] = u32Bytes(indices)
	streams[streamEdgeIndices] = u32Bytes(edgeIndices)
	streams[streamMatrices] = f32Bytes(matrices)
	streams[streamInstancedPrimitivesDecodeMatrix] = f32Bytes(m.InstancedDecodeMatrix[:])
	streams[streamEachPrimitivePositionsAndNormalsPortion] = u32Bytes(posAndNormalsPortion)
	streams[streamEachPrimitiveIndicesPortion] = u32Bytes(indicesPortion)
	streams[streamEachPrimitiveEdgeIndicesPortion] = u32Bytes(edgeIndicesPortion)
	streams[streamEachPrimitiveColorAndOpacity] = colorAndOpacity
	streams[streamPrimitiveInstances] = u32Bytes(primitiveInstances)
	streams[streamEachEntityID] = idJSON
	streams[streamEachEntityPrimitiveInstancesPortion] = u32Bytes(instancesPortion)
	streams[streamEachEntityMatricesPortion] = u32Bytes(matricesPortion)
	streams[streamEachTileAABB] = f32Bytes(tileAABBs)
	streams[streamEachTileDecodeMatrix] = f32Bytes(tileDecodeMatrices)
	streams[streamEachTileEntitiesPortion] = u32Bytes(tileEntitiesPortion)
	return streams, nil
}

// Encode serializes a tiled model into its 17 compressed element streams,
// in wire order.
func Encode(m *model.Model) ([][]byte, error) {
	raw, err := buildStreams(m)
	if err != nil {
		return nil, err
	}
	compressed := make([][]byte, len(raw))
	for i, stream := range raw {
		c, err := deflate(stream)
		if err != nil {
			return nil, errors.New("compressing package stream failed").
				WithType(ErrTypeCodec).
				WithTag("stream", i).
				Wrap(err)
		}
		compressed[i] = c
	}
	return compressed, nil
}

// EncodeToWriter serializes a tiled model and frames it with the package
// envelope.
func EncodeToWriter(m *model.Model, w io.Writer) error {
	streams, err := Encode(m)
	if err != nil {
		return err
	}
	return WriteEnvelope(w, streams)
}
