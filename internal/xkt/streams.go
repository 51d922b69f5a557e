// Package xkt serializes a built model into the v6 package layout, a fixed
// sequence of independently deflate-compressed element streams, and parses
// it back through a scene builder.
package xkt

import (
	"encoding/binary"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Stream ordinals. The wire order is fixed; reordering is a format change.
const (
	streamPositions = iota
	streamNormals
	streamIndices
	streamEdgeIndices
	streamMatrices
	streamInstancedPrimitivesDecodeMatrix
	streamEachPrimitivePositionsAndNormalsPortion
	streamEachPrimitiveIndicesPortion
	streamEachPrimitiveEdgeIndicesPortion
	streamEachPrimitiveColorAndOpacity
	streamPrimitiveInstances
	streamEachEntityID
	streamEachEntityPrimitiveInstancesPortion
	streamEachEntityMatricesPortion
	streamEachTileAABB
	streamEachTileDecodeMatrix
	streamEachTileEntitiesPortion

	// StreamCount is the number of element streams in a package.
	StreamCount = 17
)

const (
	ErrTypeCodec           = "codec_error"
	ErrTypeVersionMismatch = "format_version_mismatch"
)

// All streams are little-endian on the wire regardless of host order.

func u16Bytes(values []uint16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func u32Bytes(values []uint32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func f32Bytes(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func i8Bytes(values []int8) []byte {
	out := make([]byte, len(values))
	for i, v := range values {
		out[i] = byte(v)
	}
	return out
}

func sizeError(stream string, size, elem int) error {
	return errors.New("stream length is not a multiple of its element size").
		WithType(ErrTypeCodec).
		WithTag("stream", stream).
		WithTag("bytes", size).
		WithTag("element_size", elem)
}

func bytesToU16(data []byte, stream string) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, sizeError(stream, len(data), 2)
	}
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return out, nil
}

func bytesToU32(data []byte, stream string) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, sizeError(stream, len(data), 4)
	}
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out, nil
}

func bytesToF32(data []byte, stream string) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, sizeError(stream, len(data), 4)
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

func bytesToI8(data []byte) []int8 {
	out := make([]int8, len(data))
	for i, b := range data {
		out[i] = int8(b)
	}
	return out
}
