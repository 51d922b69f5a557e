package xkt

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/nachomanzano/goxkt/internal/scene"
)

func TestParseRejectsWrongVersion(t *testing.T) {
	m := singleCubeModel(t)
	var buf bytes.Buffer
	require.NoError(t, EncodeToWriter(m, &buf))

	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data, 5)

	err := Parse(data, scene.NewRecorder())
	require.Error(t, err)
	require.Equal(t, ErrTypeVersionMismatch, errors.Type(err))
}

func TestParseRejectsTruncatedPackage(t *testing.T) {
	m := singleCubeModel(t)
	var buf bytes.Buffer
	require.NoError(t, EncodeToWriter(m, &buf))

	err := Parse(buf.Bytes()[:buf.Len()-10], scene.NewRecorder())
	require.Error(t, err)
	require.Equal(t, ErrTypeCodec, errors.Type(err))
}

func TestParseRejectsCorruptStream(t *testing.T) {
	m := singleCubeModel(t)
	streams, err := Encode(m)
	require.NoError(t, err)

	streams[streamPositions] = []byte{0xde, 0xad, 0xbe, 0xef}
	err = ParseStreams(streams, scene.NewRecorder())
	require.Error(t, err)
	require.Equal(t, ErrTypeCodec, errors.Type(err))
}

func TestParseRejectsMisalignedStream(t *testing.T) {
	m := singleCubeModel(t)
	streams, err := Encode(m)
	require.NoError(t, err)

	// A positions stream with an odd byte count cannot be a u16 view.
	odd, err := deflate([]byte{1, 2, 3})
	require.NoError(t, err)
	streams[streamPositions] = odd

	err = ParseStreams(streams, scene.NewRecorder())
	require.Error(t, err)
	require.Equal(t, ErrTypeCodec, errors.Type(err))
}

func TestParseRejectsWrongStreamCount(t *testing.T) {
	err := ParseStreams(make([][]byte, 3), scene.NewRecorder())
	require.Error(t, err)
	require.Equal(t, ErrTypeCodec, errors.Type(err))
}

func TestParseFailsBeforeAnyBuilderCall(t *testing.T) {
	m := singleCubeModel(t)
	streams, err := Encode(m)
	require.NoError(t, err)

	// Break a late stream; the builder must stay untouched.
	bad, err := deflate([]byte{1, 2, 3})
	require.NoError(t, err)
	streams[streamEachTileEntitiesPortion] = bad

	rec := scene.NewRecorder()
	err = ParseStreams(streams, rec)
	require.Error(t, err)
	require.Empty(t, rec.Geometries)
	require.Empty(t, rec.Meshes)
	require.Empty(t, rec.Entities)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	streams := [][]byte{}
	for i := 0; i < StreamCount; i++ {
		streams = append(streams, bytes.Repeat([]byte{byte(i)}, i+1))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEnvelope(&buf, streams))

	back, err := ReadEnvelope(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, streams, back)
}
