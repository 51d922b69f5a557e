package geometry

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestQuantizeRoundTripWithinOneStep(t *testing.T) {
	box := NewAABB(-0.5, -0.5, -0.5, 0.5, 0.5, 0.5)
	positions := []float32{
		-0.5, -0.5, -0.5,
		0.5, 0.5, 0.5,
		0.25, -0.125, 0.0625,
		-0.49, 0.32, -0.01,
	}

	quantized, err := QuantizePositions(positions, box)
	require.NoError(t, err)
	require.Len(t, quantized, len(positions))

	decode := DecodeMatrix(box)
	step := 1.0 / QuantizationRange
	for i := 0; i < len(positions); i += 3 {
		p := Dequantize(quantized[i], quantized[i+1], quantized[i+2], decode)
		require.InDelta(t, float64(positions[i]), float64(p.X()), step)
		require.InDelta(t, float64(positions[i+1]), float64(p.Y()), step)
		require.InDelta(t, float64(positions[i+2]), float64(p.Z()), step)
	}
}

func TestQuantizeCorners(t *testing.T) {
	box := NewAABB(0, 0, 0, 10, 10, 10)
	quantized, err := QuantizePositions([]float32{0, 0, 0, 10, 10, 10}, box)
	require.NoError(t, err)
	require.Equal(t, []uint16{0, 0, 0, QuantizationRange, QuantizationRange, QuantizationRange}, quantized)
}

func TestQuantizeOverflowIsAnError(t *testing.T) {
	box := NewAABB(0, 0, 0, 1, 1, 1)
	_, err := QuantizePositions([]float32{2, 0, 0}, box)
	require.Error(t, err)
	require.Equal(t, ErrTypeQuantizationOverflow, errors.Type(err))
}

func TestQuantizeClampsWithinOneStep(t *testing.T) {
	box := NewAABB(0, 0, 0, 1, 1, 1)
	lsb := float32(1.0 / QuantizationRange)
	quantized, err := QuantizePositions([]float32{-lsb / 2, 1 + lsb/2, 0.5}, box)
	require.NoError(t, err)
	require.Equal(t, uint16(0), quantized[0])
	require.Equal(t, uint16(QuantizationRange), quantized[1])
}

func TestQuantizeFlatGeometry(t *testing.T) {
	// A zero-extent Z axis must still decode back onto the plane.
	box := NewAABB(0, 0, 5, 1, 1, 5)
	quantized, err := QuantizePositions([]float32{0.5, 0.5, 5}, box)
	require.NoError(t, err)

	p := Dequantize(quantized[0], quantized[1], quantized[2], DecodeMatrix(box))
	require.InDelta(t, 5.0, float64(p.Z()), 1e-5)
}

func TestDecodeMatrixMatchesQuantizationBox(t *testing.T) {
	box := NewAABB(-1000, 20, 3.5, 1000, 40, 7.5)
	decode := DecodeMatrix(box)

	// Quantized zero maps to the box minimum, the full range to the maximum.
	min := Dequantize(0, 0, 0, decode)
	max := Dequantize(QuantizationRange, QuantizationRange, QuantizationRange, decode)
	require.InDelta(t, box.Xmin, float64(min.X()), 1e-3)
	require.InDelta(t, box.Ymin, float64(min.Y()), 1e-4)
	require.InDelta(t, box.Zmin, float64(min.Z()), 1e-4)
	require.InDelta(t, box.Xmax, float64(max.X()), 1e-3)
	require.InDelta(t, box.Ymax, float64(max.Y()), 1e-4)
	require.InDelta(t, box.Zmax, float64(max.Z()), 1e-4)
}
