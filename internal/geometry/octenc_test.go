package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func angleBetween(ax, ay, az, bx, by, bz float32) float64 {
	dot := float64(ax*bx + ay*by + az*bz)
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return math.Acos(dot) * 180 / math.Pi
}

func TestOctEncodePolesRoundTripStably(t *testing.T) {
	for _, z := range []float32{1, -1} {
		u, v := OctEncode(0, 0, z)
		dx, dy, dz := OctDecode(u, v)
		require.InDelta(t, 1.0, math.Sqrt(float64(dx*dx+dy*dy+dz*dz)), 1e-6)
		require.Less(t, angleBetween(0, 0, z, dx, dy, dz), 0.5)
	}
}

func TestOctEncodeRoundTripWithinTwoDegrees(t *testing.T) {
	samples := [][3]float32{
		{1, 0, 0}, {0, 1, 0}, {-1, 0, 0}, {0, -1, 0},
		{0.5773503, 0.5773503, 0.5773503},
		{-0.5773503, 0.5773503, -0.5773503},
		{0.2672612, 0.5345225, -0.8017837},
		{-0.4558423, -0.5698029, 0.6837634},
		{0.9486833, -0.3162278, 0},
		{0.1104315, -0.9938832, -0.0110431},
	}
	for _, n := range samples {
		u, v := OctEncode(n[0], n[1], n[2])
		dx, dy, dz := OctDecode(u, v)
		require.InDelta(t, 1.0, math.Sqrt(float64(dx*dx+dy*dy+dz*dz)), 1e-6,
			"decoded normal must be unit length")
		require.Less(t, angleBetween(n[0], n[1], n[2], dx, dy, dz), 2.0,
			"normal %v drifted too far", n)
	}
}

func TestOctEncodeDeterministic(t *testing.T) {
	u1, v1 := OctEncode(0.2672612, 0.5345225, -0.8017837)
	u2, v2 := OctEncode(0.2672612, 0.5345225, -0.8017837)
	require.Equal(t, u1, u2)
	require.Equal(t, v1, v2)
}

func TestOctEncodeZeroVector(t *testing.T) {
	u, v := OctEncode(0, 0, 0)
	require.Equal(t, int8(0), u)
	require.Equal(t, int8(0), v)
}
