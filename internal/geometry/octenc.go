package geometry

import "math"

// Octahedral encoding of unit normals to a signed 8-bit pair. The unit
// sphere is projected onto an octahedron, the lower hemisphere folded over
// the upper one, and the result scaled to [-127, 127] per component.

func signNotZero(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func snapToByte(v float64) int8 {
	// math.Round breaks ties away from zero, keeping -0 out of the encoding.
	r := math.Round(v * 127)
	if r > 127 {
		r = 127
	} else if r < -127 {
		r = -127
	}
	return int8(r)
}

// OctEncode maps a unit vector to its octahedral signed byte pair.
func OctEncode(x, y, z float32) (int8, int8) {
	fx, fy, fz := float64(x), float64(y), float64(z)
	sum := math.Abs(fx) + math.Abs(fy) + math.Abs(fz)
	if sum == 0 {
		return 0, 0
	}
	px := fx / sum
	py := fy / sum
	if fz < 0 {
		px, py = (1-math.Abs(py))*signNotZero(px), (1-math.Abs(px))*signNotZero(py)
	}
	return snapToByte(px), snapToByte(py)
}

// OctDecode recovers a unit vector from an octahedral byte pair.
func OctDecode(u, v int8) (float32, float32, float32) {
	x := float64(u) / 127
	y := float64(v) / 127
	z := 1 - math.Abs(x) - math.Abs(y)
	if z < 0 {
		ox := x
		x = (1 - math.Abs(y)) * signNotZero(ox)
		y = (1 - math.Abs(ox)) * signNotZero(y)
	}
	length := math.Sqrt(x*x + y*y + z*z)
	if length == 0 {
		return 0, 0, 1
	}
	return float32(x / length), float32(y / length), float32(z / length)
}
