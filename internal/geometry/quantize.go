package geometry

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/shopspring/decimal"
)

// Positions quantize to 16-bit unsigned integers relative to an AABB. The
// inverse mapping is carried by a 4x4 decode matrix derived from the same box.

const (
	// QuantizationRange is the largest quantized coordinate value.
	QuantizationRange = 65535

	ErrTypeQuantizationOverflow = "quantization_overflow"
)

// extents returns the axis extents of the box, substituting 1 for a
// zero-length axis so flat geometry still maps onto the box plane.
func extents(box AABB) (float64, float64, float64) {
	dx := box.Xmax - box.Xmin
	dy := box.Ymax - box.Ymin
	dz := box.Zmax - box.Zmin
	if dx == 0 {
		dx = 1
	}
	if dy == 0 {
		dy = 1
	}
	if dz == 0 {
		dz = 1
	}
	return dx, dy, dz
}

func quantizeAxis(p, min, extent float64) (uint16, bool) {
	lsb := extent / QuantizationRange
	if p < min-lsb || p > min+extent+lsb {
		return 0, false
	}
	q := math.Round((p - min) / extent * QuantizationRange)
	if q < 0 {
		q = 0
	} else if q > QuantizationRange {
		q = QuantizationRange
	}
	return uint16(q), true
}

// QuantizePositions maps float triples into 16-bit triples relative to box.
// A position lying outside the box by more than one quantization step is an
// error: the caller handed geometry to the wrong bucket.
func QuantizePositions(positions []float32, box AABB) ([]uint16, error) {
	dx, dy, dz := extents(box)
	mins := [3]float64{box.Xmin, box.Ymin, box.Zmin}
	exts := [3]float64{dx, dy, dz}

	quantized := make([]uint16, len(positions))
	for i, p := range positions {
		axis := i % 3
		q, ok := quantizeAxis(float64(p), mins[axis], exts[axis])
		if !ok {
			return nil, errors.New("position outside quantization box").
				WithType(ErrTypeQuantizationOverflow).
				WithTag("element", i).
				WithTag("value", p)
		}
		quantized[i] = q
	}
	return quantized, nil
}

func decimalAxisScale(min, max float64) float64 {
	d := decimal.NewFromFloat(max).Sub(decimal.NewFromFloat(min))
	if d.IsZero() {
		d = decimal.NewFromInt(1)
	}
	scale, _ := d.Div(decimal.NewFromInt(QuantizationRange)).Float64()
	return scale
}

// DecodeMatrix returns the affine matrix mapping quantized coordinates of
// the given box back to model coordinates: p = q*scale + min per axis.
// Scales are derived in decimal arithmetic so that the matrix written to the
// wire is the exact counterpart of the box the quantizer used, even for
// street-scale translations.
func DecodeMatrix(box AABB) mgl32.Mat4 {
	sx := decimalAxisScale(box.Xmin, box.Xmax)
	sy := decimalAxisScale(box.Ymin, box.Ymax)
	sz := decimalAxisScale(box.Zmin, box.Zmax)
	translate := mgl32.Translate3D(float32(box.Xmin), float32(box.Ymin), float32(box.Zmin))
	scale := mgl32.Scale3D(float32(sx), float32(sy), float32(sz))
	return translate.Mul4(scale)
}

// Dequantize applies a decode matrix to one quantized triple.
func Dequantize(qx, qy, qz uint16, decode mgl32.Mat4) mgl32.Vec3 {
	v := decode.Mul4x1(mgl32.Vec4{float32(qx), float32(qy), float32(qz), 1})
	return v.Vec3()
}
