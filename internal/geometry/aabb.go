package geometry

import "math"

// An axis-aligned bounding box in world or object space.
type AABB struct {
	Xmin float64
	Ymin float64
	Zmin float64
	Xmax float64
	Ymax float64
	Zmax float64
}

// containmentEpsilon absorbs float32 rounding when checking whether a box
// produced from float32 vertex data fits inside a float64 node box.
const containmentEpsilon = 1e-9

func NewAABB(xmin, ymin, zmin, xmax, ymax, zmax float64) AABB {
	return AABB{Xmin: xmin, Ymin: ymin, Zmin: zmin, Xmax: xmax, Ymax: ymax, Zmax: zmax}
}

// EmptyAABB returns a box that contains nothing and expands to the first
// point or box merged into it.
func EmptyAABB() AABB {
	return AABB{
		Xmin: math.Inf(1), Ymin: math.Inf(1), Zmin: math.Inf(1),
		Xmax: math.Inf(-1), Ymax: math.Inf(-1), Zmax: math.Inf(-1),
	}
}

func (b AABB) IsEmpty() bool {
	return b.Xmin > b.Xmax
}

// ExpandPoint grows the box to include the given point.
func (b *AABB) ExpandPoint(x, y, z float64) {
	b.Xmin = math.Min(b.Xmin, x)
	b.Ymin = math.Min(b.Ymin, y)
	b.Zmin = math.Min(b.Zmin, z)
	b.Xmax = math.Max(b.Xmax, x)
	b.Ymax = math.Max(b.Ymax, y)
	b.Zmax = math.Max(b.Zmax, z)
}

// Expand grows the box to include another box.
func (b *AABB) Expand(o AABB) {
	if o.IsEmpty() {
		return
	}
	b.ExpandPoint(o.Xmin, o.Ymin, o.Zmin)
	b.ExpandPoint(o.Xmax, o.Ymax, o.Zmax)
}

// Contains reports whether o lies fully inside b.
func (b AABB) Contains(o AABB) bool {
	return o.Xmin >= b.Xmin-containmentEpsilon && o.Xmax <= b.Xmax+containmentEpsilon &&
		o.Ymin >= b.Ymin-containmentEpsilon && o.Ymax <= b.Ymax+containmentEpsilon &&
		o.Zmin >= b.Zmin-containmentEpsilon && o.Zmax <= b.Zmax+containmentEpsilon
}

// LongestAxis returns 0, 1 or 2 for the x, y or z extent, whichever is
// largest. Ties resolve to the lower axis index.
func (b AABB) LongestAxis() int {
	dx := b.Xmax - b.Xmin
	dy := b.Ymax - b.Ymin
	dz := b.Zmax - b.Zmin
	axis := 0
	longest := dx
	if dy > longest {
		axis, longest = 1, dy
	}
	if dz > longest {
		axis = 2
	}
	return axis
}

// Halves splits the box at the midpoint of the given axis.
func (b AABB) Halves(axis int) (AABB, AABB) {
	lo, hi := b, b
	switch axis {
	case 0:
		mid := (b.Xmin + b.Xmax) / 2
		lo.Xmax, hi.Xmin = mid, mid
	case 1:
		mid := (b.Ymin + b.Ymax) / 2
		lo.Ymax, hi.Ymin = mid, mid
	default:
		mid := (b.Zmin + b.Zmax) / 2
		lo.Zmax, hi.Zmin = mid, mid
	}
	return lo, hi
}

// Array returns the box as (xmin, ymin, zmin, xmax, ymax, zmax).
func (b AABB) Array() [6]float64 {
	return [6]float64{b.Xmin, b.Ymin, b.Zmin, b.Xmax, b.Ymax, b.Zmax}
}
