package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultEdgeThresholdDegrees is the dihedral angle above which a shared
// triangle edge becomes a display edge.
const DefaultEdgeThresholdDegrees = 10.0

type edgeKey struct {
	a uint32 // smaller vertex index
	b uint32
}

type edgeRecord struct {
	count   int
	normalA mgl32.Vec3 // face normal of the first triangle touching the edge
	normalB mgl32.Vec3 // face normal of the second, when count >= 2
}

func faceNormal(positions []float32, i0, i1, i2 uint32) mgl32.Vec3 {
	v0 := mgl32.Vec3{positions[i0*3], positions[i0*3+1], positions[i0*3+2]}
	v1 := mgl32.Vec3{positions[i1*3], positions[i1*3+1], positions[i1*3+2]}
	v2 := mgl32.Vec3{positions[i2*3], positions[i2*3+1], positions[i2*3+2]}
	n := v1.Sub(v0).Cross(v2.Sub(v0))
	if n.Len() == 0 {
		return mgl32.Vec3{}
	}
	return n.Normalize()
}

func canonicalEdge(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a: a, b: b}
}

// BuildEdgeIndices derives a line-index list from a triangle mesh. Boundary
// edges are always emitted; an edge shared by two triangles is emitted when
// the angle between their face normals exceeds thresholdDegrees. Edges come
// out in triangle-scan order, smaller vertex index first.
func BuildEdgeIndices(positions []float32, indices []uint32, thresholdDegrees float64) []uint32 {
	if thresholdDegrees <= 0 {
		thresholdDegrees = DefaultEdgeThresholdDegrees
	}

	records := make(map[edgeKey]*edgeRecord, len(indices))
	order := make([]edgeKey, 0, len(indices))

	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		normal := faceNormal(positions, i0, i1, i2)
		for _, pair := range [3][2]uint32{{i0, i1}, {i1, i2}, {i2, i0}} {
			key := canonicalEdge(pair[0], pair[1])
			rec, seen := records[key]
			if !seen {
				rec = &edgeRecord{normalA: normal}
				records[key] = rec
				order = append(order, key)
			} else if rec.count == 1 {
				rec.normalB = normal
			}
			rec.count++
		}
	}

	cosThreshold := math.Cos(thresholdDegrees * math.Pi / 180)

	var edges []uint32
	for _, key := range order {
		rec := records[key]
		if rec.count == 1 {
			edges = append(edges, key.a, key.b)
			continue
		}
		// Degenerate triangles contribute a zero normal; their dihedral
		// reads as flat and the edge stays hidden.
		dot := float64(rec.normalA.Dot(rec.normalB))
		if dot > 1 {
			dot = 1
		} else if dot < -1 {
			dot = -1
		}
		if rec.normalA.Len() > 0 && rec.normalB.Len() > 0 && dot < cosThreshold {
			edges = append(edges, key.a, key.b)
		}
	}
	return edges
}
