package model

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/nachomanzano/goxkt/internal/geometry"
)

func cubeMesh() ([]float32, []float32, []uint32) {
	positions := []float32{
		-0.5, -0.5, -0.5,
		0.5, -0.5, -0.5,
		0.5, 0.5, -0.5,
		-0.5, 0.5, -0.5,
		-0.5, -0.5, 0.5,
		0.5, -0.5, 0.5,
		0.5, 0.5, 0.5,
		-0.5, 0.5, 0.5,
	}
	normals := make([]float32, len(positions))
	for i := 0; i < len(positions); i += 3 {
		n := mgl32.Vec3{positions[i], positions[i+1], positions[i+2]}.Normalize()
		normals[i], normals[i+1], normals[i+2] = n.X(), n.Y(), n.Z()
	}
	indices := []uint32{
		0, 2, 1, 0, 3, 2,
		4, 5, 6, 4, 6, 7,
		0, 1, 5, 0, 5, 4,
		3, 7, 6, 3, 6, 2,
		1, 2, 6, 1, 6, 5,
		0, 4, 7, 0, 7, 3,
	}
	return positions, normals, indices
}

func TestSingleCubeSingleEntity(t *testing.T) {
	m := New()
	positions, normals, indices := cubeMesh()

	p, err := m.CreatePrimitive("cube", false, mgl32.Ident4(),
		[3]uint8{255, 0, 0}, 1.0, positions, normals, indices)
	require.NoError(t, err)
	require.Equal(t, 0, p.Index)
	require.False(t, p.Reused)
	require.Equal(t, uint8(255), p.Opacity)
	require.Len(t, p.NormalsOct, p.VertexCount()*2)
	require.Len(t, p.EdgeIndices, 24) // 12 cube edges

	e, err := m.CreateEntity("product-1", mgl32.Ident4(), []string{"cube"}, false)
	require.NoError(t, err)
	require.Len(t, e.Instances, 1)
	require.Equal(t, geometry.NewAABB(-0.5, -0.5, -0.5, 0.5, 0.5, 0.5), e.AABB)

	require.NoError(t, m.CreateTiles(5))
	require.NoError(t, m.Validate())
	require.Len(t, m.Tiles, 1)
	require.Equal(t, e.AABB, m.Tiles[0].AABB)
	require.Len(t, p.PositionsQuantized, len(p.Positions))

	// The eight corners dequantize back within one step per axis.
	step := 1.0 / geometry.QuantizationRange
	for i := 0; i < len(p.Positions); i += 3 {
		v := geometry.Dequantize(p.PositionsQuantized[i], p.PositionsQuantized[i+1],
			p.PositionsQuantized[i+2], m.Tiles[0].DecodeMatrix)
		require.InDelta(t, float64(positions[i]), float64(v.X()), step)
		require.InDelta(t, float64(positions[i+1]), float64(v.Y()), step)
		require.InDelta(t, float64(positions[i+2]), float64(v.Z()), step)
	}
}

func TestModelingMatrixBakedIntoSingleUsePositions(t *testing.T) {
	m := New()
	positions, normals, indices := cubeMesh()

	p, err := m.CreatePrimitive("cube", false, mgl32.Translate3D(100, 0, 0),
		[3]uint8{128, 128, 128}, 0.5, positions, normals, indices)
	require.NoError(t, err)
	require.InDelta(t, 99.5, float64(p.Positions[0]), 1e-5)
	require.Equal(t, uint8(128), p.Opacity)

	// Caller's buffer stays untouched.
	require.Equal(t, float32(-0.5), positions[0])
}

func TestReusedPrimitiveStaysInObjectSpace(t *testing.T) {
	m := New()
	positions, normals, indices := cubeMesh()

	bolt, err := m.CreatePrimitive("bolt", true, mgl32.Translate3D(42, 0, 0),
		[3]uint8{200, 200, 0}, 1.0, positions, normals, indices)
	require.NoError(t, err)
	require.True(t, bolt.Reused)
	require.Equal(t, float32(-0.5), bolt.Positions[0], "object space positions untouched")

	a, err := m.CreateEntity("a", mgl32.Translate3D(100, 0, 0), []string{"bolt"}, true)
	require.NoError(t, err)
	b, err := m.CreateEntity("b", mgl32.Translate3D(0, 0, 100), []string{"bolt"}, true)
	require.NoError(t, err)

	require.Len(t, m.Instances, 2)
	require.NoError(t, m.Validate())

	require.InDelta(t, 99.5, a.AABB.Xmin, 1e-4)
	require.InDelta(t, 100.5, a.AABB.Xmax, 1e-4)
	require.InDelta(t, 99.5, b.AABB.Zmin, 1e-4)

	require.NoError(t, m.CreateTiles(5))
	// Reused primitives quantize against the shared object-space box.
	require.Len(t, bolt.PositionsQuantized, len(bolt.Positions))
	v := geometry.Dequantize(bolt.PositionsQuantized[0], bolt.PositionsQuantized[1],
		bolt.PositionsQuantized[2], m.InstancedDecodeMatrix)
	require.InDelta(t, -0.5, float64(v.X()), 1.0/geometry.QuantizationRange)
}

func TestDuplicatePrimitive(t *testing.T) {
	m := New()
	positions, normals, indices := cubeMesh()

	_, err := m.CreatePrimitive("p", false, mgl32.Ident4(), [3]uint8{}, 1, positions, normals, indices)
	require.NoError(t, err)
	_, err = m.CreatePrimitive("p", false, mgl32.Ident4(), [3]uint8{}, 1, positions, normals, indices)
	require.Error(t, err)
	require.Equal(t, ErrTypeDuplicatePrimitive, errors.Type(err))
}

func TestDuplicateEntity(t *testing.T) {
	m := New()
	positions, normals, indices := cubeMesh()
	_, err := m.CreatePrimitive("p", false, mgl32.Ident4(), [3]uint8{}, 1, positions, normals, indices)
	require.NoError(t, err)

	_, err = m.CreateEntity("e", mgl32.Ident4(), []string{"p"}, false)
	require.NoError(t, err)
	_, err = m.CreateEntity("e", mgl32.Ident4(), []string{"p"}, false)
	require.Error(t, err)
	require.Equal(t, ErrTypeDuplicateEntity, errors.Type(err))
}

func TestUnknownPrimitiveIsDroppedWithWarning(t *testing.T) {
	m := New()
	positions, normals, indices := cubeMesh()
	_, err := m.CreatePrimitive("known", false, mgl32.Ident4(), [3]uint8{}, 1, positions, normals, indices)
	require.NoError(t, err)

	e, err := m.CreateEntity("e", mgl32.Ident4(), []string{"known", "missing"}, false)
	require.NoError(t, err)
	require.Len(t, e.Instances, 1)
	require.Len(t, m.Warnings, 1)
	require.Contains(t, m.Warnings[0], "missing")
}

func TestMixedReuseRejected(t *testing.T) {
	m := New()
	positions, normals, indices := cubeMesh()
	_, err := m.CreatePrimitive("shared", true, mgl32.Ident4(), [3]uint8{}, 1, positions, normals, indices)
	require.NoError(t, err)
	_, err = m.CreatePrimitive("own", false, mgl32.Ident4(), [3]uint8{}, 1, positions, normals, indices)
	require.NoError(t, err)

	_, err = m.CreateEntity("e", mgl32.Ident4(), []string{"shared", "own"}, true)
	require.Error(t, err)
	require.Equal(t, ErrTypeInvalidInput, errors.Type(err))
}

func TestInvalidMeshRejected(t *testing.T) {
	m := New()

	_, err := m.CreatePrimitive("empty", false, mgl32.Ident4(), [3]uint8{}, 1, nil, nil, nil)
	require.Error(t, err)
	require.Equal(t, ErrTypeInvalidInput, errors.Type(err))

	_, err = m.CreatePrimitive("bad-index", false, mgl32.Ident4(), [3]uint8{}, 1,
		[]float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		[]float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		[]uint32{0, 1, 3})
	require.Error(t, err)
	require.Equal(t, ErrTypeInvalidInput, errors.Type(err))

	_, err = m.CreatePrimitive("zero-normal", false, mgl32.Ident4(), [3]uint8{}, 1,
		[]float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		[]float32{0, 0, 0, 0, 0, 0, 0, 0, 0},
		[]uint32{0, 1, 2})
	require.Error(t, err)
	require.Equal(t, ErrTypeInvalidInput, errors.Type(err))
}

func TestDistantEntitiesLandInDistinctTiles(t *testing.T) {
	m := New()
	positions, normals, indices := cubeMesh()

	_, err := m.CreatePrimitive("p", false, mgl32.Ident4(), [3]uint8{}, 1, positions, normals, indices)
	require.NoError(t, err)

	far := make([]float32, len(positions))
	copy(far, positions)
	for i := 0; i < len(far); i += 3 {
		far[i] += 1000
	}
	_, err = m.CreatePrimitive("q", false, mgl32.Ident4(), [3]uint8{}, 1, far, normals, indices)
	require.NoError(t, err)

	_, err = m.CreateEntity("P", mgl32.Ident4(), []string{"p"}, false)
	require.NoError(t, err)
	_, err = m.CreateEntity("Q", mgl32.Ident4(), []string{"q"}, false)
	require.NoError(t, err)

	require.NoError(t, m.CreateTiles(5))
	require.GreaterOrEqual(t, len(m.Tiles), 2)

	tileOf := func(entity int) int {
		for ti, tile := range m.Tiles {
			for _, e := range tile.Entities {
				if e == entity {
					return ti
				}
			}
		}
		return -1
	}
	require.NotEqual(t, -1, tileOf(0))
	require.NotEqual(t, -1, tileOf(1))
	require.NotEqual(t, tileOf(0), tileOf(1))

	// Containment invariant: each entity's box fits its tile's box.
	for _, tile := range m.Tiles {
		for _, e := range tile.Entities {
			require.True(t, tile.AABB.Contains(m.Entities[e].AABB))
		}
	}
}

func TestErrTypeTagsWrapThrough(t *testing.T) {
	m := New()
	positions, normals, indices := cubeMesh()
	_, err := m.CreatePrimitive("p", false, mgl32.Ident4(), [3]uint8{}, 1, positions, normals, indices)
	require.NoError(t, err)
	_, err = m.CreatePrimitive("p", false, mgl32.Ident4(), [3]uint8{}, 1, positions, normals, indices)
	require.True(t, errors.IsType(err, ErrTypeDuplicatePrimitive))
}
