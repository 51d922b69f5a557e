package pkg

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nachomanzano/goxkt/internal/pack"
	"github.com/nachomanzano/goxkt/internal/scene"
	"github.com/nachomanzano/goxkt/internal/xkt"
	"github.com/nachomanzano/goxkt/tools"
)

const boltSceneDoc = `{
	"geometries": [
		{
			"id": "bolt",
			"positions": [-0.5,-0.5,-0.5, 0.5,-0.5,-0.5, 0.5,0.5,-0.5, -0.5,0.5,-0.5,
			              -0.5,-0.5,0.5, 0.5,-0.5,0.5, 0.5,0.5,0.5, -0.5,0.5,0.5],
			"normals": [-0.577,-0.577,-0.577, 0.577,-0.577,-0.577, 0.577,0.577,-0.577, -0.577,0.577,-0.577,
			            -0.577,-0.577,0.577, 0.577,-0.577,0.577, 0.577,0.577,0.577, -0.577,0.577,0.577],
			"indices": [0,2,1, 0,3,2, 4,5,6, 4,6,7, 0,1,5, 0,5,4, 3,7,6, 3,6,2, 1,2,6, 1,6,5, 0,4,7, 0,7,3],
			"color": [200, 200, 0],
			"opacity": 1.0
		},
		{
			"id": "plate",
			"positions": [0,0,0, 2,0,0, 2,2,0, 0,2,0],
			"normals": [0,0,1, 0,0,1, 0,0,1, 0,0,1],
			"indices": [0,1,2, 0,2,3],
			"color": [80, 80, 90],
			"opacity": 1.0
		}
	],
	"entities": [
		{"id": "bolt-a", "matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 100,0,0,1], "geometries": ["bolt"]},
		{"id": "bolt-b", "matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,100,1], "geometries": ["bolt"]},
		{"id": "plate-1", "geometries": ["plate"]}
	]
}`

func TestBuildModelDerivesReuse(t *testing.T) {
	doc, err := scene.ParseDocument([]byte(boltSceneDoc))
	require.NoError(t, err)

	m, err := BuildModel(doc, pack.DefaultOptions())
	require.NoError(t, err)

	require.Len(t, m.Primitives, 2)
	require.Len(t, m.Instances, 3)
	require.Len(t, m.Entities, 3)

	boltIdx, ok := m.PrimitiveIndex("bolt")
	require.True(t, ok)
	require.True(t, m.Primitives[boltIdx].Reused)
	// Object space: the modeling matrices are not baked in.
	require.Equal(t, float32(-0.5), m.Primitives[boltIdx].Positions[0])

	plateIdx, ok := m.PrimitiveIndex("plate")
	require.True(t, ok)
	require.False(t, m.Primitives[plateIdx].Reused)

	require.NoError(t, m.Validate())

	aIdx, ok := m.EntityIndex("bolt-a")
	require.True(t, ok)
	require.True(t, m.Entities[aIdx].HasReusedPrimitives)
	require.InDelta(t, 99.5, m.Entities[aIdx].AABB.Xmin, 1e-4)

	pIdx, ok := m.EntityIndex("plate-1")
	require.True(t, ok)
	require.False(t, m.Entities[pIdx].HasReusedPrimitives)
}

func TestBuildModelSkipsUnusedGeometry(t *testing.T) {
	doc, err := scene.ParseDocument([]byte(`{
		"geometries": [
			{"id": "used", "positions": [0,0,0, 1,0,0, 0,1,0], "normals": [0,0,1, 0,0,1, 0,0,1],
			 "indices": [0,1,2], "color": [1,2,3], "opacity": 1},
			{"id": "orphan", "positions": [0,0,0, 1,0,0, 0,1,0], "normals": [0,0,1, 0,0,1, 0,0,1],
			 "indices": [0,1,2], "color": [1,2,3], "opacity": 1}
		],
		"entities": [{"id": "e", "geometries": ["used"]}]
	}`))
	require.NoError(t, err)

	m, err := BuildModel(doc, pack.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, m.Primitives, 1)
	_, ok := m.PrimitiveIndex("orphan")
	require.False(t, ok)
}

func TestPackThenUnpackOnDisk(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "site.json")
	require.NoError(t, os.WriteFile(scenePath, []byte(boltSceneDoc), 0o644))

	opts := pack.DefaultOptions()
	opts.Input = scenePath
	opts.Output = filepath.Join(dir, "site.xkt")

	packer := NewPacker(tools.NewStandardFileFinder())
	require.NoError(t, packer.RunPacker(opts))

	data, err := os.ReadFile(opts.Output)
	require.NoError(t, err)

	rec := scene.NewRecorder()
	require.NoError(t, xkt.Parse(data, rec))
	require.Len(t, rec.Geometries, 1, "one shared bolt geometry")
	require.Len(t, rec.Meshes, 3)
	require.Len(t, rec.Entities, 3)
}

func TestEntityAABBFromDecodedMeshes(t *testing.T) {
	doc, err := scene.ParseDocument([]byte(boltSceneDoc))
	require.NoError(t, err)

	opts := pack.DefaultOptions()
	m, err := BuildModel(doc, opts)
	require.NoError(t, err)
	require.NoError(t, m.CreateTiles(opts.KDTreeMaxDepth))

	var buf bytes.Buffer
	require.NoError(t, xkt.EncodeToWriter(m, &buf))

	rec := scene.NewRecorder()
	require.NoError(t, xkt.Parse(buf.Bytes(), rec))

	geometries := make(map[int]scene.GeometryCfg, len(rec.Geometries))
	for _, g := range rec.Geometries {
		geometries[g.ID] = g
	}

	var sawBoltA bool
	for _, e := range rec.Entities {
		if e.ID != "bolt-a" {
			continue
		}
		sawBoltA = true
		box := entityAABB(rec, geometries, e)
		require.InDelta(t, 99.5, box.Xmin, 0.01)
		require.InDelta(t, 100.5, box.Xmax, 0.01)
		require.InDelta(t, -0.5, box.Zmin, 0.01)
	}
	require.True(t, sawBoltA)
}

func TestVerifyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "site.json")
	require.NoError(t, os.WriteFile(scenePath, []byte(boltSceneDoc), 0o644))

	opts := pack.DefaultOptions()
	opts.Input = scenePath

	verifier := NewVerifier(tools.NewStandardFileFinder())
	require.NoError(t, verifier.RunVerify(opts))
}
