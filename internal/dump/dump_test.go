package dump

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/nachomanzano/goxkt/internal/model"
)

func TestDumpTilesWritesOneFilePerTile(t *testing.T) {
	m := model.New()
	positions := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	normals := []float32{0, 0, 1, 0, 0, 1, 0, 0, 1}
	indices := []uint32{0, 1, 2}

	_, err := m.CreatePrimitive("tri", false, mgl32.Ident4(), [3]uint8{10, 20, 30}, 1, positions, normals, indices)
	require.NoError(t, err)
	_, err = m.CreateEntity("e", mgl32.Ident4(), []string{"tri"}, false)
	require.NoError(t, err)
	require.NoError(t, m.CreateTiles(5))

	dir := t.TempDir()
	require.NoError(t, DumpTiles(m, dir))

	require.Len(t, m.Tiles, 1)
	info, err := os.Stat(filepath.Join(dir, "tile-0.ply"))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}
