package ply

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWritePlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.ply")
	verts := []Vertex{
		{X: 0, Y: 0, Z: 0, R: 255, G: 0, B: 0},
		{X: 1, Y: 0, Z: 0, R: 0, G: 255, B: 0},
		{X: 0, Y: 1, Z: 0.5, R: 0, G: 0, B: 255},
	}
	require.NoError(t, WritePlyFile(path, verts, []uint32{0, 1, 2}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	require.True(t, strings.HasPrefix(content, "ply\nformat ascii 1.0\n"))
	require.Contains(t, content, "element vertex 3")
	require.Contains(t, content, "element face 1")
	require.Contains(t, content, "0 1 0.5 0 0 255")
	require.Contains(t, content, "3 0 1 2")
}

func TestWritePlyFileNoFaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloud.ply")
	require.NoError(t, WritePlyFile(path, []Vertex{{X: 1, Y: 2, Z: 3}}, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "element face 0")
}
