// Package ply writes simple colored triangle meshes as ASCII PLY files,
// used by the tile dump path for eyeballing tiler output.
package ply

import (
	"bufio"
	"fmt"
	"os"
)

type Vertex struct {
	X float32
	Y float32
	Z float32
	R uint8
	G uint8
	B uint8
}

// WritePlyFile writes vertices and a triangle list to path. The face list
// may be empty, in which case only the vertex cloud is written.
func WritePlyFile(path string, verts []Vertex, faces []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "ply")
	fmt.Fprintln(w, "format ascii 1.0")
	fmt.Fprintf(w, "element vertex %d\n", len(verts))
	fmt.Fprintln(w, "property float x")
	fmt.Fprintln(w, "property float y")
	fmt.Fprintln(w, "property float z")
	fmt.Fprintln(w, "property uchar red")
	fmt.Fprintln(w, "property uchar green")
	fmt.Fprintln(w, "property uchar blue")
	fmt.Fprintf(w, "element face %d\n", len(faces)/3)
	fmt.Fprintln(w, "property list uchar int vertex_indices")
	fmt.Fprintln(w, "end_header")

	for _, v := range verts {
		fmt.Fprintf(w, "%g %g %g %d %d %d\n", v.X, v.Y, v.Z, v.R, v.G, v.B)
	}
	for i := 0; i+2 < len(faces); i += 3 {
		fmt.Fprintf(w, "3 %d %d %d\n", faces[i], faces[i+1], faces[i+2])
	}
	return w.Flush()
}
