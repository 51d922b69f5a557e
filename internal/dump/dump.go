// Package dump exports one debug PLY mesh per tile. Tiles are produced onto
// a work channel and written by a pool of consumers.
package dump

import (
	"fmt"
	"path"
	"runtime"
	"sync"

	"github.com/golang/glog"

	"github.com/nachomanzano/goxkt/internal/geometry"
	"github.com/nachomanzano/goxkt/internal/model"
	"github.com/nachomanzano/goxkt/internal/ply"
)

// A WorkUnit carries one tile to dump and where to put it.
type WorkUnit struct {
	TileIndex int
	Path      string
}

// DumpTiles writes dir/tile-N.ply for every tile of a tiled model.
func DumpTiles(m *model.Model, dir string) error {
	workchan := make(chan *WorkUnit, len(m.Tiles))
	errchan := make(chan error, len(m.Tiles))

	var wg sync.WaitGroup
	consumers := runtime.NumCPU()
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go consume(m, workchan, errchan, &wg)
	}

	for i := range m.Tiles {
		workchan <- &WorkUnit{
			TileIndex: i,
			Path:      path.Join(dir, fmt.Sprintf("tile-%d.ply", i)),
		}
	}
	close(workchan)
	wg.Wait()

	select {
	case err := <-errchan:
		return err
	default:
		return nil
	}
}

// consume drains the work channel writing tile meshes until it is closed.
// The first error is reported on the error channel.
func consume(m *model.Model, workchan chan *WorkUnit, errchan chan error, wg *sync.WaitGroup) {
	defer wg.Done()
	for work := range workchan {
		if err := writeTile(m, work); err != nil {
			errchan <- err
			return
		}
	}
}

func writeTile(m *model.Model, work *WorkUnit) error {
	tile := m.Tiles[work.TileIndex]

	var verts []ply.Vertex
	var faces []uint32
	for _, eIdx := range tile.Entities {
		e := m.Entities[eIdx]
		for _, instIdx := range e.Instances {
			p := m.Primitives[m.Instances[instIdx].Primitive]
			decode := tile.DecodeMatrix
			if p.Reused {
				decode = m.InstancedDecodeMatrix
			}
			base := uint32(len(verts))
			for i := 0; i < len(p.PositionsQuantized); i += 3 {
				v := geometry.Dequantize(p.PositionsQuantized[i], p.PositionsQuantized[i+1],
					p.PositionsQuantized[i+2], decode)
				if p.Reused {
					v = e.Matrix.Mul4x1(v.Vec4(1)).Vec3()
				}
				verts = append(verts, ply.Vertex{
					X: v.X(), Y: v.Y(), Z: v.Z(),
					R: p.Color[0], G: p.Color[1], B: p.Color[2],
				})
			}
			for _, idx := range p.Indices {
				faces = append(faces, base+idx)
			}
		}
	}

	if err := ply.WritePlyFile(work.Path, verts, faces); err != nil {
		return err
	}
	glog.Infof("dumped tile %d (%d vertices) to %s", work.TileIndex, len(verts), work.Path)
	return nil
}
