package pkg

import (
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/golang/glog"

	"github.com/nachomanzano/goxkt/internal/geometry"
	"github.com/nachomanzano/goxkt/internal/scene"
	"github.com/nachomanzano/goxkt/internal/xkt"
	"github.com/nachomanzano/goxkt/tools"
)

type IUnpacker interface {
	RunUnpacker(inputPath string) error
}

type Unpacker struct{}

func NewUnpacker() IUnpacker {
	return &Unpacker{}
}

// unpackSummary is what the unpack command prints after a parse. Entity
// AABBs are recomputed from the dequantized meshes, in the entity order of
// the package.
type unpackSummary struct {
	Geometries  int          `json:"geometries"`
	Meshes      int          `json:"meshes"`
	Entities    int          `json:"entities"`
	EntityIDs   []string     `json:"entity_ids"`
	EntityAABBs [][6]float64 `json:"entity_aabbs"`
}

// RunUnpacker parses a package into a recording builder and prints what it
// contains.
func (u *Unpacker) RunUnpacker(inputPath string) error {
	tools.LogOutput("> reading package...", inputPath)
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return errors.New("reading package file failed").
			WithTag("path", inputPath).
			Wrap(err)
	}

	rec := scene.NewRecorder()
	if err := xkt.Parse(data, rec); err != nil {
		return err
	}

	summary := unpackSummary{
		Geometries: len(rec.Geometries),
		Meshes:     len(rec.Meshes),
		Entities:   len(rec.Entities),
	}
	geometries := make(map[int]scene.GeometryCfg, len(rec.Geometries))
	for _, g := range rec.Geometries {
		geometries[g.ID] = g
	}
	for _, e := range rec.Entities {
		summary.EntityIDs = append(summary.EntityIDs, e.ID)
		summary.EntityAABBs = append(summary.EntityAABBs, entityAABB(rec, geometries, e).Array())
	}

	glog.Infof("parsed package %s: %s", inputPath, tools.FmtJSONString(summary))
	tools.LogOutput("package summary:", tools.FmtJSONString(summary))
	return nil
}

// entityAABB reconstructs an entity's world-space box from its decoded
// meshes: inline meshes dequantize through their own matrix, instanced ones
// through their geometry's decode matrix followed by the mesh transform.
func entityAABB(rec *scene.Recorder, geometries map[int]scene.GeometryCfg, e scene.EntityCfg) geometry.AABB {
	box := geometry.EmptyAABB()
	for _, meshID := range e.MeshIDs {
		mesh, ok := rec.Mesh(meshID)
		if !ok {
			continue
		}
		quantized := mesh.Positions
		decode := mesh.PositionsDecodeMatrix
		instanced := mesh.GeometryID >= 0
		if instanced {
			g, found := geometries[mesh.GeometryID]
			if !found {
				continue
			}
			quantized = g.Positions
			decode = g.PositionsDecodeMatrix
		}
		for i := 0; i+2 < len(quantized); i += 3 {
			v := geometry.Dequantize(quantized[i], quantized[i+1], quantized[i+2], decode)
			if instanced {
				v = mesh.Matrix.Mul4x1(v.Vec4(1)).Vec3()
			}
			box.ExpandPoint(float64(v.X()), float64(v.Y()), float64(v.Z()))
		}
	}
	if box.IsEmpty() {
		return geometry.NewAABB(0, 0, 0, 0, 0, 0)
	}
	return box
}
