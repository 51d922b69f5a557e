package pkg

import (
	"bytes"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/glog"

	"github.com/nachomanzano/goxkt/internal/geometry"
	"github.com/nachomanzano/goxkt/internal/model"
	"github.com/nachomanzano/goxkt/internal/pack"
	"github.com/nachomanzano/goxkt/internal/scene"
	"github.com/nachomanzano/goxkt/internal/xkt"
	"github.com/nachomanzano/goxkt/tools"
)

const ErrTypeVerifyFailed = "verify_failed"

// maxNormalErrorDegrees bounds the angular drift an oct-encoded normal may
// accumulate through a round-trip.
const maxNormalErrorDegrees = 2.0

type IVerifier interface {
	RunVerify(opts *pack.Options) error
}

type Verifier struct {
	fileFinder tools.FileFinder
}

func NewVerifier(fileFinder tools.FileFinder) IVerifier {
	return &Verifier{
		fileFinder: fileFinder,
	}
}

// RunVerify packs every matched scene document in memory, parses the result
// back and cross-checks the reconstruction against the built model: entity,
// mesh and geometry counts, plus per-vertex quantization and normal error
// bounds against the source geometry.
func (v *Verifier) RunVerify(opts *pack.Options) error {
	sceneFiles := v.fileFinder.GetSceneFilesToProcess(opts)
	if len(sceneFiles) == 0 {
		return errors.New("no scene documents found").
			WithType(scene.ErrTypeInvalidInput).
			WithTag("input", opts.Input)
	}

	for _, filePath := range sceneFiles {
		if err := v.verifySceneFile(filePath, opts); err != nil {
			return err
		}
	}
	tools.LogOutput("Verify package round-trip success.")
	return nil
}

func (v *Verifier) verifySceneFile(filePath string, opts *pack.Options) error {
	glog.Infoln("> reading scene document...", filePath)
	doc, err := scene.ReadDocument(filePath)
	if err != nil {
		return err
	}

	m, err := BuildModel(doc, opts)
	if err != nil {
		return err
	}
	if err := m.CreateTiles(opts.KDTreeMaxDepth); err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := xkt.EncodeToWriter(m, &buf); err != nil {
		return err
	}
	glog.Infof("encoded package size:[%d] bytes", buf.Len())

	rec := scene.NewRecorder()
	if err := xkt.Parse(buf.Bytes(), rec); err != nil {
		return err
	}

	// Every entity with at least one instance must come back, under its
	// original id.
	wantEntities := 0
	for _, e := range m.Entities {
		if len(e.Instances) > 0 {
			wantEntities++
		}
	}
	if len(rec.Entities) != wantEntities {
		return errors.New("entity count mismatch after round-trip").
			WithType(ErrTypeVerifyFailed).
			WithTag("want", wantEntities).
			WithTag("got", len(rec.Entities))
	}
	for _, e := range rec.Entities {
		if _, ok := m.EntityIndex(e.ID); !ok {
			return errors.New("parsed entity id not present in source model").
				WithType(ErrTypeVerifyFailed).
				WithTag("entity_id", e.ID)
		}
	}

	if len(rec.Meshes) != len(m.Instances) {
		return errors.New("mesh count does not match instance count").
			WithType(ErrTypeVerifyFailed).
			WithTag("want", len(m.Instances)).
			WithTag("got", len(rec.Meshes))
	}

	reusedPrimitives := 0
	for _, p := range m.Primitives {
		if p.Reused {
			reusedPrimitives++
		}
	}
	if len(rec.Geometries) != reusedPrimitives {
		return errors.New("geometry count does not match reused primitive count").
			WithType(ErrTypeVerifyFailed).
			WithTag("want", reusedPrimitives).
			WithTag("got", len(rec.Geometries))
	}

	if err := verifyGeometryRoundTrip(m, rec); err != nil {
		return err
	}

	glog.Infof("verified %s: entities:[%d] meshes:[%d] geometries:[%d]",
		filePath, len(rec.Entities), len(rec.Meshes), len(rec.Geometries))
	return nil
}

// verifyGeometryRoundTrip replays the decoder's tile/entity/instance walk,
// which is also the order mesh ids were allocated in, and diffs every
// reconstructed vertex and normal against the source primitive: positions
// must land within one quantization step per axis, normals within the
// octahedral error bound.
func verifyGeometryRoundTrip(m *model.Model, rec *scene.Recorder) error {
	geometries := make(map[int]scene.GeometryCfg, len(rec.Geometries))
	for _, g := range rec.Geometries {
		geometries[g.ID] = g
	}

	meshID := 0
	for _, tile := range m.Tiles {
		for _, eIdx := range tile.Entities {
			for _, instIdx := range m.Entities[eIdx].Instances {
				p := m.Primitives[m.Instances[instIdx].Primitive]

				mesh, ok := rec.Mesh(meshID)
				if !ok {
					return errors.New("mesh missing from parsed package").
						WithType(ErrTypeVerifyFailed).
						WithTag("mesh_id", meshID)
				}
				meshID++

				quantized := mesh.Positions
				normals := mesh.Normals
				decode := mesh.PositionsDecodeMatrix
				if mesh.GeometryID >= 0 {
					g, ok := geometries[mesh.GeometryID]
					if !ok {
						return errors.New("mesh references a geometry the parser never created").
							WithType(ErrTypeVerifyFailed).
							WithTag("geometry_id", mesh.GeometryID)
					}
					quantized = g.Positions
					normals = g.Normals
					decode = g.PositionsDecodeMatrix
				}

				if err := verifyPositionsWithinOneStep(p, quantized, decode); err != nil {
					return err
				}
				if err := verifyNormalsWithinBound(p, normals); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func verifyPositionsWithinOneStep(p *model.Primitive, quantized []uint16, decode mgl32.Mat4) error {
	if len(quantized) != len(p.Positions) {
		return errors.New("vertex count changed across round-trip").
			WithType(ErrTypeVerifyFailed).
			WithTag("primitive_id", p.ID).
			WithTag("want", len(p.Positions)).
			WithTag("got", len(quantized))
	}

	// One quantization step per axis is the decode matrix scale; allow a
	// little float32 slack on top.
	tolerance := [3]float64{
		math.Abs(float64(decode[0])) + 1e-4,
		math.Abs(float64(decode[5])) + 1e-4,
		math.Abs(float64(decode[10])) + 1e-4,
	}

	for i := 0; i < len(quantized); i += 3 {
		v := geometry.Dequantize(quantized[i], quantized[i+1], quantized[i+2], decode)
		got := [3]float64{float64(v.X()), float64(v.Y()), float64(v.Z())}
		for axis := 0; axis < 3; axis++ {
			want := float64(p.Positions[i+axis])
			if math.Abs(got[axis]-want) > tolerance[axis] {
				return errors.New("position drifted beyond one quantization step").
					WithType(ErrTypeVerifyFailed).
					WithTag("primitive_id", p.ID).
					WithTag("vertex", i/3).
					WithTag("axis", axis).
					WithTag("want", want).
					WithTag("got", got[axis])
			}
		}
	}
	return nil
}

func verifyNormalsWithinBound(p *model.Primitive, oct []int8) error {
	if len(oct) != len(p.Normals)/3*2 {
		return errors.New("normal count changed across round-trip").
			WithType(ErrTypeVerifyFailed).
			WithTag("primitive_id", p.ID).
			WithTag("want", len(p.Normals)/3*2).
			WithTag("got", len(oct))
	}

	minDot := math.Cos(maxNormalErrorDegrees * math.Pi / 180)
	for i := 0; i < len(oct); i += 2 {
		dx, dy, dz := geometry.OctDecode(oct[i], oct[i+1])
		j := i / 2 * 3
		dot := float64(dx*p.Normals[j] + dy*p.Normals[j+1] + dz*p.Normals[j+2])
		if dot < minDot {
			return errors.New("normal drifted beyond the octahedral error bound").
				WithType(ErrTypeVerifyFailed).
				WithTag("primitive_id", p.ID).
				WithTag("vertex", i/2).
				WithTag("dot", dot)
		}
	}
	return nil
}
