package pkg

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/glog"

	"github.com/nachomanzano/goxkt/internal/converters"
	"github.com/nachomanzano/goxkt/internal/dump"
	"github.com/nachomanzano/goxkt/internal/model"
	"github.com/nachomanzano/goxkt/internal/pack"
	"github.com/nachomanzano/goxkt/internal/scene"
	"github.com/nachomanzano/goxkt/internal/xkt"
	"github.com/nachomanzano/goxkt/tools"
)

type IPacker interface {
	RunPacker(opts *pack.Options) error
}

type Packer struct {
	fileFinder tools.FileFinder
	converter  converters.CoordinateConverter
}

func NewPacker(fileFinder tools.FileFinder) IPacker {
	return &Packer{
		fileFinder: fileFinder,
	}
}

// RunPacker converts every matched scene document into a package file.
func (p *Packer) RunPacker(opts *pack.Options) error {
	glog.Infoln("Preparing list of files to process...")

	sceneFiles := p.fileFinder.GetSceneFilesToProcess(opts)
	glog.Infoln("scene_file list", sceneFiles)
	for i, filePath := range sceneFiles {
		glog.Infof("scene_file path %d [%s]", i+1, filePath)
	}
	if len(sceneFiles) == 0 {
		return errors.New("no scene documents found").
			WithType(scene.ErrTypeInvalidInput).
			WithTag("input", opts.Input)
	}

	if opts.SourceSrid != 0 && opts.TargetSrid != 0 {
		p.converter = converters.NewProj4CoordinateConverter()
		defer p.converter.Cleanup()
	}

	for i, filePath := range sceneFiles {
		tools.LogOutput("Processing file " + strconv.Itoa(i+1) + "/" + strconv.Itoa(len(sceneFiles)))
		if err := p.processSceneFile(filePath, opts, len(sceneFiles) > 1); err != nil {
			return err
		}
	}
	return nil
}

func (p *Packer) processSceneFile(filePath string, opts *pack.Options, multiFile bool) error {
	tools.LogOutput("> reading scene document...", filepath.Base(filePath))
	doc, err := scene.ReadDocument(filePath)
	if err != nil {
		return err
	}

	if err := p.prepareDocument(doc, opts); err != nil {
		return err
	}

	tools.LogOutput("> building model...")
	m, err := BuildModel(doc, opts)
	if err != nil {
		return err
	}

	tools.LogOutput("> partitioning into tiles...")
	if err := m.CreateTiles(opts.KDTreeMaxDepth); err != nil {
		return err
	}
	glog.Infof("model primitives:[%d] instances:[%d] entities:[%d] tiles:[%d]",
		len(m.Primitives), len(m.Instances), len(m.Entities), len(m.Tiles))

	tools.LogOutput("> writing package...")
	outPath := packageOutputPath(filePath, opts, multiFile)
	if err := writePackageFile(m, outPath); err != nil {
		return err
	}
	tools.LogOutput("> done processing", filepath.Base(filePath), "->", outPath)

	if opts.DumpTilesDir != "" {
		if err := tools.CreateDirectoryIfDoesNotExist(opts.DumpTilesDir); err != nil {
			return err
		}
		if err := dump.DumpTiles(m, opts.DumpTilesDir); err != nil {
			return err
		}
	}
	return nil
}

// prepareDocument applies the optional ingest-side coordinate stages to the
// scene document before the model is built.
func (p *Packer) prepareDocument(doc *scene.Document, opts *pack.Options) error {
	reproject := p.converter != nil
	if !reproject && opts.ZOffset == 0 {
		return nil
	}

	if reproject {
		// Reprojection only makes sense for fully world-space documents: a
		// projected CRS does not commute with per-entity modeling matrices.
		for _, e := range doc.Entities {
			if e.Matrix != nil && mgl32.Mat4(*e.Matrix) != mgl32.Ident4() {
				return errors.New("reprojection requires a world-space scene document").
					WithType(scene.ErrTypeInvalidInput).
					WithTag("entity_id", e.ID)
			}
		}
	}

	corrector := converters.NewOffsetElevationCorrector(opts.ZOffset)
	for gi := range doc.Geometries {
		positions := doc.Geometries[gi].Positions
		for i := 0; i+2 < len(positions); i += 3 {
			x, y, z := float64(positions[i]), float64(positions[i+1]), float64(positions[i+2])
			if reproject {
				var err error
				x, y, z, err = p.converter.ConvertSrid(opts.SourceSrid, opts.TargetSrid, x, y, z)
				if err != nil {
					return err
				}
			}
			z = corrector.CorrectElevation(x, y, z)
			positions[i], positions[i+1], positions[i+2] = float32(x), float32(y), float32(z)
		}
	}
	return nil
}

// BuildModel turns a scene document into a model: geometries referenced by
// two or more entities become shared object-space primitives, the rest are
// baked into world space with their single owner's matrix.
func BuildModel(doc *scene.Document, opts *pack.Options) (*model.Model, error) {
	m := model.New()
	if opts.EdgeThresholdDegrees > 0 {
		m.EdgeThresholdDegrees = opts.EdgeThresholdDegrees
	}

	useCounts := doc.GeometryUseCounts()
	ownerMatrix := make(map[string]mgl32.Mat4, len(doc.Geometries))
	for _, e := range doc.Entities {
		for _, gid := range e.Geometries {
			ownerMatrix[gid] = entityMatrix(e)
		}
	}

	for _, g := range doc.Geometries {
		uses := useCounts[g.ID]
		if uses == 0 {
			glog.Warningf("geometry %s is referenced by no entity, skipping", g.ID)
			continue
		}
		matrix := mgl32.Ident4()
		if uses == 1 {
			matrix = ownerMatrix[g.ID]
		}
		_, err := m.CreatePrimitive(g.ID, uses > 1, matrix, g.Color, g.Opacity,
			g.Positions, g.Normals, g.Indices)
		if err != nil {
			return nil, err
		}
	}

	for _, e := range doc.Entities {
		hasReused := false
		for _, gid := range e.Geometries {
			if useCounts[gid] > 1 {
				hasReused = true
				break
			}
		}
		if _, err := m.CreateEntity(e.ID, entityMatrix(e), e.Geometries, hasReused); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func entityMatrix(e scene.SourceEntity) mgl32.Mat4 {
	if e.Matrix == nil {
		return mgl32.Ident4()
	}
	return mgl32.Mat4(*e.Matrix)
}

func packageOutputPath(scenePath string, opts *pack.Options, multiFile bool) string {
	if opts.Output != "" && !multiFile && filepath.Ext(opts.Output) != "" {
		return opts.Output
	}
	base := getFilenameWithoutExtension(scenePath) + ".xkt"
	if opts.Output != "" {
		return filepath.Join(opts.Output, base)
	}
	return filepath.Join(filepath.Dir(scenePath), base)
}

func getFilenameWithoutExtension(filePath string) string {
	nameWext := filepath.Base(filePath)
	extension := filepath.Ext(nameWext)
	return nameWext[0 : len(nameWext)-len(extension)]
}

func writePackageFile(m *model.Model, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return errors.New("creating package file failed").
			WithTag("path", outPath).
			Wrap(err)
	}
	if err := xkt.EncodeToWriter(m, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
