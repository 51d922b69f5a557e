// Package pack carries the options shared by the packaging commands.
package pack

import (
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nachomanzano/goxkt/internal/geometry"
	"github.com/nachomanzano/goxkt/internal/kdtree"
)

// Options control the packaging pipeline. Zero SRIDs disable reprojection.
type Options struct {
	Input  string `yaml:"input"`  // scene document file or folder
	Output string `yaml:"output"` // package file or folder

	FolderProcessing bool `yaml:"folder_processing"` // process every scene document in the input folder
	Recursive        bool `yaml:"recursive"`         // recursive scene document lookup

	KDTreeMaxDepth       int     `yaml:"kd_tree_max_depth"`
	EdgeThresholdDegrees float64 `yaml:"edge_threshold_degrees"`

	SourceSrid int     `yaml:"source_srid"`
	TargetSrid int     `yaml:"target_srid"`
	ZOffset    float64 `yaml:"z_offset"`

	DumpTilesDir string `yaml:"dump_tiles_dir"` // when set, write per-tile debug meshes here
}

func DefaultOptions() *Options {
	return &Options{
		KDTreeMaxDepth:       kdtree.DefaultMaxDepth,
		EdgeThresholdDegrees: geometry.DefaultEdgeThresholdDegrees,
	}
}

// LoadFile merges a YAML options file over o. Flags applied afterwards by
// the caller take priority over both.
func (o *Options) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New("reading options file failed").
			WithTag("path", path).
			Wrap(err)
	}
	if err := yaml.Unmarshal(data, o); err != nil {
		return errors.New("options file is not valid YAML").
			WithTag("path", path).
			Wrap(err)
	}
	return nil
}
