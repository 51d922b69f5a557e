package scene

import (
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const ErrTypeInvalidInput = "invalid_input"

// A Document is the pre-resolved view of a source scene: flat triangle
// meshes, modeling matrices and product metadata, with the scene-graph
// hierarchy already collapsed by the exporter that produced it.
type Document struct {
	Geometries []SourceGeometry `json:"geometries"`
	Entities   []SourceEntity   `json:"entities"`
}

type SourceGeometry struct {
	ID        string    `json:"id"`
	Positions []float32 `json:"positions"`
	Normals   []float32 `json:"normals"`
	Indices   []uint32  `json:"indices"`
	Color     [3]uint8  `json:"color"`
	Opacity   float64   `json:"opacity"`
}

type SourceEntity struct {
	ID string `json:"id"`
	// Column-major 4x4 modeling matrix; nil means identity.
	Matrix     *[16]float32 `json:"matrix,omitempty"`
	Geometries []string     `json:"geometries"`
}

// ReadDocument parses a scene document from a file.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("reading scene document failed").
			WithType(ErrTypeInvalidInput).
			WithTag("path", path).
			Wrap(err)
	}
	return ParseDocument(data)
}

// ParseDocument parses a scene document from raw JSON.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("scene document is not valid JSON").
			WithType(ErrTypeInvalidInput).
			Wrap(err)
	}
	if len(doc.Geometries) == 0 || len(doc.Entities) == 0 {
		return nil, errors.New("scene document has no geometry or no entities").
			WithType(ErrTypeInvalidInput).
			WithTag("geometries", len(doc.Geometries)).
			WithTag("entities", len(doc.Entities))
	}
	return &doc, nil
}

// GeometryUseCounts tallies how many entities reference each geometry id.
func (d *Document) GeometryUseCounts() map[string]int {
	counts := make(map[string]int, len(d.Geometries))
	for _, e := range d.Entities {
		for _, gid := range e.Geometries {
			counts[gid]++
		}
	}
	return counts
}
