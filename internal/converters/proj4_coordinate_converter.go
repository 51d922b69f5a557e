package converters

import (
	"fmt"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	proj "github.com/xeonx/proj4"
)

const ErrTypeProjection = "projection_error"

type proj4CoordinateConverter struct {
	projections map[int]*proj.Proj
}

// NewProj4CoordinateConverter returns a proj4-backed converter. Projections
// are initialized lazily per EPSG code and cached until Cleanup.
func NewProj4CoordinateConverter() CoordinateConverter {
	return &proj4CoordinateConverter{
		projections: make(map[int]*proj.Proj),
	}
}

func (c *proj4CoordinateConverter) projection(srid int) (*proj.Proj, error) {
	if p, ok := c.projections[srid]; ok {
		return p, nil
	}
	p, err := proj.InitPlus(fmt.Sprintf("+init=epsg:%d", srid))
	if err != nil {
		return nil, errors.New("initializing projection failed").
			WithType(ErrTypeProjection).
			WithTag("srid", srid).
			Wrap(err)
	}
	c.projections[srid] = p
	return p, nil
}

func (c *proj4CoordinateConverter) ConvertSrid(sourceSrid int, targetSrid int, x, y, z float64) (float64, float64, float64, error) {
	if sourceSrid == targetSrid {
		return x, y, z, nil
	}
	source, err := c.projection(sourceSrid)
	if err != nil {
		return 0, 0, 0, err
	}
	target, err := c.projection(targetSrid)
	if err != nil {
		return 0, 0, 0, err
	}

	xs := []float64{x}
	ys := []float64{y}
	zs := []float64{z}
	if source.IsLatLong() {
		xs[0] *= math.Pi / 180
		ys[0] *= math.Pi / 180
	}
	if err := proj.TransformRaw(source, target, xs, ys, zs); err != nil {
		return 0, 0, 0, errors.New("coordinate transform failed").
			WithType(ErrTypeProjection).
			WithTag("source_srid", sourceSrid).
			WithTag("target_srid", targetSrid).
			Wrap(err)
	}
	if target.IsLatLong() {
		xs[0] *= 180 / math.Pi
		ys[0] *= 180 / math.Pi
	}
	return xs[0], ys[0], zs[0], nil
}

func (c *proj4CoordinateConverter) Cleanup() {
	for _, p := range c.projections {
		p.Close()
	}
	c.projections = make(map[int]*proj.Proj)
}
