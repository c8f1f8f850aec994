package geo

import (
	"errors"

	"github.com/dota-timeslice/replay-sampler/pkg/replay"
	geom "github.com/peterstace/simplefeatures/geom"
)

// GEO POINTS
// Entity origins are networked as a coarse cell index plus a fine offset inside
// the cell. Decoded positions are planar world units divided by the cell width,
// so they are stored as plain XY points without an SRID.

// CellWidth is the size of one networked origin cell.
const CellWidth = 128

// Body component field paths carrying the networked origin.
const (
	CellXPath = "CBodyComponent.m_cellX"
	CellYPath = "CBodyComponent.m_cellY"
	VecXPath  = "CBodyComponent.m_vecX"
	VecYPath  = "CBodyComponent.m_vecY"
)

// ErrMissingCoordinate is returned when an entity does not report all origin fields
var ErrMissingCoordinate = errors.New("missing coordinate field")

// DecodeCoord combines a cell index and an in-cell offset into one coordinate
func DecodeCoord(cell int, offset float32) float32 {
	return (float32(cell)*CellWidth + offset) / CellWidth
}

// Position decodes the x and y coordinates of an entity
func Position(e replay.Entity) (x, y float32, err error) {
	cx, okCX := replay.Int(e, CellXPath)
	cy, okCY := replay.Int(e, CellYPath)
	vx, okVX := replay.Float(e, VecXPath)
	vy, okVY := replay.Float(e, VecYPath)
	if !okCX || !okCY || !okVX || !okVY {
		return 0, 0, ErrMissingCoordinate
	}
	return DecodeCoord(cx, vx), DecodeCoord(cy, vy), nil
}

// Point creates an XY point from a decoded position. Coordinates that do not
// form a valid point (NaN or infinite) yield an empty point.
func Point(x, y float32) geom.Point {
	pt, err := geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: float64(x), Y: float64(y)},
			Type: geom.DimXY,
		},
	)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY)
	}
	return pt
}

// OptionalPoint returns an empty point when either coordinate is unknown
func OptionalPoint(x, y *float32) geom.Point {
	if x == nil || y == nil {
		return geom.NewEmptyPoint(geom.DimXY)
	}
	return Point(*x, *y)
}
