package domain

import (
	"math"

	"github.com/paulmach/orb"
)

// Pixel is a column/row index into a raster grid. Row 0 is the northern edge.
type Pixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ToPixel maps a geographic point to pixel indices within a width x height
// grid spanning b. The result is not clamped: points outside the box map to
// indices outside [0,width) x [0,height), and a point exactly on the max edge
// maps to index width (or row 0 for maxY).
func ToPixel(p orb.Point, b orb.Bound, width, height int) (Pixel, error) {
	if err := checkBounds(b); err != nil {
		return Pixel{}, err
	}
	fx := (p.Lon() - b.Min[0]) / (b.Max[0] - b.Min[0])
	fy := 1 - (p.Lat()-b.Min[1])/(b.Max[1]-b.Min[1])
	return Pixel{
		X: int(math.Floor(fx * float64(width))),
		Y: int(math.Floor(fy * float64(height))),
	}, nil
}

// ToGeo returns the geographic centre of a pixel. It is the inverse of
// ToPixel up to the pixel cell: ToPixel(ToGeo(px)) == px.
func ToGeo(px Pixel, b orb.Bound, width, height int) (orb.Point, error) {
	if err := checkBounds(b); err != nil {
		return orb.Point{}, err
	}
	fx := (float64(px.X) + 0.5) / float64(width)
	fy := (float64(px.Y) + 0.5) / float64(height)
	return orb.Point{
		b.Min[0] + fx*(b.Max[0]-b.Min[0]),
		b.Min[1] + (1-fy)*(b.Max[1]-b.Min[1]),
	}, nil
}

// ToPixel maps p onto this mask's grid.
func (m *RasterMask) ToPixel(p orb.Point) (Pixel, error) {
	return ToPixel(p, m.bounds, m.width, m.height)
}

// ToGeo returns the centre of px on this mask's grid.
func (m *RasterMask) ToGeo(px Pixel) (orb.Point, error) {
	return ToGeo(px, m.bounds, m.width, m.height)
}
