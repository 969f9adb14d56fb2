package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Band is one raster band as delivered by the raster reader. A band is either
// a single scalar (no spatial variation) or a dense per-pixel array.
type Band struct {
	Scalar *float64
	Values []float64
}

// ScalarBand returns a degenerate band holding a single value.
func ScalarBand(v float64) Band {
	return Band{Scalar: &v}
}

// ArrayBand returns a band backed by per-pixel values.
func ArrayBand(values []float64) Band {
	return Band{Values: values}
}

// IsScalar reports whether the band carries a single value instead of pixels.
func (b Band) IsScalar() bool {
	return b.Scalar != nil
}

// UnmarshalJSON accepts either a number or an array of numbers. Null array
// entries are nodata and decode as NaN so they never equal the hazard value.
func (b *Band) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []*float64
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode band values: %w", err)
		}
		values := make([]float64, len(raw))
		for i, v := range raw {
			if v == nil {
				values[i] = math.NaN()
				continue
			}
			values[i] = *v
		}
		*b = ArrayBand(values)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode band scalar: %w", err)
	}
	*b = ScalarBand(v)
	return nil
}

// MarshalJSON writes scalar bands as a number and array bands as an array.
// NaN entries are written as null.
func (b Band) MarshalJSON() ([]byte, error) {
	if b.IsScalar() {
		return json.Marshal(*b.Scalar)
	}
	out := make([]*float64, len(b.Values))
	for i := range b.Values {
		if math.IsNaN(b.Values[i]) {
			continue
		}
		out[i] = &b.Values[i]
	}
	return json.Marshal(out)
}

// RasterInput is a decoded multi-band raster with its georeferencing, as
// handed over by the file reader.
type RasterInput struct {
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Bands      []Band    `json:"bands"`
	BBox       []float64 `json:"bbox"`
	Resolution []float64 `json:"resolution,omitempty"`
	CRS        string    `json:"crs,omitempty"`
}

// Resolution is the signed ground distance per pixel along each axis.
type Resolution struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RasterMask is a single-band boolean hazard grid aligned to a bounding box.
// It is immutable once decoded and safe for concurrent readers.
type RasterMask struct {
	width      int
	height     int
	cells      []bool
	bounds     orb.Bound
	resolution Resolution
	derived    bool
	crs        string
	hazards    int
}

// Width returns the number of pixel columns.
func (m *RasterMask) Width() int { return m.width }

// Height returns the number of pixel rows.
func (m *RasterMask) Height() int { return m.height }

// Bounds returns the bounding box in the raster's native coordinates.
func (m *RasterMask) Bounds() orb.Bound { return m.bounds }

// Resolution returns the pixel resolution.
func (m *RasterMask) Resolution() Resolution { return m.resolution }

// ResolutionDerived reports whether the resolution was approximated from the
// bounding box because the source did not supply a usable one.
func (m *RasterMask) ResolutionDerived() bool { return m.derived }

// CRS returns the coordinate-reference label, "Unknown" when none was given.
func (m *RasterMask) CRS() string { return m.crs }

// HazardCount returns the number of hazard-present cells.
func (m *RasterMask) HazardCount() int { return m.hazards }

// Contains reports whether p lies inside the bounding box, edges included.
func (m *RasterMask) Contains(p orb.Point) bool { return m.bounds.Contains(p) }

// At reports whether the cell at (x, y) is hazard-present. Out-of-range
// indices are hazard-absent.
func (m *RasterMask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.cells[y*m.width+x]
}

// Cells returns a copy of the row-major mask buffer for visualization.
func (m *RasterMask) Cells() []bool {
	out := make([]bool, len(m.cells))
	copy(out, m.cells)
	return out
}
