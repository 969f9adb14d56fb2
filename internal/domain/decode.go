package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// UnknownCRS labels rasters delivered without a coordinate-reference descriptor.
const UnknownCRS = "Unknown"

// DecodeMask builds a RasterMask from band 0 of the input. A pixel is
// hazard-present only when its value equals hazardValue exactly; every other
// value, including nodata and fractional confidences, is hazard-absent.
func DecodeMask(in RasterInput, hazardValue float64) (*RasterMask, error) {
	if len(in.Bands) == 0 {
		return nil, fmt.Errorf("decode mask: no bands: %w", ErrInvalidRasterData)
	}
	band := in.Bands[0]
	if band.IsScalar() {
		return nil, fmt.Errorf("decode mask: band 0 is a scalar: %w", ErrInvalidRasterData)
	}
	if in.Width <= 0 || in.Height <= 0 {
		return nil, fmt.Errorf("decode mask: dimensions %dx%d: %w", in.Width, in.Height, ErrInvalidRasterData)
	}
	if in.Width > math.MaxInt/in.Height {
		return nil, fmt.Errorf("decode mask: dimensions %dx%d overflow: %w", in.Width, in.Height, ErrInvalidRasterData)
	}
	if len(band.Values) != in.Width*in.Height {
		return nil, fmt.Errorf("decode mask: band 0 has %d values, want %d: %w",
			len(band.Values), in.Width*in.Height, ErrInvalidRasterData)
	}

	bounds, err := parseBBox(in.BBox)
	if err != nil {
		return nil, fmt.Errorf("decode mask: %w", err)
	}

	cells := make([]bool, len(band.Values))
	hazards := 0
	for i, v := range band.Values {
		if v == hazardValue {
			cells[i] = true
			hazards++
		}
	}

	res, derived := resolveResolution(in.Resolution, bounds, in.Width, in.Height)

	crs := strings.TrimSpace(in.CRS)
	if crs == "" {
		crs = UnknownCRS
	}

	return &RasterMask{
		width:      in.Width,
		height:     in.Height,
		cells:      cells,
		bounds:     bounds,
		resolution: res,
		derived:    derived,
		crs:        crs,
		hazards:    hazards,
	}, nil
}

// parseBBox converts [minX, minY, maxX, maxY] into a bound, rejecting boxes
// with no area.
func parseBBox(bbox []float64) (orb.Bound, error) {
	if len(bbox) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox has %d values, want 4: %w", len(bbox), ErrInvalidRasterData)
	}
	b := orb.Bound{
		Min: orb.Point{bbox[0], bbox[1]},
		Max: orb.Point{bbox[2], bbox[3]},
	}
	if err := checkBounds(b); err != nil {
		return orb.Bound{}, err
	}
	return b, nil
}

func checkBounds(b orb.Bound) error {
	if !(b.Max[0] > b.Min[0]) || !(b.Max[1] > b.Min[1]) {
		return fmt.Errorf("bbox [%g %g %g %g]: %w", b.Min[0], b.Min[1], b.Max[0], b.Max[1], ErrDegenerateBounds)
	}
	return nil
}

// resolveResolution returns the supplied resolution, or an approximation
// assuming uniform spacing across the bounding box when the supplied one is
// missing, short, or zero on both axes. The bool reports the approximation.
func resolveResolution(res []float64, b orb.Bound, width, height int) (Resolution, bool) {
	if len(res) >= 2 && (res[0] != 0 || res[1] != 0) {
		return Resolution{X: res[0], Y: res[1]}, false
	}
	return Resolution{
		X: (b.Max[0] - b.Min[0]) / float64(width),
		Y: (b.Max[1] - b.Min[1]) / float64(height),
	}, true
}
