package domain

import (
	"fmt"

	"github.com/paulmach/orb"
)

const (
	// DefaultNeighborhoodRadius is the half-width, in pixels, of the square
	// window searched around each vertex for nearby hazard cells.
	DefaultNeighborhoodRadius = 5

	// DefaultHazardValue is the pixel value that marks a hazard-present cell.
	DefaultHazardValue = 1.0
)

// Params are the overridable analysis constants.
type Params struct {
	NeighborhoodRadius int     `json:"neighborhood_radius_px"`
	HazardValue        float64 `json:"hazard_value"`
}

// DefaultParams returns the radius and hazard value used when nothing is configured.
func DefaultParams() Params {
	return Params{
		NeighborhoodRadius: DefaultNeighborhoodRadius,
		HazardValue:        DefaultHazardValue,
	}
}

// Outcome is the impact classification of one road feature.
type Outcome int

const (
	Unaffected Outcome = iota
	NearHazard
	InHazard
)

func (o Outcome) String() string {
	switch o {
	case InHazard:
		return "in_hazard"
	case NearHazard:
		return "near_hazard"
	case Unaffected:
		return "unaffected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText encodes the outcome as its snake_case label.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses a snake_case outcome label.
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "in_hazard":
		*o = InHazard
	case "near_hazard":
		*o = NearHazard
	case "unaffected":
		*o = Unaffected
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// RoadFeature is a road polyline in the mask's geographic frame.
type RoadFeature struct {
	ID       string            `json:"id"`
	Name     string            `json:"name,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
	Geometry orb.LineString    `json:"geometry"`
}

// ClassificationResult pairs a road with its outcome.
type ClassificationResult struct {
	FeatureID string  `json:"feature_id"`
	Name      string  `json:"name,omitempty"`
	Outcome   Outcome `json:"outcome"`
}

// Classify assigns an outcome to every road, in input order. Neither the mask
// nor the roads are modified, so concurrent calls on one mask are safe.
//
// The neighborhood check is a fixed (2r+1)x(2r+1) pixel window, so "near"
// means within roughly r pixel widths of a hazard cell; its ground distance
// scales with the raster's resolution.
func Classify(mask *RasterMask, roads []RoadFeature, radius int) []ClassificationResult {
	if radius < 0 {
		radius = 0
	}
	results := make([]ClassificationResult, len(roads))
	for i := range roads {
		results[i] = ClassificationResult{
			FeatureID: roads[i].ID,
			Name:      roads[i].Name,
			Outcome:   ClassifyRoad(mask, roads[i].Geometry, radius),
		}
	}
	return results
}

// ClassifyRoad returns InHazard as soon as a vertex lands on a hazard cell,
// NearHazard if any vertex has a hazard cell within radius pixels, and
// Unaffected otherwise. Vertices outside the mask's bounds are skipped.
func ClassifyRoad(mask *RasterMask, line orb.LineString, radius int) Outcome {
	outcome := Unaffected
	for _, p := range line {
		if !mask.Contains(p) {
			continue
		}
		px, err := mask.ToPixel(p)
		if err != nil {
			// Bounds were validated at decode time.
			return outcome
		}
		if mask.At(px.X, px.Y) {
			return InHazard
		}
		if outcome == Unaffected && hazardWithin(mask, px, radius) {
			outcome = NearHazard
		}
	}
	return outcome
}

// hazardWithin scans the square window of the given radius centred on px,
// clipped to the grid since cells outside it are never hazard-present.
func hazardWithin(mask *RasterMask, px Pixel, radius int) bool {
	x0, x1 := windowSpan(px.X, radius, mask.Width())
	y0, y1 := windowSpan(px.Y, radius, mask.Height())
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if mask.At(x, y) {
				return true
			}
		}
	}
	return false
}

// windowSpan returns the inclusive range [c-radius, c+radius] intersected
// with [0, n-1]. The range is empty (lo > hi) when they do not overlap.
func windowSpan(c, radius, n int) (lo, hi int) {
	lo, hi = 0, n-1
	if c > radius {
		lo = c - radius
	}
	if c < n-1-radius {
		hi = c + radius
	}
	return lo, hi
}
