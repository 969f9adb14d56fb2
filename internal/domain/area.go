package domain

import (
	"fmt"
	"math"
	"strings"
)

const (
	// earthRadiusMeters is the WGS-84 equatorial radius.
	earthRadiusMeters = 6378137.0

	squareMetersPerKm2 = 1_000_000.0
)

// Area methods recorded on an estimate.
const (
	AreaMethodGeodetic = "geodetic"
	AreaMethodPlanar   = "planar"
)

// AreaEstimate is the total hazard area of a mask.
type AreaEstimate struct {
	SquareKm    float64 `json:"km2"`
	PixelAreaM2 float64 `json:"pixel_area_m2"`
	Pixels      int     `json:"hazard_pixels"`
	Method      string  `json:"method"`
}

// EstimateArea multiplies the hazard cell count by the ground area of one
// pixel. Geographic (degree-based) rasters convert resolution to meters at the
// bounding box's mid latitude; anything else, unknown included, is treated as
// already being in linear meters.
func EstimateArea(mask *RasterMask) (AreaEstimate, error) {
	res := mask.Resolution()
	method := AreaMethodPlanar
	var pixelArea float64

	if IsGeographicCRS(mask.CRS()) {
		b := mask.Bounds()
		midLat := (b.Min[1] + b.Max[1]) / 2
		pixelArea = math.Abs(res.X) * MetersPerDegreeLon(midLat) *
			math.Abs(res.Y) * MetersPerDegreeLat(midLat)
		method = AreaMethodGeodetic
	} else {
		pixelArea = math.Abs(res.X * res.Y)
	}

	if pixelArea == 0 || math.IsNaN(pixelArea) || math.IsInf(pixelArea, 0) {
		return AreaEstimate{}, fmt.Errorf("estimate area: resolution (%g, %g) gives pixel area %g: %w",
			res.X, res.Y, pixelArea, ErrInvalidPixelArea)
	}

	n := mask.HazardCount()
	return AreaEstimate{
		SquareKm:    float64(n) * pixelArea / squareMetersPerKm2,
		PixelAreaM2: pixelArea,
		Pixels:      n,
		Method:      method,
	}, nil
}

// MetersPerDegreeLat returns the length of one degree of latitude at lat degrees.
func MetersPerDegreeLat(lat float64) float64 {
	phi := lat * math.Pi / 180
	return 111132.954 - 559.822*math.Cos(2*phi) + 1.175*math.Cos(4*phi)
}

// MetersPerDegreeLon returns the length of one degree of longitude at lat degrees.
func MetersPerDegreeLon(lat float64) float64 {
	phi := lat * math.Pi / 180
	return math.Pi / 180 * earthRadiusMeters * math.Cos(phi)
}

// geographicMarkers are label fragments that identify a degree-based CRS.
var geographicMarkers = []string{
	"epsg:4326", "epsg:4269", "epsg:4258", "epsg:4283", "epsg:4674",
	"crs84", "geographic", "geogcs", "longlat", "latlong", "degree",
}

// projectedMarkers override a WGS 84 datum mention, e.g. "WGS 84 / UTM zone 33N".
var projectedMarkers = []string{"utm", "mercator", "projected", "projcs", "epsg:3857"}

// IsGeographicCRS classifies a free-form CRS label by string matching. It is
// an approximation: labels it does not recognise are treated as linear.
func IsGeographicCRS(label string) bool {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" || l == strings.ToLower(UnknownCRS) {
		return false
	}
	for _, m := range projectedMarkers {
		if strings.Contains(l, m) {
			return false
		}
	}
	for _, m := range geographicMarkers {
		if strings.Contains(l, m) {
			return true
		}
	}
	return l == "wgs 84" || l == "wgs84" || l == "4326"
}
