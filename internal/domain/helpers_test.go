package domain

import (
	"io"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

const testCRSLinear = "EPSG:32633"

// gridInput returns a width x height raster spanning [0,0,width,height] with
// one-unit pixels and the given cells set to 1.
func gridInput(width, height int, hazards ...Pixel) RasterInput {
	values := make([]float64, width*height)
	for _, px := range hazards {
		values[px.Y*width+px.X] = 1
	}
	return RasterInput{
		Width:      width,
		Height:     height,
		Bands:      []Band{ArrayBand(values)},
		BBox:       []float64{0, 0, float64(width), float64(height)},
		Resolution: []float64{1, -1},
		CRS:        testCRSLinear,
	}
}

func gridMask(t *testing.T, width, height int, hazards ...Pixel) *RasterMask {
	t.Helper()
	mask, err := DecodeMask(gridInput(width, height, hazards...), DefaultHazardValue)
	require.NoError(t, err)
	return mask
}

// centerOf returns the geographic centre of a pixel on a grid built by gridInput.
func centerOf(height int, px Pixel) orb.Point {
	return orb.Point{float64(px.X) + 0.5, float64(height) - float64(px.Y) - 0.5}
}

func road(id string, pts ...orb.Point) RoadFeature {
	return RoadFeature{ID: id, Name: "Road " + id, Geometry: orb.LineString(pts)}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
