package pipeline_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-hazard-impact/internal/domain"
)

const gridSize = 20

// Grid fixture: a 20x20 raster over [0,0,20,20] in a projected CRS with one
// hazard cell at pixel (5,5), whose centre is at (5.5, 14.5).
var hazardCell = domain.Pixel{X: 5, Y: 5}

func gridRaster() domain.RasterInput {
	values := make([]float64, gridSize*gridSize)
	values[hazardCell.Y*gridSize+hazardCell.X] = 1
	return domain.RasterInput{
		Width:      gridSize,
		Height:     gridSize,
		Bands:      []domain.Band{domain.ArrayBand(values)},
		BBox:       []float64{0, 0, gridSize, gridSize},
		Resolution: []float64{1, -1},
		CRS:        "EPSG:32633",
	}
}

// gridRoads returns one road per outcome: through the hazard cell, three
// pixels east of it, and ten pixels south-east of it.
func gridRoads() []domain.RoadFeature {
	return []domain.RoadFeature{
		{ID: "in", Name: "Flooded Lane", Geometry: orb.LineString{{5.5, 14.5}, {6.5, 14.5}}},
		{ID: "near", Name: "Levee Road", Geometry: orb.LineString{{8.5, 14.5}, {9.5, 14.5}}},
		{ID: "far", Name: "Ridge Road", Geometry: orb.LineString{{15.5, 4.5}, {18.5, 4.5}}},
	}
}

func makeRequest(id string) domain.AnalysisRequest {
	return domain.AnalysisRequest{ID: id, Raster: gridRaster(), Roads: gridRoads()}
}

func makeRawEvent(t *testing.T, id string) domain.RawEvent {
	t.Helper()
	data, err := domain.EncodeAnalysisRequest(makeRequest(id))
	require.NoError(t, err)
	return domain.RawEvent{
		Key:   []byte(id),
		Value: data,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
