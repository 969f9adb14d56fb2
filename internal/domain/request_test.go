package domain

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRequestJSON = `{
  "id": "flood-2024-04-26",
  "raster": {
    "width": 4, "height": 4,
    "bands": [[0,0,0,0, 0,0,0,0, 0,0,1,0, 0,null,0,0], 7],
    "bbox": [0, 0, 4, 4],
    "resolution": [1, -1],
    "crs": "EPSG:32614"
  },
  "roads": {
    "type": "FeatureCollection",
    "features": [
      {"type": "Feature", "id": "way/101",
       "geometry": {"type": "LineString", "coordinates": [[0.5, 3.5], [2.5, 1.5]]},
       "properties": {"name": "Main St", "highway": "primary", "lanes": 2}},
      {"type": "Feature", "id": 202,
       "geometry": {"type": "MultiLineString", "coordinates": [[[0.5, 0.5], [1.5, 0.5]], [[3.5, 3.5]]]},
       "properties": {"highway": "residential"}},
      {"type": "Feature",
       "geometry": {"type": "Point", "coordinates": [1, 1]},
       "properties": {"name": "Not a road"}},
      {"type": "Feature",
       "geometry": {"type": "LineString", "coordinates": [[3.5, 0.5], [3.5, 1.5]]},
       "properties": {"osm_id": "303"}},
      {"type": "Feature",
       "geometry": {"type": "LineString", "coordinates": [[1.5, 1.5], [1.5, 2.5]]},
       "properties": null}
    ]
  }
}`

func TestParseAnalysisRequest(t *testing.T) {
	req, err := ParseAnalysisRequest([]byte(testRequestJSON))
	require.NoError(t, err)

	assert.Equal(t, "flood-2024-04-26", req.ID)
	assert.Equal(t, 4, req.Raster.Width)
	require.Len(t, req.Raster.Bands, 2)
	assert.False(t, req.Raster.Bands[0].IsScalar())
	assert.True(t, req.Raster.Bands[1].IsScalar())
	assert.Equal(t, []float64{0, 0, 4, 4}, req.Raster.BBox)
	assert.Equal(t, "EPSG:32614", req.Raster.CRS)

	require.Len(t, req.Roads, 4)

	assert.Equal(t, "way/101", req.Roads[0].ID)
	assert.Equal(t, "Main St", req.Roads[0].Name)
	assert.Equal(t, map[string]string{"highway": "primary"}, req.Roads[0].Tags)
	assert.Equal(t, orb.LineString{{0.5, 3.5}, {2.5, 1.5}}, req.Roads[0].Geometry)

	assert.Equal(t, "202", req.Roads[1].ID)
	assert.Equal(t, "Road 202", req.Roads[1].Name)
	assert.Equal(t, orb.LineString{{0.5, 0.5}, {1.5, 0.5}, {3.5, 3.5}}, req.Roads[1].Geometry)

	assert.Equal(t, "303", req.Roads[2].ID)
	assert.Equal(t, "4", req.Roads[3].ID, "falls back to the feature index")
	assert.Nil(t, req.Roads[3].Tags)
}

func TestParseAnalysisRequest_NullIsNodata(t *testing.T) {
	req, err := ParseAnalysisRequest([]byte(testRequestJSON))
	require.NoError(t, err)

	mask, err := DecodeMask(req.Raster, DefaultHazardValue)
	require.NoError(t, err)
	assert.Equal(t, 1, mask.HazardCount())
	assert.True(t, mask.At(2, 2))
	assert.False(t, mask.At(1, 3))
}

func TestParseAnalysisRequest_ScalarBandFailsDecode(t *testing.T) {
	data := `{"raster": {"width": 2, "height": 2, "bands": [1], "bbox": [0, 0, 2, 2]}}`
	req, err := ParseAnalysisRequest([]byte(data))
	require.NoError(t, err)

	_, err = DecodeMask(req.Raster, DefaultHazardValue)
	require.ErrorIs(t, err, ErrInvalidRasterData)
}

func TestParseAnalysisRequest_OverflowingDimensionsFailDecode(t *testing.T) {
	data := `{"raster": {"width": 4611686018427387904, "height": 4, "bands": [[]], "bbox": [0, 0, 4, 4], "crs": "EPSG:4326"}}`
	req, err := ParseAnalysisRequest([]byte(data))
	require.NoError(t, err)

	_, err = DecodeMask(req.Raster, DefaultHazardValue)
	require.ErrorIs(t, err, ErrInvalidRasterData)
}

func TestParseAnalysisRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{not json`},
		{"missing raster", `{"id": "x"}`},
		{"band of strings", `{"raster": {"width": 1, "height": 1, "bands": [["a"]], "bbox": [0,0,1,1]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnalysisRequest([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestParseAnalysisRequest_DeterministicID(t *testing.T) {
	data := []byte(`{"raster": {"width": 1, "height": 1, "bands": [[1]], "bbox": [0, 0, 1, 1]}}`)

	first, err := ParseAnalysisRequest(data)
	require.NoError(t, err)
	second, err := ParseRawEvent(RawEvent{Value: data})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first.ID, "analysis-"))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, data, second.RawPayload)
}

func TestEncodeAnalysisRequest(t *testing.T) {
	req := AnalysisRequest{
		ID:     "req-1",
		Raster: gridInput(2, 2, Pixel{X: 1, Y: 0}),
		Roads: []RoadFeature{
			{ID: "r1", Name: "Elm", Tags: map[string]string{"highway": "tertiary"}, Geometry: orb.LineString{{0.5, 0.5}, {1.5, 1.5}}},
		},
	}

	data, err := EncodeAnalysisRequest(req)
	require.NoError(t, err)

	parsed, err := ParseAnalysisRequest(data)
	require.NoError(t, err)
	assert.Equal(t, req.ID, parsed.ID)
	assert.Equal(t, req.Roads, parsed.Roads)

	mask, err := DecodeMask(parsed.Raster, DefaultHazardValue)
	require.NoError(t, err)
	assert.True(t, mask.At(1, 0))
}
