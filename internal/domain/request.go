package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// requestPayload is the JSON envelope of an analysis request.
type requestPayload struct {
	ID     string                     `json:"id,omitempty"`
	Raster *RasterInput               `json:"raster"`
	Roads  *geojson.FeatureCollection `json:"roads,omitempty"`
}

// ParseRawEvent deserializes a RawEvent's value into an AnalysisRequest.
func ParseRawEvent(raw RawEvent) (AnalysisRequest, error) {
	return ParseAnalysisRequest(raw.Value)
}

// ParseAnalysisRequest decodes a JSON request. Roads arrive as a GeoJSON
// FeatureCollection; features without line geometry are dropped. Requests
// without an id get a deterministic one derived from the payload.
func ParseAnalysisRequest(data []byte) (AnalysisRequest, error) {
	var p requestPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return AnalysisRequest{}, fmt.Errorf("parse analysis request: %w: %w", ErrInvalidRequest, err)
	}
	if p.Raster == nil {
		return AnalysisRequest{}, fmt.Errorf("parse analysis request: missing raster: %w", ErrInvalidRequest)
	}

	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = generateID(data)
	}

	return AnalysisRequest{
		ID:         id,
		Raster:     *p.Raster,
		Roads:      RoadsFromGeoJSON(p.Roads),
		RawPayload: data,
	}, nil
}

// EncodeAnalysisRequest is the inverse of ParseAnalysisRequest.
func EncodeAnalysisRequest(req AnalysisRequest) ([]byte, error) {
	p := requestPayload{ID: req.ID, Raster: &req.Raster}
	if len(req.Roads) > 0 {
		p.Roads = RoadsToGeoJSON(req.Roads)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}
	return data, nil
}

// RoadsFromGeoJSON converts line features into RoadFeatures. MultiLineString
// parts are joined into one vertex sequence, which is all the per-vertex
// classifier looks at.
func RoadsFromGeoJSON(fc *geojson.FeatureCollection) []RoadFeature {
	if fc == nil {
		return nil
	}
	roads := make([]RoadFeature, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil {
			continue
		}
		line := lineVertices(f.Geometry)
		if len(line) == 0 {
			continue
		}
		id := featureID(f, i)
		roads = append(roads, RoadFeature{
			ID:       id,
			Name:     roadName(f.Properties, id),
			Tags:     roadTags(f.Properties),
			Geometry: line,
		})
	}
	return roads
}

// RoadsToGeoJSON writes roads as LineString features, name and tags as properties.
func RoadsToGeoJSON(roads []RoadFeature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range roads {
		f := geojson.NewFeature(r.Geometry)
		f.ID = r.ID
		for k, v := range r.Tags {
			f.Properties[k] = v
		}
		if r.Name != "" {
			f.Properties["name"] = r.Name
		}
		fc.Append(f)
	}
	return fc
}

func lineVertices(g orb.Geometry) orb.LineString {
	switch v := g.(type) {
	case orb.LineString:
		return v
	case orb.MultiLineString:
		var out orb.LineString
		for _, part := range v {
			out = append(out, part...)
		}
		return out
	default:
		return nil
	}
}

// featureID prefers the GeoJSON id, then an id/osm_id property, then the index.
func featureID(f *geojson.Feature, index int) string {
	if id := formatID(f.ID); id != "" {
		return id
	}
	for _, key := range []string{"id", "osm_id"} {
		if id := formatID(f.Properties[key]); id != "" {
			return id
		}
	}
	return strconv.Itoa(index)
}

func formatID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}

// roadName returns the name property, or a label synthesized from the id.
func roadName(props geojson.Properties, id string) string {
	if name, ok := props["name"].(string); ok && strings.TrimSpace(name) != "" {
		return name
	}
	return "Road " + id
}

// roadTags keeps string-valued properties other than the name.
func roadTags(props geojson.Properties) map[string]string {
	tags := make(map[string]string, len(props))
	for k, v := range props {
		if k == "name" {
			continue
		}
		if s, ok := v.(string); ok {
			tags[k] = s
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// generateID produces a deterministic ID from the request payload so that
// replaying the same request yields the same report key.
func generateID(payload []byte) string {
	hash := sha256.Sum256(payload)
	return "analysis-" + hex.EncodeToString(hash[:8])
}
