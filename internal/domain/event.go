package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed analysis request from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// AnalysisRequest is a parsed request: one raster and the roads to test against it.
type AnalysisRequest struct {
	ID     string
	Raster RasterInput
	Roads  []RoadFeature

	RawPayload []byte
}

// Road source labels recorded on a report.
const (
	RoadSourceRequest = "request" // roads were supplied with the request
	RoadSourceFetched = "fetched" // roads were fetched for the mask bounds
	RoadSourceFailed  = "failed"  // the fetch failed; no roads were classified
	RoadSourceNone    = "none"    // no roads supplied and none could be fetched
)

// RasterSummary describes the decoded mask a report was computed from.
type RasterSummary struct {
	Width             int        `json:"width"`
	Height            int        `json:"height"`
	BBox              [4]float64 `json:"bbox"`
	Resolution        Resolution `json:"resolution"`
	ResolutionDerived bool       `json:"resolution_derived"`
	CRS               string     `json:"crs"`
	HazardPixels      int        `json:"hazard_pixels"`
}

// Summary counts roads per outcome.
type Summary struct {
	InHazard   int `json:"in_hazard"`
	NearHazard int `json:"near_hazard"`
	Unaffected int `json:"unaffected"`
}

// ImpactReport is the result of one analysis run.
type ImpactReport struct {
	ID              string                 `json:"id"`
	AnalyzedAt      time.Time              `json:"analyzed_at"`
	Raster          RasterSummary          `json:"raster"`
	Params          Params                 `json:"params"`
	RoadSource      string                 `json:"road_source"`
	Classifications []ClassificationResult `json:"classifications"`
	Summary         Summary                `json:"summary"`
	Area            *AreaEstimate          `json:"area,omitempty"`
	AreaFailure     string                 `json:"area_failure,omitempty"`
}
