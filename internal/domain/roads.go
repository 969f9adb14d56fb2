package domain

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"
)

// RoadSource fetches road features from an external vector-feature service.
type RoadSource interface {
	// FetchRoads returns the roads intersecting bound.
	FetchRoads(ctx context.Context, bound orb.Bound) ([]RoadFeature, error)
}

// ResolveRoads picks the roads to classify. Roads supplied with the request
// win; otherwise they are fetched for the mask bounds when a source is
// configured and the mask is in a geographic CRS, since road sources speak
// longitude/latitude. A failed fetch degrades to no roads so the area
// estimate is still produced. The returned label is one of the RoadSource*
// constants.
func ResolveRoads(ctx context.Context, req AnalysisRequest, mask *RasterMask, source RoadSource, logger *slog.Logger) ([]RoadFeature, string) {
	if len(req.Roads) > 0 {
		return req.Roads, RoadSourceRequest
	}
	if source == nil {
		return nil, RoadSourceNone
	}
	if !IsGeographicCRS(mask.CRS()) {
		logger.Debug("road fetch skipped for projected raster", "request_id", req.ID, "crs", mask.CRS())
		return nil, RoadSourceNone
	}

	bound := mask.Bounds()
	roads, err := source.FetchRoads(ctx, bound)
	if err != nil {
		logger.Warn("road fetch failed",
			"request_id", req.ID,
			"bbox", [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]},
			"error", err,
		)
		return nil, RoadSourceFailed
	}
	return roads, RoadSourceFetched
}
