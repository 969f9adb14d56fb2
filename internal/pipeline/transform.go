package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/storm-hazard-impact/internal/domain"
	"github.com/couchcryptid/storm-hazard-impact/internal/observability"
)

// ImpactTransformer implements Transformer by decoding the request raster,
// resolving the roads to test, and building an impact report.
type ImpactTransformer struct {
	params     domain.Params
	roadSource domain.RoadSource
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewTransformer creates an ImpactTransformer. Pass a nil road source to
// classify only the roads carried by each request.
func NewTransformer(params domain.Params, roadSource domain.RoadSource, logger *slog.Logger, metrics *observability.Metrics) *ImpactTransformer {
	return &ImpactTransformer{
		params:     params,
		roadSource: roadSource,
		logger:     logger,
		metrics:    metrics,
	}
}

func (t *ImpactTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.ImpactReport, error) {
	req, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.ImpactReport{}, err
	}
	return t.Analyze(ctx, req)
}

// Analyze runs one analysis. Raster errors fail the request; road fetch and
// area failures are recorded on the report instead.
func (t *ImpactTransformer) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.ImpactReport, error) {
	mask, err := domain.DecodeMask(req.Raster, t.params.HazardValue)
	if err != nil {
		return domain.ImpactReport{}, fmt.Errorf("request %s: %w", req.ID, err)
	}

	roads, source := domain.ResolveRoads(ctx, req, mask, t.roadSource, t.logger)
	report := domain.NewImpactReport(req.ID, mask, roads, source, t.params)

	t.record(report)
	t.logger.Info("analysis complete",
		"request_id", report.ID,
		"road_source", report.RoadSource,
		"hazard_pixels", report.Raster.HazardPixels,
		"in_hazard", report.Summary.InHazard,
		"near_hazard", report.Summary.NearHazard,
		"unaffected", report.Summary.Unaffected,
	)
	return report, nil
}

func (t *ImpactTransformer) record(report domain.ImpactReport) {
	s := report.Summary
	t.metrics.RoadsClassified.WithLabelValues(domain.InHazard.String()).Add(float64(s.InHazard))
	t.metrics.RoadsClassified.WithLabelValues(domain.NearHazard.String()).Add(float64(s.NearHazard))
	t.metrics.RoadsClassified.WithLabelValues(domain.Unaffected.String()).Add(float64(s.Unaffected))

	if report.Area == nil {
		t.metrics.AreaFailures.Inc()
		t.logger.Warn("hazard area unavailable", "request_id", report.ID, "reason", report.AreaFailure)
		return
	}
	t.metrics.HazardAreaKm2.Observe(report.Area.SquareKm)
}
