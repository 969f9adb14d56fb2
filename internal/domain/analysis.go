package domain

// NewImpactReport classifies roads against mask and estimates the hazard
// area. An area failure is recorded on the report and does not prevent
// classification.
func NewImpactReport(id string, mask *RasterMask, roads []RoadFeature, roadSource string, params Params) ImpactReport {
	results := Classify(mask, roads, params.NeighborhoodRadius)

	b := mask.Bounds()
	report := ImpactReport{
		ID:         id,
		AnalyzedAt: clock.Now().UTC(),
		Raster: RasterSummary{
			Width:             mask.Width(),
			Height:            mask.Height(),
			BBox:              [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]},
			Resolution:        mask.Resolution(),
			ResolutionDerived: mask.ResolutionDerived(),
			CRS:               mask.CRS(),
			HazardPixels:      mask.HazardCount(),
		},
		Params:          params,
		RoadSource:      roadSource,
		Classifications: results,
		Summary:         Summarize(results),
	}

	area, err := EstimateArea(mask)
	if err != nil {
		report.AreaFailure = err.Error()
	} else {
		report.Area = &area
	}
	return report
}

// Summarize counts results per outcome.
func Summarize(results []ClassificationResult) Summary {
	var s Summary
	for _, r := range results {
		switch r.Outcome {
		case InHazard:
			s.InHazard++
		case NearHazard:
			s.NearHazard++
		default:
			s.Unaffected++
		}
	}
	return s
}
