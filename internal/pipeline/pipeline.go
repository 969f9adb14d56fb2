package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/storm-hazard-impact/internal/domain"
	"github.com/couchcryptid/storm-hazard-impact/internal/observability"
)

// BatchExtractor reads up to batchSize analysis requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns one raw request into an impact report.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.ImpactReport, error)
}

// BatchLoader writes impact reports to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, reports []domain.ImpactReport) error
}

// Pipeline consumes analysis requests, runs each through the Transformer and
// publishes the resulting impact reports. Offsets are committed only once a
// request's report is written, or immediately when the request is rejected.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has produced at least one report.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not produced any reports yet")
	}
	return nil
}

// Run processes batches until the context is cancelled. Extract and load
// failures are retried with exponential backoff; Run itself never fails.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	bo := backoff{next: initialBackoff}
	for ctx.Err() == nil {
		if err := p.step(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			if !bo.wait(ctx) {
				break
			}
			continue
		}
		bo.reset()
	}

	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// step runs one consume-analyze-produce cycle. A non-nil error means the
// cycle should be retried after a backoff.
func (p *Pipeline) step(ctx context.Context) error {
	start := time.Now()

	raws, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("extract batch failed", "error", err)
		}
		return err
	}
	if len(raws) == 0 {
		return nil
	}
	p.metrics.RequestsConsumed.Add(float64(len(raws)))
	p.metrics.BatchSize.Observe(float64(len(raws)))

	batch := p.analyze(ctx, raws)
	if len(batch.reports) == 0 {
		return nil
	}

	if err := p.loader.LoadBatch(ctx, batch.reports); err != nil {
		if ctx.Err() == nil {
			p.logger.Error("load batch failed", "error", err, "batch_size", len(batch.reports))
		}
		return err
	}
	p.metrics.ReportsProduced.Add(float64(len(batch.reports)))
	for _, raw := range batch.sources {
		p.commit(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.logger.Debug("batch produced", batch.attrs()...)
	return nil
}

// analyzedBatch pairs each produced report with the request it came from.
type analyzedBatch struct {
	reports  []domain.ImpactReport
	sources  []domain.RawEvent
	rejected int
}

func (b analyzedBatch) attrs() []any {
	var s domain.Summary
	areaFailures := 0
	for i := range b.reports {
		s.InHazard += b.reports[i].Summary.InHazard
		s.NearHazard += b.reports[i].Summary.NearHazard
		s.Unaffected += b.reports[i].Summary.Unaffected
		if b.reports[i].Area == nil {
			areaFailures++
		}
	}
	return []any{
		"reports", len(b.reports),
		"rejected", b.rejected,
		"in_hazard", s.InHazard,
		"near_hazard", s.NearHazard,
		"unaffected", s.Unaffected,
		"area_failures", areaFailures,
	}
}

// analyze runs every request through the transformer. A rejected request is
// committed straight away so a malformed message cannot block its partition.
func (p *Pipeline) analyze(ctx context.Context, raws []domain.RawEvent) analyzedBatch {
	batch := analyzedBatch{
		reports: make([]domain.ImpactReport, 0, len(raws)),
		sources: make([]domain.RawEvent, 0, len(raws)),
	}
	for _, raw := range raws {
		report, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("request rejected",
				"reason", rejectReason(err),
				"error", err,
				"key", string(raw.Key),
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			batch.rejected++
			continue
		}
		batch.reports = append(batch.reports, report)
		batch.sources = append(batch.sources, raw)
	}
	return batch
}

// rejectReason maps an analysis error onto a short log label.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, domain.ErrInvalidRasterData):
		return "invalid_raster"
	case errors.Is(err, domain.ErrDegenerateBounds):
		return "degenerate_bounds"
	default:
		return "analysis_error"
	}
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// backoff tracks the delay before the next retry of a failed cycle.
type backoff struct {
	next time.Duration
}

// wait sleeps for the current delay and doubles it up to maxBackoff. It
// returns false if ctx was cancelled first.
func (b *backoff) wait(ctx context.Context) bool {
	if !retry.SleepWithContext(ctx, b.next) {
		return false
	}
	b.next = retry.NextBackoff(b.next, maxBackoff)
	return true
}

func (b *backoff) reset() {
	b.next = initialBackoff
}
