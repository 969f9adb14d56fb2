package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-hazard-impact/internal/domain"
	"github.com/couchcryptid/storm-hazard-impact/internal/observability"
	"github.com/couchcryptid/storm-hazard-impact/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.ImpactReport, error) {
	if m.err != nil {
		return domain.ImpactReport{}, m.err
	}
	return domain.ImpactReport{ID: string(raw.Key)}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.ImpactReport
	failures int
}

func (m *mockLoader) LoadBatch(_ context.Context, reports []domain.ImpactReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, reports...)
	return nil
}

func commitCounter(raw *domain.RawEvent, n *atomic.Int32) {
	raw.Commit = func(_ context.Context) error {
		n.Add(1)
		return nil
	}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{makeRawEvent(t, "req-1"), makeRawEvent(t, "req-2")},
	}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, "req-1", ldr.loaded[0].ID)
	assert.Equal(t, "req-2", ldr.loaded[1].ID)
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.RequestsConsumed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.ReportsProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorCommitsAndSkips(t *testing.T) {
	var commits atomic.Int32
	raw := makeRawEvent(t, "req-bad")
	commitCounter(&raw, &commits)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{err: domain.ErrInvalidRasterData}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.Equal(t, int32(1), commits.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var commits atomic.Int32
	raw1 := makeRawEvent(t, "req-1")
	raw2 := makeRawEvent(t, "req-2")
	commitCounter(&raw1, &commits)
	commitCounter(&raw2, &commits)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw1, raw2}}}
	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, int32(2), commits.Load())
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var commits atomic.Int32
	raw := makeRawEvent(t, "req-1")
	commitCounter(&raw, &commits)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{failures: 1}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 400*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.Zero(t, commits.Load())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_EmptyBatchContinues(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{
		{},
		{makeRawEvent(t, "req-3")},
	}}
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "req-3", ldr.loaded[0].ID)
}

func TestPipeline_Run_EndToEndWithTransformer(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{{makeRawEvent(t, "req-e2e")}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(domain.DefaultParams(), nil, discardLogger(), metrics)

	p := pipeline.New(ext, tfm, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, domain.Summary{InHazard: 1, NearHazard: 1, Unaffected: 1}, ldr.loaded[0].Summary)
}

type flakyExtractor struct {
	mockExtractor
	failures atomic.Int32
}

func (f *flakyExtractor) ExtractBatch(ctx context.Context, n int) ([]domain.RawEvent, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("broker unavailable")
	}
	return f.mockExtractor.ExtractBatch(ctx, n)
}

func TestPipeline_Run_ExtractErrorRetries(t *testing.T) {
	ext := &flakyExtractor{mockExtractor: mockExtractor{batches: [][]domain.RawEvent{{makeRawEvent(t, "req-retry")}}}}
	ext.failures.Store(1)
	ldr := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 600*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "req-retry", ldr.loaded[0].ID)
}

func TestPipeline_Run_MixedBatchLoadsOnlyAnalyzed(t *testing.T) {
	var commits atomic.Int32
	good := makeRawEvent(t, "req-good")
	bad := domain.RawEvent{Key: []byte("req-bad"), Value: []byte(`{"raster":`)}
	commitCounter(&good, &commits)
	commitCounter(&bad, &commits)

	ext := &mockExtractor{batches: [][]domain.RawEvent{{bad, good}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(domain.DefaultParams(), nil, discardLogger(), metrics)
	p := pipeline.New(ext, tfm, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "req-good", ldr.loaded[0].ID)
	assert.Equal(t, int32(2), commits.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
	require.NoError(t, p.CheckReadiness(context.Background()))
}
