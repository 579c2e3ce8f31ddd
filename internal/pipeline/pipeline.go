package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/observability"
)

// BatchExtractor reads up to batchSize raw jobs from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawJob, error)
}

// Processor runs one raw job and returns its report.
type Processor interface {
	Process(ctx context.Context, raw domain.RawJob) (domain.IngestReport, error)
}

// BatchLoader publishes multiple reports to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, reports []domain.IngestReport) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the extract-ingest-report loop.
type Pipeline struct {
	extractor BatchExtractor
	processor Processor
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	running   atomic.Bool
	batchSize int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, p Processor, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor: e,
		processor: p,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil while the job loop is running.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.running.Load() {
		return errors.New("pipeline is not running")
	}
	return nil
}

// Run executes the job loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	p.running.Store(true)
	defer func() {
		p.running.Store(false)
		p.metrics.PipelineRunning.Set(0)
	}()

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-ingest-report cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.JobsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	if !p.processAndPublish(ctx, rawBatch, backoff) {
		return false
	}
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	return true
}

// processAndPublish runs every job in the batch, publishes the reports and
// commits offsets. Undecodable jobs are committed and skipped. Returns false
// if the pipeline should stop.
func (p *Pipeline) processAndPublish(ctx context.Context, rawBatch []domain.RawJob, backoff *time.Duration) bool {
	reports := make([]domain.IngestReport, 0, len(rawBatch))
	processed := make([]domain.RawJob, 0, len(rawBatch))

	for _, raw := range rawBatch {
		report, err := p.processor.Process(ctx, raw)
		if ctx.Err() != nil {
			// Unpublished jobs stay uncommitted and are redelivered.
			return false
		}
		if err != nil {
			p.logger.Warn("undecodable job, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.JobErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		if report.Status == domain.StatusFailed {
			p.metrics.JobErrors.Inc()
		}
		reports = append(reports, report)
		processed = append(processed, raw)
	}

	if len(reports) == 0 {
		return true
	}

	for {
		err := p.loader.LoadBatch(ctx, reports)
		if err == nil {
			break
		}
		p.logger.Error("publish reports failed", "error", err, "batch_size", len(reports))
		if !p.backoffOrStop(ctx, backoff) {
			return false
		}
	}
	*backoff = initialBackoff
	p.metrics.ReportsProduced.Add(float64(len(reports)))

	for _, raw := range processed {
		p.commitOffset(ctx, raw)
	}
	return true
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawJob) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
