// Package ingest orchestrates the rain, risk, incident and reference flows
// over the storage and file ports.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/boundary"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/merge"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/observability"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/raster"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/reference"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/spatial"
)

// Options configures the service.
type Options struct {
	BoundaryPath  string
	Boundary      boundary.Options
	Variable      string
	Stride        raster.Stride
	Join          spatial.Options
	Resolve       reference.Options
	RainChunkSize int
	// DryRun parses, joins and resolves but writes nothing.
	DryRun bool
}

// Service runs ingestions. It is safe for sequential use by one worker;
// the boundary index is built once per path and shared.
type Service struct {
	opts    Options
	sources Sources
	stores  Stores
	metrics *observability.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	indexes map[string]*boundary.Index
}

// New creates a Service.
func New(opts Options, sources Sources, stores Stores, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		opts:    opts,
		sources: sources,
		stores:  stores,
		metrics: metrics,
		logger:  logger,
		indexes: make(map[string]*boundary.Index),
	}
}

// Handle dispatches a job by kind and always returns a report. A failed
// ingestion yields a report with status failed alongside the error.
func (s *Service) Handle(ctx context.Context, job domain.Job) (domain.IngestReport, error) {
	report := domain.IngestReport{
		JobID:     job.ID,
		Kind:      job.Kind,
		Filename:  job.Filename,
		StartedAt: domain.Now(),
	}
	if report.Filename == "" {
		report.Filename = filepath.Base(job.Path)
	}

	var err error
	switch job.Kind {
	case domain.KindRain:
		err = s.ingestRain(ctx, job, &report)
	case domain.KindRisk:
		err = s.ingestRisk(ctx, job, &report)
	case domain.KindIncident:
		err = s.ingestIncidents(ctx, job, &report)
	case domain.KindReference:
		err = s.initReference(ctx, job, &report)
	default:
		err = fmt.Errorf("%w: unknown upload kind %q", domain.ErrInputShape, job.Kind)
	}

	report.FinishedAt = domain.Now()
	report.Status = domain.StatusSucceeded
	if err != nil {
		report.Status = domain.StatusFailed
		report.Error = err.Error()
	}
	s.observe(report)

	if job.RemoveAfter && err == nil && !s.opts.DryRun {
		Cleanup(job.Path, s.logger, s.metrics)
	}
	return report, err
}

func (s *Service) observe(r domain.IngestReport) {
	kind := string(r.Kind)
	s.metrics.IngestDuration.WithLabelValues(kind, r.Status).Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	s.metrics.IngestRows.WithLabelValues(kind, "candidate").Add(float64(r.Candidates))
	s.metrics.IngestRows.WithLabelValues(kind, "written").Add(float64(r.Written))
	s.metrics.IngestRows.WithLabelValues(kind, "duplicate").Add(float64(r.Duplicates))
	s.metrics.IngestRows.WithLabelValues(kind, "already_persisted").Add(float64(r.AlreadyPersisted))
	s.metrics.IngestRows.WithLabelValues(kind, "filled").Add(float64(r.Filled))

	attrs := []any{
		"job_id", r.JobID, "kind", kind, "file", r.Filename, "upload_id", r.UploadID,
		"candidates", r.Candidates, "written", r.Written, "duplicates", r.Duplicates,
		"already_persisted", r.AlreadyPersisted, "unresolved", r.Unresolved, "filled", r.Filled,
		"duration", r.FinishedAt.Sub(r.StartedAt),
	}
	if r.Status == domain.StatusFailed {
		s.logger.Error("ingest failed", append(attrs, "error", r.Error)...)
		return
	}
	s.logger.Info("ingest finished", attrs...)
}

// Cleanup removes a consumed source file. Failure is logged and counted,
// never returned.
func Cleanup(path string, logger *slog.Logger, metrics *observability.Metrics) bool {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("remove consumed file failed", "path", path, "error", err)
		if metrics != nil {
			metrics.CleanupFailures.Inc()
		}
		return false
	}
	logger.Debug("removed consumed file", "path", path)
	return true
}

// index returns the boundary index for path, building it on first use.
func (s *Service) index(path string) (*boundary.Index, error) {
	if path == "" {
		path = s.opts.BoundaryPath
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ix, ok := s.indexes[path]; ok {
		return ix, nil
	}

	c, err := s.sources.Boundary(path)
	if err != nil {
		return nil, fmt.Errorf("load boundary: %w", err)
	}
	ix, err := boundary.Build(c, s.opts.Boundary)
	if err != nil {
		return nil, fmt.Errorf("build boundary index from %s: %w", filepath.Base(path), err)
	}
	if ix.Skipped() > 0 {
		s.logger.Warn("boundary features skipped", "path", path, "skipped", ix.Skipped())
	}
	s.logger.Info("boundary index built", "path", path, "schema", ix.Schema(), "polygons", ix.Len())
	s.indexes[path] = ix
	return ix, nil
}

// resolver loads a reference snapshot. A job-level force province
// overrides the configured one.
func (s *Service) resolver(ctx context.Context, job domain.Job) (*reference.Resolver, error) {
	snap, err := reference.Load(ctx, s.stores.Reference)
	if err != nil {
		return nil, fmt.Errorf("load reference: %w", err)
	}
	opts := s.opts.Resolve
	opts.ForceProvince = s.forceProvince(job)
	r, err := reference.NewResolver(snap, opts)
	if err != nil {
		return nil, err
	}
	if missing := r.MissingRegions(); len(missing) > 0 {
		s.logger.Warn("allowed regions not in reference", "job_id", job.ID, "regions", missing)
	}
	if opts.ForceProvince != "" {
		s.logger.Warn("unmatched provinces will be forced", "job_id", job.ID, "province", opts.ForceProvince)
	}
	return r, nil
}

func (s *Service) forceProvince(job domain.Job) string {
	if job.ForceProvince != "" {
		return job.ForceProvince
	}
	return s.opts.Resolve.ForceProvince
}

// recordUpload logs the source file. Dry runs use upload id 0.
func (s *Service) recordUpload(ctx context.Context, job domain.Job, kind domain.UploadKind, filename string) (int64, error) {
	if s.opts.DryRun {
		return 0, nil
	}
	var size int64
	if fi, err := os.Stat(job.Path); err == nil {
		size = fi.Size()
	}
	id, err := s.stores.Uploads.RecordUpload(ctx, domain.Upload{
		Kind:        kind,
		Filename:    filename,
		StoragePath: job.Path,
		SizeBytes:   size,
		CreatedAt:   domain.Now(),
		Meta:        s.uploadMeta(job, kind),
	})
	if err != nil {
		return 0, fmt.Errorf("record upload: %w", err)
	}
	return id, nil
}

func (s *Service) uploadMeta(job domain.Job, kind domain.UploadKind) map[string]string {
	meta := make(map[string]string)
	if job.ID != "" {
		meta["job_id"] = job.ID
	}
	if fp := s.forceProvince(job); fp != "" {
		meta["force_province"] = fp
	}
	if kind == domain.KindRain {
		meta["variable"] = s.opts.Variable
	}
	return meta
}

func addMisses[T any](r *domain.IngestReport, misses []reference.Miss[T], m *observability.Metrics) {
	for _, miss := range misses {
		r.AddUnresolved(miss.String())
		m.UnresolvedRows.WithLabelValues(string(r.Kind), string(miss.Reason)).Inc()
	}
}

func applyResult(r *domain.IngestReport, res merge.Result) {
	r.Candidates = res.Candidates
	r.Duplicates = res.Duplicates
	r.AlreadyPersisted = res.AlreadyPersisted
	r.Written = res.Written
}

// write merges rows into sink unless this is a dry run, where it only
// deduplicates and counts.
func write[T any, K comparable](ctx context.Context, s *Service, rows []T, key func(T) K, sink merge.Sink[T, K], opts merge.Options) (merge.Result, error) {
	if s.opts.DryRun {
		_, dups := merge.DedupFirst(rows, key)
		return merge.Result{Candidates: len(rows), Duplicates: dups}, nil
	}
	return merge.MergeAndWrite(ctx, rows, key, sink, opts)
}
