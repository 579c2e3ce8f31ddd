package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/merge"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/raster"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/reference"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/spatial"
)

func aggregateNames(a domain.DistrictAggregate) (string, string) { return a.Province, a.District }

// ingestRain clips the raster to the region, joins it against the boundary
// index step by step and writes one record per (day, district).
func (s *Service) ingestRain(ctx context.Context, job domain.Job, report *domain.IngestReport) error {
	ix, err := s.index("")
	if err != nil {
		return err
	}

	grid, err := s.sources.Raster(job.Path, s.opts.Variable)
	if err != nil {
		return fmt.Errorf("open raster: %w", err)
	}
	defer grid.Close()

	view, err := raster.Clip(grid, ix.Bound(), s.opts.Stride)
	if err != nil {
		return fmt.Errorf("clip raster: %w", err)
	}
	if view.Empty() {
		s.logger.Warn("raster does not overlap region", "job_id", job.ID, "file", report.Filename)
		return nil
	}
	s.logger.Debug("raster clipped", "job_id", job.ID, "lat", len(view.Lat), "lon", len(view.Lon), "steps", view.Steps())

	resolver, err := s.resolver(ctx, job)
	if err != nil {
		return err
	}

	uploadID, err := s.recordUpload(ctx, job, domain.KindRain, report.Filename)
	if err != nil {
		return err
	}
	report.UploadID = uploadID

	// A grid without a time axis is a single snapshot stamped with the
	// upload day.
	fallback := domain.DayUTC(domain.Now())

	var (
		records []domain.RainRecord
		total   spatial.Stats
	)
	joiner := spatial.NewJoiner(ix, s.opts.Join, s.logger)
	err = joiner.Each(ctx, view, func(rows []domain.DistrictAggregate, stats spatial.Stats) error {
		s.observeJoin(stats)
		total.Points += stats.Points
		total.Matched += stats.Matched

		matched, missed := reference.ResolveAll(resolver, rows, aggregateNames)
		addMisses(report, missed, s.metrics)
		for _, m := range matched {
			records = append(records, rainRecord(m, uploadID, fallback))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("join raster: %w", err)
	}
	s.logger.Info("raster joined", "job_id", job.ID, "points", total.Points, "matched", total.Matched, "records", len(records))

	res, err := write(ctx, s, records, domain.RainRecord.Key, s.stores.Rain, merge.Options{
		Scope:     merge.BatchScoped,
		ChunkSize: s.opts.RainChunkSize,
	})
	applyResult(report, res)
	if err != nil {
		return fmt.Errorf("write rain records: %w", err)
	}
	return nil
}

func rainRecord(m reference.Match[domain.DistrictAggregate], uploadID int64, fallback time.Time) domain.RainRecord {
	date := fallback
	if !m.Row.Time.IsZero() {
		date = domain.DayUTC(m.Row.Time)
	}
	return domain.RainRecord{
		UploadID:        uploadID,
		Date:            date,
		Year:            date.Year(),
		ProvinceID:      m.Key.ProvinceID,
		DistrictID:      m.Key.DistrictID,
		WeightedMean:    m.Row.WeightedMean,
		AreaWeightedSum: m.Row.AreaWeightedSum,
	}
}

func (s *Service) observeJoin(st spatial.Stats) {
	s.metrics.JoinPoints.WithLabelValues("matched").Add(float64(st.Matched))
	s.metrics.JoinPoints.WithLabelValues("missing").Add(float64(st.Missing))
	s.metrics.JoinPoints.WithLabelValues("outside").Add(float64(st.Outside()))
	s.metrics.TilesSkipped.Add(float64(st.TilesSkipped))
}
