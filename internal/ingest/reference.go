package ingest

import (
	"context"
	"fmt"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/boundary"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

// initReference seeds the province and district tables from the boundary
// source of the job (or the configured one), restricted to the region.
// Existing rows are left alone.
func (s *Service) initReference(ctx context.Context, job domain.Job, report *domain.IngestReport) error {
	ix, err := s.index(job.Path)
	if err != nil {
		return err
	}
	entries := ReferenceEntries(ix.Polygons())
	report.Candidates = len(entries)
	if s.opts.DryRun {
		return nil
	}

	provinces, districts, err := s.stores.ReferenceWriter.EnsureReference(ctx, entries)
	if err != nil {
		return fmt.Errorf("ensure reference: %w", err)
	}
	report.Written = districts
	report.AlreadyPersisted = len(entries) - districts
	if inv, ok := s.stores.Reference.(Invalidator); ok {
		inv.Invalidate()
	}
	s.logger.Info("reference initialized", "job_id", job.ID, "provinces_created", provinces, "districts_created", districts)
	return nil
}

// ReferenceEntries turns boundary polygons into one entry per distinct
// district. The Thai name comes from the alternate field when the schema has
// one, and falls back to the primary name.
func ReferenceEntries(polygons []*boundary.Polygon) []domain.ReferenceEntry {
	seen := make(map[[2]string]bool, len(polygons))
	out := make([]domain.ReferenceEntry, 0, len(polygons))
	for _, p := range polygons {
		e := domain.ReferenceEntry{
			Province:   domain.NormalizeName(orElse(p.ProvinceAlt, p.Province)),
			ProvinceEN: domain.NormalizeName(p.Province),
			District:   domain.NormalizeName(orElse(p.DistrictAlt, p.District)),
			DistrictEN: domain.NormalizeName(p.District),
		}
		k := [2]string{domain.NameKey(e.ProvinceEN), domain.NameKey(e.DistrictEN)}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

func orElse(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
