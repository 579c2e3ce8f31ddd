package ingest

import (
	"context"
	"fmt"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/incident"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/merge"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/reference"
)

// ingestIncidents counts incident rows per (date, district) and writes the
// counts whose key is not already stored. The file is logged as an upload
// but the incident rows carry no upload id.
func (s *Service) ingestIncidents(ctx context.Context, job domain.Job, report *domain.IngestReport) error {
	sheets, err := s.sources.Incidents(job.Path)
	if err != nil {
		return fmt.Errorf("load incidents: %w", err)
	}
	rows, invalid, layout, err := incident.Parse(sheets)
	if err != nil {
		return fmt.Errorf("parse incidents %s: %w", report.Filename, err)
	}
	s.logger.Debug("incident layout detected", "job_id", job.ID, "sheet", layout.Sheet, "header_row", layout.HeaderRow)
	for _, in := range invalid {
		report.AddUnresolved(fmt.Sprintf("line %d (%s)", in.Line, in.Reason))
		s.metrics.UnresolvedRows.WithLabelValues(string(domain.KindIncident), "invalid").Inc()
	}

	resolver, err := s.resolver(ctx, job)
	if err != nil {
		return err
	}
	uploadID, err := s.recordUpload(ctx, job, domain.KindIncident, report.Filename)
	if err != nil {
		return err
	}
	report.UploadID = uploadID

	matched, missed := reference.ResolveAll(resolver, rows, incident.Names)
	addMisses(report, missed, s.metrics)

	records := incident.Count(matched)
	res, err := write(ctx, s, records, domain.IncidentRecord.Key, s.stores.Incidents, merge.Options{Scope: merge.CrossBatch})
	applyResult(report, res)
	if err != nil {
		return fmt.Errorf("write incident counts: %w", err)
	}
	return nil
}
