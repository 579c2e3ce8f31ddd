package ingest

import (
	"context"
	"fmt"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/merge"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/reference"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/risk"
)

// ingestRisk averages the risk table per district, fills the remaining
// districts of every touched province with the default level and writes
// the result under a new upload id.
func (s *Service) ingestRisk(ctx context.Context, job domain.Job, report *domain.IngestReport) error {
	table, err := s.sources.Risk(job.Path)
	if err != nil {
		return fmt.Errorf("load risk table: %w", err)
	}
	rows, invalid, err := risk.Parse(table)
	if err != nil {
		return fmt.Errorf("parse risk table %s: %w", report.Filename, err)
	}
	for _, in := range invalid {
		s.logger.Debug("invalid risk row", "job_id", job.ID, "line", in.Line, "value", in.Raw, "reason", in.Reason)
		report.AddUnresolved(fmt.Sprintf("line %d (%s)", in.Line, in.Reason))
		s.metrics.UnresolvedRows.WithLabelValues(string(domain.KindRisk), "invalid").Inc()
	}

	resolver, err := s.resolver(ctx, job)
	if err != nil {
		return err
	}

	uploadID, err := s.recordUpload(ctx, job, domain.KindRisk, report.Filename)
	if err != nil {
		return err
	}
	report.UploadID = uploadID
	matched, missed := reference.ResolveAll(resolver, rows, risk.Names)
	addMisses(report, missed, s.metrics)

	records := risk.Aggregate(matched, uploadID)
	records, filled := merge.FillMissing(records, risk.Defaults(resolver.Snapshot(), records, uploadID), domain.RiskRecord.Key)
	report.Filled = filled

	res, err := write(ctx, s, records, domain.RiskRecord.Key, s.stores.Risk, merge.Options{Scope: merge.BatchScoped})
	applyResult(report, res)
	if err != nil {
		return fmt.Errorf("write risk records: %w", err)
	}
	return nil
}
