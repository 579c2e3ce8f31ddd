package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

// Handler runs one decoded ingest job.
type Handler interface {
	Handle(ctx context.Context, job domain.Job) (domain.IngestReport, error)
}

// JobProcessor implements Processor by decoding the job message and handing
// it to the ingest service.
type JobProcessor struct {
	handler Handler
	logger  *slog.Logger
}

// NewProcessor creates a JobProcessor.
func NewProcessor(h Handler, logger *slog.Logger) *JobProcessor {
	return &JobProcessor{handler: h, logger: logger}
}

// Process decodes raw and runs it. An error is returned only when the message
// cannot be decoded; ingestion failures come back as a failed report so they
// are published and not redelivered.
func (p *JobProcessor) Process(ctx context.Context, raw domain.RawJob) (domain.IngestReport, error) {
	job, err := DecodeJob(raw)
	if err != nil {
		return domain.IngestReport{}, err
	}
	report, err := p.handler.Handle(ctx, job)
	if err != nil {
		p.logger.Debug("job failed", "job_id", job.ID, "kind", job.Kind, "error", err)
	}
	return report, nil
}

// DecodeJob parses a job message. Only reference jobs may omit the path,
// meaning the configured boundary file. The job id falls back to the message
// key, then to a generated id.
func DecodeJob(raw domain.RawJob) (domain.Job, error) {
	var job domain.Job
	if err := json.Unmarshal(raw.Value, &job); err != nil {
		return domain.Job{}, fmt.Errorf("%w: decode job: %v", domain.ErrInputShape, err)
	}
	job.Path = strings.TrimSpace(job.Path)
	if job.Path == "" && job.Kind != domain.KindReference {
		return domain.Job{}, fmt.Errorf("%w: %s job has no path", domain.ErrInputShape, job.Kind)
	}
	if job.ID == "" {
		job.ID = string(raw.Key)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	return job, nil
}
