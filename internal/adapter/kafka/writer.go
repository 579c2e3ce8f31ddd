package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/config"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

// Writer publishes ingest reports to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes reports in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.IngestReport) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(reports[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an IngestReport into a Kafka message keyed by
// job id.
func serializeToMessage(report domain.IngestReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize ingest report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.JobID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(report.Kind)},
			{Key: "status", Value: []byte(report.Status)},
			{Key: "finished_at", Value: []byte(report.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}
