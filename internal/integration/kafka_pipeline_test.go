//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/files"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/kafka"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/memory"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/config"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/ingest"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/observability"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/pipeline"
)

const (
	testJobTopic    = "test-jobs"
	testReportTopic = "test-reports"
)

// publishedReport holds a deserialized message read from the report topic.
type publishedReport struct {
	Report  domain.IngestReport
	Key     string
	Headers map[string]string
}

// readReport reads a single message from the report consumer and deserializes it.
func readReport(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedReport {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from report topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var report domain.IngestReport
	require.NoError(t, json.Unmarshal(msg.Value, &report), "unmarshal report message")

	return publishedReport{Report: report, Key: string(msg.Key), Headers: headers}
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaJobTopic:      testJobTopic,
		KafkaReportTopic:   testReportTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func reportConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testReportTopic,
		GroupID:     fmt.Sprintf("test-reports-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// writeIncidentCSV writes a two-incident export for Mae Rim on 3 May 2024,
// once in Gregorian and once in Buddhist-era notation.
func writeIncidentCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "landslide_2024.csv")
	data := "date,province,district\n" +
		"2024-05-03,Chiang Mai,Mae Rim\n" +
		"3/5/2567,จังหวัดเชียงใหม่,แม่ริม\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func newService(store *memory.Store, metrics *observability.Metrics) *ingest.Service {
	stores := ingest.Stores{
		Reference:       store,
		ReferenceWriter: store,
		Uploads:         store,
		Rain:            store.Rain,
		Risk:            store.Risk,
		Incidents:       store.Incidents,
	}
	return ingest.New(ingest.Options{}, files.Sources("", discardLogger()), stores, metrics, discardLogger())
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader and
// kafka.Writer round-trip a job and its report through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testJobTopic)
	createTopic(t, broker, testReportTopic)
	cfg := testConfig(broker, "test-reader")

	payload := []byte(`{"id":"job-1","kind":"rain","path":"/data/storage/rain/2024-05.nc"}`)
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testJobTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{Key: []byte("job-1"), Value: payload}))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	batch, err := reader.ExtractBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("job-1"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testJobTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	job, err := pipeline.DecodeJob(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.KindRain, job.Kind)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	finished := time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)
	require.NoError(t, writer.LoadBatch(ctx, []domain.IngestReport{{
		JobID: job.ID, Kind: job.Kind, Written: 12, Status: domain.StatusSucceeded, FinishedAt: finished,
	}}))

	pr := readReport(ctx, t, reportConsumer(t, broker))
	assert.Equal(t, "job-1", pr.Key)
	assert.Equal(t, "rain", pr.Headers["kind"])
	assert.Equal(t, "succeeded", pr.Headers["status"])
	assert.Equal(t, finished.Format(time.RFC3339), pr.Headers["finished_at"])
	assert.Equal(t, 12, pr.Report.Written)
}

// TestPipelineEndToEnd runs the worker against real Kafka: an incident job
// is ingested into the store and resubmitting it writes nothing.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testJobTopic)
	createTopic(t, broker, testReportTopic)
	cfg := testConfig(broker, "test-pipeline")

	path := writeIncidentCSV(t)
	job, err := json.Marshal(domain.Job{Kind: domain.KindIncident, Path: path})
	require.NoError(t, err)

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testJobTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("first"), Value: job},
		kafkago.Message{Key: []byte("resubmitted"), Value: job},
	))

	store := seededStore()
	metrics := observability.NewMetricsForTesting()

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, pipeline.NewProcessor(newService(store, metrics), discardLogger()), writer, discardLogger(), metrics, 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := reportConsumer(t, broker)
	first := readReport(ctx, t, consumer)
	second := readReport(ctx, t, consumer)

	pipelineCancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, "first", first.Key)
	assert.Equal(t, domain.StatusSucceeded, first.Report.Status)
	assert.Equal(t, 1, first.Report.Written)
	assert.Equal(t, "landslide_2024.csv", first.Report.Filename)

	assert.Equal(t, "resubmitted", second.Key)
	assert.Zero(t, second.Report.Written)
	assert.Equal(t, 1, second.Report.AlreadyPersisted)

	rows := store.Incidents.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].CountOfDisasters)
	assert.Equal(t, int64(10), rows[0].DistrictID)
}

// TestPipelinePoisonJob verifies that an undecodable job is skipped and the
// worker keeps processing the jobs after it.
func TestPipelinePoisonJob(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testJobTopic)
	createTopic(t, broker, testReportTopic)
	cfg := testConfig(broker, "test-poison")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testJobTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("missing"), Value: []byte(`{"kind":"incident","path":"/no/such/file.csv"}`)},
	))

	metrics := observability.NewMetricsForTesting()
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, pipeline.NewProcessor(newService(seededStore(), metrics), discardLogger()), writer, discardLogger(), metrics, 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := reportConsumer(t, broker)
	pr := readReport(ctx, t, consumer)
	assert.Equal(t, "missing", pr.Key)
	assert.Equal(t, domain.StatusFailed, pr.Report.Status)
	assert.NotEmpty(t, pr.Report.Error)

	// Verify no second report arrives (the poison pill was skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on report topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
