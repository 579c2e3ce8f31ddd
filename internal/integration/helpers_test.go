//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/memory"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

// startKafka runs a single-node broker for the test and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("geo-ingest-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seededStore holds the two northern provinces the incident fixtures use.
func seededStore() *memory.Store {
	s := memory.New()
	s.Seed(
		[]domain.Province{
			{ID: 1, Name: "เชียงใหม่", NameEN: "Chiang Mai"},
			{ID: 2, Name: "ลำพูน", NameEN: "Lamphun"},
		},
		[]domain.District{
			{ID: 10, Name: "แม่ริม", NameEN: "Mae Rim", ProvinceID: 1},
			{ID: 20, Name: "เมืองลำพูน", NameEN: "Mueang Lamphun", ProvinceID: 2},
		},
	)
	return s
}
