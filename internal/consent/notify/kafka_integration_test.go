//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"consentd/internal/consent"
	"consentd/internal/consent/notify"
	platformkafka "consentd/internal/platform/kafka"
	"consentd/pkg/testutil/containers"
)

func TestKafkaSinkDeliversChangeEvents(t *testing.T) {
	ctx := context.Background()
	broker := containers.GetManager().GetKafka(t)

	topic := "consent.changes.test"
	require.NoError(t, broker.CreateTopic(ctx, topic, 1, 1))

	cfg := platformkafka.DefaultConfig()
	cfg.Brokers = broker.Brokers
	producer, err := platformkafka.NewProducer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer producer.Close()

	sink := notify.NewKafkaSink(producer, topic)
	bus := notify.NewBus()
	unsubscribe := bus.Subscribe(sink.Handle)
	defer unsubscribe()

	record := consent.NewCustom(consent.Categories{Analytics: true}, time.Now())
	require.NoError(t, bus.Publish(notify.Change{
		VisitorID:  "visitor-42",
		Record:     &record,
		OccurredAt: time.Now(),
	}))
	require.NoError(t, producer.Close())

	consumer, err := broker.NewConsumer("consentd-test", topic)
	require.NoError(t, err)
	defer consumer.Close()

	msg := broker.WaitForMessage(ctx, consumer, 30*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "visitor-42"
	})
	require.NotNil(t, msg, "change event never reached the topic")

	var payload struct {
		VisitorID  string          `json:"visitor_id"`
		Record     json.RawMessage `json:"record"`
		Cleared    bool            `json:"cleared"`
		OccurredAt time.Time       `json:"occurred_at"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	require.Equal(t, "visitor-42", payload.VisitorID)
	require.False(t, payload.Cleared)

	var got consent.Record
	require.NoError(t, json.Unmarshal(payload.Record, &got))
	require.True(t, got.Essential)
	require.True(t, got.Analytics)
}

func TestKafkaSinkMarksClears(t *testing.T) {
	ctx := context.Background()
	broker := containers.GetManager().GetKafka(t)

	topic := "consent.clears.test"
	require.NoError(t, broker.CreateTopic(ctx, topic, 1, 1))

	cfg := platformkafka.DefaultConfig()
	cfg.Brokers = broker.Brokers
	producer, err := platformkafka.NewProducer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	sink := notify.NewKafkaSink(producer, topic)
	require.NoError(t, sink.Handle(notify.Change{
		VisitorID:  "visitor-7",
		Record:     nil,
		OccurredAt: time.Now(),
	}))
	require.NoError(t, producer.Close())

	consumer, err := broker.NewConsumer("consentd-clears-test", topic)
	require.NoError(t, err)
	defer consumer.Close()

	msg := broker.WaitForMessage(ctx, consumer, 30*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "visitor-7"
	})
	require.NotNil(t, msg)

	var payload struct {
		Cleared bool            `json:"cleared"`
		Record  json.RawMessage `json:"record"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	require.True(t, payload.Cleared)
	require.Empty(t, payload.Record)
}
