package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentd/internal/consent"
	"consentd/internal/platform/kafka"
)

type capturingProducer struct {
	messages []*kafka.Message
}

func (p *capturingProducer) ProduceAsync(msg *kafka.Message) error {
	p.messages = append(p.messages, msg)
	return nil
}

func TestKafkaSinkPublishesRecord(t *testing.T) {
	producer := &capturingProducer{}
	sink := NewKafkaSink(producer, "")

	record := consent.NewCustom(consent.Categories{Analytics: true}, time.Now())
	err := sink.Handle(Change{VisitorID: "v42", Record: &record, OccurredAt: time.Now()})
	require.NoError(t, err)

	require.Len(t, producer.messages, 1)
	msg := producer.messages[0]
	assert.Equal(t, DefaultChangeTopic, msg.Topic)
	assert.Equal(t, []byte("v42"), msg.Key)

	var payload struct {
		VisitorID string          `json:"visitor_id"`
		Record    *consent.Record `json:"record"`
		Cleared   bool            `json:"cleared"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "v42", payload.VisitorID)
	assert.False(t, payload.Cleared)
	require.NotNil(t, payload.Record)
	assert.True(t, payload.Record.Analytics)
	assert.False(t, payload.Record.Marketing)
}

func TestKafkaSinkPublishesClear(t *testing.T) {
	producer := &capturingProducer{}
	sink := NewKafkaSink(producer, "consent.test")

	err := sink.Handle(Change{VisitorID: "v42", Record: nil, OccurredAt: time.Now()})
	require.NoError(t, err)

	require.Len(t, producer.messages, 1)
	assert.Equal(t, "consent.test", producer.messages[0].Topic)

	var payload struct {
		Cleared bool            `json:"cleared"`
		Record  json.RawMessage `json:"record"`
	}
	require.NoError(t, json.Unmarshal(producer.messages[0].Value, &payload))
	assert.True(t, payload.Cleared)
	assert.Empty(t, payload.Record)
}
