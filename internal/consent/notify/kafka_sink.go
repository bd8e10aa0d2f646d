package notify

import (
	"encoding/json"
	"time"

	"consentd/internal/platform/kafka"
)

// DefaultChangeTopic is where consent change events land for downstream
// consumers (analytics gating, preference sync).
const DefaultChangeTopic = "consent.changes"

// AsyncProducer is the slice of the kafka producer the sink needs.
type AsyncProducer interface {
	ProduceAsync(msg *kafka.Message) error
}

// changePayload is the wire shape published to the change topic.
type changePayload struct {
	VisitorID  string          `json:"visitor_id"`
	Record     json.RawMessage `json:"record,omitempty"`
	Cleared    bool            `json:"cleared,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// KafkaSink forwards change events to a kafka topic, keyed by visitor ID so
// per-visitor ordering holds within a partition.
type KafkaSink struct {
	producer AsyncProducer
	topic    string
}

func NewKafkaSink(producer AsyncProducer, topic string) *KafkaSink {
	if topic == "" {
		topic = DefaultChangeTopic
	}
	return &KafkaSink{producer: producer, topic: topic}
}

// Handle implements Listener.
func (s *KafkaSink) Handle(change Change) error {
	payload := changePayload{
		VisitorID:  change.VisitorID,
		Cleared:    change.Record == nil,
		OccurredAt: change.OccurredAt,
	}
	if change.Record != nil {
		raw, err := json.Marshal(change.Record)
		if err != nil {
			return err
		}
		payload.Record = raw
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.producer.ProduceAsync(&kafka.Message{
		Topic: s.topic,
		Key:   []byte(change.VisitorID),
		Value: value,
	})
}
