package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic receives all contact audit events.
const DefaultTopic = "unify.contact.audit"

// KafkaSink publishes audit events to a Kafka topic as JSON records.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink dials the given comma-separated broker list.
func NewKafkaSink(brokers, topic string) (*KafkaSink, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(brokers, ",")...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Action),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes outstanding records and releases the client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
