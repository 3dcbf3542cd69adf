// Package kafka streams audit events to a Kafka topic for downstream
// compliance and security pipelines.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "keygate/pkg/platform/audit"
)

// Publisher writes audit events to a single topic, keyed by principal so one
// principal's history lands in one partition in order.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// record is the wire form of an audit event.
type record struct {
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Principal string `json:"principal"`
	Actor     string `json:"actor,omitempty"`
	PolicyID  uint64 `json:"policy_id,omitempty"`
	SaleID    string `json:"sale_id,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewPublisher connects to the given brokers. Close must be called to flush
// buffered records.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Emit publishes one audit event. Delivery is asynchronous; Kafka back
// pressure never stalls the hook path.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	rec, err := Encode(event, p.topic)
	if err != nil {
		return err
	}
	p.client.Produce(ctx, rec, nil)
	return nil
}

// Encode converts an audit event into a Kafka record.
func Encode(event audit.Event, topic string) (*kgo.Record, error) {
	value, err := json.Marshal(record{
		Category:  string(event.Category),
		Timestamp: event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Action:    event.Action,
		Principal: event.Principal.Hex(),
		Actor:     actorField(event),
		PolicyID:  uint64(event.PolicyID),
		SaleID:    saleField(event),
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode audit event: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.Principal.Hex()),
		Value: value,
	}, nil
}

func actorField(event audit.Event) string {
	if event.Actor.IsZero() {
		return ""
	}
	return event.Actor.Hex()
}

func saleField(event audit.Event) string {
	if event.SaleID.IsNil() {
		return ""
	}
	return event.SaleID.String()
}

// Close flushes pending records and tears down the client.
func (p *Publisher) Close() {
	p.client.Close()
}
