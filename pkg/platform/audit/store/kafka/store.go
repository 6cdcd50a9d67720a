// Package kafka forwards audit events to a Kafka topic with franz-go.
//
// Records are keyed by user ID so every event for one user lands on the same
// partition and keeps its order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "kycgate/pkg/platform/audit"
)

const (
	defaultPartitions        = 3
	defaultReplicationFactor = 1
)

// Store implements audit.Store by producing JSON records.
type Store struct {
	client *kgo.Client
	topic  string
}

// New connects a producer to brokers. The client is lazy: no broker is contacted
// until the first produce or EnsureTopic call.
func New(brokers []string, topic string, opts ...kgo.Opt) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	opts = append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}, opts...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Store{client: client, topic: topic}, nil
}

// EnsureTopic creates the audit topic if it does not exist yet.
func (s *Store) EnsureTopic(ctx context.Context) error {
	admin := kadm.NewClient(s.client)
	resps, err := admin.CreateTopics(ctx, defaultPartitions, defaultReplicationFactor, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

// Append produces the event synchronously.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Key:   recordKey(event),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "category", Value: []byte(event.Category)},
		},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Client exposes the underlying franz-go client (used by integration tests to consume).
func (s *Store) Client() *kgo.Client {
	return s.client
}

func (s *Store) Close() {
	s.client.Close()
}

// recordKey keeps a user's events on one partition; tenant lifecycle events
// carry no user and are keyed by tenant instead.
func recordKey(event audit.Event) []byte {
	if !event.UserID.IsNil() {
		return []byte(event.UserID.String())
	}
	return []byte(event.TenantID.String())
}
