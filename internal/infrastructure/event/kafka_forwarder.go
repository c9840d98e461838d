package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Record header keys set on every forwarded event
const (
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderAggregateType = "aggregate_type"
)

// RecordProducer is the subset of *kgo.Client the forwarder needs
type RecordProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaForwarder publishes every domain event to a Kafka topic.
// Records are keyed by aggregate so one shipment's events stay ordered within a partition.
type KafkaForwarder struct {
	producer   RecordProducer
	topic      string
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewKafkaForwarder creates a forwarder writing to topic
func NewKafkaForwarder(producer RecordProducer, topic string, serializer *EventSerializer, logger *zap.Logger) *KafkaForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaForwarder{
		producer:   producer,
		topic:      topic,
		serializer: serializer,
		logger:     logger,
	}
}

// EventTypes subscribes to all events
func (f *KafkaForwarder) EventTypes() []string {
	return nil
}

// Handle produces the event and waits for the broker acknowledgement
func (f *KafkaForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := f.serializer.Serialize(event)
	if err != nil {
		return err
	}

	record := &kgo.Record{
		Topic:     f.topic,
		Key:       []byte(event.AggregateType() + "/" + event.AggregateID()),
		Value:     payload,
		Timestamp: event.OccurredAt(),
		Headers: []kgo.RecordHeader{
			{Key: HeaderEventType, Value: []byte(event.EventType())},
			{Key: HeaderEventID, Value: []byte(event.EventID().String())},
			{Key: HeaderAggregateType, Value: []byte(event.AggregateType())},
		},
	}

	if err := f.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s to %s: %w", event.EventType(), f.topic, err)
	}

	f.logger.Debug("event forwarded to kafka",
		zap.String("topic", f.topic),
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
	)
	return nil
}

// NewKafkaClient connects a producer client to the given brokers
func NewKafkaClient(ctx context.Context, brokers []string, clientID string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}
	return client, nil
}

// EnsureTopic creates topic unless it already exists
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(client)

	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

var _ shared.EventHandler = (*KafkaForwarder)(nil)
