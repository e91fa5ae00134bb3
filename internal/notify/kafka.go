package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// ErrNoBrokers is returned when a Kafka producer is requested without brokers.
var ErrNoBrokers = errors.New("no kafka brokers configured")

// KafkaConfig holds the producer settings.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
	// MaxElapsedTime bounds connection retries; zero means one minute.
	MaxElapsedTime time.Duration
}

// NewKafkaProducer connects a synchronous producer, retrying with exponential backoff.
func NewKafkaProducer(ctx context.Context, cfg KafkaConfig) (sarama.SyncProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	config := sarama.NewConfig()
	config.ClientID = cfg.ClientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V3_6_0_0

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = time.Second
	expBackoff.MaxElapsedTime = cfg.MaxElapsedTime

	if expBackoff.MaxElapsedTime <= 0 {
		expBackoff.MaxElapsedTime = time.Minute
	}

	connect := func() (sarama.SyncProducer, error) {
		producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
		if err != nil {
			return nil, fmt.Errorf("creating producer: %w", err)
		}

		return producer, nil
	}

	notify := func(err error, wait time.Duration) {
		logger.WarnKV(ctx, "Kafka is not reachable yet", "error", err, "retry_in", wait.String())
	}

	producer, err := backoff.RetryNotifyWithData(connect, backoff.WithContext(expBackoff, ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("failed to connect kafka producer after retries: %w", err)
	}

	return producer, nil
}

// KafkaListener publishes notifications as JSON events keyed by event type.
type KafkaListener struct {
	producer sarama.SyncProducer
	topic    string
	now      Clock
}

// NewKafkaListener creates a listener publishing to topic.
func NewKafkaListener(producer sarama.SyncProducer, topic string) *KafkaListener {
	return &KafkaListener{
		producer: producer,
		topic:    topic,
		now:      time.Now,
	}
}

// AlarmStatusChanged publishes an alarm_status_changed event.
func (l *KafkaListener) AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	l.publish(ctx, alarmEvent(l.now, status))
}

// CatDetected publishes a cat_detected event.
func (l *KafkaListener) CatDetected(ctx context.Context, detected bool) {
	l.publish(ctx, catEvent(l.now, detected))
}

// SensorStatusChanged publishes a sensors_changed event.
func (l *KafkaListener) SensorStatusChanged(ctx context.Context) {
	l.publish(ctx, newEvent(l.now, EventSensorsChanged))
}

// Close closes the producer.
func (l *KafkaListener) Close() error {
	return l.producer.Close()
}

func (l *KafkaListener) publish(ctx context.Context, event Event) {
	payload, err := event.Encode()
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode event", "type", event.Type, "error", err)
		return
	}

	partition, offset, err := l.producer.SendMessage(&sarama.ProducerMessage{
		Topic: l.topic,
		Key:   sarama.StringEncoder(event.Type),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		logger.ErrorKV(ctx, "Failed to publish event to kafka", "type", event.Type, "error", err)
		return
	}

	logger.DebugKV(ctx, "Event published to kafka",
		"type", event.Type,
		"id", event.ID,
		"partition", partition,
		"offset", offset)
}
