package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

const (
	// DefaultTopicPrefix is used when no MQTT topic prefix is configured.
	DefaultTopicPrefix = "catpoint"
	// mqttQoS is "at least once".
	mqttQoS byte = 1
	// publishTimeout bounds the wait for a broker acknowledgement.
	publishTimeout = 5 * time.Second
)

var (
	// ErrPublishTimeout is returned when the broker does not acknowledge in time.
	ErrPublishTimeout = errors.New("mqtt publish timed out")
	// ErrConnectTimeout is returned when the first connection is not up in time.
	ErrConnectTimeout = errors.New("mqtt connect timed out")
)

// Publisher is the part of mqtt.Client used by MQTTListener.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// MQTTConfig holds the broker settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	// ConnectTimeout bounds the first connection; zero means five seconds.
	ConnectTimeout time.Duration
}

// NewMQTTClient connects to the broker once and fails if that does not succeed
// within the connect timeout. The client reconnects on its own afterwards.
func NewMQTTClient(ctx context.Context, cfg MQTTConfig) (mqtt.Client, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = publishTimeout
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.WarnKV(ctx, "MQTT connection lost", "error", err)
		})

	client := mqtt.NewClient(opts)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token := client.Connect()
	select {
	case <-token.Done():
	case <-waitCtx.Done():
		// Disconnect waits for the pending attempt to finish.
		go client.Disconnect(0)

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %s", ErrConnectTimeout, cfg.Broker)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to mqtt broker %s: %w", cfg.Broker, err)
	}

	return client, nil
}

// MQTTListener publishes retained state topics so late subscribers see the current state:
//
//	<prefix>/alarm_status     NO_ALARM | PENDING_ALARM | ALARM
//	<prefix>/cat_detected     true | false
//	<prefix>/sensors_changed  JSON event, not retained
type MQTTListener struct {
	publisher Publisher
	prefix    string
	now       Clock
}

// NewMQTTListener creates a listener publishing under prefix.
func NewMQTTListener(publisher Publisher, prefix string) *MQTTListener {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}

	return &MQTTListener{
		publisher: publisher,
		prefix:    prefix,
		now:       time.Now,
	}
}

// Topic returns the full topic for name.
func (l *MQTTListener) Topic(name string) string {
	return l.prefix + "/" + name
}

// AlarmStatusChanged publishes the retained alarm status.
func (l *MQTTListener) AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	l.publish(ctx, l.Topic("alarm_status"), true, status.String())
}

// CatDetected publishes the retained cat flag.
func (l *MQTTListener) CatDetected(ctx context.Context, detected bool) {
	l.publish(ctx, l.Topic("cat_detected"), true, fmt.Sprint(detected))
}

// SensorStatusChanged publishes a sensors_changed event.
func (l *MQTTListener) SensorStatusChanged(ctx context.Context) {
	payload, err := newEvent(l.now, EventSensorsChanged).Encode()
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode event", "error", err)
		return
	}

	l.publish(ctx, l.Topic("sensors_changed"), false, payload)
}

func (l *MQTTListener) publish(ctx context.Context, topic string, retained bool, payload any) {
	token := l.publisher.Publish(topic, mqttQoS, retained, payload)

	var err error
	if token.WaitTimeout(publishTimeout) {
		err = token.Error()
	} else {
		err = ErrPublishTimeout
	}

	if err != nil {
		logger.ErrorKV(ctx, "Failed to publish to mqtt", "topic", topic, "error", err)
	}
}
