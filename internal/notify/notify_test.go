package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/security"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// Listeners must satisfy the engine interface.
var (
	_ security.StatusListener = (*LogListener)(nil)
	_ security.StatusListener = (*KafkaListener)(nil)
	_ security.StatusListener = (*MQTTListener)(nil)
	_ security.StatusListener = (*MetricsListener)(nil)
)

// TestEvent_Encode checks the envelope fields.
func TestEvent_Encode(t *testing.T) {
	t.Parallel()

	payload, err := catEvent(fixedClock, false).Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, "cat_detected", decoded["type"])
	require.Equal(t, false, decoded["cat_detected"])
	require.Equal(t, "2024-05-01T12:00:00Z", decoded["occurred_at"])
	require.NotContains(t, decoded, "alarm_status")

	_, err = uuid.Parse(decoded["id"].(string))
	require.NoError(t, err)

	payload, err = newEvent(fixedClock, EventSensorsChanged).Encode()
	require.NoError(t, err)
	require.NotContains(t, string(payload), "cat_detected")
}

// TestLogListener writes one entry per notification.
func TestLogListener(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())

	l := NewLogListener()
	l.AlarmStatusChanged(ctx, domain.Alarm)
	l.AlarmStatusChanged(ctx, domain.PendingAlarm)
	l.CatDetected(ctx, true)
	l.SensorStatusChanged(ctx)

	entries := logs.All()
	require.Len(t, entries, 4)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	require.Equal(t, "ALARM", entries[0].ContextMap()["alarm_status"])
	require.Equal(t, zapcore.InfoLevel, entries[1].Level)
	require.Equal(t, true, entries[2].ContextMap()["cat_detected"])
}

func newMockProducer(t *testing.T) *mocks.SyncProducer {
	t.Helper()

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true

	return mocks.NewSyncProducer(t, config)
}

// TestKafkaListener publishes one JSON event per notification.
func TestKafkaListener(t *testing.T) {
	t.Parallel()

	producer := newMockProducer(t)

	expectType := func(eventType EventType, check func(Event)) {
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var e Event
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}

			if e.Type != eventType {
				return errors.New("unexpected event type " + string(e.Type))
			}

			check(e)

			return nil
		})
	}

	expectType(EventAlarmStatusChanged, func(e Event) {
		require.Equal(t, "PENDING_ALARM", e.AlarmStatus)
	})
	expectType(EventCatDetected, func(e Event) {
		require.NotNil(t, e.CatDetected)
		require.True(t, *e.CatDetected)
	})
	expectType(EventSensorsChanged, func(e Event) {
		require.True(t, fixedNow.Equal(e.OccurredAt))
	})

	l := NewKafkaListener(producer, "catpoint.events")
	l.now = fixedClock

	ctx := context.Background()
	l.AlarmStatusChanged(ctx, domain.PendingAlarm)
	l.CatDetected(ctx, true)
	l.SensorStatusChanged(ctx)

	require.NoError(t, l.Close())
}

// TestKafkaListener_SendFailureIsLogged keeps going when the broker fails.
func TestKafkaListener_SendFailureIsLogged(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())

	producer := newMockProducer(t)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	l := NewKafkaListener(producer, "catpoint.events")
	l.AlarmStatusChanged(ctx, domain.Alarm)

	require.Equal(t, 1, logs.FilterMessage("Failed to publish event to kafka").Len())
	require.NoError(t, l.Close())
}

// TestNewKafkaProducer_RequiresBrokers fails fast without brokers.
func TestNewKafkaProducer_RequiresBrokers(t *testing.T) {
	t.Parallel()

	_, err := NewKafkaProducer(context.Background(), KafkaConfig{})
	require.ErrorIs(t, err, ErrNoBrokers)
}

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool { return !t.timeout }

func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)

	return ch
}

func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	retained bool
	payload  any
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	token    *fakeToken
}

func (p *fakePublisher) Publish(topic string, _ byte, retained bool, payload any) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, published{topic: topic, retained: retained, payload: payload})

	if p.token != nil {
		return p.token
	}

	return &fakeToken{}
}

// TestMQTTListener publishes retained state topics under the prefix.
func TestMQTTListener(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	l := NewMQTTListener(pub, "/home/catpoint/")
	l.now = fixedClock

	ctx := context.Background()
	l.AlarmStatusChanged(ctx, domain.Alarm)
	l.CatDetected(ctx, false)
	l.SensorStatusChanged(ctx)

	require.Len(t, pub.messages, 3)
	require.Equal(t, published{topic: "home/catpoint/alarm_status", retained: true, payload: "ALARM"}, pub.messages[0])
	require.Equal(t, published{topic: "home/catpoint/cat_detected", retained: true, payload: "false"}, pub.messages[1])
	require.Equal(t, "home/catpoint/sensors_changed", pub.messages[2].topic)
	require.False(t, pub.messages[2].retained)
	require.Contains(t, string(pub.messages[2].payload.([]byte)), `"type":"sensors_changed"`)

	require.Equal(t, "catpoint/alarm_status", NewMQTTListener(pub, "").Topic("alarm_status"))
}

// TestMQTTListener_Failures logs timeouts and broker errors.
func TestMQTTListener_Failures(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())

	pub := &fakePublisher{token: &fakeToken{timeout: true}}
	NewMQTTListener(pub, "").AlarmStatusChanged(ctx, domain.NoAlarm)

	pub.token = &fakeToken{err: errors.New("not connected")}
	NewMQTTListener(pub, "").CatDetected(ctx, true)

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, ErrPublishTimeout.Error(), entries[0].ContextMap()["error"])
	require.Equal(t, "not connected", entries[1].ContextMap()["error"])
}

// TestNewMQTTClient_UnreachableBroker returns instead of waiting for a broker forever.
func TestNewMQTTClient_UnreachableBroker(t *testing.T) {
	t.Parallel()

	// The listener accepts TCP but never answers CONNECT.
	silent, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { _ = silent.Close() })

	go func() {
		for {
			conn, acceptErr := silent.Accept()
			if acceptErr != nil {
				return
			}

			go func() {
				_, _ = io.Copy(io.Discard, conn)
				_ = conn.Close()
			}()
		}
	}()

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	closedAddr := closed.Addr().String()
	_ = closed.Close()

	for name, broker := range map[string]string{
		"silent": "tcp://" + silent.Addr().String(),
		"closed": "tcp://" + closedAddr,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			started := time.Now()

			client, err := NewMQTTClient(context.Background(), MQTTConfig{
				Broker:         broker,
				ClientID:       "catpoint-test",
				ConnectTimeout: 200 * time.Millisecond,
			})
			require.Error(t, err)
			require.Nil(t, client)
			require.Less(t, time.Since(started), 3*time.Second)
		})
	}
}

// TestMetricsListener tracks the latest state and counts events.
func TestMetricsListener(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()

	m, err := NewMetricsListener(reg)
	require.NoError(t, err)

	ctx := context.Background()
	m.AlarmStatusChanged(ctx, domain.PendingAlarm)
	m.AlarmStatusChanged(ctx, domain.Alarm)
	m.AlarmStatusChanged(ctx, domain.Alarm)
	m.CatDetected(ctx, true)
	m.CatDetected(ctx, false)
	m.SensorStatusChanged(ctx)

	require.InDelta(t, 3, testutil.ToFloat64(m.alarmStatus), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.alarmTransitions.WithLabelValues("ALARM")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.alarmTransitions.WithLabelValues("PENDING_ALARM")), 0)
	require.InDelta(t, 0, testutil.ToFloat64(m.catDetected), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.imagesAnalyzed.WithLabelValues("true")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.sensorChanges), 0)

	_, err = NewMetricsListener(reg)
	require.Error(t, err)
}
