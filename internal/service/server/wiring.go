package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/imaging"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/notify"
	repository "github.com/oshokin/catpoint/internal/repository/state"
	"github.com/oshokin/catpoint/internal/service/security"
)

// errUnknownDriver is returned for storage drivers Validate let through.
var errUnknownDriver = errors.New("unknown storage driver")

// closers releases resources in reverse order of acquisition.
type closers []io.Closer

func (c closers) Close() error {
	var errs []error

	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// historyRepository is implemented by storages that record alarm writes.
type historyRepository interface {
	AlarmHistory(ctx context.Context, limit int) ([]domain.AlarmChange, error)
}

// Storages keeping alarm history.
var _ historyRepository = (*repository.SQLiteRepository)(nil)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openRepository builds the configured state repository.
func openRepository(ctx context.Context, storage config.StorageConfig) (security.Repository, io.Closer, error) {
	switch storage.Driver {
	case config.DriverMemory:
		return repository.NewMemoryRepository(), closers{}, nil
	case config.DriverFile:
		repo, err := repository.NewFileRepository(storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open state file: %w", err)
		}

		return repo, closers{}, nil
	case config.DriverSQLite:
		repo, err := repository.NewSQLiteRepository(ctx, storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open state database: %w", err)
		}

		return repo, repo, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownDriver, storage.Driver)
	}
}

// newAnalyzer builds the configured image analyzer wrapped with retries and limits.
func newAnalyzer(image config.ImageConfig) (security.ImageAnalyzer, error) {
	var analyzer imaging.Analyzer

	switch image.Provider {
	case config.ProviderHTTP:
		httpAnalyzer, err := imaging.NewHTTPAnalyzer(image.Endpoint,
			imaging.WithHTTPClient(&http.Client{Timeout: image.Timeout}),
			imaging.WithTargetLabel(image.TargetLabel),
		)
		if err != nil {
			return nil, err
		}

		analyzer = httpAnalyzer
	default:
		switch image.FakeResult {
		case config.FakeResultCat:
			analyzer = imaging.NewFixedAnalyzer(true)
		case config.FakeResultNoCat:
			analyzer = imaging.NewFixedAnalyzer(false)
		default:
			analyzer = imaging.NewFakeAnalyzer(image.Seed)
		}
	}

	return imaging.NewResilient(analyzer,
		imaging.WithAttemptTimeout(image.Timeout),
		imaging.WithMaxRetries(image.MaxRetries),
		imaging.WithRateLimit(image.RequestsPerSecond, 1),
	), nil
}

// newListeners builds the log and metrics listeners plus the optional broker ones.
func newListeners(
	ctx context.Context,
	settings *config.Config,
	reg prometheus.Registerer,
) ([]security.StatusListener, io.Closer, error) {
	metrics, err := notify.NewMetricsListener(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("register metrics: %w", err)
	}

	var (
		listeners = []security.StatusListener{notify.NewLogListener(), metrics}
		release   closers
	)

	if len(settings.Kafka.Brokers) > 0 {
		producer, err := notify.NewKafkaProducer(ctx, notify.KafkaConfig{
			Brokers:  settings.Kafka.Brokers,
			Topic:    settings.Kafka.Topic,
			ClientID: settings.Kafka.ClientID,
		})
		if err != nil {
			return nil, nil, err
		}

		kafka := notify.NewKafkaListener(producer, settings.Kafka.Topic)
		listeners = append(listeners, kafka)
		release = append(release, kafka)

		logger.InfoKV(ctx, "Publishing events to kafka", "brokers", settings.Kafka.Brokers, "topic", settings.Kafka.Topic)
	}

	if settings.MQTT.Broker != "" {
		client, err := notify.NewMQTTClient(ctx, notify.MQTTConfig{
			Broker:         settings.MQTT.Broker,
			ClientID:       settings.MQTT.ClientID,
			ConnectTimeout: settings.Timeout,
		})
		if err != nil {
			_ = release.Close()

			return nil, nil, err
		}

		listeners = append(listeners, notify.NewMQTTListener(client, settings.MQTT.TopicPrefix))
		release = append(release, closerFunc(func() error {
			client.Disconnect(250)
			return nil
		}))

		logger.InfoKV(ctx, "Publishing state to mqtt", "broker", settings.MQTT.Broker)
	}

	return listeners, release, nil
}
