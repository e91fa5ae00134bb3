package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of the catpoint binaries.
type Config struct {
	// ServerAddress is the gRPC address of the security service.
	ServerAddress string `yaml:"server_addr" validate:"required"`
	// HTTPAddress is the health and metrics listen address; empty disables it.
	HTTPAddress string `yaml:"http_addr"`
	// Timeout bounds client RPC calls and server shutdown.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	// RequestLogLevel overrides LogLevel for gRPC request and HTTP access logs.
	RequestLogLevel string `yaml:"request_log_level" validate:"omitempty,oneof=debug info warn warning error"`
	// LogEncoding is console or json.
	LogEncoding string `yaml:"log_encoding" validate:"omitempty,oneof=console json"`
	// Storage selects the state repository.
	Storage StorageConfig `yaml:"storage"`
	// Image configures the image analyzer.
	Image ImageConfig `yaml:"image"`
	// Kafka enables event publishing when brokers are set.
	Kafka KafkaConfig `yaml:"kafka"`
	// MQTT enables state publishing when a broker is set.
	MQTT MQTTConfig `yaml:"mqtt"`
}

// StorageConfig selects where sensors and statuses live.
type StorageConfig struct {
	// Driver is memory, file or sqlite.
	Driver string `yaml:"driver" validate:"oneof=memory file sqlite"`
	// Path is the state file or database path; unused by memory.
	Path string `yaml:"path" validate:"required_unless=Driver memory"`
}

// ImageConfig configures cat detection.
type ImageConfig struct {
	// Provider is fake or http.
	Provider string `yaml:"provider" validate:"oneof=fake http"`
	// FakeResult is random, cat or no_cat; used by the fake provider.
	FakeResult string `yaml:"fake_result" validate:"omitempty,oneof=random cat no_cat"`
	// Seed seeds the random fake provider.
	Seed uint64 `yaml:"seed"`
	// Endpoint is the label detection URL of the http provider.
	Endpoint string `yaml:"endpoint" validate:"required_if=Provider http"`
	// TargetLabel is the label looked for, "cat" by default.
	TargetLabel string `yaml:"target_label"`
	// ConfidenceThreshold is the minimal label confidence in percent.
	ConfidenceThreshold float32 `yaml:"confidence_threshold" validate:"gt=0,lte=100"`
	// Timeout bounds one analyzer attempt.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries is the number of retries after a failed attempt.
	MaxRetries uint64 `yaml:"max_retries" validate:"lte=10"`
	// RequestsPerSecond limits analyzer calls; zero disables the limit.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
}

// KafkaConfig configures the event producer.
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers" validate:"omitempty,dive,hostname_port"`
	Topic    string   `yaml:"topic" validate:"required_with=Brokers"`
	ClientID string   `yaml:"client_id"`
}

// MQTTConfig configures the state publisher.
type MQTTConfig struct {
	Broker      string `yaml:"broker" validate:"omitempty,url"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "catpoint-settings.yaml"

	// DefaultStateFilename is the default state file of the file driver.
	DefaultStateFilename = "catpoint-state.json"

	// DefaultServerAddress is the default gRPC address.
	DefaultServerAddress = "127.0.0.1:50051"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultConfidenceThreshold is the default minimal label confidence.
	DefaultConfidenceThreshold = 50

	// DefaultMaxRetries is the default number of analyzer retries.
	DefaultMaxRetries = 3

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Image providers.
const (
	ProviderFake = "fake"
	ProviderHTTP = "http"
)

// Fake provider results.
const (
	FakeResultRandom = "random"
	FakeResultCat    = "cat"
	FakeResultNoCat  = "no_cat"
)

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
)

//nolint:gochecknoglobals // The validator caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the settings used when a key is absent.
func Default() *Config {
	return &Config{
		ServerAddress: DefaultServerAddress,
		Timeout:       DefaultTimeout,
		LogLevel:      "info",
		LogEncoding:   "console",
		Storage: StorageConfig{
			Driver: DriverFile,
			Path:   DefaultStateFilename,
		},
		Image: ImageConfig{
			Provider:            ProviderFake,
			FakeResult:          FakeResultRandom,
			ConfidenceThreshold: DefaultConfidenceThreshold,
			Timeout:             DefaultTimeout,
			MaxRetries:          DefaultMaxRetries,
		},
		MQTT: MQTTConfig{
			TopicPrefix: "catpoint",
		},
	}
}

// Load reads configuration from the provided path on top of Default and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills zero durations and checks the settings.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	// Set default timeouts if not specified.
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.Image.Timeout <= 0 {
		settings.Image.Timeout = DefaultTimeout
	}

	if err := validate.Struct(settings); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("%w: invalid server socket: %w", ErrInvalidConfig, err)
	}

	if settings.HTTPAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.HTTPAddress); err != nil {
			return fmt.Errorf("%w: invalid http socket: %w", ErrInvalidConfig, err)
		}
	}

	if settings.Image.Provider == ProviderHTTP {
		if _, err := url.ParseRequestURI(settings.Image.Endpoint); err != nil {
			return fmt.Errorf("%w: invalid image endpoint URI: %w", ErrInvalidConfig, err)
		}
	}

	return nil
}
