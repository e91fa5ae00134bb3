package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/common"
)

// Options configures catpointctl.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	// With an override a missing settings file is not an error.
	ServerAddress string

	// Output receives the rendered result; os.Stdout when nil.
	Output io.Writer
}

// Action runs one call on a connected client and renders its result.
type Action func(ctx context.Context, client *common.Client, r *Renderer) (string, error)

// Run connects to the server, runs action and prints its output.
func Run(ctx context.Context, opts *Options, action Action) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "catpointctl")

	cfg, err := loadSettings(opts)
	if err != nil {
		return err
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	client, err := common.Dial(ctx, cfg.ServerAddress,
		common.WithCallTimeout(cfg.Timeout),
		common.WithActor(actor))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Calling catpoint server", "server_address", cfg.ServerAddress, "actor", actor.String())

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	result, err := action(ctx, client, NewRenderer(out))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, result)

	return err
}

// loadSettings reads settings and applies the server override.
func loadSettings(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)

	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && opts.ServerAddress != "":
		cfg = config.Default()
	default:
		return nil, err
	}

	if opts.ServerAddress != "" {
		cfg.ServerAddress = opts.ServerAddress
	}

	return cfg, nil
}

// ShowStatus prints the status snapshot.
func ShowStatus() Action {
	return func(ctx context.Context, client *common.Client, r *Renderer) (string, error) {
		snapshot, err := client.GetStatus(ctx)
		if err != nil {
			return "", err
		}

		return r.Snapshot(snapshot), nil
	}
}

// SetArming arms or disarms the system.
func SetArming(arming domain.ArmingStatus) Action {
	return func(ctx context.Context, client *common.Client, r *Renderer) (string, error) {
		snapshot, err := client.SetArmingStatus(ctx, arming)
		if err != nil {
			return "", err
		}

		return r.Snapshot(snapshot), nil
	}
}

// ListSensors prints the sensors.
func ListSensors() Action {
	return func(ctx context.Context, client *common.Client, r *Renderer) (string, error) {
		sensors, err := client.ListSensors(ctx)
		if err != nil {
			return "", err
		}

		return r.Sensors(sensors), nil
	}
}

// AddSensor registers a sensor.
func AddSensor(sensor domain.Sensor) Action {
	return func(ctx context.Context, client *common.Client, _ *Renderer) (string, error) {
		if err := client.AddSensor(ctx, sensor); err != nil {
			return "", err
		}

		return fmt.Sprintf("added %s sensor %q", sensor.Type, sensor.Name), nil
	}
}

// RemoveSensor unregisters a sensor.
func RemoveSensor(sensor domain.Sensor) Action {
	return func(ctx context.Context, client *common.Client, _ *Renderer) (string, error) {
		if err := client.RemoveSensor(ctx, sensor); err != nil {
			return "", err
		}

		return fmt.Sprintf("removed %s sensor %q", sensor.Type, sensor.Name), nil
	}
}

// ChangeSensor activates or deactivates a sensor.
func ChangeSensor(sensor domain.Sensor, active bool) Action {
	return func(ctx context.Context, client *common.Client, r *Renderer) (string, error) {
		snapshot, err := client.ChangeSensor(ctx, sensor, active)
		if err != nil {
			return "", err
		}

		return r.Snapshot(snapshot), nil
	}
}

// ScanImage sends the image file at path for analysis.
func ScanImage(path string) Action {
	return func(ctx context.Context, client *common.Client, r *Renderer) (string, error) {
		image, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return "", fmt.Errorf("read image: %w", err)
		}

		snapshot, err := client.ProcessImage(ctx, image)
		if err != nil {
			return "", err
		}

		return r.Snapshot(snapshot), nil
	}
}

// ShowHistory prints the latest alarm status writes; zero asks for the server default.
func ShowHistory(limit int) Action {
	return func(ctx context.Context, client *common.Client, r *Renderer) (string, error) {
		history, err := client.AlarmHistory(ctx, limit)
		if err != nil {
			return "", err
		}

		return r.History(history), nil
	}
}
