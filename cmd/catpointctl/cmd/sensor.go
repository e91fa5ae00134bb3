package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/service/client"
)

var errUnknownArmMode = errors.New("arm mode must be home or away")

// parseArmMode maps the arm argument to an arming status.
func parseArmMode(mode string) (domain.ArmingStatus, error) {
	switch strings.ToLower(mode) {
	case "home":
		return domain.ArmedHome, nil
	case "away":
		return domain.ArmedAway, nil
	default:
		return domain.ArmingStatusUnknown, fmt.Errorf("%w: %q", errUnknownArmMode, mode)
	}
}

// parseSensorArgs builds a sensor from NAME TYPE arguments.
func parseSensorArgs(args []string) (domain.Sensor, error) {
	sensorType, err := domain.ParseSensorType(args[1])
	if err != nil {
		return domain.Sensor{}, err
	}

	return domain.Sensor{
		Name: args[0],
		Type: sensorType,
	}, nil
}

// sensorCommand builds a NAME TYPE subcommand running the action returned by build.
func sensorCommand(use, short string, build func(domain.Sensor) client.Action) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME DOOR|WINDOW|MOTION",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sensor, err := parseSensorArgs(args)
			if err != nil {
				return err
			}

			return run(cmd, build(sensor))
		},
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	sensorCmd := &cobra.Command{
		Use:   "sensor",
		Short: "Manage sensors.",
	}

	sensorCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List sensors.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, client.ListSensors())
			},
		},
		sensorCommand("add", "Register a sensor.", client.AddSensor),
		sensorCommand("remove", "Unregister a sensor.", client.RemoveSensor),
		sensorCommand("activate", "Report a sensor as tripped.", func(s domain.Sensor) client.Action {
			return client.ChangeSensor(s, true)
		}),
		sensorCommand("deactivate", "Report a sensor as calm.", func(s domain.Sensor) client.Action {
			return client.ChangeSensor(s, false)
		}),
	)

	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Send camera images.",
	}

	imageCmd.AddCommand(&cobra.Command{
		Use:   "scan FILE",
		Short: "Analyze a camera image for cats.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, client.ScanImage(args[0]))
		},
	})

	rootCmd.AddCommand(sensorCmd, imageCmd)
}
