package cmd

import (
	"github.com/spf13/cobra"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/service/client"
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Print alarm status, arming status, cat flag and sensors.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, client.ShowStatus())
			},
		},
		&cobra.Command{
			Use:       "arm home|away",
			Short:     "Arm the system in home or away mode.",
			Long:      "Arm the system. Arming resets every sensor to inactive; arming home while a cat is on camera raises the alarm.",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"home", "away"},
			RunE: func(cmd *cobra.Command, args []string) error {
				arming, err := parseArmMode(args[0])
				if err != nil {
					return err
				}

				return run(cmd, client.SetArming(arming))
			},
		},
		&cobra.Command{
			Use:   "disarm",
			Short: "Disarm the system and clear the alarm.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, client.SetArming(domain.Disarmed))
			},
		},
	)
}
