package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/service/client"
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print the latest alarm status changes, newest first.",
		Long:  "Print the latest alarm status changes. Only servers using sqlite storage keep a history.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, client.ShowHistory(limit))
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of changes to print, 0 for the server default")

	rootCmd.AddCommand(historyCmd)
}
