package probe

import (
	"github.com/spf13/cobra"

	"github.com/framegrade/framegrade/internal/analysis"
	"github.com/framegrade/framegrade/internal/conf"
)

// Command creates the probe command, which prints stream info without
// loading the model.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [video]",
		Short: "Print video stream info",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.Probe(cmd.Context(), settings, args[0], cmd.OutOrStdout())
		},
	}
}
