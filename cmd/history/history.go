package history

import (
	"github.com/spf13/cobra"

	"github.com/framegrade/framegrade/internal/analysis"
	"github.com/framegrade/framegrade/internal/conf"
)

// Command creates the history command listing stored evaluations.
func Command(settings *conf.Settings) *cobra.Command {
	var source string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored evaluations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return analysis.History(settings, source, limit, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Only list evaluations of this video")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rows, 0 for all")

	return cmd
}
