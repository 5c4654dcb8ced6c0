package directory

import (
	"github.com/spf13/cobra"

	"github.com/framegrade/framegrade/internal/analysis"
	"github.com/framegrade/framegrade/internal/conf"
)

// Command creates a new cobra.Command for directory evaluation.
func Command(settings *conf.Settings) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "directory [path]",
		Short: "Evaluate all videos in a directory",
		Long:  "Evaluate every file in the directory whose extension is listed in video.extensions, several at a time.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := analysis.NewStack(settings)
			if err != nil {
				return err
			}
			defer stack.Close()
			return stack.DirectoryAnalysis(cmd.Context(), args[0], recursive)
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Recursively evaluate subdirectories")

	return cmd
}
