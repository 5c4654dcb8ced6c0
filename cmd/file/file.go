package file

import (
	"github.com/spf13/cobra"

	"github.com/framegrade/framegrade/internal/analysis"
	"github.com/framegrade/framegrade/internal/conf"
)

// Command creates a new file command for evaluating a single video.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "file [video]",
		Short: "Evaluate a video file",
		Long:  "Classify every frame of a video, or of a directory of still images, and report the class distribution.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := analysis.NewStack(settings)
			if err != nil {
				return err
			}
			defer stack.Close()
			return stack.FileAnalysis(cmd.Context(), args[0])
		},
	}
}
