package analysis

import (
	"context"
	"fmt"
	"io"

	"github.com/framegrade/framegrade/internal/conf"
	"github.com/framegrade/framegrade/internal/video"
)

// Probe prints the stream info of the video at path as it will be
// delivered to the classifier
func Probe(ctx context.Context, settings *conf.Settings, path string, w io.Writer) error {
	opener := video.NewFFmpegOpener(video.FFmpegConfig{
		FFmpegPath:   settings.Video.FFmpegPath,
		FFprobePath:  settings.Video.FFprobePath,
		FrameRate:    settings.Evaluation.FrameRate,
		ProbeTimeout: probeTimeout,
	})
	info, err := opener.Probe(ctx, path)
	if err != nil {
		return err
	}
	writeInfo(w, path, info, settings.Evaluation.BatchSize)
	return nil
}

func writeInfo(w io.Writer, path string, info video.Info, batchSize int) {
	fmt.Fprintf(w, "source:     %s\n", path)
	fmt.Fprintf(w, "size:       %dx%d\n", info.Width, info.Height)
	fmt.Fprintf(w, "fps:        %.3f\n", info.FPS)
	fmt.Fprintf(w, "duration:   %s\n", info.Duration)
	fmt.Fprintf(w, "frames:     ~%d\n", info.EstimatedFrames)
	if batchSize > 0 && info.EstimatedFrames > 0 {
		fmt.Fprintf(w, "batches:    ~%d of %d\n", (info.EstimatedFrames+batchSize-1)/batchSize, batchSize)
	}
}
