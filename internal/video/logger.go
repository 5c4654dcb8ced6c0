package video

import "github.com/framegrade/framegrade/internal/logger"

// GetLogger returns the video module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("video")
}
