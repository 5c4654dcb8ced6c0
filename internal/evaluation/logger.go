package evaluation

import "github.com/framegrade/framegrade/internal/logger"

// GetLogger returns the evaluation module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("evaluation")
}
