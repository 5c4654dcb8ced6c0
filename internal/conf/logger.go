package conf

import "github.com/framegrade/framegrade/internal/logger"

// GetLogger returns the configuration module logger. It is resolved on
// every call because settings are loaded before the central logger exists.
func GetLogger() logger.Logger {
	return logger.Global().Module("configuration")
}
