// Package conf loads framegrade settings from config.yaml, environment
// variables and command line flags.
package conf

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/logger"
)

// ModelSettings describes the classification model and its input shape
type ModelSettings struct {
	Path        string    // path to the .tflite model
	Classes     []string  // ordered class names, aligned with model output
	InputWidth  int       // model input width in pixels
	InputHeight int       // model input height in pixels
	Channels    int       // 1 (grayscale) or 3 (RGB)
	Mean        []float64 // per-channel mean subtracted after scaling to [0,1]
	Std         []float64 // per-channel standard deviation divisor
	Threads     int       // interpreter threads, 0 = detect from CPU
	UseXNNPACK  bool      // use the XNNPACK delegate
	Softmax     bool      // apply softmax to raw model outputs
}

// RetrySettings controls retrying of transient classifier failures
type RetrySettings struct {
	MaxRetries   int           // retries after the first attempt
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // upper bound for a single delay
	Multiplier   float64       // backoff growth factor
}

// EvaluationSettings controls the evaluation pipeline
type EvaluationSettings struct {
	BatchSize   int           // frames per classifier batch
	Prefetch    int           // frames decoded ahead of classification
	Workers     int           // videos evaluated in parallel, 0 = auto
	FrameRate   float64       // sample frames at this rate, 0 = every frame
	CallTimeout time.Duration // per classifier call, 0 = none
	Retry       RetrySettings
}

// VideoSettings locates the decoder tools and recognised video files
type VideoSettings struct {
	FFmpegPath  string
	FFprobePath string
	Extensions  []string // file extensions picked up by the directory command
}

// SQLiteSettings configures the evaluation history store
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MQTTSettings configures publishing of finished reports
type MQTTSettings struct {
	Enabled  bool
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	Timeout  time.Duration
}

// OutputSettings controls how reports leave the process
type OutputSettings struct {
	Format string // table, csv, json or yaml
	Path   string // empty writes to stdout
	SQLite SQLiteSettings
	MQTT   MQTTSettings
}

// TelemetrySettings controls the Prometheus endpoint
type TelemetrySettings struct {
	Enabled bool
	Listen  string
}

// SentrySettings controls error reporting
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

// Settings is the complete framegrade configuration
type Settings struct {
	Debug bool

	Model      ModelSettings
	Evaluation EvaluationSettings
	Video      VideoSettings
	Output     OutputSettings
	Logging    logger.LoggingConfig
	Telemetry  TelemetrySettings
	Sentry     SentrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the configuration file, environment variables and
// bound flags into a validated Settings. configFile overrides the search
// path when non-empty. A missing config file is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	settingsInstance = settings
	return settings, nil
}

func initViper(configFile string) error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-env").
			Build()
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configFile == "" {
			GetLogger().Debug("no config file found, using defaults")
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("config_file", filepath.Base(configFile)).
			Build()
	}

	GetLogger().Debug("loaded config file", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// GetSettings returns the settings from the last successful Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
