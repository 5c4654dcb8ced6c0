package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding ties an environment variable to a config key
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "FRAMEGRADE_DEBUG", validateEnvBool},

		{"model.path", "FRAMEGRADE_MODELPATH", validateEnvPath},
		{"model.classes", "FRAMEGRADE_CLASSES", validateEnvClasses},
		{"model.threads", "FRAMEGRADE_THREADS", validateEnvNonNegativeInt},
		{"model.usexnnpack", "FRAMEGRADE_USEXNNPACK", validateEnvBool},

		{"evaluation.batchsize", "FRAMEGRADE_BATCHSIZE", validateEnvPositiveInt},
		{"evaluation.workers", "FRAMEGRADE_WORKERS", validateEnvNonNegativeInt},
		{"evaluation.retry.maxretries", "FRAMEGRADE_RETRIES", validateEnvNonNegativeInt},
		{"evaluation.calltimeout", "FRAMEGRADE_CALLTIMEOUT", validateEnvDuration},

		{"video.ffmpegpath", "FRAMEGRADE_FFMPEG", nil},
		{"video.ffprobepath", "FRAMEGRADE_FFPROBE", nil},

		{"output.mqtt.password", "FRAMEGRADE_MQTT_PASSWORD", nil},
		{"sentry.dsn", "FRAMEGRADE_SENTRY_DSN", nil},
	}
}

// bindEnvVars binds every variable and validates the ones that are set.
// All problems are reported together.
func bindEnvVars() error {
	var problems []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value, ok := os.LookupEnv(binding.EnvVar); ok {
			if err := binding.Validate(value); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be a boolean (true/false/1/0)")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1, got %d", n)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 30s: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// validateEnvClasses expects a comma separated list without empty or repeated names
func validateEnvClasses(value string) error {
	seen := make(map[string]struct{})
	for name := range strings.SplitSeq(value, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("class names must not be empty")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate class %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// validateEnvPath requires an absolute path without traversal components
func validateEnvPath(value string) error {
	cleaned := filepath.Clean(value)
	if !filepath.IsAbs(cleaned) {
		return fmt.Errorf("path must be absolute, got relative path: %s", cleaned)
	}
	for _, part := range strings.Split(cleaned, string(os.PathSeparator)) {
		if part == ".." {
			return fmt.Errorf("path traversal detected in cleaned path: %s", cleaned)
		}
	}
	return nil
}

func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
