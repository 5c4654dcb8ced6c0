package conf

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError collects every problem found in a Settings value
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// OutputFormats lists the accepted values of output.format
var OutputFormats = []string{"table", "csv", "json", "yaml"}

// ValidateSettings validates the entire Settings struct. Class names are
// trimmed in place before they are checked.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) []string{
		validateModelSettings,
		validateEvaluationSettings,
		validateOutputSettings,
		validateTelemetrySettings,
	} {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateModelSettings(s *Settings) []string {
	var errs []string
	m := &s.Model

	for i := range m.Classes {
		m.Classes[i] = strings.TrimSpace(m.Classes[i])
	}
	if len(m.Classes) == 0 {
		errs = append(errs, "model classes must not be empty")
	}
	seen := make(map[string]struct{}, len(m.Classes))
	for _, name := range m.Classes {
		if name == "" {
			errs = append(errs, "model class names must not be blank")
			continue
		}
		if _, dup := seen[name]; dup {
			errs = append(errs, fmt.Sprintf("model class %q is listed twice", name))
		}
		seen[name] = struct{}{}
	}

	if m.InputWidth < 1 || m.InputHeight < 1 {
		errs = append(errs, "model input width and height must be at least 1")
	}
	if m.Channels != 1 && m.Channels != 3 {
		errs = append(errs, "model channels must be 1 or 3")
	}
	if len(m.Mean) != 0 && len(m.Mean) != m.Channels {
		errs = append(errs, fmt.Sprintf("model mean needs %d values, got %d", m.Channels, len(m.Mean)))
	}
	if len(m.Std) != 0 && len(m.Std) != m.Channels {
		errs = append(errs, fmt.Sprintf("model std needs %d values, got %d", m.Channels, len(m.Std)))
	}
	if slices.Contains(m.Std, 0) {
		errs = append(errs, "model std values must not be zero")
	}
	if m.Threads < 0 {
		errs = append(errs, "model threads must be at least 0")
	}
	return errs
}

func validateEvaluationSettings(s *Settings) []string {
	var errs []string
	e := &s.Evaluation

	if e.BatchSize < 1 {
		errs = append(errs, "evaluation batch size must be at least 1")
	}
	if e.Prefetch < 0 {
		errs = append(errs, "evaluation prefetch must be at least 0")
	}
	if e.Workers < 0 {
		errs = append(errs, "evaluation workers must be at least 0")
	}
	if e.FrameRate < 0 {
		errs = append(errs, "evaluation frame rate must be at least 0")
	}
	if e.CallTimeout < 0 {
		errs = append(errs, "evaluation call timeout must not be negative")
	}

	r := &e.Retry
	if r.MaxRetries < 0 {
		errs = append(errs, "retry max retries must be at least 0")
	}
	if r.MaxRetries > 0 {
		if r.InitialDelay <= 0 {
			errs = append(errs, "retry initial delay must be positive when retries are enabled")
		}
		if r.MaxDelay < r.InitialDelay {
			errs = append(errs, "retry max delay must not be below the initial delay")
		}
		if r.Multiplier < 1 {
			errs = append(errs, "retry multiplier must be at least 1")
		}
	}
	return errs
}

func validateOutputSettings(s *Settings) []string {
	var errs []string
	o := &s.Output

	o.Format = strings.ToLower(strings.TrimSpace(o.Format))
	if !slices.Contains(OutputFormats, o.Format) {
		errs = append(errs, fmt.Sprintf("output format must be one of %s, got %q", strings.Join(OutputFormats, ", "), o.Format))
	}
	if o.SQLite.Enabled && o.SQLite.Path == "" {
		errs = append(errs, "sqlite path must be set when the sqlite store is enabled")
	}
	if o.MQTT.Enabled {
		if o.MQTT.Broker == "" {
			errs = append(errs, "mqtt broker must be set when mqtt is enabled")
		}
		if o.MQTT.Topic == "" {
			errs = append(errs, "mqtt topic must be set when mqtt is enabled")
		}
	}
	return errs
}

func validateTelemetrySettings(s *Settings) []string {
	var errs []string
	if s.Telemetry.Enabled && s.Telemetry.Listen == "" {
		errs = append(errs, "telemetry listen address must be set when telemetry is enabled")
	}
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		errs = append(errs, "sentry dsn must be set when sentry is enabled")
	}
	if s.Sentry.SampleRate < 0 || s.Sentry.SampleRate > 1 {
		errs = append(errs, "sentry sample rate must be between 0 and 1")
	}
	return errs
}
