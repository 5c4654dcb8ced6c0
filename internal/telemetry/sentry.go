// Package telemetry forwards built errors to Sentry with private data
// removed. Reporting is opt-in.
package telemetry

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/framegrade/framegrade/internal/conf"
	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/logger"
)

// SentryReporter implements errors.TelemetryReporter on top of a Sentry hub.
type SentryReporter struct {
	hub *sentry.Hub
}

// NewSentryReporter reports through hub
func NewSentryReporter(hub *sentry.Hub) *SentryReporter {
	return &SentryReporter{hub: hub}
}

// InitSentry initializes the Sentry SDK when enabled and a DSN is set, and
// installs the reporter as the global error telemetry hook. It returns nil
// when reporting is disabled.
func InitSentry(settings *conf.Settings, version string) (*SentryReporter, error) {
	log := GetLogger()
	if !settings.Sentry.Enabled {
		log.Debug("Sentry telemetry is disabled (opt-in required)")
		return nil, nil
	}
	if settings.Sentry.DSN == "" {
		log.Warn("Sentry telemetry is enabled but no DSN is configured")
		return nil, nil
	}

	err := sentry.Init(clientOptions(settings, version, nil))
	if err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}

	reporter := NewSentryReporter(sentry.CurrentHub())
	errors.SetTelemetryReporter(reporter)
	log.Info("Sentry telemetry initialized",
		logger.String("environment", settings.Sentry.Environment),
		logger.Float64("sample_rate", settings.Sentry.SampleRate))
	return reporter, nil
}

func clientOptions(settings *conf.Settings, version string, transport sentry.Transport) sentry.ClientOptions {
	sampleRate := settings.Sentry.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}
	return sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       sampleRate,
		AttachStacktrace: false,
		Environment:      settings.Sentry.Environment,
		ServerName:       "",
		Release:          "framegrade@" + version,
		Transport:        transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	}
}

// applyPrivacyFilters strips host and user identity and scrubs messages
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}
	return event
}

// IsEnabled reports whether a Sentry client is bound
func (r *SentryReporter) IsEnabled() bool {
	return r != nil && r.hub != nil && r.hub.Client() != nil
}

// ReportError sends ee as a Sentry event. Path-like context values are
// left out.
func (r *SentryReporter) ReportError(ee *errors.EnhancedError) {
	if !r.IsEnabled() || ee == nil {
		return
	}

	component := ee.GetComponent()
	message := errors.ScrubMessage(ee.Error())
	title := generateErrorTitle(ee.GetCategory(), component)

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetTag("category", ee.GetCategory())
		scope.SetTag("priority", ee.Priority)
		scope.SetTag("platform", runtime.GOOS+"/"+runtime.GOARCH)
		scope.SetContext("error", safeContext(ee.GetContext()))
		scope.SetFingerprint([]string{ee.GetCategory(), component})

		event := sentry.NewEvent()
		event.Level = levelFor(ee.Priority)
		event.Message = message
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		r.hub.CaptureEvent(event)
	})
}

// Flush waits up to timeout for queued events
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	if !r.IsEnabled() {
		return true
	}
	return r.hub.Flush(timeout)
}

func safeContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		if s, ok := v.(string); ok {
			v = errors.ScrubMessage(s)
		}
		out[k] = v
	}
	return out
}

func levelFor(priority string) sentry.Level {
	switch priority {
	case errors.PriorityCritical:
		return sentry.LevelFatal
	case errors.PriorityLow:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

// generateErrorTitle builds a readable grouping title, e.g.
// "Classifier Timeout".
func generateErrorTitle(category, component string) string {
	parts := []string{titleCase(component)}
	if category != "" && category != string(errors.CategoryGeneric) {
		parts = append(parts, titleCase(category))
	}
	return strings.Join(parts, " ")
}

func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}
