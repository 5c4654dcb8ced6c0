package telemetry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrade/framegrade/internal/conf"
	"github.com/framegrade/framegrade/internal/errors"
)

// mockTransport implements sentry.Transport for testing
type mockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *mockTransport) Configure(sentry.ClientOptions) {} //nolint:gocritic // interface signature

func (t *mockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *mockTransport) Flush(time.Duration) bool              { return true }
func (t *mockTransport) FlushWithContext(context.Context) bool { return true }
func (t *mockTransport) Close()                                {}

func (t *mockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func newTestReporter(t *testing.T) (*SentryReporter, *mockTransport) {
	t.Helper()
	transport := &mockTransport{}
	settings := &conf.Settings{}
	settings.Sentry.Environment = "test"
	client, err := sentry.NewClient(clientOptions(settings, "test", transport))
	require.NoError(t, err)
	return NewSentryReporter(sentry.NewHub(client, sentry.NewScope())), transport
}

func TestReportErrorScrubsAndTags(t *testing.T) {
	t.Parallel()

	reporter, transport := newTestReporter(t)
	require.True(t, reporter.IsEnabled())

	ee := errors.Newf("cannot open /home/alice/clips/a.mp4: token=s3cr3t").
		Component("video").
		Category(errors.CategorySource).
		Priority(errors.PriorityHigh).
		Context("note", "from /Users/bob/x").
		Build()
	reporter.ReportError(ee)
	require.True(t, reporter.Flush(time.Second))

	events := transport.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "video", ev.Tags["component"])
	assert.Equal(t, "video-source", ev.Tags["category"])
	assert.Equal(t, sentry.LevelError, ev.Level)
	assert.NotContains(t, ev.Message, "alice")
	assert.NotContains(t, ev.Message, "s3cr3t")
	require.Len(t, ev.Exception, 1)
	assert.Equal(t, "Video Video Source", ev.Exception[0].Type)
	assert.Empty(t, ev.ServerName)
	assert.NotContains(t, fmt.Sprint(ev.Contexts["error"]), "bob")
}

func TestReporterDisabled(t *testing.T) {
	t.Parallel()

	var nilReporter *SentryReporter
	assert.False(t, nilReporter.IsEnabled())
	assert.NotPanics(t, func() { nilReporter.ReportError(errors.ValidationError("x")) })
	assert.True(t, nilReporter.Flush(time.Millisecond))

	r := NewSentryReporter(sentry.NewHub(nil, sentry.NewScope()))
	assert.False(t, r.IsEnabled())
}

func TestInitSentryDisabled(t *testing.T) {
	t.Parallel()

	reporter, err := InitSentry(&conf.Settings{}, "dev")
	require.NoError(t, err)
	assert.Nil(t, reporter)

	settings := &conf.Settings{}
	settings.Sentry.Enabled = true
	reporter, err = InitSentry(settings, "dev")
	require.NoError(t, err)
	assert.Nil(t, reporter, "no DSN means no reporter")
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Classifier Timeout", generateErrorTitle("timeout", "classifier"))
	assert.Equal(t, "Datastore", generateErrorTitle("generic", "datastore"))
	assert.Equal(t, "Mqtt Mqtt Publish", generateErrorTitle("mqtt-publish", "mqtt"))
}

func TestLevelFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sentry.LevelFatal, levelFor(errors.PriorityCritical))
	assert.Equal(t, sentry.LevelWarning, levelFor(errors.PriorityLow))
	assert.Equal(t, sentry.LevelError, levelFor(errors.PriorityMedium))
}
