package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(err *EnhancedError) { r.reported = append(r.reported, err) }
func (r *recordingReporter) IsEnabled() bool               { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuildInheritsWrappedCategory(t *testing.T) {
	SetTelemetryReporter(nil)

	inner := New(fmt.Errorf("decode failed")).Category(CategorySource).Build()
	outer := New(fmt.Errorf("evaluation aborted: %w", inner)).Build()

	assert.Equal(t, CategorySource, outer.Category)
	assert.True(t, IsCategory(outer, CategorySource))
}

func TestIsCategoryWalksChain(t *testing.T) {
	t.Parallel()

	inner := New(fmt.Errorf("timeout")).Category(CategoryTimeout).Build()
	outer := New(fmt.Errorf("classify: %w", inner)).Category(CategoryClassifier).Build()

	assert.True(t, IsCategory(outer, CategoryClassifier))
	assert.True(t, IsCategory(outer, CategoryTimeout))
	assert.False(t, IsCategory(outer, CategorySource))
	assert.False(t, IsCategory(fmt.Errorf("plain"), CategoryGeneric))
}

func TestEnhancedErrorIsMatchesCategory(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("sentinel")
	ee := New(fmt.Errorf("wrapped: %w", sentinel)).Category(CategoryDegenerate).Build()

	assert.ErrorIs(t, ee, sentinel)
	assert.ErrorIs(t, ee, &EnhancedError{Category: CategoryDegenerate})
}

func TestBuilderContext(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("bad frame")).
		Component("preprocess").
		Category(CategoryTransform).
		VideoContext("/data/videos/clip.MP4", 12).
		Context("width", 640).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "absolute-path", ctx["video_path_type"])
	assert.Equal(t, "mp4", ctx["video_extension"])
	assert.Equal(t, 12, ctx["frame_index"])
	assert.Equal(t, 640, ctx["width"])
	assert.Equal(t, "preprocess", ee.GetComponent())

	// Returned map is a copy
	ctx["width"] = 1
	assert.Equal(t, 640, ee.GetContext()["width"])
}

func TestPriorityFallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PriorityHigh, New(fmt.Errorf("x")).Priority(PriorityHigh).Build().Priority)
	assert.Equal(t, PriorityMedium, New(fmt.Errorf("x")).Priority("urgent").Build().Priority)
}

func TestTelemetryReporterReceivesErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(fmt.Errorf("classifier call timeout")).Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.True(t, ee.IsReported())
	assert.Equal(t, CategoryTimeout, ee.Category)
}

func TestScrubMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		contains string
		absent   string
	}{
		{"url query", "fetch https://models.example.com/m.tflite?sig=abc123 failed", "?[REDACTED]", "abc123"},
		{"credential", "mqtt password=hunter2 rejected", "[CREDENTIAL_REDACTED]", "hunter2"},
		{"home path", "cannot open /home/alice/videos/a.mp4", "/home/[USER]/videos", "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ScrubMessage(tt.input)
			assert.Contains(t, got, tt.contains)
			assert.NotContains(t, got, tt.absent)
		})
	}
}
