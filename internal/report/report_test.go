package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/evaluation"
	"github.com/framegrade/framegrade/internal/tally"
)

func sampleReports() []evaluation.Report {
	classes := []string{"Good", "Blurry", "Dark"}
	return []evaluation.Report{
		{
			RunID:        "r1",
			Source:       "a.mp4",
			Classes:      classes,
			Counts:       []int{1, 1, 1},
			Distribution: tally.Distribution{Classes: classes, Percent: []float64{100.0 / 3, 100.0 / 3, 100.0 / 3}, Total: 3},
			Frames:       3,
			Batches:      1,
			BatchSize:    4,
			Elapsed:      1234 * time.Millisecond,
		},
		{
			RunID:        "r2",
			Source:       "b.mp4",
			Classes:      classes,
			Counts:       []int{7, 2, 1},
			Distribution: tally.Distribution{Classes: classes, Percent: []float64{70, 20, 10}, Total: 10},
			Frames:       10,
			Batches:      3,
			BatchSize:    4,
		},
	}
}

func TestForFormat(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"", "table", "csv", "json", "yaml"} {
		w, err := ForFormat(format)
		require.NoError(t, err, format)
		assert.NotNil(t, w)
	}

	_, err := ForFormat("xml")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, sampleReports()))
	out := buf.String()

	assert.Contains(t, out, "a.mp4")
	assert.Contains(t, out, "1.234s")
	assert.Contains(t, out, "33.33%")
	assert.Contains(t, out, "70%")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 9, "two headers, six classes, one separator")
}

func TestCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, sampleReports()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, "source", rows[0][0])
	assert.Equal(t, []string{"b.mp4", "r2", "Good", "7", "70", "10", "3"}, rows[4])
}

func TestJSONAndYAML(t *testing.T) {
	t.Parallel()

	var jbuf bytes.Buffer
	require.NoError(t, writeJSON(&jbuf, sampleReports()))
	var decoded []evaluation.Report
	require.NoError(t, json.Unmarshal(jbuf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, []int{7, 2, 1}, decoded[1].Counts)

	var ybuf bytes.Buffer
	require.NoError(t, writeYAML(&ybuf, sampleReports()))
	var generic []map[string]any
	require.NoError(t, yaml.Unmarshal(ybuf.Bytes(), &generic))
	require.Len(t, generic, 2)
	assert.Equal(t, "b.mp4", generic[1]["source"])
}

func TestFormatPercent(t *testing.T) {
	t.Parallel()

	tests := map[float64]string{
		0:         "0",
		100:       "100",
		100.0 / 3: "33.33",
		66.666:    "66.67",
		12.5:      "12.5",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatPercent(in), in)
	}
}
