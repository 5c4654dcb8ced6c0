package tally

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrade/framegrade/internal/batch"
	"github.com/framegrade/framegrade/internal/classifier"
	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/preprocess"
)

var nan = float32(math.NaN())

func makeBatch(t *testing.T, seq, capacity, n int) *batch.Batch {
	t.Helper()
	frames := make([]preprocess.Tensor, n)
	for i := range frames {
		frames[i] = preprocess.Tensor{Index: seq*capacity + i}
	}
	b, err := batch.New(seq, capacity, frames...)
	require.NoError(t, err)
	return b
}

func TestNewClassList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   []string
		want    ClassList
		wantErr bool
	}{
		{"three", []string{"Good", "Underexposed", "Overexposed"}, ClassList{"Good", "Underexposed", "Overexposed"}, false},
		{"trimmed", []string{" Sharp", "Blurry "}, ClassList{"Sharp", "Blurry"}, false},
		{"empty", nil, nil, true},
		{"blank", []string{"Good", " "}, nil, true},
		{"duplicate", []string{"Good", "Bad", "Good"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NewClassList(tt.input...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArgmax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scores []float32
		want   int
	}{
		{"first", []float32{0.9, 0.05, 0.05}, 0},
		{"last", []float32{0.1, 0.2, 0.7}, 2},
		{"tie goes low", []float32{0.4, 0.4, 0.2}, 0},
		{"tie later", []float32{0.1, 0.45, 0.45}, 1},
		{"nan skipped", []float32{nan, 0.1, 0.2}, 2},
		{"nan not best", []float32{0.3, nan, 0.1}, 0},
		{"negatives", []float32{-3, -1, -2}, 1},
		{"all nan", []float32{nan, nan}, -1},
		{"empty", nil, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Argmax(tt.scores))
		})
	}
}

// Good/Underexposed/Overexposed, capacity 4, ten frames with predictions
// [0,0,1,0 | 2,0,0,1 | 0,0].
func TestAggregatorThreeBatches(t *testing.T) {
	t.Parallel()

	classes, err := NewClassList("Good", "Underexposed", "Overexposed")
	require.NoError(t, err)
	agg := NewAggregator(classes)

	onehot := func(k int) classifier.ClassOutput {
		out := classifier.ClassOutput{0.1, 0.1, 0.1}
		out[k] = 0.8
		return out
	}
	groups := [][]int{{0, 0, 1, 0}, {2, 0, 0, 1}, {0, 0}}
	for seq, labels := range groups {
		b := makeBatch(t, seq, 4, len(labels))
		outputs := make([]classifier.ClassOutput, len(labels))
		for i, k := range labels {
			outputs[i] = onehot(k)
		}
		require.NoError(t, agg.Add(b, outputs))
	}

	tly := agg.Tally()
	assert.Equal(t, []int{7, 2, 1}, tly.Counts())
	assert.Equal(t, 10, tly.Total())

	d, err := Normalize(classes, tly)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{70, 20, 10}, d.Percent, 1e-9)
	assert.Equal(t, 10, d.Total)
	assert.InDelta(t, 70.0, d.Map()["Good"], 1e-9)
}

func TestAggregatorRejectsBadOutputs(t *testing.T) {
	t.Parallel()

	classes := ClassList{"Sharp", "Blurry"}
	tests := []struct {
		name    string
		outputs []classifier.ClassOutput
	}{
		{"too few", []classifier.ClassOutput{{1, 0}}},
		{"too many", []classifier.ClassOutput{{1, 0}, {0, 1}, {1, 0}}},
		{"short vector", []classifier.ClassOutput{{1, 0}, {1}}},
		{"all nan", []classifier.ClassOutput{{1, 0}, {nan, nan}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			agg := NewAggregator(classes)
			err := agg.Add(makeBatch(t, 0, 4, 2), tt.outputs)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryClassifier))
			assert.Equal(t, 0, agg.Tally().Total(), "failed batch must not be partially counted")
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	classes := ClassList{"a", "b", "c"}

	t.Run("empty is degenerate", func(t *testing.T) {
		t.Parallel()
		_, err := Normalize(classes, NewTally(3))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDegenerateInput)
		assert.True(t, errors.IsCategory(err, errors.CategoryDegenerate))

		_, err = Normalize(classes, nil)
		assert.ErrorIs(t, err, ErrDegenerateInput)
	})

	t.Run("class count mismatch", func(t *testing.T) {
		t.Parallel()
		tly := NewTally(2)
		tly.Inc(0)
		_, err := Normalize(classes, tly)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	})

	t.Run("sums to hundred", func(t *testing.T) {
		t.Parallel()
		for total := 1; total <= 50; total++ {
			tly := NewTally(3)
			for i := range total {
				tly.Inc((i * 7) % 3)
			}
			d, err := Normalize(classes, tly)
			require.NoError(t, err)
			var sum float64
			for _, p := range d.Percent {
				sum += p
			}
			assert.InDelta(t, 100.0, sum, 1e-9, "total %d", total)
		}
	})
}

func TestDistributionPercentage(t *testing.T) {
	t.Parallel()

	d := Distribution{Classes: []string{"Sharp", "Blurry"}, Percent: []float64{25, 75}, Total: 4}
	p, ok := d.Percentage("Blurry")
	assert.True(t, ok)
	assert.InDelta(t, 75.0, p, 0)
	_, ok = d.Percentage("Noisy")
	assert.False(t, ok)
}
