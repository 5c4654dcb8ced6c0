package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/video"
)

func solidFrame(w, h, channels int, value byte) video.Frame {
	pix := make([]byte, w*h*channels)
	for i := range pix {
		pix[i] = value
	}
	return video.Frame{Index: 5, Width: w, Height: h, Channels: channels, Pix: pix}
}

func TestNewResizerValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero size", Config{Width: 0, Height: 4, Channels: 3}},
		{"two channels", Config{Width: 4, Height: 4, Channels: 2}},
		{"mean length", Config{Width: 4, Height: 4, Channels: 3, Mean: []float32{0.5}}},
		{"zero std", Config{Width: 4, Height: 4, Channels: 3, Std: []float32{1, 0, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewResizer(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestResizerScalesAndNormalizes(t *testing.T) {
	t.Parallel()

	r, err := NewResizer(Config{
		Width: 2, Height: 2, Channels: 3,
		Mean: []float32{0.5, 0.5, 0.5},
		Std:  []float32{0.5, 0.5, 0.5},
	})
	require.NoError(t, err)

	tensor, err := r.Apply(solidFrame(8, 6, 3, 255))
	require.NoError(t, err)

	assert.Equal(t, 5, tensor.Index)
	assert.Equal(t, [3]int{2, 2, 3}, tensor.Shape)
	require.Len(t, tensor.Data, 12)
	for _, v := range tensor.Data {
		assert.InDelta(t, 1.0, v, 0.01)
	}
}

func TestResizerGrayscale(t *testing.T) {
	t.Parallel()

	r, err := NewResizer(Config{Width: 3, Height: 3, Channels: 1})
	require.NoError(t, err)

	tensor, err := r.Apply(solidFrame(3, 3, 3, 51))
	require.NoError(t, err)
	require.Len(t, tensor.Data, 9)
	assert.InDelta(t, 0.2, tensor.Data[0], 1e-5)

	// gray input expands to rgb internally and returns to gray
	tensor, err = r.Apply(solidFrame(3, 3, 1, 102))
	require.NoError(t, err)
	assert.InDelta(t, 0.4, tensor.Data[4], 1e-5)
}

func TestResizerRejectsMalformedFrame(t *testing.T) {
	t.Parallel()

	r, err := NewResizer(Config{Width: 2, Height: 2, Channels: 3})
	require.NoError(t, err)

	bad := solidFrame(2, 2, 3, 0)
	bad.Pix = bad.Pix[:5]

	_, err = r.Apply(bad)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTransform))

	_, err = r.Apply(solidFrame(2, 2, 2, 0))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTransform))
}

func TestTransformFunc(t *testing.T) {
	t.Parallel()

	var tf Transform = TransformFunc(func(f video.Frame) (Tensor, error) {
		return Tensor{Index: f.Index, Shape: [3]int{1, 1, 1}, Data: []float32{float32(f.Index)}}, nil
	})
	out, err := tf.Apply(video.Frame{Index: 3})
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, out.Data)
}
