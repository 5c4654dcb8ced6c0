package video

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProbeJSON = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "r_frame_rate": "30000/1001",
      "avg_frame_rate": "30000/1001",
      "duration": "10.010000",
      "nb_frames": "300"
    }
  ],
  "format": {
    "filename": "clip.mp4",
    "duration": "10.050000"
  }
}`

func TestParseProbeOutput(t *testing.T) {
	t.Parallel()

	info, err := parseProbeOutput([]byte(sampleProbeJSON))
	require.NoError(t, err)

	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.InDelta(t, 29.97, info.FPS, 0.01)
	assert.Equal(t, 10010*time.Millisecond, info.Duration)
	assert.Equal(t, 300, info.EstimatedFrames)
}

func TestParseProbeOutputFallbacks(t *testing.T) {
	t.Parallel()

	// webm streams often carry no duration or frame count
	data := `{"streams":[{"codec_type":"video","width":640,"height":360,
		"avg_frame_rate":"0/0","r_frame_rate":"25/1"}],
		"format":{"duration":"4.000000"}}`

	info, err := parseProbeOutput([]byte(data))
	require.NoError(t, err)

	assert.InDelta(t, 25.0, info.FPS, 1e-9)
	assert.Equal(t, 4*time.Second, info.Duration)
	assert.Equal(t, 100, info.EstimatedFrames)
}

func TestParseProbeOutputErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"not json", "ffprobe: error"},
		{"no streams", `{"streams":[],"format":{}}`},
		{"audio only", `{"streams":[{"codec_type":"audio"}]}`},
		{"no dimensions", `{"streams":[{"codec_type":"video","width":0,"height":0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseProbeOutput([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseRate(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 29.97, parseRate("30000/1001"), 0.001)
	assert.InDelta(t, 25.0, parseRate("25"), 1e-9)
	assert.Zero(t, parseRate("0/0"))
	assert.Zero(t, parseRate("abc"))
}
