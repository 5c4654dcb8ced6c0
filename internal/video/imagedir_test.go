package video

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrade/framegrade/internal/errors"
)

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestImageDirOpenerOrdersFrames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "frame_002.png"), 3, 2, color.NRGBA{R: 0, G: 0, B: 255, A: 255})
	writePNG(t, filepath.Join(dir, "frame_001.png"), 3, 2, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o600))

	src, err := ImageDirOpener{FPS: 2}.Open(context.Background(), dir)
	require.NoError(t, err)
	defer src.Close()

	info := src.Info()
	assert.Equal(t, 3, info.Width)
	assert.Equal(t, 2, info.Height)
	assert.Equal(t, 2, info.EstimatedFrames)

	frames, err := drain(t, src)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, []byte{255, 0, 0}, frames[0].Pix[:3], "frame_001 comes first")
	assert.Equal(t, []byte{0, 0, 255}, frames[1].Pix[:3])
	assert.Equal(t, 3*2*3, len(frames[1].Pix))
	assert.NoError(t, frames[1].Validate())
}

func TestImageDirOpenerRejectsSizeChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 2, 2, color.White)
	writePNG(t, filepath.Join(dir, "b.png"), 4, 4, color.White)

	src, err := ImageDirOpener{}.Open(context.Background(), dir)
	require.NoError(t, err)
	defer src.Close()

	frames, err := drain(t, src)
	require.Error(t, err)
	assert.Len(t, frames, 1)
	assert.True(t, errors.IsCategory(err, errors.CategorySource))
}

func TestImageDirOpenerEmptyAndMissing(t *testing.T) {
	t.Parallel()

	src, err := ImageDirOpener{}.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	frames, err := drain(t, src)
	require.NoError(t, err)
	assert.Empty(t, frames)

	_, err = ImageDirOpener{}.Open(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategorySource))
}

func TestToRGBDropsAlpha(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	assert.Equal(t, []byte{10, 20, 30}, toRGB(img))
}
