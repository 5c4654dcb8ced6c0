package video

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// StillExtensions lists the image formats ImageDirOpener reads
var StillExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".webp"}

// ImageDirOpener treats a directory of still images as one frame sequence,
// ordered by file name. All images must share the first image's size.
type ImageDirOpener struct {
	// FPS is reported in Info and used for frame timestamps, 0 if unknown
	FPS float64
}

// Open lists dir and returns a source over its images
func (o ImageDirOpener) Open(ctx context.Context, dir string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, err := ListStills(dir)
	if err != nil {
		return nil, newSourceError(err, dir, -1, "list")
	}

	info := Info{FPS: o.FPS, EstimatedFrames: len(files)}
	if len(files) > 0 {
		w, h, err := imageSize(files[0])
		if err != nil {
			return nil, newSourceError(err, files[0], 0, "decode-config")
		}
		info.Width, info.Height = w, h
	}
	if o.FPS > 0 {
		info.Duration = durationOf(len(files), o.FPS)
	}

	return &imageDirSource{dir: dir, files: files, info: info}, nil
}

// ListStills returns the still images in dir sorted lexically
func ListStills(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading image directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(StillExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

func imageSize(path string) (width, height int, err error) {
	f, err := os.Open(path) //nolint:gosec // path from directory listing
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("error reading image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

type imageDirSource struct {
	dir    string
	files  []string
	info   Info
	next   int
	closed bool
}

func (s *imageDirSource) Info() Info { return s.info }

func (s *imageDirSource) Close() error {
	s.closed = true
	return nil
}

func (s *imageDirSource) Next(ctx context.Context) (Frame, error) {
	if s.closed {
		return Frame{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if s.next >= len(s.files) {
		return Frame{}, io.EOF
	}

	index := s.next
	path := s.files[index]
	s.next++

	img, err := decodeImage(path)
	if err != nil {
		return Frame{}, newSourceError(err, path, index, "decode")
	}
	b := img.Bounds()
	if b.Dx() != s.info.Width || b.Dy() != s.info.Height {
		return Frame{}, newSourceError(
			fmt.Errorf("image is %dx%d, sequence is %dx%d", b.Dx(), b.Dy(), s.info.Width, s.info.Height),
			path, index, "decode")
	}

	f := Frame{
		Index:    index,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: rgbChannels,
		Pix:      toRGB(img),
	}
	if s.info.FPS > 0 {
		f.PTS = durationOf(index, s.info.FPS)
	}
	return f, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // path from directory listing
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}
	return img, nil
}

// toRGB flattens any image into interleaved 8-bit RGB, dropping alpha
func toRGB(img image.Image) []byte {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	w, h := b.Dx(), b.Dy()
	pix := make([]byte, 0, w*h*rgbChannels)
	for y := range h {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			pix = append(pix, row[x], row[x+1], row[x+2])
		}
	}
	return pix
}
