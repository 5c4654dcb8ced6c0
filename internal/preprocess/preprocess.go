// Package preprocess turns decoded frames into model input tensors.
package preprocess

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/video"
)

// Tensor is one model-input frame in HWC layout
type Tensor struct {
	Index int
	Shape [3]int // height, width, channels
	Data  []float32
}

// Transform maps a raw frame to a model input. Implementations must be
// pure and safe for concurrent use.
type Transform interface {
	Apply(f video.Frame) (Tensor, error)
}

// TransformFunc adapts a function to Transform
type TransformFunc func(f video.Frame) (Tensor, error)

func (fn TransformFunc) Apply(f video.Frame) (Tensor, error) { return fn(f) }

// Config describes the model input
type Config struct {
	Width    int
	Height   int
	Channels int       // 1 or 3
	Mean     []float32 // per channel, applied after scaling to [0,1]; empty means 0
	Std      []float32 // per channel; empty means 1
	// Interpolator defaults to bilinear
	Interpolator draw.Interpolator
}

// Resizer scales frames to the model size, converts channels and normalizes
type Resizer struct {
	cfg  Config
	mean []float32
	std  []float32
}

// NewResizer validates cfg and returns a Resizer
func NewResizer(cfg Config) (*Resizer, error) {
	if cfg.Width < 1 || cfg.Height < 1 {
		return nil, errors.Newf("invalid model input size %dx%d", cfg.Width, cfg.Height).
			Component("preprocess").
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.Channels != 1 && cfg.Channels != 3 {
		return nil, errors.Newf("unsupported channel count %d", cfg.Channels).
			Component("preprocess").
			Category(errors.CategoryValidation).
			Build()
	}

	r := &Resizer{cfg: cfg, mean: make([]float32, cfg.Channels), std: make([]float32, cfg.Channels)}
	for c := range cfg.Channels {
		r.std[c] = 1
		if len(cfg.Mean) > 0 {
			if len(cfg.Mean) != cfg.Channels {
				return nil, errors.Newf("mean has %d values for %d channels", len(cfg.Mean), cfg.Channels).
					Component("preprocess").
					Category(errors.CategoryValidation).
					Build()
			}
			r.mean[c] = cfg.Mean[c]
		}
		if len(cfg.Std) > 0 {
			if len(cfg.Std) != cfg.Channels || cfg.Std[c] == 0 {
				return nil, errors.Newf("std must have %d non-zero values", cfg.Channels).
					Component("preprocess").
					Category(errors.CategoryValidation).
					Build()
			}
			r.std[c] = cfg.Std[c]
		}
	}
	if r.cfg.Interpolator == nil {
		r.cfg.Interpolator = draw.BiLinear
	}
	return r, nil
}

// Shape returns the tensor shape produced by Apply
func (r *Resizer) Shape() [3]int {
	return [3]int{r.cfg.Height, r.cfg.Width, r.cfg.Channels}
}

// Apply converts f. Any malformed frame yields a frame-transform error.
func (r *Resizer) Apply(f video.Frame) (Tensor, error) {
	if err := f.Validate(); err != nil {
		return Tensor{}, newTransformError(err, f)
	}
	if f.Channels != 1 && f.Channels != 3 && f.Channels != 4 {
		return Tensor{}, newTransformError(fmt.Errorf("unsupported source channel count %d", f.Channels), f)
	}

	src := toRGBA(f)
	dst := src
	if f.Width != r.cfg.Width || f.Height != r.cfg.Height {
		dst = image.NewRGBA(image.Rect(0, 0, r.cfg.Width, r.cfg.Height))
		r.cfg.Interpolator.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}

	t := Tensor{
		Index: f.Index,
		Shape: r.Shape(),
		Data:  make([]float32, r.cfg.Width*r.cfg.Height*r.cfg.Channels),
	}

	const inv255 = 1.0 / 255.0
	i := 0
	for y := range r.cfg.Height {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+r.cfg.Width*4]
		for x := 0; x < len(row); x += 4 {
			if r.cfg.Channels == 1 {
				// ITU-R BT.601 luma
				luma := 0.299*float32(row[x]) + 0.587*float32(row[x+1]) + 0.114*float32(row[x+2])
				t.Data[i] = (luma*inv255 - r.mean[0]) / r.std[0]
				i++
				continue
			}
			for c := range 3 {
				t.Data[i] = (float32(row[x+c])*inv255 - r.mean[c]) / r.std[c]
				i++
			}
		}
	}
	return t, nil
}

// toRGBA wraps frame pixels in an RGBA image, expanding gray and RGB
func toRGBA(f video.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	p := 0
	for i := 0; i < f.Width*f.Height; i++ {
		o := i * 4
		switch f.Channels {
		case 1:
			v := f.Pix[p]
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = v, v, v
		default:
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = f.Pix[p], f.Pix[p+1], f.Pix[p+2]
		}
		img.Pix[o+3] = 0xff
		p += f.Channels
	}
	return img
}

func newTransformError(err error, f video.Frame) error {
	return errors.New(err).
		Component("preprocess").
		Category(errors.CategoryTransform).
		Context("frame_index", f.Index).
		Context("frame_shape", fmt.Sprintf("%dx%dx%d", f.Width, f.Height, f.Channels)).
		Build()
}
