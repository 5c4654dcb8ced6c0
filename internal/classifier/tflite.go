package classifier

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"

	"github.com/framegrade/framegrade/internal/batch"
	"github.com/framegrade/framegrade/internal/cpuspec"
	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/logger"
)

// TFLiteConfig describes a frame classification model. The model takes a
// float32 input of shape [batch, Height, Width, Channels] and produces
// [batch, Classes].
type TFLiteConfig struct {
	ModelPath  string
	Classes    int
	Height     int
	Width      int
	Channels   int
	BatchSize  int  // batch dimension allocated at load
	Threads    int  // 0 selects a count from the CPU model
	UseXNNPACK bool
	Softmax    bool // apply softmax to raw model outputs
}

// TFLiteOracle runs batches through a TensorFlow Lite interpreter. Calls
// are serialized; the interpreter is not reentrant.
type TFLiteOracle struct {
	mu          sync.Mutex
	cfg         TFLiteConfig
	interpreter *tflite.Interpreter
	model       *tflite.Model
	allocated   int // current batch dimension of the input tensor
	frameSize   int
	closed      bool
}

// NewTFLiteOracle loads the model at cfg.ModelPath and verifies that its
// output width matches cfg.Classes.
func NewTFLiteOracle(cfg TFLiteConfig) (*TFLiteOracle, error) {
	start := time.Now()

	if cfg.Classes < 1 || cfg.Height < 1 || cfg.Width < 1 || cfg.Channels < 1 {
		return nil, errors.Newf("invalid model geometry %dx%dx%d with %d classes",
			cfg.Height, cfg.Width, cfg.Channels, cfg.Classes).
			Component("classifier").
			Category(errors.CategoryValidation).
			Build()
	}
	cfg.BatchSize = max(1, cfg.BatchSize)

	modelData, err := os.ReadFile(cfg.ModelPath)
	if err != nil {
		return nil, errors.New(err).
			Component("classifier").
			Category(errors.CategoryModelLoad).
			ModelContext(cfg.ModelPath, cfg.Classes).
			Timing("model-load", time.Since(start)).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.New(fmt.Errorf("cannot load TensorFlow Lite model")).
			Component("classifier").
			Category(errors.CategoryModelInit).
			ModelContext(cfg.ModelPath, cfg.Classes).
			Context("model_size_kb", len(modelData)/1024).
			Context("use_xnnpack", cfg.UseXNNPACK).
			Build()
	}

	threads := cpuspec.ThreadCount(cfg.Threads)
	options := tflite.NewInterpreterOptions()

	log := GetLogger()
	if cfg.UseXNNPACK {
		delegate := xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(max(1, threads-1))}) //nolint:gosec // G115: bounded by CPU count
		if delegate == nil {
			log.Warn("failed to create XNNPACK delegate, falling back to default CPU")
			options.SetNumThread(threads)
		} else {
			options.AddDelegate(delegate)
			options.SetNumThread(1)
		}
	} else {
		options.SetNumThread(threads)
	}

	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, errors.New(fmt.Errorf("cannot create interpreter")).
			Component("classifier").
			Category(errors.CategoryModelInit).
			ModelContext(cfg.ModelPath, cfg.Classes).
			Build()
	}

	o := &TFLiteOracle{
		cfg:         cfg,
		interpreter: interpreter,
		model:       model,
		frameSize:   cfg.Height * cfg.Width * cfg.Channels,
	}
	if err := o.resize(cfg.BatchSize); err != nil {
		o.Close()
		return nil, err
	}
	if err := o.validateOutput(); err != nil {
		o.Close()
		return nil, err
	}

	log.Info("classifier model initialized",
		logger.String("model", cfg.ModelPath),
		logger.Int("classes", cfg.Classes),
		logger.Int("threads", threads),
		logger.Bool("xnnpack", cfg.UseXNNPACK),
		logger.Duration("load_time", time.Since(start)))

	return o, nil
}

func (o *TFLiteOracle) validateOutput() error {
	output := o.interpreter.GetOutputTensor(0)
	if output == nil {
		return errors.New(fmt.Errorf("cannot get output tensor from model")).
			Component("classifier").
			Category(errors.CategoryValidation).
			ModelContext(o.cfg.ModelPath, o.cfg.Classes).
			Build()
	}
	if got := output.Dim(output.NumDims() - 1); got != o.cfg.Classes {
		return errors.Newf("class count mismatch: model outputs %d scores but %d classes are configured",
			got, o.cfg.Classes).
			Component("classifier").
			Category(errors.CategoryValidation).
			ModelContext(o.cfg.ModelPath, o.cfg.Classes).
			Context("model_classes", got).
			Build()
	}
	return nil
}

// resize sets the input batch dimension to n and reallocates tensors
func (o *TFLiteOracle) resize(n int) error {
	if n == o.allocated {
		return nil
	}
	dims := []int32{int32(n), int32(o.cfg.Height), int32(o.cfg.Width), int32(o.cfg.Channels)} //nolint:gosec // G115: validated positive sizes
	if status := o.interpreter.ResizeInputTensor(0, dims); status != tflite.OK {
		return errors.Newf("cannot resize model input to batch of %d", n).
			Component("classifier").
			Category(errors.CategoryModelInit).
			ModelContext(o.cfg.ModelPath, o.cfg.Classes).
			Build()
	}
	if status := o.interpreter.AllocateTensors(); status != tflite.OK {
		return errors.Newf("tensor allocation failed for batch of %d", n).
			Component("classifier").
			Category(errors.CategoryModelInit).
			ModelContext(o.cfg.ModelPath, o.cfg.Classes).
			Build()
	}
	o.allocated = n
	return nil
}

// Classify runs the valid frames of b through the model
func (o *TFLiteOracle) Classify(ctx context.Context, b *batch.Batch) ([]ClassOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, NewOracleError(fmt.Errorf("classifier is closed"), b)
	}

	frames := b.Frames()
	if len(frames) == 0 {
		return []ClassOutput{}, nil
	}
	if err := o.resize(len(frames)); err != nil {
		return nil, NewOracleError(err, b)
	}

	input := o.interpreter.GetInputTensor(0).Float32s()
	if len(input) != len(frames)*o.frameSize {
		return nil, NewOracleError(fmt.Errorf("input tensor holds %d values, want %d",
			len(input), len(frames)*o.frameSize), b)
	}
	for i, f := range frames {
		if len(f.Data) != o.frameSize {
			return nil, NewOracleError(fmt.Errorf("frame %d has %d values, model expects %d",
				f.Index, len(f.Data), o.frameSize), b)
		}
		copy(input[i*o.frameSize:], f.Data)
	}

	if status := o.interpreter.Invoke(); status != tflite.OK {
		return nil, NewOracleError(fmt.Errorf("tensor invoke failed: %v", status), b)
	}

	raw := o.interpreter.GetOutputTensor(0).Float32s()
	classes := o.cfg.Classes
	if len(raw) < len(frames)*classes {
		return nil, NewOracleError(fmt.Errorf("output tensor holds %d values, want %d",
			len(raw), len(frames)*classes), b)
	}

	outputs := make([]ClassOutput, len(frames))
	for i := range frames {
		out := make(ClassOutput, classes)
		copy(out, raw[i*classes:(i+1)*classes])
		if o.cfg.Softmax {
			Softmax(out)
		}
		outputs[i] = out
	}
	return outputs, nil
}

// Close releases the interpreter. It is safe to call more than once.
func (o *TFLiteOracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if o.interpreter != nil {
		o.interpreter.Delete()
	}
	if o.model != nil {
		o.model.Delete()
	}
	return nil
}
