package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/framegrade/framegrade/internal/logger"
)

const (
	rgbChannels   = 3
	stderrLimit   = 4096
	defaultFFmpeg = "ffmpeg"

	// waitDelay bounds how long pipes stay open after ffmpeg is killed
	waitDelay = 2 * time.Second
)

// FFmpegConfig configures decoding through the ffmpeg and ffprobe binaries
type FFmpegConfig struct {
	FFmpegPath   string
	FFprobePath  string
	FrameRate    float64 // sample at this rate, 0 keeps every decoded frame
	Width        int     // scale output, 0 keeps the native size
	Height       int
	ProbeTimeout time.Duration
}

// FFmpegOpener opens video files as rgb24 frame streams piped from ffmpeg.
// It is safe for concurrent use.
type FFmpegOpener struct {
	cfg    FFmpegConfig
	prober *prober
}

// NewFFmpegOpener returns an opener. Empty binary paths resolve from PATH.
func NewFFmpegOpener(cfg FFmpegConfig) *FFmpegOpener {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = defaultFFmpeg
	}
	if (cfg.Width == 0) != (cfg.Height == 0) {
		// frame size must be known before reading, so scale needs both dimensions
		cfg.Width, cfg.Height = 0, 0
	}
	return &FFmpegOpener{cfg: cfg, prober: newProber(cfg.FFprobePath, cfg.ProbeTimeout)}
}

// Probe returns stream info as it will be delivered by Open, that is with
// scaling and frame rate sampling applied.
func (o *FFmpegOpener) Probe(ctx context.Context, path string) (Info, error) {
	native, err := o.prober.probe(ctx, path)
	if err != nil {
		return Info{}, err
	}
	return o.outputInfo(native), nil
}

func (o *FFmpegOpener) outputInfo(native Info) Info {
	info := native
	if o.cfg.Width > 0 {
		info.Width, info.Height = o.cfg.Width, o.cfg.Height
	}
	if o.cfg.FrameRate > 0 && (native.FPS == 0 || o.cfg.FrameRate < native.FPS) {
		info.FPS = o.cfg.FrameRate
		info.EstimatedFrames = EstimateFrames(info.FPS, info.Duration)
	}
	return info
}

// filters returns the -vf chain, empty when no filtering is needed
func (o *FFmpegOpener) filters() string {
	var chain []string
	if o.cfg.FrameRate > 0 {
		chain = append(chain, "fps="+strconv.FormatFloat(o.cfg.FrameRate, 'f', -1, 64))
	}
	if o.cfg.Width > 0 {
		chain = append(chain, fmt.Sprintf("scale=%d:%d", o.cfg.Width, o.cfg.Height))
	}
	return strings.Join(chain, ",")
}

// Open probes path and starts ffmpeg. The process is bound to ctx and is
// killed when ctx ends or the source is closed.
func (o *FFmpegOpener) Open(ctx context.Context, path string) (Source, error) {
	info, err := o.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-i", path, "-an"}
	if vf := o.filters(); vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, "-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:1")

	cmd := exec.CommandContext(ctx, o.cfg.FFmpegPath, args...) //nolint:gosec // binary from settings
	cmd.WaitDelay = waitDelay
	stderr := &boundedBuffer{size: stderrLimit}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, newSourceError(fmt.Errorf("error creating ffmpeg pipe: %w", err), path, -1, "open")
	}
	if err := cmd.Start(); err != nil {
		return nil, newSourceError(fmt.Errorf("error starting ffmpeg: %w", err), path, -1, "open")
	}

	GetLogger().Debug("ffmpeg started",
		logger.String("path", path),
		logger.Int("width", info.Width),
		logger.Int("height", info.Height),
		logger.Float64("fps", info.FPS),
		logger.Int("estimated_frames", info.EstimatedFrames))

	return &ffmpegSource{
		id:        path,
		info:      info,
		cmd:       cmd,
		stdout:    stdout,
		stderr:    stderr,
		frameSize: info.Width * info.Height * rgbChannels,
	}, nil
}

// ffmpegSource reads fixed-size rgb24 frames from ffmpeg stdout
type ffmpegSource struct {
	id        string
	info      Info
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	stderr    *boundedBuffer
	frameSize int

	index  int
	eof    bool
	waited bool
	closed bool
}

func (s *ffmpegSource) Info() Info { return s.info }

func (s *ffmpegSource) Next(ctx context.Context) (Frame, error) {
	if s.closed {
		return Frame{}, ErrClosed
	}
	if s.eof {
		return Frame{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	pix := make([]byte, s.frameSize)
	_, err := io.ReadFull(s.stdout, pix)
	switch {
	case err == nil:
	case err == io.EOF:
		s.eof = true
		if waitErr := s.wait(); waitErr != nil {
			if ctx.Err() != nil {
				return Frame{}, ctx.Err()
			}
			return Frame{}, newSourceError(s.exitError(waitErr), s.id, s.index, "decode")
		}
		return Frame{}, io.EOF
	case err == io.ErrUnexpectedEOF:
		s.eof = true
		_ = s.wait()
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		return Frame{}, newSourceError(fmt.Errorf("truncated frame: %w", s.exitError(err)), s.id, s.index, "decode")
	default:
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}
		return Frame{}, newSourceError(fmt.Errorf("error reading ffmpeg output: %w", err), s.id, s.index, "decode")
	}

	f := Frame{
		Index:    s.index,
		Width:    s.info.Width,
		Height:   s.info.Height,
		Channels: rgbChannels,
		Pix:      pix,
	}
	if s.info.FPS > 0 {
		f.PTS = durationOf(s.index, s.info.FPS)
	}
	s.index++
	return f, nil
}

func (s *ffmpegSource) wait() error {
	if s.waited {
		return nil
	}
	s.waited = true
	return s.cmd.Wait()
}

func (s *ffmpegSource) exitError(err error) error {
	if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
		return fmt.Errorf("ffmpeg: %w (stderr: %s)", err, msg)
	}
	return fmt.Errorf("ffmpeg: %w", err)
}

// Close kills ffmpeg if it is still running and reaps it.
func (s *ffmpegSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.waited {
		return nil
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.wait()
	GetLogger().Debug("ffmpeg stopped", logger.String("path", s.id), logger.Int("frames_read", s.index))
	return nil
}

// boundedBuffer keeps at most size bytes of the most recent writes
type boundedBuffer struct {
	mu     sync.Mutex
	buffer bytes.Buffer
	size   int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(p)
	if b.buffer.Len()+len(p) > b.size {
		b.buffer.Reset()
		if len(p) > b.size {
			p = p[len(p)-b.size:]
		}
	}
	b.buffer.Write(p)
	return n, nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}
