package video

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/patrickmn/go-cache"
)

const (
	defaultProbeTimeout = 15 * time.Second
	probeCacheTTL       = 10 * time.Minute
)

// prober runs ffprobe and caches results per file version
type prober struct {
	binary  string
	timeout time.Duration
	cache   *cache.Cache
}

func newProber(binary string, timeout time.Duration) *prober {
	if binary == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &prober{
		binary:  binary,
		timeout: timeout,
		cache:   cache.New(probeCacheTTL, 2*probeCacheTTL),
	}
}

// probe returns the native stream info of path. Results are keyed by path,
// size and modification time so a rewritten file is probed again.
func (p *prober) probe(ctx context.Context, path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, newSourceError(err, path, -1, "stat")
	}
	key := fmt.Sprintf("%s|%d|%d", path, st.Size(), st.ModTime().UnixNano())
	if cached, found := p.cache.Get(key); found {
		if info, ok := cached.(Info); ok {
			return info, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary, //nolint:gosec // binary from settings, args are fixed
		"-v", "error",
		"-select_streams", "v:0",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Info{}, newSourceError(fmt.Errorf("ffprobe aborted: %w", ctx.Err()), path, -1, "probe")
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Info{}, newSourceError(fmt.Errorf("ffprobe failed: %s", msg), path, -1, "probe")
	}

	info, err := parseProbeOutput(out.Bytes())
	if err != nil {
		return Info{}, newSourceError(err, path, -1, "probe-parse")
	}

	p.cache.Set(key, info, cache.DefaultExpiration)
	return info, nil
}

// parseProbeOutput extracts the first video stream from ffprobe JSON output
func parseProbeOutput(data []byte) (Info, error) {
	root, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return Info{}, fmt.Errorf("invalid ffprobe output: %w", err)
	}

	streams, err := root.GetObjectArray("streams")
	if err != nil || len(streams) == 0 {
		return Info{}, fmt.Errorf("no video stream found")
	}

	var stream *jason.Object
	for _, s := range streams {
		if codecType, err := s.GetString("codec_type"); err != nil || codecType == "video" {
			stream = s
			break
		}
	}
	if stream == nil {
		return Info{}, fmt.Errorf("no video stream found")
	}

	width, errW := stream.GetInt64("width")
	height, errH := stream.GetInt64("height")
	if errW != nil || errH != nil || width < 1 || height < 1 {
		return Info{}, fmt.Errorf("video stream has no usable dimensions")
	}

	info := Info{Width: int(width), Height: int(height)}

	for _, key := range []string{"avg_frame_rate", "r_frame_rate"} {
		if rate, err := stream.GetString(key); err == nil {
			if fps := parseRate(rate); fps > 0 {
				info.FPS = fps
				break
			}
		}
	}

	info.Duration = parseSeconds(stream, "duration")
	if info.Duration == 0 {
		if format, err := root.GetObject("format"); err == nil {
			info.Duration = parseSeconds(format, "duration")
		}
	}

	if nb, err := stream.GetString("nb_frames"); err == nil {
		if n, err := strconv.Atoi(nb); err == nil && n > 0 {
			info.EstimatedFrames = n
		}
	}
	if info.EstimatedFrames == 0 {
		info.EstimatedFrames = EstimateFrames(info.FPS, info.Duration)
	}

	return info, nil
}

// parseRate parses ffprobe rationals such as "30000/1001". "0/0" yields 0.
func parseRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseSeconds(obj *jason.Object, key string) time.Duration {
	s, err := obj.GetString(key)
	if err != nil {
		return 0
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(math.Round(secs * float64(time.Second)))
}
