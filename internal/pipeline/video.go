package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/geolocate-mcp/internal/logger"
)

var (
	// ErrNoFrameExtractor is returned for video assets when no extractor is
	// configured.
	ErrNoFrameExtractor = errors.New("video support requires a frame extractor")

	// ErrNoFrames is returned when a video yields no decodable frame.
	ErrNoFrames = errors.New("no frames extracted from video")
)

// FrameExtractor writes up to n still frames of a video into dir and
// returns their paths in playback order.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, video, dir string, n int) ([]string, error)
}

// FFmpeg extracts keyframes with the ffmpeg command line tool.
type FFmpeg struct {
	// Path is the ffmpeg binary; empty means "ffmpeg" on PATH.
	Path string
}

// ExtractFrames implements FrameExtractor. Only I-frames are written since
// they are the sharpest frames of a compressed stream.
func (f FFmpeg) ExtractFrames(ctx context.Context, video, dir string, n int) ([]string, error) {
	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := os.Stat(video); err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}

	pattern := filepath.Join(dir, "frame_%03d.png")
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-i", video,
		"-vf", "select='eq(pict_type,I)'",
		"-vsync", "vfr",
		"-frames:v", strconv.Itoa(n),
		pattern,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	frames, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	sort.Strings(frames)
	return frames, nil
}

// LocateVideo locates every extracted frame and keeps the best one: a
// validated frame beats an unvalidated one, then higher confidence wins and
// the earlier frame wins ties.
func (p *Pipeline) LocateVideo(ctx context.Context, path, groupID string) (*AssetReport, error) {
	if p.deps.Frames == nil {
		return nil, ErrNoFrameExtractor
	}

	dir, err := os.MkdirTemp("", "geolocate-frames-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}
	defer os.RemoveAll(dir)

	frames, err := p.deps.Frames.ExtractFrames(ctx, path, dir, p.opts.FramesPerVideo)
	if err != nil {
		return nil, err
	}

	var best *AssetReport
	for _, frame := range frames {
		r, err := p.locate(ctx, ImageRequest{Path: frame})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warnf("video %s: skipping frame %s: %v", path, filepath.Base(frame), err)
			continue
		}
		if best == nil || betterFrame(r, best) {
			best = r
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoFrames, path)
	}

	best.Frame = filepath.Base(best.Path)
	best.Path = path
	best.Kind = KindVideo
	p.save(ctx, path, groupID, best.Result)
	return best, nil
}

func betterFrame(a, b *AssetReport) bool {
	if a.Result.Validated != b.Result.Validated {
		return a.Result.Validated
	}
	return a.Result.Confidence > b.Result.Confidence
}
