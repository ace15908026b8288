package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"reelsmith/internal/clipplan"
	"reelsmith/internal/logging"
)

// Engine drives ffmpeg and ffprobe for the transcode, compile, merge, and
// caption burn steps. All output is re-encoded to the configured vertical
// frame.
type Engine struct {
	ffmpegBinary  string
	ffprobeBinary string
	width         int
	height        int
	logger        *slog.Logger

	commandRunner func(ctx context.Context, name string, args ...string) error
	probeFunc     func(ctx context.Context, binary, path string) (ProbeResult, error)
}

// EngineConfig carries the binaries and target geometry for an Engine.
type EngineConfig struct {
	FFmpegBinary  string
	FFprobeBinary string
	Width         int
	Height        int
}

// NewEngine creates an Engine. Zero-value geometry falls back to 720x1280.
func NewEngine(cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if cfg.FFprobeBinary == "" {
		cfg.FFprobeBinary = "ffprobe"
	}
	if cfg.Width <= 0 {
		cfg.Width = 720
	}
	if cfg.Height <= 0 {
		cfg.Height = 1280
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		ffmpegBinary:  cfg.FFmpegBinary,
		ffprobeBinary: cfg.FFprobeBinary,
		width:         cfg.Width,
		height:        cfg.Height,
		logger:        logging.WithComponent(logger, "media"),
		probeFunc:     Probe,
	}
}

// WithCommandRunner sets a custom ffmpeg runner (for testing).
func (e *Engine) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	e.commandRunner = runner
}

// WithProbe sets a custom probe implementation (for testing).
func (e *Engine) WithProbe(probe func(ctx context.Context, binary, path string) (ProbeResult, error)) {
	e.probeFunc = probe
}

// Duration probes the container duration of the file at path.
func (e *Engine) Duration(ctx context.Context, path string) (float64, error) {
	result, err := e.probeFunc(ctx, e.ffprobeBinary, path)
	if err != nil {
		return 0, err
	}
	duration := result.DurationSeconds()
	if duration <= 0 {
		return 0, fmt.Errorf("probe: %s reports no duration", filepath.Base(path))
	}
	return duration, nil
}

// Normalize re-encodes source into the target vertical frame: scale up to
// cover the frame, centre-crop the overflow, drop the source audio. The
// result is written to dest.
func (e *Engine) Normalize(ctx context.Context, source, dest string) error {
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		e.width, e.height, e.width, e.height)
	args := []string{
		"-y", "-i", source,
		"-vf", filter,
		"-r", "30",
		"-an",
		"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
		dest,
	}
	e.logger.Debug("normalizing clip",
		logging.String("source", filepath.Base(source)),
		logging.String("dest", filepath.Base(dest)))
	return e.run(ctx, args...)
}

// Compile concatenates the planned segments into a single video at dest.
// Each segment uses the leading Duration seconds of its clip; the concat
// list carries outpoint markers so the final cut lands on the narration
// length exactly.
func (e *Engine) Compile(ctx context.Context, clipPaths []string, segments []clipplan.Segment, dest string) error {
	if len(segments) == 0 {
		return fmt.Errorf("compile: no segments planned")
	}
	listPath := dest + ".concat.txt"
	if err := writeConcatList(listPath, clipPaths, segments); err != nil {
		return err
	}
	defer os.Remove(listPath)

	args := []string{
		"-y", "-f", "concat", "-safe", "0", "-i", listPath,
		"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
		"-an",
		dest,
	}
	e.logger.Debug("compiling timeline",
		logging.Int("segments", len(segments)),
		logging.String("dest", filepath.Base(dest)))
	return e.run(ctx, args...)
}

// Merge muxes the narration audio onto the compiled video. The output stops
// at the shorter input so trailing footage never outlives the narration.
func (e *Engine) Merge(ctx context.Context, videoPath, audioPath, dest string) error {
	args := []string{
		"-y", "-i", videoPath, "-i", audioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy", "-c:a", "aac",
		"-shortest",
		dest,
	}
	e.logger.Debug("merging narration",
		logging.String("video", filepath.Base(videoPath)),
		logging.String("audio", filepath.Base(audioPath)))
	return e.run(ctx, args...)
}

// BurnSubtitles renders the ASS script onto the video.
func (e *Engine) BurnSubtitles(ctx context.Context, videoPath, subtitlePath, dest string) error {
	args := []string{
		"-y", "-i", videoPath,
		"-vf", "ass=" + escapeFilterPath(subtitlePath),
		"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
		"-c:a", "copy",
		dest,
	}
	e.logger.Debug("burning captions", logging.String("dest", filepath.Base(dest)))
	return e.run(ctx, args...)
}

func (e *Engine) run(ctx context.Context, args ...string) error {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, e.ffmpegBinary, args...)
	}
	cmd := exec.CommandContext(ctx, e.ffmpegBinary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", e.ffmpegBinary, err, tailOf(string(output)))
	}
	return nil
}

func writeConcatList(path string, clipPaths []string, segments []clipplan.Segment) error {
	var b strings.Builder
	for _, segment := range segments {
		if segment.ClipIndex < 0 || segment.ClipIndex >= len(clipPaths) {
			return fmt.Errorf("compile: segment references clip %d outside pool of %d", segment.ClipIndex, len(clipPaths))
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(clipPaths[segment.ClipIndex]))
		fmt.Fprintf(&b, "outpoint %.3f\n", segment.Duration)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("compile: write concat list: %w", err)
	}
	return nil
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

// escapeFilterPath quotes characters the ffmpeg filter parser treats as
// syntax.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(`\`, `\\`, ":", `\:`, "'", `\'`)
	return replacer.Replace(path)
}

// tailOf keeps the last part of verbose tool output so errors stay readable.
func tailOf(output string) string {
	output = strings.TrimSpace(output)
	const limit = 600
	if len(output) <= limit {
		return output
	}
	return "... " + output[len(output)-limit:]
}
