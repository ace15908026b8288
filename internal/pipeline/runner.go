package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"reelsmith/internal/captions"
	"reelsmith/internal/clipplan"
	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/services"
	"reelsmith/internal/services/elevenlabs"
	"reelsmith/internal/services/pexels"
	"reelsmith/internal/taskstore"
)

// Synthesizer produces narration audio from a script.
type Synthesizer interface {
	Synthesize(ctx context.Context, req elevenlabs.Request) ([]byte, error)
}

// FootageSource finds and downloads stock clips.
type FootageSource interface {
	Search(ctx context.Context, query string, count int) ([]pexels.Clip, error)
	FetchClip(ctx context.Context, mediaURL, dest string) error
}

// Transcriber recovers word-level timing from a narration recording.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir string) ([]captions.WordSpan, error)
}

// MediaEngine runs the ffmpeg/ffprobe steps of the pipeline.
type MediaEngine interface {
	Duration(ctx context.Context, path string) (float64, error)
	Normalize(ctx context.Context, source, dest string) error
	Compile(ctx context.Context, clipPaths []string, segments []clipplan.Segment, dest string) error
	Merge(ctx context.Context, videoPath, audioPath, dest string) error
	BurnSubtitles(ctx context.Context, videoPath, subtitlePath, dest string) error
}

// Runner executes every stage of one task sequentially in the calling
// goroutine, owning the task's working directory for its lifetime.
type Runner struct {
	cfg         *config.Config
	store       *taskstore.Store
	logger      *slog.Logger
	synthesizer Synthesizer
	footage     FootageSource
	transcriber Transcriber
	engine      MediaEngine
	notifier    notifications.Notifier
}

// NewRunner wires a runner from its collaborators.
func NewRunner(cfg *config.Config, store *taskstore.Store, logger *slog.Logger, synthesizer Synthesizer, footage FootageSource, transcriber Transcriber, engine MediaEngine, notifier notifications.Notifier) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	return &Runner{
		cfg:         cfg,
		store:       store,
		logger:      logging.WithComponent(logger, "pipeline"),
		synthesizer: synthesizer,
		footage:     footage,
		transcriber: transcriber,
		engine:      engine,
		notifier:    notifier,
	}
}

// Run drives the task from processing to a terminal state. Errors never
// escape: failures are written to the task record and the working directory
// is purged on both exit paths.
func (r *Runner) Run(ctx context.Context, task *taskstore.Task) {
	logger := r.logger.With(logging.String(logging.FieldTaskID, task.ID))
	workDir := r.cfg.TaskWorkDir(task.ID)
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("failed to purge task work dir", logging.Error(err))
		}
	}()

	outputPath, duration, err := r.render(ctx, logger, task, workDir)
	if err != nil {
		message := services.UserMessage(err)
		if ctx.Err() != nil {
			message = "interrupted by daemon shutdown"
		}
		task.SetFailed(message)
		logger.Error("task failed", logging.Error(err))
		if updateErr := r.store.Update(context.WithoutCancel(ctx), task); updateErr != nil {
			logger.Error("failed to persist task failure", logging.Error(updateErr))
		}
		if notifyErr := r.notifier.NotifyFailed(context.WithoutCancel(ctx), task); notifyErr != nil {
			logger.Warn("failure callback not delivered", logging.Error(notifyErr))
		}
		return
	}

	// The artifact is already in the output dir; the terminal write must land
	// even when shutdown cancels ctx mid-run.
	task.SetCompleted(outputPath, duration)
	if err := r.store.Update(context.WithoutCancel(ctx), task); err != nil {
		logger.Error("failed to persist task completion", logging.Error(err))
		return
	}
	r.log(context.WithoutCancel(ctx), logger, task.ID, "completed")
	if err := r.notifier.NotifyCompleted(context.WithoutCancel(ctx), task, outputPath); err != nil {
		logger.Warn("delivery callback not delivered", logging.Error(err))
	}
}

// render runs the media stages and returns the final artifact path and the
// narration duration.
func (r *Runner) render(ctx context.Context, logger *slog.Logger, task *taskstore.Task, workDir string) (string, float64, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", 0, services.Wrap(services.ErrConfiguration, "setup", "workdir", "create task work dir", err)
	}

	narrationPath, err := r.synthesizeNarration(ctx, logger, task, workDir)
	if err != nil {
		return "", 0, err
	}

	duration, err := r.probeNarration(ctx, logger, task, narrationPath)
	if err != nil {
		return "", 0, err
	}

	clipPaths, err := r.acquireFootage(ctx, logger, task, workDir, duration)
	if err != nil {
		return "", 0, err
	}

	normalized, err := r.normalizeClips(ctx, logger, task, clipPaths)
	if err != nil {
		return "", 0, err
	}

	compiledPath, err := r.compileTimeline(ctx, logger, task, workDir, normalized, duration)
	if err != nil {
		return "", 0, err
	}

	mergedPath := filepath.Join(workDir, "merged.mp4")
	r.log(ctx, logger, task.ID, "merging narration")
	if err := r.withTimeout(ctx, r.cfg.Video.TranscodeTimeout, func(ctx context.Context) error {
		return r.engine.Merge(ctx, compiledPath, narrationPath, mergedPath)
	}); err != nil {
		return "", 0, services.Wrap(services.ErrExternalTool, "merge", "ffmpeg", "merge narration onto video", err)
	}

	finalSource := r.applyCaptions(ctx, logger, task, workDir, narrationPath, mergedPath, duration)

	outputPath := filepath.Join(r.cfg.Paths.OutputDir, task.ID+".mp4")
	if err := fileutil.MoveFile(finalSource, outputPath); err != nil {
		return "", 0, services.Wrap(services.ErrTransient, "finalize", "move", "move artifact to output dir", err)
	}
	return outputPath, duration, nil
}

func (r *Runner) synthesizeNarration(ctx context.Context, logger *slog.Logger, task *taskstore.Task, workDir string) (string, error) {
	r.log(ctx, logger, task.ID, "synthesizing speech")
	voiceID := task.VoiceID
	if voiceID == "" {
		voiceID = r.cfg.Speech.VoiceID
	}
	var audio []byte
	err := r.withTimeout(ctx, r.cfg.Speech.RequestTimeout, func(ctx context.Context) error {
		var synthErr error
		audio, synthErr = r.synthesizer.Synthesize(ctx, elevenlabs.Request{
			Text:            task.Script,
			VoiceID:         voiceID,
			Model:           r.cfg.Speech.Model,
			Stability:       r.cfg.Speech.Stability,
			SimilarityBoost: r.cfg.Speech.SimilarityBoost,
		})
		return synthErr
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "speech", "synthesize", "synthesize narration", err)
	}

	narrationPath := filepath.Join(workDir, "narration.mp3")
	if err := os.WriteFile(narrationPath, audio, 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "speech", "write", "write narration audio", err)
	}
	return narrationPath, nil
}

func (r *Runner) probeNarration(ctx context.Context, logger *slog.Logger, task *taskstore.Task, narrationPath string) (float64, error) {
	r.log(ctx, logger, task.ID, "measuring narration")
	var duration float64
	err := r.withTimeout(ctx, r.cfg.Video.TranscodeTimeout, func(ctx context.Context) error {
		var probeErr error
		duration, probeErr = r.engine.Duration(ctx, narrationPath)
		return probeErr
	})
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "speech", "probe", "measure narration duration", err)
	}
	if duration <= 0 {
		return 0, services.Wrap(services.ErrExternalTool, "speech", "probe", "narration has no duration", nil)
	}
	return duration, nil
}

// acquireFootage searches and downloads clips, tolerating individual download
// failures. The stage fails only when no clip lands on disk.
func (r *Runner) acquireFootage(ctx context.Context, logger *slog.Logger, task *taskstore.Task, workDir string, duration float64) ([]string, error) {
	count := clipplan.Count(duration, clipplan.CountOptions{
		Min:                r.cfg.Footage.MinClips,
		Max:                r.cfg.Footage.MaxClips,
		AverageClipSeconds: float64(r.cfg.Footage.AverageClipSeconds),
		Slack:              r.cfg.Footage.ClipSlack,
	})
	r.log(ctx, logger, task.ID, fmt.Sprintf("searching footage (%d clips)", count))

	var clips []pexels.Clip
	err := r.withTimeout(ctx, r.cfg.Footage.SearchTimeout, func(ctx context.Context) error {
		var searchErr error
		clips, searchErr = r.footage.Search(ctx, task.Query, count)
		return searchErr
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "footage", "search", "search stock footage", err)
	}

	var paths []string
	for i, clip := range clips {
		dest := filepath.Join(workDir, fmt.Sprintf("clip_%02d.mp4", i))
		err := r.withTimeout(ctx, r.cfg.Footage.DownloadTimeout, func(ctx context.Context) error {
			return r.footage.FetchClip(ctx, clip.URL, dest)
		})
		if err != nil {
			logger.Warn("clip download skipped", logging.Int("clip", i), logging.Error(err))
			continue
		}
		paths = append(paths, dest)
	}
	if len(paths) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "footage", "download", "no clips could be downloaded", nil)
	}
	r.log(ctx, logger, task.ID, fmt.Sprintf("downloaded %d of %d clips", len(paths), len(clips)))
	return paths, nil
}

// normalizeClips transcodes each clip to the vertical frame, removing the
// source file after success. Individual failures are tolerated.
func (r *Runner) normalizeClips(ctx context.Context, logger *slog.Logger, task *taskstore.Task, clipPaths []string) ([]string, error) {
	r.log(ctx, logger, task.ID, "normalizing clips")
	var normalized []string
	for i, source := range clipPaths {
		dest := filepath.Join(filepath.Dir(source), fmt.Sprintf("norm_%02d.mp4", i))
		err := r.withTimeout(ctx, r.cfg.Video.TranscodeTimeout, func(ctx context.Context) error {
			return r.engine.Normalize(ctx, source, dest)
		})
		if err != nil {
			logger.Warn("clip normalization skipped", logging.Int("clip", i), logging.Error(err))
			continue
		}
		_ = os.Remove(source)
		normalized = append(normalized, dest)
	}
	if len(normalized) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "normalize", "ffmpeg", "no clips survived normalization", nil)
	}
	return normalized, nil
}

func (r *Runner) compileTimeline(ctx context.Context, logger *slog.Logger, task *taskstore.Task, workDir string, clipPaths []string, target float64) (string, error) {
	r.log(ctx, logger, task.ID, "compiling timeline")
	lengths := make([]float64, len(clipPaths))
	for i, path := range clipPaths {
		err := r.withTimeout(ctx, r.cfg.Video.TranscodeTimeout, func(ctx context.Context) error {
			var probeErr error
			lengths[i], probeErr = r.engine.Duration(ctx, path)
			return probeErr
		})
		if err != nil {
			logger.Warn("clip duration probe failed", logging.Int("clip", i), logging.Error(err))
		}
	}

	segments, err := clipplan.Build(lengths, target)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "compile", "plan", "plan clip timeline", err)
	}

	compiledPath := filepath.Join(workDir, "compiled.mp4")
	if err := r.withTimeout(ctx, r.cfg.Video.TranscodeTimeout, func(ctx context.Context) error {
		return r.engine.Compile(ctx, clipPaths, segments, compiledPath)
	}); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "compile", "ffmpeg", "compile clip timeline", err)
	}
	return compiledPath, nil
}

// applyCaptions burns word-sync captions onto the merged video. Any failure
// falls back to the caption-free artifact; captions never fail a task.
func (r *Runner) applyCaptions(ctx context.Context, logger *slog.Logger, task *taskstore.Task, workDir, narrationPath, mergedPath string, duration float64) string {
	if !r.cfg.Captions.Enabled {
		return mergedPath
	}
	r.log(ctx, logger, task.ID, "generating captions")

	words := r.captionWords(ctx, logger, task, narrationPath, workDir, duration)
	if len(words) == 0 {
		logger.Warn("no caption timing available, skipping captions")
		return mergedPath
	}

	units := captions.Group(words, r.cfg.Captions.MaxWordsPerLine)
	assPath := filepath.Join(workDir, "captions.ass")
	if err := captions.WriteASS(assPath, units, captions.RenderOptions{
		PlayResX:        r.cfg.Video.Width,
		PlayResY:        r.cfg.Video.Height,
		FontSize:        r.cfg.Captions.FontSize,
		HighlightColour: r.cfg.Captions.HighlightColour,
	}); err != nil {
		logger.Warn("caption script not written, skipping captions", logging.Error(err))
		return mergedPath
	}

	captionedPath := filepath.Join(workDir, "captioned.mp4")
	if err := r.withTimeout(ctx, r.cfg.Video.TranscodeTimeout, func(ctx context.Context) error {
		return r.engine.BurnSubtitles(ctx, mergedPath, assPath, captionedPath)
	}); err != nil {
		logger.Warn("caption burn failed, delivering without captions", logging.Error(err))
		return mergedPath
	}
	return captionedPath
}

// captionWords prefers transcribed timings and falls back to the syllable
// estimator when transcription is unavailable.
func (r *Runner) captionWords(ctx context.Context, logger *slog.Logger, task *taskstore.Task, narrationPath, workDir string, duration float64) []captions.WordSpan {
	if r.transcriber != nil {
		var words []captions.WordSpan
		err := r.withTimeout(ctx, r.cfg.Captions.TranscribeTimeout, func(ctx context.Context) error {
			var transcribeErr error
			words, transcribeErr = r.transcriber.Transcribe(ctx, narrationPath, workDir)
			return transcribeErr
		})
		if err == nil && len(words) > 0 {
			return words
		}
		if err != nil {
			logger.Warn("transcription failed, estimating caption timing", logging.Error(err))
		}
	}
	return captions.EstimateTiming(task.Script, duration)
}

// log mirrors a stage message into the task record and the daemon log.
func (r *Runner) log(ctx context.Context, logger *slog.Logger, taskID, message string) {
	if err := r.store.AppendLog(ctx, taskID, message); err != nil {
		logger.Warn("failed to append task log", logging.Error(err))
	}
	logger.Info(message)
}

func (r *Runner) withTimeout(ctx context.Context, seconds int, op func(context.Context) error) error {
	if seconds <= 0 {
		return op(ctx)
	}
	opCtx, cancel := context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
	defer cancel()
	return op(opCtx)
}
