package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsmith/internal/captions"
	"reelsmith/internal/clipplan"
	"reelsmith/internal/config"
	"reelsmith/internal/services/elevenlabs"
	"reelsmith/internal/services/pexels"
	"reelsmith/internal/taskstore"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Workflow.QueuePollInterval = 1
	return &cfg
}

func testStore(t *testing.T, cfg *config.Config) *taskstore.Store {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	store, err := taskstore.OpenPath(filepath.Join(cfg.Paths.LogDir, "tasks.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type fakeSynthesizer struct {
	err   error
	audio []byte
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, req elevenlabs.Request) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if req.Text == "" {
		return nil, errors.New("empty script")
	}
	if f.audio != nil {
		return f.audio, nil
	}
	return []byte("mp3-bytes"), nil
}

type fakeFootage struct {
	clips     int
	searchErr error
	failFetch map[int]error

	mu         sync.Mutex
	fetchCalls int
}

func (f *fakeFootage) Search(_ context.Context, query string, count int) ([]pexels.Clip, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	n := f.clips
	if n == 0 {
		n = count
	}
	clips := make([]pexels.Clip, n)
	for i := range clips {
		clips[i] = pexels.Clip{
			ID:              int64(i + 1),
			URL:             fmt.Sprintf("https://media.example/%s/%d.mp4", query, i),
			DurationSeconds: 4,
		}
	}
	return clips, nil
}

func (f *fakeFootage) FetchClip(_ context.Context, mediaURL, dest string) error {
	f.mu.Lock()
	index := f.fetchCalls
	f.fetchCalls++
	f.mu.Unlock()
	if err, ok := f.failFetch[index]; ok {
		return err
	}
	return os.WriteFile(dest, []byte("clip-bytes "+mediaURL), 0o644)
}

type fakeTranscriber struct {
	words []captions.WordSpan
	err   error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _, _ string) ([]captions.WordSpan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.words, nil
}

// fakeEngine writes marker files for every produced artifact and records the
// operations it ran.
type fakeEngine struct {
	mu                sync.Mutex
	narrationDuration float64
	clipDuration      float64
	normalizeErr      error
	mergeErr          error
	burnErr           error
	renderDelay       time.Duration
	calls             []string
}

func (f *fakeEngine) record(op string) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
}

func (f *fakeEngine) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call == op {
			count++
		}
	}
	return count
}

func (f *fakeEngine) Duration(_ context.Context, path string) (float64, error) {
	if strings.Contains(filepath.Base(path), "narration") {
		if f.narrationDuration > 0 {
			return f.narrationDuration, nil
		}
		return 10, nil
	}
	if f.clipDuration > 0 {
		return f.clipDuration, nil
	}
	return 4, nil
}

func (f *fakeEngine) Normalize(_ context.Context, source, dest string) error {
	f.record("normalize")
	if f.normalizeErr != nil {
		return f.normalizeErr
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func (f *fakeEngine) Compile(_ context.Context, clipPaths []string, segments []clipplan.Segment, dest string) error {
	f.record("compile")
	if len(segments) == 0 {
		return errors.New("no segments")
	}
	return os.WriteFile(dest, []byte("compiled"), 0o644)
}

func (f *fakeEngine) Merge(_ context.Context, videoPath, audioPath, dest string) error {
	f.record("merge")
	if f.mergeErr != nil {
		return f.mergeErr
	}
	if f.renderDelay > 0 {
		time.Sleep(f.renderDelay)
	}
	return os.WriteFile(dest, []byte("merged"), 0o644)
}

func (f *fakeEngine) BurnSubtitles(_ context.Context, videoPath, subtitlePath, dest string) error {
	f.record("burn")
	if f.burnErr != nil {
		return f.burnErr
	}
	if _, err := os.Stat(subtitlePath); err != nil {
		return fmt.Errorf("subtitle script missing: %w", err)
	}
	return os.WriteFile(dest, []byte("captioned"), 0o644)
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
}

func (f *fakeNotifier) NotifyCompleted(_ context.Context, task *taskstore.Task, videoPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, task.ID+":"+videoPath)
	return nil
}

func (f *fakeNotifier) NotifyFailed(_ context.Context, task *taskstore.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, task.ID)
	return nil
}

func (f *fakeNotifier) completedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.completed)
}

func (f *fakeNotifier) failedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.failed)
}

func submitTask(t *testing.T, store *taskstore.Store) *taskstore.Task {
	t.Helper()
	task, err := store.Create(context.Background(), taskstore.NewTaskRequest{
		Script: "The ocean hides entire mountain ranges beneath its surface.",
		Query:  "ocean waves",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func claimTask(t *testing.T, store *taskstore.Store) *taskstore.Task {
	t.Helper()
	task, err := store.ClaimNextPending(context.Background())
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if task == nil {
		t.Fatal("no pending task to claim")
	}
	return task
}
