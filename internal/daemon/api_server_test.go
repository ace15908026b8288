package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/api"
	"reelsmith/internal/captions"
	"reelsmith/internal/clipplan"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
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
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Workflow.QueuePollInterval = 1
	cfg.Captions.Enabled = false
	// Preflight only needs resolvable binaries.
	cfg.Video.FFmpegBinary = "sh"
	cfg.Video.FFprobeBinary = "sh"
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

type stubSynthesizer struct{}

func (stubSynthesizer) Synthesize(context.Context, elevenlabs.Request) ([]byte, error) {
	return []byte("narration"), nil
}

type stubFootage struct{}

func (stubFootage) Search(_ context.Context, _ string, count int) ([]pexels.Clip, error) {
	clips := make([]pexels.Clip, count)
	for i := range clips {
		clips[i] = pexels.Clip{ID: int64(i + 1), URL: fmt.Sprintf("https://example.com/%d.mp4", i+1)}
	}
	return clips, nil
}

func (stubFootage) FetchClip(_ context.Context, _, dest string) error {
	return os.WriteFile(dest, []byte("clip"), 0o644)
}

type stubEngine struct {
	mergeErr error
}

func (stubEngine) Duration(context.Context, string) (float64, error) { return 5, nil }

func (stubEngine) Normalize(_ context.Context, _, dest string) error {
	return os.WriteFile(dest, []byte("norm"), 0o644)
}

func (stubEngine) Compile(_ context.Context, _ []string, _ []clipplan.Segment, dest string) error {
	return os.WriteFile(dest, []byte("compiled"), 0o644)
}

func (e stubEngine) Merge(_ context.Context, _, _, dest string) error {
	if e.mergeErr != nil {
		return e.mergeErr
	}
	return os.WriteFile(dest, []byte("merged"), 0o644)
}

func (stubEngine) BurnSubtitles(_ context.Context, _, _, dest string) error {
	return os.WriteFile(dest, []byte("captioned"), 0o644)
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(context.Context, string, string) ([]captions.WordSpan, error) {
	return nil, nil
}

func startTestDaemon(t *testing.T) (*Daemon, string) {
	return startTestDaemonWithEngine(t, stubEngine{})
}

func startTestDaemonWithEngine(t *testing.T, engine pipeline.MediaEngine) (*Daemon, string) {
	t.Helper()
	cfg := testConfig(t)
	store := testStore(t, cfg)
	manager := pipeline.NewManager(cfg, store, logging.NewNop(),
		stubSynthesizer{}, stubFootage{}, stubTranscriber{}, engine, notifications.Noop{})

	d, err := New(cfg, store, logging.NewNop(), manager)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, "http://" + d.api.addr()
}

func submitTask(t *testing.T, baseURL string, req api.SubmitRequest) api.TaskView {
	t.Helper()
	body, _ := json.Marshal(req)
	resp, err := http.Post(baseURL+"/api/tasks", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	var payload api.TaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	return payload.Task
}

func waitForStatus(t *testing.T, baseURL, id, want string) api.TaskView {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/api/tasks/" + id)
		if err != nil {
			t.Fatalf("get task: %v", err)
		}
		var payload api.TaskResponse
		err = json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode task: %v", err)
		}
		if payload.Task.Status == want {
			return payload.Task
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("task %s never reached status %s", id, want)
	return api.TaskView{}
}

func TestSubmitAndProcessTask(t *testing.T) {
	_, baseURL := startTestDaemon(t)

	task := submitTask(t, baseURL, api.SubmitRequest{
		Script: "An ancient forest hides a thousand stories.",
		Query:  "forest",
	})
	if task.ID == "" {
		t.Fatal("expected task id")
	}
	if task.Status != string(taskstore.StatusPending) {
		t.Fatalf("status = %q, want pending", task.Status)
	}

	done := waitForStatus(t, baseURL, task.ID, string(taskstore.StatusCompleted))
	if done.OutputPath == "" {
		t.Fatal("expected output path")
	}
	if _, err := os.Stat(done.OutputPath); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if len(done.Logs) == 0 {
		t.Fatal("expected progress logs")
	}
}

func TestSubmitValidation(t *testing.T) {
	_, baseURL := startTestDaemon(t)

	cases := []struct {
		name string
		req  api.SubmitRequest
	}{
		{"short script", api.SubmitRequest{Script: "too short", Query: "forest"}},
		{"missing query", api.SubmitRequest{Script: "A perfectly valid narration script."}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.req)
			resp, err := http.Post(baseURL+"/api/tasks", "application/json", bytes.NewReader(body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestTaskNotFound(t *testing.T) {
	_, baseURL := startTestDaemon(t)

	resp, err := http.Get(baseURL + "/api/tasks/nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	_, baseURL := startTestDaemon(t)

	task := submitTask(t, baseURL, api.SubmitRequest{
		Script: "Waves carve new shapes into the coastline.",
		Query:  "ocean",
	})
	waitForStatus(t, baseURL, task.ID, string(taskstore.StatusCompleted))

	resp, err := http.Get(baseURL + "/api/tasks?status=completed")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var payload api.TaskListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Tasks) != 1 || payload.Tasks[0].ID != task.ID {
		t.Fatalf("unexpected list: %+v", payload.Tasks)
	}

	resp2, err := http.Get(baseURL + "/api/tasks?status=bogus")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid filter status = %d, want 400", resp2.StatusCode)
	}
}

func TestDownloadCompletedTask(t *testing.T) {
	_, baseURL := startTestDaemon(t)

	task := submitTask(t, baseURL, api.SubmitRequest{
		Script: "City lights flicker awake at dusk tonight.",
		Query:  "city",
	})
	waitForStatus(t, baseURL, task.ID, string(taskstore.StatusCompleted))

	resp, err := http.Get(baseURL + "/api/tasks/" + task.ID + "/download")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected video bytes")
	}
}

func TestDownloadFailedTaskConflicts(t *testing.T) {
	_, baseURL := startTestDaemonWithEngine(t, stubEngine{mergeErr: fmt.Errorf("codec mismatch")})

	task := submitTask(t, baseURL, api.SubmitRequest{
		Script: "A script whose render never makes it through.",
		Query:  "mountains",
	})
	failed := waitForStatus(t, baseURL, task.ID, string(taskstore.StatusFailed))
	if failed.ErrorMessage == "" {
		t.Fatal("expected error message on failed task")
	}

	resp, err := http.Get(baseURL + "/api/tasks/" + task.ID + "/download")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("download status = %d, want 409", resp.StatusCode)
	}
}

func TestDeleteTask(t *testing.T) {
	_, baseURL := startTestDaemon(t)

	task := submitTask(t, baseURL, api.SubmitRequest{
		Script: "Snow settles quietly over the high passes.",
		Query:  "snow",
	})
	waitForStatus(t, baseURL, task.ID, string(taskstore.StatusCompleted))

	req, _ := http.NewRequest(http.MethodDelete, baseURL+"/api/tasks/"+task.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	check, err := http.Get(baseURL + "/api/tasks/" + task.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer check.Body.Close()
	if check.StatusCode != http.StatusNotFound {
		t.Fatalf("status after delete = %d, want 404", check.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	_, baseURL := startTestDaemon(t)

	resp, err := http.Get(baseURL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.PID == 0 {
		t.Fatal("expected pid")
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency report")
	}
	for _, dep := range status.Dependencies {
		if !dep.Available {
			t.Fatalf("dependency %s unavailable: %s", dep.Name, dep.Detail)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, baseURL := startTestDaemon(t)

	req, _ := http.NewRequest(http.MethodPut, baseURL+"/api/tasks", strings.NewReader("{}"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
