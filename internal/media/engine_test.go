package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/clipplan"
)

type recordedCommand struct {
	name string
	args []string
}

func newRecordingEngine(t *testing.T) (*Engine, *[]recordedCommand) {
	t.Helper()
	engine := NewEngine(EngineConfig{Width: 720, Height: 1280}, nil)
	var commands []recordedCommand
	engine.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		commands = append(commands, recordedCommand{name: name, args: args})
		return nil
	})
	return engine, &commands
}

func argString(c recordedCommand) string {
	return strings.Join(c.args, " ")
}

func TestNormalizeBuildsVerticalFilter(t *testing.T) {
	engine, commands := newRecordingEngine(t)
	if err := engine.Normalize(context.Background(), "in.mp4", "out.mp4"); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(*commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(*commands))
	}
	args := argString((*commands)[0])
	if !strings.Contains(args, "scale=720:1280:force_original_aspect_ratio=increase,crop=720:1280") {
		t.Errorf("missing vertical filter: %s", args)
	}
	if !strings.Contains(args, "-an") {
		t.Errorf("source audio should be dropped: %s", args)
	}
}

func TestCompileWritesConcatList(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "compiled.mp4")
	clips := []string{
		filepath.Join(dir, "clip0.mp4"),
		filepath.Join(dir, "clip1.mp4"),
	}
	segments := []clipplan.Segment{
		{ClipIndex: 0, Duration: 4},
		{ClipIndex: 1, Duration: 2.5},
	}

	engine := NewEngine(EngineConfig{}, nil)
	var listContents string
	engine.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		for i, arg := range args {
			if arg == "-i" && i+1 < len(args) {
				data, err := os.ReadFile(args[i+1])
				if err != nil {
					t.Fatalf("read concat list: %v", err)
				}
				listContents = string(data)
			}
		}
		return nil
	})

	if err := engine.Compile(context.Background(), clips, segments, dest); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(listContents, "clip0.mp4") || !strings.Contains(listContents, "clip1.mp4") {
		t.Errorf("concat list missing clips:\n%s", listContents)
	}
	if !strings.Contains(listContents, "outpoint 4.000") || !strings.Contains(listContents, "outpoint 2.500") {
		t.Errorf("concat list missing outpoints:\n%s", listContents)
	}
	if _, err := os.Stat(dest + ".concat.txt"); !os.IsNotExist(err) {
		t.Errorf("concat list should be removed after the run")
	}
}

func TestCompileRejectsBadSegment(t *testing.T) {
	engine, _ := newRecordingEngine(t)
	segments := []clipplan.Segment{{ClipIndex: 3, Duration: 2}}
	if err := engine.Compile(context.Background(), []string{"only.mp4"}, segments, filepath.Join(t.TempDir(), "out.mp4")); err == nil {
		t.Fatal("expected error for out-of-range clip index")
	}
	if err := engine.Compile(context.Background(), []string{"only.mp4"}, nil, "out.mp4"); err == nil {
		t.Fatal("expected error for empty plan")
	}
}

func TestMergeUsesShortest(t *testing.T) {
	engine, commands := newRecordingEngine(t)
	if err := engine.Merge(context.Background(), "video.mp4", "voice.mp3", "final.mp4"); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	args := argString((*commands)[0])
	if !strings.Contains(args, "-shortest") {
		t.Errorf("merge must stop at the shorter input: %s", args)
	}
	if !strings.Contains(args, "-map 0:v:0 -map 1:a:0") {
		t.Errorf("merge must map video then narration: %s", args)
	}
}

func TestBurnSubtitlesEscapesFilterPath(t *testing.T) {
	engine, commands := newRecordingEngine(t)
	if err := engine.BurnSubtitles(context.Background(), "video.mp4", "/tmp/it's.ass", "out.mp4"); err != nil {
		t.Fatalf("BurnSubtitles: %v", err)
	}
	args := argString((*commands)[0])
	if !strings.Contains(args, `ass=/tmp/it\'s.ass`) {
		t.Errorf("filter path not escaped: %s", args)
	}
}

func TestDurationUsesProbe(t *testing.T) {
	engine := NewEngine(EngineConfig{}, nil)
	engine.WithProbe(func(_ context.Context, _, path string) (ProbeResult, error) {
		if path != "narration.mp3" {
			t.Errorf("probe path = %q", path)
		}
		return ProbeResult{Format: ProbeFormat{Duration: "42.5"}}, nil
	})
	duration, err := engine.Duration(context.Background(), "narration.mp3")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if duration != 42.5 {
		t.Errorf("duration = %v, want 42.5", duration)
	}
}

func TestDurationRejectsMissingDuration(t *testing.T) {
	engine := NewEngine(EngineConfig{}, nil)
	engine.WithProbe(func(_ context.Context, _, _ string) (ProbeResult, error) {
		return ProbeResult{}, nil
	})
	if _, err := engine.Duration(context.Background(), "empty.mp3"); err == nil {
		t.Fatal("expected error when container reports no duration")
	}
}

func TestProbeResultHelpers(t *testing.T) {
	result := ProbeResult{
		Streams: []ProbeStream{
			{CodecType: "video", Width: 1920, Height: 1080},
			{CodecType: "audio"},
		},
		Format: ProbeFormat{Duration: "12.0"},
	}
	if w, h := result.VideoDimensions(); w != 1920 || h != 1080 {
		t.Errorf("dimensions = %dx%d", w, h)
	}
	if !result.HasAudio() {
		t.Error("expected audio stream")
	}
	if result.DurationSeconds() != 12.0 {
		t.Errorf("duration = %v", result.DurationSeconds())
	}
}

func TestProbeResultStreamDurationFallback(t *testing.T) {
	result := ProbeResult{
		Streams: []ProbeStream{{CodecType: "audio", Duration: "9.75"}},
	}
	if result.DurationSeconds() != 9.75 {
		t.Errorf("duration = %v, want 9.75", result.DurationSeconds())
	}
}
