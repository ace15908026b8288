// Package transcriber wraps a whisper-style CLI that produces word-level
// timing JSON for a narration recording.
package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"reelsmith/internal/captions"
)

// DefaultModel is used when the configuration does not name one.
const DefaultModel = "small"

// Config carries the transcriber invocation settings.
type Config struct {
	// Binary is the transcriber executable, e.g. whisperx.
	Binary string
	// Model selects the speech model passed to the binary.
	Model string
}

// Service runs the transcriber binary and parses its word-level output.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a transcriber service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "whisperx"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Transcribe runs the transcriber against the narration at source, writing
// intermediate output under outputDir, and returns the word spans in
// narration order.
func (s *Service) Transcribe(ctx context.Context, source, outputDir string) ([]captions.WordSpan, error) {
	if source == "" {
		return nil, fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := []string{
		source,
		"--model", s.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", "json",
	}
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return nil, fmt.Errorf("transcriber: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	words, err := LoadWords(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("transcriber: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("transcriber: no words in %s", filepath.Base(jsonPath))
	}
	return words, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Word represents a single word with timing from the transcriber output.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment represents one transcribed segment from the JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

type payload struct {
	Segments []Segment `json:"segments"`
}

// LoadWords flattens the segments of a transcriber JSON file into an ordered
// word span list. Words without usable timing are dropped.
func LoadWords(jsonPath string) ([]captions.WordSpan, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var parsed payload
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse transcript json: %w", err)
	}

	var words []captions.WordSpan
	for _, segment := range parsed.Segments {
		for _, word := range segment.Words {
			text := strings.TrimSpace(word.Word)
			if text == "" || word.End <= word.Start {
				continue
			}
			words = append(words, captions.WordSpan{
				Word:  captions.NormalizeWord(text),
				Start: word.Start,
				End:   word.End,
			})
		}
	}
	return words, nil
}
