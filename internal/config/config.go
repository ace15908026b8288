package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Speech contains configuration for the narration synthesis provider.
type Speech struct {
	APIKey          string  `toml:"api_key"`
	BaseURL         string  `toml:"base_url"`
	VoiceID         string  `toml:"voice_id"`
	Model           string  `toml:"model"`
	Stability       float64 `toml:"stability"`
	SimilarityBoost float64 `toml:"similarity_boost"`
	RequestTimeout  int     `toml:"request_timeout"`
}

// Footage contains configuration for the stock footage provider and the
// clip-count planning policy.
type Footage struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	MinClips           int    `toml:"min_clips"`
	MaxClips           int    `toml:"max_clips"`
	AverageClipSeconds int    `toml:"average_clip_seconds"`
	ClipSlack          int    `toml:"clip_slack"`
	SearchTimeout      int    `toml:"search_timeout"`
	DownloadTimeout    int    `toml:"download_timeout"`
}

// Video contains output geometry and transcode engine settings.
type Video struct {
	Width            int    `toml:"width"`
	Height           int    `toml:"height"`
	FFmpegBinary     string `toml:"ffmpeg_binary"`
	FFprobeBinary    string `toml:"ffprobe_binary"`
	TranscodeTimeout int    `toml:"transcode_timeout"`
}

// Captions contains word-sync caption settings.
type Captions struct {
	Enabled           bool   `toml:"enabled"`
	MaxWordsPerLine   int    `toml:"max_words_per_line"`
	FontSize          int    `toml:"font_size"`
	HighlightColour   string `toml:"highlight_colour"`
	TranscriberBinary string `toml:"transcriber_binary"`
	TranscriberModel  string `toml:"transcriber_model"`
	TranscribeTimeout int    `toml:"transcribe_timeout"`
}

// Workflow contains pipeline scheduling settings.
type Workflow struct {
	MaxConcurrent     int `toml:"max_concurrent"`
	QueuePollInterval int `toml:"queue_poll_interval"`
}

// Delivery contains settings for the callback push of finished artifacts.
type Delivery struct {
	RequestTimeout int `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Sections by subsystem:
//   - Paths: working/output/log directories and API bind address
//   - Speech: narration synthesis provider credentials and voice tuning
//   - Footage: stock footage provider and clip planning policy
//   - Video: output geometry and ffmpeg/ffprobe binaries
//   - Captions: word-sync caption generation
//   - Workflow: concurrency bound and queue polling
//   - Delivery: callback push settings
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Speech   Speech   `toml:"speech"`
	Footage  Footage  `toml:"footage"`
	Video    Video    `toml:"video"`
	Captions Captions `toml:"captions"`
	Workflow Workflow `toml:"workflow"`
	Delivery Delivery `toml:"delivery"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs to operate.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TaskWorkDir returns the per-task scratch directory.
func (c *Config) TaskWorkDir(taskID string) string {
	return filepath.Join(c.Paths.WorkDir, taskID)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
