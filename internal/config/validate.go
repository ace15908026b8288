package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCredentials(); err != nil {
		return err
	}
	if err := c.validateFootage(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCredentials() error {
	if c.Speech.APIKey == "" {
		return errors.New("speech.api_key is required. Set ELEVENLABS_API_KEY env var or edit the config file (create with 'reelsmith config init')")
	}
	if c.Footage.APIKey == "" {
		return errors.New("footage.api_key is required. Set PEXELS_API_KEY env var or edit the config file (create with 'reelsmith config init')")
	}
	if c.Speech.Stability < 0 || c.Speech.Stability > 1 {
		return errors.New("speech.stability must be between 0 and 1")
	}
	if c.Speech.SimilarityBoost < 0 || c.Speech.SimilarityBoost > 1 {
		return errors.New("speech.similarity_boost must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateFootage() error {
	if c.Footage.MinClips <= 0 {
		return errors.New("footage.min_clips must be positive")
	}
	if c.Footage.MaxClips < c.Footage.MinClips {
		return errors.New("footage.max_clips must not be less than footage.min_clips")
	}
	if c.Footage.AverageClipSeconds <= 0 {
		return errors.New("footage.average_clip_seconds must be positive")
	}
	if c.Footage.ClipSlack < 0 {
		return errors.New("footage.clip_slack must not be negative")
	}
	return ensurePositive(map[string]int{
		"footage.search_timeout":   c.Footage.SearchTimeout,
		"footage.download_timeout": c.Footage.DownloadTimeout,
	})
}

func (c *Config) validateVideo() error {
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return errors.New("video.width and video.height must be positive")
	}
	if c.Video.Width >= c.Video.Height {
		return errors.New("video.width must be less than video.height (vertical output)")
	}
	return ensurePositive(map[string]int{
		"video.transcode_timeout": c.Video.TranscodeTimeout,
	})
}

func (c *Config) validateCaptions() error {
	if !c.Captions.Enabled {
		return nil
	}
	if c.Captions.MaxWordsPerLine <= 0 {
		return errors.New("captions.max_words_per_line must be positive")
	}
	if c.Captions.FontSize <= 0 {
		return errors.New("captions.font_size must be positive")
	}
	return ensurePositive(map[string]int{
		"captions.transcribe_timeout": c.Captions.TranscribeTimeout,
	})
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrent <= 0 {
		return errors.New("workflow.max_concurrent must be positive")
	}
	return ensurePositive(map[string]int{
		"workflow.queue_poll_interval": c.Workflow.QueuePollInterval,
		"speech.request_timeout":       c.Speech.RequestTimeout,
		"delivery.request_timeout":     c.Delivery.RequestTimeout,
	})
}

func ensurePositive(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
