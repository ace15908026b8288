package config

const (
	defaultWorkDir   = "~/.local/share/reelsmith/work"
	defaultOutputDir = "~/.local/share/reelsmith/output"
	defaultLogDir    = "~/.local/share/reelsmith/logs"
	defaultAPIBind   = "127.0.0.1:8490"

	defaultSpeechBaseURL        = "https://api.elevenlabs.io"
	defaultSpeechVoiceID        = "KUJ0dDUYhYz8c1Is7Ct6"
	defaultSpeechModel          = "eleven_monolingual_v1"
	defaultSpeechStability      = 0.7
	defaultSpeechSimilarity     = 0.7
	defaultSpeechRequestTimeout = 60

	defaultFootageBaseURL         = "https://api.pexels.com"
	defaultMinClips               = 2
	defaultMaxClips               = 5
	defaultAverageClipSeconds     = 15
	defaultClipSlack              = 1
	defaultFootageSearchTimeout   = 20
	defaultFootageDownloadTimeout = 120

	defaultVideoWidth       = 720
	defaultVideoHeight      = 1280
	defaultTranscodeTimeout = 180

	defaultCaptionMaxWords        = 3
	defaultCaptionFontSize        = 24
	defaultCaptionHighlightColour = "&H0000D7FF" // ASS BGR, amber
	defaultTranscribeTimeout      = 300

	defaultMaxConcurrent     = 2
	defaultQueuePollInterval = 2

	defaultDeliveryTimeout = 30

	defaultLogLevel = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Speech: Speech{
			BaseURL:         defaultSpeechBaseURL,
			VoiceID:         defaultSpeechVoiceID,
			Model:           defaultSpeechModel,
			Stability:       defaultSpeechStability,
			SimilarityBoost: defaultSpeechSimilarity,
			RequestTimeout:  defaultSpeechRequestTimeout,
		},
		Footage: Footage{
			BaseURL:            defaultFootageBaseURL,
			MinClips:           defaultMinClips,
			MaxClips:           defaultMaxClips,
			AverageClipSeconds: defaultAverageClipSeconds,
			ClipSlack:          defaultClipSlack,
			SearchTimeout:      defaultFootageSearchTimeout,
			DownloadTimeout:    defaultFootageDownloadTimeout,
		},
		Video: Video{
			Width:            defaultVideoWidth,
			Height:           defaultVideoHeight,
			FFmpegBinary:     "ffmpeg",
			FFprobeBinary:    "ffprobe",
			TranscodeTimeout: defaultTranscodeTimeout,
		},
		Captions: Captions{
			Enabled:           true,
			MaxWordsPerLine:   defaultCaptionMaxWords,
			FontSize:          defaultCaptionFontSize,
			HighlightColour:   defaultCaptionHighlightColour,
			TranscriberBinary: "whisperx",
			TranscriberModel:  "small",
			TranscribeTimeout: defaultTranscribeTimeout,
		},
		Workflow: Workflow{
			MaxConcurrent:     defaultMaxConcurrent,
			QueuePollInterval: defaultQueuePollInterval,
		},
		Delivery: Delivery{
			RequestTimeout: defaultDeliveryTimeout,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
