package main

import (
	"log/slog"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/media"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/services/elevenlabs"
	"reelsmith/internal/services/pexels"
	"reelsmith/internal/services/transcriber"
	"reelsmith/internal/taskstore"
)

// buildManager wires the external providers and the media engine into a
// pipeline manager.
func buildManager(cfg *config.Config, store *taskstore.Store, logger *slog.Logger) *pipeline.Manager {
	synthesizer := elevenlabs.NewClient(cfg.Speech.APIKey,
		elevenlabs.WithBaseURL(cfg.Speech.BaseURL),
		elevenlabs.WithTimeout(time.Duration(cfg.Speech.RequestTimeout)*time.Second),
	)

	footage := pexels.NewClient(cfg.Footage.APIKey,
		pexels.WithBaseURL(cfg.Footage.BaseURL),
		pexels.WithSearchTimeout(time.Duration(cfg.Footage.SearchTimeout)*time.Second),
		pexels.WithDownloadTimeout(time.Duration(cfg.Footage.DownloadTimeout)*time.Second),
	)

	words := transcriber.NewService(transcriber.Config{
		Binary: cfg.Captions.TranscriberBinary,
		Model:  cfg.Captions.TranscriberModel,
	})

	engine := media.NewEngine(media.EngineConfig{
		FFmpegBinary:  cfg.Video.FFmpegBinary,
		FFprobeBinary: cfg.Video.FFprobeBinary,
		Width:         cfg.Video.Width,
		Height:        cfg.Video.Height,
	}, logger)

	notifier := notifications.NewService(time.Duration(cfg.Delivery.RequestTimeout) * time.Second)

	return pipeline.NewManager(cfg, store, logger, synthesizer, footage, words, engine, notifier)
}
