package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/api"
	"github.com/snarg/meetscribe/internal/config"
	"github.com/snarg/meetscribe/internal/diarize"
	"github.com/snarg/meetscribe/internal/media"
	"github.com/snarg/meetscribe/internal/output"
	"github.com/snarg/meetscribe/internal/pipeline"
	"github.com/snarg/meetscribe/internal/stt"
	"github.com/snarg/meetscribe/internal/summarize"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.WhisperModel, "model", "", "recognition model size (overrides WHISPER_MODEL)")
	flag.StringVar(&overrides.TranscriptsDir, "transcripts", "", "transcripts directory (overrides TRANSCRIPTS_DIR)")
	flag.Parse()

	early := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(overrides)
	if err != nil {
		early.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		early.Fatal().Err(err).Msg("invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Str("model", cfg.WhisperModel).Msg("meetscribe starting")

	if !media.CheckFFmpeg() {
		log.Fatal().Msg("ffmpeg not found in PATH")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := buildRunner(cfg, log, true)
	srv := api.NewServer(cfg, runner, version, startTime, log.With().Str("component", "http").Logger())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("meetscribe stopped")
}

// buildRunner wires the stage adapters from config. deleteSource controls
// whether the pipeline removes the source recording after the run; uploads
// are service-owned temp files, so the service always deletes them.
func buildRunner(cfg *config.Config, log zerolog.Logger, deleteSource bool) *pipeline.Runner {
	registry := stt.NewRegistry()
	stages := pipeline.Stages{
		Transcoder: media.NewTranscoder(log),
		Recognizer: stt.NewRecognitionClient(cfg.WhisperURL, cfg.WhisperModel, cfg.Device, cfg.StageTimeout, registry, log),
		Aligner:    stt.NewAlignClient(cfg.AlignURL, cfg.Device, cfg.StageTimeout, registry, log),
		Diarizer:   diarize.NewClient(cfg.DiarizeURL, cfg.HFToken, cfg.Device, cfg.StageTimeout, log),
		Summarizer: summarize.NewClient(cfg.OllamaHost, cfg.SummarizerModel, cfg.StageTimeout, log),
		Writer:     output.NewWriter(cfg.TranscriptsDir, log),
	}
	opts := pipeline.Options{
		WorkDir:      cfg.WorkDir,
		Model:        cfg.WhisperModel,
		Device:       cfg.Device,
		StageTimeout: cfg.StageTimeout,
		WriteJSON:    cfg.WriteJSON,
		DeleteSource: deleteSource,
	}
	return pipeline.NewRunner(stages, opts, log.With().Str("component", "pipeline").Logger())
}
