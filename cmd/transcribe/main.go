package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/config"
	"github.com/snarg/meetscribe/internal/diarize"
	"github.com/snarg/meetscribe/internal/media"
	"github.com/snarg/meetscribe/internal/output"
	"github.com/snarg/meetscribe/internal/pipeline"
	"github.com/snarg/meetscribe/internal/stt"
	"github.com/snarg/meetscribe/internal/summarize"
	"github.com/snarg/meetscribe/internal/watch"
)

func main() {
	var overrides config.Overrides
	var watchDir string
	var jsonOut bool
	flag.StringVar(&overrides.EnvFile, "env", "", "path to .env file")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.WhisperModel, "model", "", "recognition model size (overrides WHISPER_MODEL)")
	flag.StringVar(&overrides.TranscriptsDir, "transcripts", "", "transcripts directory (overrides TRANSCRIPTS_DIR)")
	flag.StringVar(&watchDir, "watch", "", "watch a directory and process every recording dropped into it")
	flag.BoolVar(&jsonOut, "json", false, "also write the structured JSON transcript document (overrides WRITE_JSON)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: transcribe [flags] <audio-file>\n       transcribe -watch <dir> [flags]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	early := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(overrides)
	if err != nil {
		early.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		early.Fatal().Err(err).Msg("invalid configuration")
	}
	if jsonOut {
		cfg.WriteJSON = true
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

	if !media.CheckFFmpeg() {
		log.Fatal().Msg("ffmpeg not found in PATH")
	}

	if watchDir != "" {
		runWatch(cfg, log, watchDir)
		return
	}

	audioPath := flag.Arg(0)
	if audioPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if _, err := os.Stat(audioPath); err != nil {
		log.Fatal().Str("path", audioPath).Msg("audio file not found")
	}

	// CLI runs keep the caller's source file.
	runner := buildRunner(cfg, log, false)

	result, err := runner.Process(context.Background(), audioPath, "")
	if err != nil {
		log.Fatal().Err(err).Msg("transcription failed")
	}

	fmt.Println(result.Transcript)
	log.Info().
		Str("transcript", result.TranscriptPath).
		Str("summary", result.SummaryPath).
		Bool("summary_ok", result.Summary.Succeeded).
		Msg("done")
}

func runWatch(cfg *config.Config, log zerolog.Logger, dir string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Watched recordings are consumed: the drop folder is an inbox.
	runner := buildRunner(cfg, log, true)
	w := watch.New(dir, runner, log)
	if err := w.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("watcher failed")
	}
}

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
