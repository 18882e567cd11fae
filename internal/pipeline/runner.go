package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/metrics"
)

// Transcoder normalizes a source recording to canonical PCM
// (mono, 16 kHz, 16-bit) inside the run work directory.
type Transcoder interface {
	Convert(ctx context.Context, sourcePath, workDir string) (AudioAsset, error)
}

// Recognizer runs speech-to-text over canonical audio, returning coarse
// segments and the detected language code.
type Recognizer interface {
	Transcribe(ctx context.Context, audioPath string) ([]RecognizedSegment, string, error)
}

// Aligner refines segment timestamps to word level using a model keyed by
// the detected language.
type Aligner interface {
	Align(ctx context.Context, audioPath, language string, segments []RecognizedSegment) ([]AlignedSegment, error)
}

// Diarizer partitions the audio timeline into speaker turns.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]DiarizationTurn, error)
}

// Summarizer produces a structured summary of the transcript. It never
// returns an error: failures degrade into SummaryResult.Succeeded=false.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) SummaryResult
}

// Metadata is the provenance block attached to structured output.
type Metadata struct {
	AudioFile string `json:"audio_file"`
	Model     string `json:"model"`
	Device    string `json:"device"`
	Timestamp string `json:"timestamp"`
}

// Writer persists run outputs to durable storage.
type Writer interface {
	WriteTranscript(name string, segments []MergedSegment) (string, error)
	WriteSummary(name, text string) (string, error)
	WriteStructured(name string, meta Metadata, segments []MergedSegment) (string, error)
}

// Stages are the injected stage adapters one runner drives in sequence.
type Stages struct {
	Transcoder Transcoder
	Recognizer Recognizer
	Aligner    Aligner
	Diarizer   Diarizer
	Summarizer Summarizer
	Writer     Writer
}

// Options is run-scoped configuration shared by every run of a runner.
type Options struct {
	WorkDir      string        // parent for per-run work directories
	Model        string        // recognition model id, recorded in metadata
	Device       string        // compute device hint, recorded in metadata
	StageTimeout time.Duration // per-stage deadline; 0 disables
	WriteJSON    bool          // also write the structured JSON document
	DeleteSource bool          // treat the source file as a temporary asset
}

// Runner drives the conversion → recognition → alignment → diarization →
// merge → summarization sequence for one recording at a time. Runners are
// safe for concurrent use: all per-run state lives in a Run and a
// UUID-keyed work directory, so same-named uploads never collide.
type Runner struct {
	stages Stages
	opts   Options
	log    zerolog.Logger
}

// NewRunner creates a runner with the given stage adapters.
func NewRunner(stages Stages, opts Options, log zerolog.Logger) *Runner {
	return &Runner{stages: stages, opts: opts, log: log}
}

// Process executes the full pipeline for one recording. displayName controls
// the output file stem; when empty the source file's base name is used.
// Temporary artifacts are removed on every exit path before Process returns.
func (r *Runner) Process(ctx context.Context, sourcePath, displayName string) (*Result, error) {
	if displayName == "" {
		displayName = filepath.Base(sourcePath)
	}
	stem := strings.TrimSuffix(displayName, filepath.Ext(displayName))

	run := &Run{
		ID:        uuid.NewString(),
		Source:    sourcePath,
		Status:    StatusCreated,
		CreatedAt: time.Now(),
	}
	log := r.log.With().Str("run_id", run.ID).Str("source", displayName).Logger()

	cleaner := NewCleaner(log)
	defer cleaner.Release()
	cleaner.Track(AudioAsset{Path: sourcePath, Temporary: r.opts.DeleteSource})

	workDir := filepath.Join(r.opts.WorkDir, "run-"+run.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, r.fail(run, log, NewError(KindConversion, "create work directory", err))
	}
	cleaner.TrackDir(workDir)

	// Converting
	r.setStatus(run, log, StatusConverting)
	var canonical AudioAsset
	err := r.runStage(ctx, "convert", KindConversion, func(ctx context.Context) error {
		var err error
		canonical, err = r.stages.Transcoder.Convert(ctx, sourcePath, workDir)
		return err
	})
	if err != nil {
		return nil, r.fail(run, log, err)
	}
	cleaner.Track(canonical)

	// Recognizing
	r.setStatus(run, log, StatusRecognizing)
	var segments []RecognizedSegment
	var language string
	err = r.runStage(ctx, "recognize", KindModel, func(ctx context.Context) error {
		var err error
		segments, language, err = r.stages.Recognizer.Transcribe(ctx, canonical.Path)
		return err
	})
	if err != nil {
		return nil, r.fail(run, log, err)
	}
	log.Info().Int("segments", len(segments)).Str("language", language).Msg("recognition complete")

	// Aligning
	r.setStatus(run, log, StatusAligning)
	var aligned []AlignedSegment
	err = r.runStage(ctx, "align", KindModel, func(ctx context.Context) error {
		var err error
		aligned, err = r.stages.Aligner.Align(ctx, canonical.Path, language, segments)
		return err
	})
	if err != nil {
		return nil, r.fail(run, log, err)
	}

	// Diarizing
	r.setStatus(run, log, StatusDiarizing)
	var turns []DiarizationTurn
	err = r.runStage(ctx, "diarize", KindModel, func(ctx context.Context) error {
		var err error
		turns, err = r.stages.Diarizer.Diarize(ctx, canonical.Path)
		return err
	})
	if err != nil {
		return nil, r.fail(run, log, err)
	}
	log.Info().Int("turns", len(turns)).Msg("diarization complete")

	// Merging
	r.setStatus(run, log, StatusMerging)
	merged := AssignSpeakers(aligned, turns)
	if len(merged) == 0 {
		// Silent source audio: a completed run with an empty transcript,
		// not an error.
		log.Info().Msg("no speech recognized; transcript is empty")
	}
	transcript := FormatTranscript(merged)

	transcriptPath, err := r.stages.Writer.WriteTranscript(stem, merged)
	if err != nil {
		return nil, r.fail(run, log, fmt.Errorf("write transcript: %w", err))
	}

	jsonPath := ""
	if r.opts.WriteJSON {
		meta := Metadata{
			AudioFile: displayName,
			Model:     r.opts.Model,
			Device:    r.opts.Device,
			Timestamp: run.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		jsonPath, err = r.stages.Writer.WriteStructured(stem, meta, merged)
		if err != nil {
			return nil, r.fail(run, log, fmt.Errorf("write structured transcript: %w", err))
		}
	}

	// Summarizing — best-effort by design. A failed summary degrades the
	// result but the run still completes.
	r.setStatus(run, log, StatusSummarizing)
	stageStart := time.Now()
	sctx, cancel := r.stageContext(ctx)
	summary := r.stages.Summarizer.Summarize(sctx, transcript)
	cancel()
	metrics.ObserveStage("summarize", time.Since(stageStart))
	if !summary.Succeeded {
		metrics.SummaryFallbacksTotal.Inc()
		log.Warn().Str("model", summary.Model).Msg("summarization degraded to fallback text")
	}

	summaryPath, err := r.stages.Writer.WriteSummary(stem, summary.Text)
	if err != nil {
		return nil, r.fail(run, log, fmt.Errorf("write summary: %w", err))
	}

	r.setStatus(run, log, StatusCompleted)
	metrics.RunFinished(string(StatusCompleted))
	log.Info().
		Int("segments", len(merged)).
		Bool("summary_ok", summary.Succeeded).
		Dur("elapsed", time.Since(run.CreatedAt)).
		Msg("run completed")

	return &Result{
		RunID:          run.ID,
		Language:       language,
		Segments:       merged,
		Transcript:     transcript,
		Summary:        summary,
		TranscriptPath: transcriptPath,
		SummaryPath:    summaryPath,
		JSONPath:       jsonPath,
	}, nil
}

// runStage executes fn under the per-stage deadline and records its
// duration. Errors are classified with kind unless already classified;
// deadline expiry becomes a timeout error.
func (r *Runner) runStage(ctx context.Context, name string, kind Kind, fn func(context.Context) error) error {
	start := time.Now()
	sctx, cancel := r.stageContext(ctx)
	defer cancel()

	err := fn(sctx)
	metrics.ObserveStage(name, time.Since(start))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Stage: name, Err: err}
	}
	if KindOf(err) != "" {
		var pe *Error
		errors.As(err, &pe)
		if pe.Stage == "" {
			pe.Stage = name
		}
		return err
	}
	return &Error{Kind: kind, Stage: name, Err: err}
}

func (r *Runner) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.opts.StageTimeout)
}

func (r *Runner) setStatus(run *Run, log zerolog.Logger, s Status) {
	run.Status = s
	log.Debug().Str("status", string(s)).Msg("run status")
}

func (r *Runner) fail(run *Run, log zerolog.Logger, err error) error {
	run.Status = StatusFailed
	metrics.RunFinished(string(StatusFailed))
	log.Error().Err(err).Msg("run failed")
	return err
}
