package output

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/pipeline"
)

// Writer persists transcripts and summaries to the transcripts directory.
// All writes are atomic (temp file + rename) so readers never observe a
// partially written document.
type Writer struct {
	dir string
	log zerolog.Logger
}

// NewWriter creates a writer rooted at dir. The directory is created on
// first write.
func NewWriter(dir string, log zerolog.Logger) *Writer {
	return &Writer{dir: dir, log: log.With().Str("component", "output").Logger()}
}

// Dir returns the transcripts directory path.
func (w *Writer) Dir() string { return w.dir }

// WriteTranscript writes the plain-text transcript and returns its path.
func (w *Writer) WriteTranscript(name string, segments []pipeline.MergedSegment) (string, error) {
	path := filepath.Join(w.dir, name+".txt")
	if err := w.writeAtomic(path, []byte(pipeline.FormatTranscript(segments))); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	w.log.Info().Str("path", path).Int("segments", len(segments)).Msg("transcript saved")
	return path, nil
}

// WriteSummary writes the summary text and returns its path.
func (w *Writer) WriteSummary(name, text string) (string, error) {
	path := filepath.Join(w.dir, name+"_summary.txt")
	if err := w.writeAtomic(path, []byte(text)); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	w.log.Info().Str("path", path).Msg("summary saved")
	return path, nil
}

// document is the structured JSON output.
type document struct {
	Metadata   pipeline.Metadata `json:"metadata"`
	Transcript []jsonSegment     `json:"transcript"`
}

type jsonSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// WriteStructured writes the JSON document with a metadata block and the
// ordered segment list, timestamps rounded to two decimals.
func (w *Writer) WriteStructured(name string, meta pipeline.Metadata, segments []pipeline.MergedSegment) (string, error) {
	doc := document{Metadata: meta, Transcript: make([]jsonSegment, 0, len(segments))}
	for _, s := range segments {
		doc.Transcript = append(doc.Transcript, jsonSegment{
			Start:   round2(s.Start),
			End:     round2(s.End),
			Speaker: s.Speaker,
			Text:    strings.TrimSpace(s.Text),
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transcript document: %w", err)
	}

	path := filepath.Join(w.dir, name+".json")
	if err := w.writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("write transcript document: %w", err)
	}
	w.log.Info().Str("path", path).Msg("structured transcript saved")
	return path, nil
}

// writeAtomic writes data via a temp file and rename.
func (w *Writer) writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".out-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
