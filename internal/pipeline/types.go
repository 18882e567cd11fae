package pipeline

import "time"

// AudioAsset is an audio file tracked by a run. Temporary assets are removed
// by the cleaner when the run finishes, regardless of outcome.
type AudioAsset struct {
	Path       string
	SampleRate int
	Channels   int
	BitDepth   int
	Temporary  bool
}

// RecognizedSegment is a coarse time-stamped transcript segment from the
// recognition stage. Segments are ordered by start and do not overlap.
type RecognizedSegment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"` // per-pass detection hint
}

// AlignedWord is a single word with refined timestamps.
type AlignedWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// AlignedSegment is a recognized segment whose timestamps have been refined
// to word level by the alignment stage. Segment order matches recognition.
type AlignedSegment struct {
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Text  string        `json:"text"`
	Words []AlignedWord `json:"words,omitempty"`
}

// DiarizationTurn is a contiguous span of the timeline attributed to one
// speaker. Turns are ordered by start; gaps between turns are allowed.
type DiarizationTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// MergedSegment is the externally visible transcript unit: segment timing,
// text, and an assigned speaker label.
type MergedSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// SummaryResult is the outcome of the summarization stage. Summarization is
// best-effort: on failure Succeeded is false and Text carries a diagnostic
// instead of an error being raised.
type SummaryResult struct {
	Text      string
	Model     string
	Succeeded bool
}

// Status is the lifecycle state of a pipeline run.
type Status string

const (
	StatusCreated     Status = "created"
	StatusConverting  Status = "converting"
	StatusRecognizing Status = "recognizing"
	StatusAligning    Status = "aligning"
	StatusDiarizing   Status = "diarizing"
	StatusMerging     Status = "merging"
	StatusSummarizing Status = "summarizing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Run is the per-request state owned by the runner. Lifetime is one request.
type Run struct {
	ID        string
	Source    string
	Status    Status
	CreatedAt time.Time
}

// Result is what a completed run hands back to the caller.
type Result struct {
	RunID          string
	Language       string
	Segments       []MergedSegment
	Transcript     string
	Summary        SummaryResult
	TranscriptPath string
	SummaryPath    string
	JSONPath       string
}
