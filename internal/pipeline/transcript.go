package pipeline

import (
	"fmt"
	"strings"
)

// FormatTranscript renders merged segments as the canonical plain-text
// transcript: one "[start–end] speaker: text" line per segment with
// two-decimal timestamps.
func FormatTranscript(segments []MergedSegment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%.2f–%.2f] %s: %s\n", seg.Start, seg.End, seg.Speaker, strings.TrimSpace(seg.Text))
	}
	return b.String()
}
