package pipeline

// UnknownSpeaker is assigned when no diarization turn overlaps a segment.
const UnknownSpeaker = "Unknown"

// AssignSpeakers fuses aligned transcript segments with diarization turns.
//
// Each segment is labeled with the speaker whose turn has the largest
// temporal overlap with the segment's span. Ties on nonzero overlap go to
// the earlier-starting turn. Segments that overlap no turn at all are
// labeled UnknownSpeaker. Output order matches input segment order, which
// downstream formatting relies on.
//
// Turns are assumed non-overlapping; that assumption is not enforced here.
func AssignSpeakers(segments []AlignedSegment, turns []DiarizationTurn) []MergedSegment {
	merged := make([]MergedSegment, 0, len(segments))
	for _, seg := range segments {
		merged = append(merged, MergedSegment{
			Start:   seg.Start,
			End:     seg.End,
			Speaker: bestSpeaker(seg.Start, seg.End, turns),
			Text:    seg.Text,
		})
	}
	return merged
}

// bestSpeaker selects the turn with maximal overlap against [start, end].
func bestSpeaker(start, end float64, turns []DiarizationTurn) string {
	speaker := UnknownSpeaker
	bestOverlap := 0.0
	bestStart := 0.0

	for _, turn := range turns {
		ov := overlap(start, end, turn.Start, turn.End)
		if ov <= 0 {
			continue
		}
		if ov > bestOverlap || (ov == bestOverlap && turn.Start < bestStart) {
			bestOverlap = ov
			bestStart = turn.Start
			speaker = turn.Speaker
		}
	}
	return speaker
}

func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	if hi < lo {
		return 0
	}
	return hi - lo
}
