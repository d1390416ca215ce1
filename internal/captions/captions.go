// Package captions projects transcript segments onto a clip's time window
// and renders them as a SubRip subtitle track.
package captions

import (
	"fmt"
	"math"
	"strings"

	"github.com/clippyio/clipworker/internal/transcript"
)

// Build selects every segment overlapping the [start, end) window, clamps
// the timestamps to the window, re-bases them to window-relative time, and
// renders numbered SRT blocks separated by blank lines.
func Build(segments []transcript.Segment, start, end float64) string {
	var lines []string
	idx := 1

	for _, seg := range segments {
		if seg.End < start || seg.Start > end {
			continue
		}

		segStart := math.Max(seg.Start, start) - start
		segEnd := math.Min(seg.End, end) - start

		lines = append(lines,
			fmt.Sprintf("%d", idx),
			fmt.Sprintf("%s --> %s", FormatTimestamp(segStart), FormatTimestamp(segEnd)),
			strings.TrimSpace(seg.Text),
			"",
		)
		idx++
	}

	return strings.Join(lines, "\n")
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. The fractional part is
// truncated to whole milliseconds, not rounded.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	h := whole / 3600
	m := (whole % 3600) / 60
	s := whole % 60
	ms := int((seconds - math.Floor(seconds)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
