// Package clips turns a transcript into duration-bounded clip candidates and
// selects the ones most worth publishing.
package clips

import (
	"math"
	"strings"

	"github.com/clippyio/clipworker/internal/transcript"
)

// Default duration bounds and selection cap for generated clips.
const (
	DefaultMinDuration = 20.0
	DefaultMaxDuration = 45.0
	DefaultMaxClips    = 5
)

// Candidate is a duration-bounded grouping of contiguous transcript segments
// eligible to become a published clip. ID is a 0-based sequence number unique
// within one generation run.
type Candidate struct {
	ID       int     `json:"id"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// DetectOptions controls candidate generation.
type DetectOptions struct {
	// MinDuration and MaxDuration bound the clip span in seconds.
	MinDuration float64
	MaxDuration float64
	// MaxClips caps the number of emitted candidates. Zero or negative
	// means no cap, for pipelines where a ranker applies the cap later.
	MaxClips int
}

// DefaultDetectOptions returns the standard bounds with the candidate cap
// applied at generation time.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		MinDuration: DefaultMinDuration,
		MaxDuration: DefaultMaxDuration,
		MaxClips:    DefaultMaxClips,
	}
}

// Detect sweeps the segment list left to right and emits non-overlapping
// candidate windows. A window grows by absorbing subsequent segments while
// the span stays within MaxDuration and is accepted as soon as the span
// first reaches MinDuration. Windows that would exceed MaxDuration before
// reaching MinDuration are discarded, including a single segment that is
// over-long on its own. The sweep resumes after the window's last segment,
// so windows never overlap.
func Detect(segments []transcript.Segment, opts DetectOptions) []Candidate {
	if opts.MinDuration <= 0 {
		opts.MinDuration = DefaultMinDuration
	}
	if opts.MaxDuration <= 0 || opts.MaxDuration < opts.MinDuration {
		opts.MaxDuration = DefaultMaxDuration
	}

	var out []Candidate

	i := 0
	for i < len(segments) {
		if opts.MaxClips > 0 && len(out) >= opts.MaxClips {
			break
		}

		start := segments[i].Start
		end := segments[i].End
		if end-start > opts.MaxDuration {
			// A single segment already past the bound can never shrink.
			i++
			continue
		}

		parts := make([]string, 0, 4)
		if txt := strings.TrimSpace(segments[i].Text); txt != "" {
			parts = append(parts, txt)
		}

		j := i
		accepted := end-start >= opts.MinDuration
		for !accepted && j+1 < len(segments) {
			next := segments[j+1]
			if next.End-start > opts.MaxDuration {
				break
			}
			j++
			end = next.End
			if txt := strings.TrimSpace(next.Text); txt != "" {
				parts = append(parts, txt)
			}
			accepted = end-start >= opts.MinDuration
		}

		if accepted {
			out = append(out, Candidate{
				ID:       len(out),
				Start:    round2(start),
				End:      round2(end),
				Duration: round2(end - start),
				Text:     strings.Join(parts, " "),
			})
		}
		i = j + 1
	}

	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
