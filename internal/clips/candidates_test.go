package clips

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippyio/clipworker/internal/transcript"
)

func seg(start, end float64, text string) transcript.Segment {
	return transcript.Segment{Start: start, End: end, Text: text}
}

// evenSegments builds n contiguous segments of the given span each.
func evenSegments(n int, span float64) []transcript.Segment {
	out := make([]transcript.Segment, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * span
		out = append(out, seg(start, start+span, fmt.Sprintf("segment %d", i)))
	}
	return out
}

func TestDetect_EmptyInput(t *testing.T) {
	assert.Empty(t, Detect(nil, DefaultDetectOptions()))
	assert.Empty(t, Detect([]transcript.Segment{}, DefaultDetectOptions()))
}

func TestDetect_DurationsWithinBounds(t *testing.T) {
	opts := DefaultDetectOptions()
	opts.MaxClips = 0

	cands := Detect(evenSegments(40, 7.5), opts)
	require.NotEmpty(t, cands)

	for _, c := range cands {
		assert.GreaterOrEqual(t, c.Duration, opts.MinDuration, "candidate %d too short", c.ID)
		assert.LessOrEqual(t, c.Duration, opts.MaxDuration, "candidate %d too long", c.ID)
	}
}

func TestDetect_WindowsDoNotOverlapAndAreOrdered(t *testing.T) {
	opts := DefaultDetectOptions()
	opts.MaxClips = 0

	cands := Detect(evenSegments(40, 7.5), opts)
	require.Greater(t, len(cands), 1)

	for i := 1; i < len(cands); i++ {
		assert.GreaterOrEqual(t, cands[i].Start, cands[i-1].End,
			"windows %d and %d overlap", i-1, i)
	}
}

func TestDetect_AcceptsAtFirstReachOfMinDuration(t *testing.T) {
	segments := []transcript.Segment{
		seg(0, 10, "a"),
		seg(10, 22, "b"),
		seg(22, 30, "c"),
	}

	cands := Detect(segments, DetectOptions{MinDuration: 20, MaxDuration: 45})
	require.Len(t, cands, 1)
	assert.Equal(t, 0.0, cands[0].Start)
	// Growth stops the moment the span reaches the minimum; segment c is
	// not absorbed even though it would still fit under the maximum.
	assert.Equal(t, 22.0, cands[0].End)
	assert.Equal(t, "a b", cands[0].Text)
}

func TestDetect_SingleOverlongSegmentIsDiscarded(t *testing.T) {
	segments := []transcript.Segment{
		seg(0, 50, "way too long on its own"),
		seg(50, 75, "fine"),
	}

	cands := Detect(segments, DetectOptions{MinDuration: 20, MaxDuration: 45})
	require.Len(t, cands, 1)
	assert.Equal(t, 50.0, cands[0].Start)
	assert.Equal(t, "fine", cands[0].Text)
}

func TestDetect_InfeasibleWindowIsDiscarded(t *testing.T) {
	// 10s of speech, then a long gap: the window would have to span past
	// MaxDuration before it could reach MinDuration.
	segments := []transcript.Segment{
		seg(0, 5, "a"),
		seg(5, 10, "b"),
		seg(60, 85, "far away"),
	}

	cands := Detect(segments, DetectOptions{MinDuration: 20, MaxDuration: 45})
	require.Len(t, cands, 1)
	assert.Equal(t, 60.0, cands[0].Start)
}

func TestDetect_ShortTailProducesNothing(t *testing.T) {
	cands := Detect(evenSegments(2, 5), DetectOptions{MinDuration: 20, MaxDuration: 45})
	assert.Empty(t, cands)
}

func TestDetect_MaxClipsCap(t *testing.T) {
	opts := DetectOptions{MinDuration: 20, MaxDuration: 45, MaxClips: 2}
	cands := Detect(evenSegments(40, 7.5), opts)
	assert.Len(t, cands, 2)

	opts.MaxClips = 0
	uncapped := Detect(evenSegments(40, 7.5), opts)
	assert.Greater(t, len(uncapped), 2)
}

func TestDetect_SequentialIDsAndRounding(t *testing.T) {
	segments := []transcript.Segment{
		seg(0.123456, 21.987654, "first"),
		seg(21.987654, 44.5, "second"),
	}

	cands := Detect(segments, DetectOptions{MinDuration: 20, MaxDuration: 45})
	require.Len(t, cands, 2)

	assert.Equal(t, 0, cands[0].ID)
	assert.Equal(t, 1, cands[1].ID)
	assert.Equal(t, 0.12, cands[0].Start)
	assert.Equal(t, 21.99, cands[0].End)
	assert.Equal(t, 21.86, cands[0].Duration)
}
