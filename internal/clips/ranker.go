package clips

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clippyio/clipworker/internal/llm"
)

// maxExcerptLen caps the candidate text sent to the ranking engine.
const maxExcerptLen = 500

// Ranker selects the candidates most worth publishing, most-compelling
// first, by asking the text-generation engine for an ordered id list.
// Any failure on that path falls back to the first candidates in
// generation order; ranking is never fatal to a job.
type Ranker struct {
	gen    llm.TextGenerator
	logger *slog.Logger
}

// NewRanker creates a Ranker backed by the given engine.
func NewRanker(gen llm.TextGenerator, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{gen: gen, logger: logger}
}

// Rank returns an ordered subsequence of cands of length at most maxClips.
// The engine's output order is the final output order.
func (r *Ranker) Rank(ctx context.Context, cands []Candidate, maxClips int) []Candidate {
	if len(cands) == 0 {
		return nil
	}
	if maxClips <= 0 {
		maxClips = DefaultMaxClips
	}

	raw, err := r.gen.Complete(ctx, rankPrompt(cands, maxClips), 0.2)
	if err != nil {
		return r.fallback(cands, maxClips, fmt.Sprintf("engine call failed: %v", err))
	}

	ids, err := parseIDList(raw)
	if err != nil {
		return r.fallback(cands, maxClips, fmt.Sprintf("unparseable response: %v", err))
	}

	byID := make(map[int]Candidate, len(cands))
	for _, c := range cands {
		byID[c.ID] = c
	}

	// The engine's output is untrusted: drop unknown and duplicate ids,
	// keep the engine's order for the rest.
	seen := make(map[int]bool, len(ids))
	selected := make([]Candidate, 0, maxClips)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, ok := byID[id]
		if !ok {
			continue
		}
		selected = append(selected, c)
		if len(selected) == maxClips {
			break
		}
	}

	if len(selected) == 0 {
		return r.fallback(cands, maxClips, "response contained no valid candidate ids")
	}
	return selected
}

// fallback returns the first maxClips candidates in generation order.
// The distinct log event keeps silent fallbacks observable to operators.
func (r *Ranker) fallback(cands []Candidate, maxClips int, reason string) []Candidate {
	r.logger.Warn("clip ranking fallback",
		slog.String("reason", reason),
		slog.Int("candidates", len(cands)),
		slog.Int("max_clips", maxClips),
	)
	if len(cands) > maxClips {
		cands = cands[:maxClips]
	}
	out := make([]Candidate, len(cands))
	copy(out, cands)
	return out
}

func rankPrompt(cands []Candidate, maxClips int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are picking short vertical clips worth publishing from a longer video.\n")
	fmt.Fprintf(&b, "Below are candidate clips with their transcript excerpts.\n")
	fmt.Fprintf(&b, "Return strictly a JSON list of at most %d candidate ids, ", maxClips)
	fmt.Fprintf(&b, "ordered from most to least compelling. No prose, no code fences.\n\n")
	for _, c := range cands {
		fmt.Fprintf(&b, "id=%d start=%.2f end=%.2f text=%q\n", c.ID, c.Start, c.End, excerpt(c.Text))
	}
	return b.String()
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= maxExcerptLen {
		return s
	}
	return string(runes[:maxExcerptLen])
}

// parseIDList parses the engine response as a literal flat list of integers,
// tolerating only a surrounding markdown code fence. Anything else fails.
func parseIDList(s string) ([]int, error) {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	var ids []int
	if err := json.Unmarshal([]byte(t), &ids); err != nil {
		return nil, fmt.Errorf("expected a flat list of integers: %w", err)
	}
	return ids, nil
}
