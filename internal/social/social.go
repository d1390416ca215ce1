// Package social generates the publish-ready text artifacts: a transcript
// summary and a short social caption. Both are optional pipeline stages;
// failures here are recoverable and leave the field absent.
package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/clippyio/clipworker/internal/llm"
)

// ErrEmptyTranscript is returned when there is no text to work from.
var ErrEmptyTranscript = errors.New("social: transcript text is empty")

// GenerateSummary produces a 3-5 sentence summary of the transcript.
func GenerateSummary(ctx context.Context, gen llm.TextGenerator, transcriptText string) (string, error) {
	if transcriptText == "" {
		return "", ErrEmptyTranscript
	}

	prompt := fmt.Sprintf(
		"Summarize the following video transcript in 3-5 concise sentences.\n"+
			"Focus on the main idea and emotional tone.\n\n"+
			"Transcript:\n%s",
		transcriptText,
	)
	return gen.Complete(ctx, prompt, 0.4)
}

// GenerateCaption produces a short social media caption for the video.
func GenerateCaption(ctx context.Context, gen llm.TextGenerator, transcriptText string) (string, error) {
	if transcriptText == "" {
		return "", ErrEmptyTranscript
	}

	prompt := fmt.Sprintf(
		"Create a short, engaging social media caption for this video.\n"+
			"Keep it under 2 lines.\n"+
			"Casual, emotional, scroll-stopping.\n"+
			"No hashtags.\n\n"+
			"Transcript:\n%s",
		transcriptText,
	)
	return gen.Complete(ctx, prompt, 0.7)
}
