// Package transcribe provides the speech-to-text engine adapter.
package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/clippyio/clipworker/internal/transcript"
)

// ErrModelRequired is returned when no model path is configured.
var ErrModelRequired = errors.New("transcribe: whisper model path is required")

// Transcriber defines the call contract with the speech-to-text engine.
type Transcriber interface {
	// Transcribe converts a 16 kHz mono WAV file into a transcript,
	// using workDir for engine scratch output.
	Transcribe(ctx context.Context, audioPath, workDir string) (transcript.Transcript, error)
}

// WhisperCPP runs a whisper.cpp binary and reads its JSON output.
type WhisperCPP struct {
	bin   string
	model string
}

// Compile-time check that WhisperCPP implements Transcriber.
var _ Transcriber = (*WhisperCPP)(nil)

// NewWhisperCPP creates a whisper.cpp adapter. The binary path defaults to
// "whisper-cli" resolved via PATH; the model path is required.
func NewWhisperCPP(bin, model string) (*WhisperCPP, error) {
	if bin == "" {
		bin = "whisper-cli"
	}
	if model == "" {
		return nil, ErrModelRequired
	}
	return &WhisperCPP{bin: bin, model: model}, nil
}

// Transcribe invokes the engine and parses the JSON transcript it writes
// next to the audio scratch files.
func (w *WhisperCPP) Transcribe(ctx context.Context, audioPath, workDir string) (transcript.Transcript, error) {
	outPrefix := filepath.Join(workDir, "whisper")
	args := []string{
		"-m", w.model,
		"-f", audioPath,
		"-oj",
		"-of", outPrefix,
	}

	// #nosec G204 - binary and model paths are set by the application
	cmd := exec.CommandContext(ctx, w.bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return transcript.Transcript{}, fmt.Errorf("transcribe cancelled: %w", ctx.Err())
		}
		return transcript.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(out))
	}

	return parseTranscriptFile(outPrefix + ".json")
}

// parseTranscriptFile reads the engine's JSON output and normalizes segment
// text.
func parseTranscriptFile(path string) (transcript.Transcript, error) {
	b, err := os.ReadFile(path) // #nosec G304 - path is produced by trusted internal code
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("read engine output: %w", err)
	}

	var tr transcript.Transcript
	if err := json.Unmarshal(b, &tr); err != nil {
		return transcript.Transcript{}, fmt.Errorf("parse engine output: %w", err)
	}
	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
	}
	return tr, nil
}
