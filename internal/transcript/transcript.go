// Package transcript provides the normalized transcript representation
// produced by the speech-to-text engine and consumed by every downstream
// pipeline stage.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Segment is a timestamped span of transcribed speech.
// Segments are ordered ascending by Start and may overlap slightly at
// boundaries; they are not assumed disjoint.
type Segment struct {
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds. Always greater than Start.
	End float64 `json:"end"`
	// Text is the transcribed text of the segment.
	Text string `json:"text"`
}

// Transcript is the full output of a transcription run.
type Transcript struct {
	// Text is the full transcript text.
	Text string `json:"text"`
	// Segments are the timestamped spans making up the transcript.
	Segments []Segment `json:"segments"`
}

// FullText returns the transcript text, falling back to joining segment
// texts when the engine did not provide a flattened form.
func (t Transcript) FullText() string {
	if strings.TrimSpace(t.Text) != "" {
		return strings.TrimSpace(t.Text)
	}
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

// Save writes the transcript as indented JSON to path.
func Save(t Transcript, path string) error {
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Load reads a transcript previously written with Save.
func Load(path string) (Transcript, error) {
	b, err := os.ReadFile(path) // #nosec G304 - path is produced by trusted internal code
	if err != nil {
		return Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	var t Transcript
	if err := json.Unmarshal(b, &t); err != nil {
		return Transcript{}, fmt.Errorf("parse transcript: %w", err)
	}
	return t, nil
}
