// Package job defines the job message consumed from the queue, the status
// and results documents published to the object store, and the key layout
// tying them together.
package job

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Status represents the externally visible state of a job. Exactly one
// status document exists per job and is overwritten on every transition;
// no history is retained.
type Status string

const (
	// StatusQueued indicates the job is waiting in the queue.
	StatusQueued Status = "queued"
	// StatusProcessing indicates a worker is running the pipeline.
	StatusProcessing Status = "processing"
	// StatusDone indicates the pipeline finished and results are retrievable.
	StatusDone Status = "done"
	// StatusFailed indicates the pipeline aborted; no results document exists.
	StatusFailed Status = "failed"
)

// IsTerminal returns true if the status is a final outcome.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Job is one unit of work, created by the intake and consumed exactly once
// by a worker. It is never mutated after creation.
//
// The option booleans are pointers so that absent fields default to true
// on the wire.
type Job struct {
	// ID is the opaque job identifier.
	ID string `json:"job_id" validate:"required"`
	// SourceKey references the uploaded media in the object store.
	SourceKey string `json:"s3_key" validate:"required"`
	// Summary requests a text summary of the video.
	Summary *bool `json:"summary,omitempty"`
	// VideoCaption requests a social caption for the video.
	VideoCaption *bool `json:"video_caption,omitempty"`
	// Captions requests subtitles burned into each clip.
	Captions *bool `json:"captions,omitempty"`
}

// Options are the resolved per-job toggles.
type Options struct {
	Summary      bool
	VideoCaption bool
	Captions     bool
}

// Options resolves the wire-level pointers, defaulting absent fields to true.
func (j Job) Options() Options {
	return Options{
		Summary:      j.Summary == nil || *j.Summary,
		VideoCaption: j.VideoCaption == nil || *j.VideoCaption,
		Captions:     j.Captions == nil || *j.Captions,
	}
}

// Parse decodes and validates a queue message body.
func Parse(body []byte, validate *validator.Validate) (Job, error) {
	var j Job
	if err := json.Unmarshal(body, &j); err != nil {
		return Job{}, fmt.Errorf("decode job message: %w", err)
	}
	if err := validate.Struct(j); err != nil {
		return Job{}, fmt.Errorf("invalid job message: %w", err)
	}
	return j, nil
}

// StatusDocument is the status JSON published to the object store.
type StatusDocument struct {
	Status Status `json:"status"`
}

// Results is the results JSON written once, on the success path only.
// Summary and Caption are null when not requested or when text generation
// failed recoverably.
type Results struct {
	JobID   string  `json:"job_id"`
	Summary *string `json:"summary"`
	Caption *string `json:"caption"`
	Clips   []Clip  `json:"clips"`
}

// Clip is one published clip entry. S3Key is an opaque media reference;
// the read path resolves it to a retrievable URL.
type Clip struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
	S3Key    string  `json:"s3_key"`
}

// StatusKey returns the object key of a job's status document.
func StatusKey(jobID string) string {
	return "results/" + jobID + "/status.json"
}

// ResultsKey returns the object key of a job's results document.
func ResultsKey(jobID string) string {
	return "results/" + jobID + "/results.json"
}

// ClipKey returns the object key of one produced clip's media.
func ClipKey(jobID string, index int) string {
	return fmt.Sprintf("results/%s/clips/clip_%d.mp4", jobID, index)
}

// NewUploadKey returns a fresh object key for an uploaded source file.
func NewUploadKey(filename string) string {
	return fmt.Sprintf("uploads/%s-%s", uuid.NewString(), filename)
}
