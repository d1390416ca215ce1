// Package server provides the HTTP intake and read API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// UploadResponse is the HTTP response after accepting a source video.
type UploadResponse struct {
	// JobID is the unique identifier for the created job.
	JobID string `json:"job_id"`
	// Status is the initial job status, always "queued".
	Status string `json:"status"`
}

// StatusResponse is the HTTP response for the job status endpoint.
type StatusResponse struct {
	// JobID is the unique identifier for the job.
	JobID string `json:"job_id"`
	// Status is the current job status.
	Status string `json:"status"`
}

// ResultsResponse is the HTTP response for the job results endpoint.
// Summary and Caption are null when not requested or when text generation
// failed without failing the job.
type ResultsResponse struct {
	JobID   string         `json:"job_id"`
	Summary *string        `json:"summary"`
	Caption *string        `json:"caption"`
	Clips   []ClipResponse `json:"clips"`
}

// ClipResponse is one clip entry with its storage key resolved to a
// time-limited retrievable URL.
type ClipResponse struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
	URL      string  `json:"url"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
