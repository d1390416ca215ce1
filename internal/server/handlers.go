package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/clippyio/clipworker/internal/job"
	"github.com/clippyio/clipworker/internal/queue"
	"github.com/clippyio/clipworker/internal/storage"
)

// defaultMaxUploadBytes caps multipart uploads at 2 GiB.
const defaultMaxUploadBytes = 2 << 30

// defaultPresignedExpiry is how long clip URLs in results responses stay valid.
const defaultPresignedExpiry = time.Hour

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	store           storage.ObjectStore
	queue           queue.Queue
	logger          *slog.Logger
	presignedExpiry time.Duration
	maxUploadBytes  int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithPresignedExpiry sets the lifetime of clip URLs in results responses.
func WithPresignedExpiry(d time.Duration) HandlerOption {
	return func(h *Handlers) {
		if d > 0 {
			h.presignedExpiry = d
		}
	}
}

// WithMaxUploadSize sets the multipart upload size cap in bytes.
func WithMaxUploadSize(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store storage.ObjectStore, q queue.Queue, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		store:           store,
		queue:           q,
		logger:          logger,
		presignedExpiry: defaultPresignedExpiry,
		maxUploadBytes:  defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Upload handles POST /upload requests. It stores the source video, writes
// the queued status document, and enqueues the job message. The optional
// form fields summary, video_caption, and captions toggle pipeline stages;
// absent fields default to enabled.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("video")
	if err != nil {
		h.logger.Warn("upload rejected",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "video file is required", "MISSING_VIDEO")
		return
	}
	defer func() { _ = file.Close() }()

	summary, err1 := optionalBool(r.FormValue("summary"))
	videoCaption, err2 := optionalBool(r.FormValue("video_caption"))
	captions, err3 := optionalBool(r.FormValue("captions"))
	if err := errors.Join(err1, err2, err3); err != nil {
		writeError(w, http.StatusBadRequest, "toggle fields must be booleans", "INVALID_TOGGLE")
		return
	}

	jobID := uuid.NewString()
	key := job.NewUploadKey(sourceFilename(header.Filename))

	if err := h.store.PutObject(r.Context(), key, file); err != nil {
		h.logger.Error("source upload failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to store video", "UPLOAD_FAILED")
		return
	}

	// The status document exists before the job is queued so a status read
	// never races the worker's first write.
	statusDoc := job.StatusDocument{Status: job.StatusQueued}
	if err := storage.PutJSON(r.Context(), h.store, job.StatusKey(jobID), statusDoc); err != nil {
		h.logger.Error("status write failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	msg, err := json.Marshal(job.Job{
		ID:           jobID,
		SourceKey:    key,
		Summary:      summary,
		VideoCaption: videoCaption,
		Captions:     captions,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}
	if err := h.queue.Send(r.Context(), msg); err != nil {
		h.logger.Error("enqueue failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to enqueue job", "ENQUEUE_FAILED")
		return
	}

	h.logger.Info("job queued",
		slog.String("job_id", jobID),
		slog.String("source_key", key),
	)

	writeJSON(w, http.StatusAccepted, UploadResponse{
		JobID:  jobID,
		Status: string(job.StatusQueued),
	})
}

// GetStatus handles GET /jobs/{id}/status requests.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	var doc job.StatusDocument
	if err := storage.GetJSON(r.Context(), h.store, job.StatusKey(jobID), &doc); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to read status document",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job status", "STATUS_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		JobID:  jobID,
		Status: string(doc.Status),
	})
}

// GetResults handles GET /jobs/{id}/results requests. Clip storage keys are
// resolved to presigned URLs; the keys themselves are never exposed.
func (h *Handlers) GetResults(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	var results job.Results
	if err := storage.GetJSON(r.Context(), h.store, job.ResultsKey(jobID), &results); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "results not available", "RESULTS_NOT_FOUND")
			return
		}
		h.logger.Error("failed to read results document",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job results", "RESULTS_FETCH_FAILED")
		return
	}

	resp := ResultsResponse{
		JobID:   results.JobID,
		Summary: results.Summary,
		Caption: results.Caption,
		Clips:   make([]ClipResponse, 0, len(results.Clips)),
	}
	for _, c := range results.Clips {
		url, err := h.store.PresignedURL(r.Context(), c.S3Key, h.presignedExpiry)
		if err != nil {
			h.logger.Error("failed to presign clip",
				slog.String("job_id", jobID),
				slog.String("key", c.S3Key),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to resolve clip URLs", "PRESIGN_FAILED")
			return
		}
		resp.Clips = append(resp.Clips, ClipResponse{
			Start:    c.Start,
			End:      c.End,
			Duration: c.Duration,
			Text:     c.Text,
			URL:      url,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// optionalBool parses an optional form value, absent means unset.
func optionalBool(v string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// sourceFilename strips any client-supplied path from the upload filename.
func sourceFilename(name string) string {
	base := filepath.Base(name)
	if base == "." || base == "/" || base == "" {
		return "video.mp4"
	}
	return base
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
