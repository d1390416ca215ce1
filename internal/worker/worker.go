// Package worker implements the job-processing pipeline: a sequential loop
// that pulls jobs off the queue and drives each one through download, audio
// extraction, transcription, clip generation, ranking, cutting, caption
// burn-in, text generation, upload, and status publication.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clippyio/clipworker/internal/captions"
	"github.com/clippyio/clipworker/internal/clips"
	"github.com/clippyio/clipworker/internal/job"
	"github.com/clippyio/clipworker/internal/llm"
	"github.com/clippyio/clipworker/internal/media"
	"github.com/clippyio/clipworker/internal/queue"
	"github.com/clippyio/clipworker/internal/social"
	"github.com/clippyio/clipworker/internal/storage"
	"github.com/clippyio/clipworker/internal/transcribe"
	"github.com/clippyio/clipworker/internal/transcript"
)

// receiveBackoff spaces out retries when the queue itself is failing.
const receiveBackoff = time.Second

// Config holds the worker's processing settings.
type Config struct {
	// WorkDir is the root under which per-job workspaces are created.
	WorkDir string
	// MinClipDuration and MaxClipDuration bound generated clips in seconds.
	MinClipDuration float64
	MaxClipDuration float64
	// MaxClips caps how many clips one job publishes.
	MaxClips int
}

// Worker runs the pipeline. All collaborators are explicit dependencies so
// tests can substitute fakes; the worker holds no process-wide state.
type Worker struct {
	queue       queue.Queue
	store       storage.ObjectStore
	engine      media.Engine
	transcriber transcribe.Transcriber
	ranker      *clips.Ranker
	gen         llm.TextGenerator
	validate    *validator.Validate
	logger      *slog.Logger
	cfg         Config
}

// New creates a Worker. Zero-valued bounds in cfg fall back to the clip
// package defaults.
func New(
	q queue.Queue,
	store storage.ObjectStore,
	engine media.Engine,
	transcriber transcribe.Transcriber,
	ranker *clips.Ranker,
	gen llm.TextGenerator,
	logger *slog.Logger,
	cfg Config,
) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "clipworker")
	}
	if cfg.MinClipDuration <= 0 {
		cfg.MinClipDuration = clips.DefaultMinDuration
	}
	if cfg.MaxClipDuration <= 0 {
		cfg.MaxClipDuration = clips.DefaultMaxDuration
	}
	if cfg.MaxClips <= 0 {
		cfg.MaxClips = clips.DefaultMaxClips
	}

	return &Worker{
		queue:       q,
		store:       store,
		engine:      engine,
		transcriber: transcriber,
		ranker:      ranker,
		gen:         gen,
		validate:    validator.New(),
		logger:      logger,
		cfg:         cfg,
	}
}

// Run polls the queue until ctx is cancelled, processing one job at a time.
// Jobs run strictly sequentially; horizontal scaling means more worker
// processes, not concurrency inside one.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started, waiting for jobs",
		slog.String("work_dir", w.cfg.WorkDir),
		slog.Int("max_clips", w.cfg.MaxClips),
	)

	for {
		msg, err := w.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("queue receive failed",
				slog.String("error", err.Error()),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(receiveBackoff):
			}
			continue
		}
		if msg == nil {
			// SQS long-polls inside Receive; the in-memory queue returns
			// immediately, so pause rather than spin.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(receiveBackoff):
			}
			continue
		}
		w.Process(ctx, msg)
	}
}

// Process runs one delivered message to a terminal status. It never
// propagates a failure past the job boundary: whatever happens, the status
// document reflects the outcome, the message is acknowledged, and the
// workspace is released.
func (w *Worker) Process(ctx context.Context, msg *queue.Message) {
	// Terminal bookkeeping must still run when ctx is cancelled mid-job.
	bg := context.WithoutCancel(ctx)

	j, err := job.Parse(msg.Body, w.validate)
	if err != nil {
		// Poison message: without a job id there is no status document
		// to address, so drop it rather than redeliver forever.
		w.logger.Error("dropping malformed job message",
			slog.String("error", err.Error()),
		)
		w.ack(bg, msg)
		return
	}

	logger := w.logger.With(slog.String("job_id", j.ID))
	logger.Info("job received", slog.String("source_key", j.SourceKey))

	workspace := filepath.Join(w.cfg.WorkDir, fmt.Sprintf("job-%s-%s", j.ID, uuid.NewString()))
	if err := os.MkdirAll(workspace, 0750); err != nil {
		logger.Error("workspace allocation failed", slog.String("error", err.Error()))
		w.publishFailed(bg, logger, j.ID)
		w.ack(bg, msg)
		return
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			logger.Warn("workspace cleanup failed", slog.String("error", err.Error()))
		}
	}()
	defer w.ack(bg, msg)

	// Publish processing before any stage runs so a status read during
	// execution never finds a stale queued value.
	runErr := w.publishStatus(ctx, j.ID, job.StatusProcessing)

	var results job.Results
	if runErr == nil {
		results, runErr = w.runPipeline(ctx, logger, j, workspace)
	}

	if runErr != nil {
		logger.Error("job failed", slog.String("error", runErr.Error()))
		w.publishFailed(bg, logger, j.ID)
		return
	}

	if err := w.publishStatus(bg, j.ID, job.StatusDone); err != nil {
		logger.Error("done-status publication failed", slog.String("error", err.Error()))
		w.publishFailed(bg, logger, j.ID)
		return
	}

	logger.Info("job done", slog.Int("clips", len(results.Clips)))
}

// runPipeline executes the stages strictly in order. Every returned error
// is fatal to the job; recoverable paths (ranking, summary, caption) are
// absorbed inside their stage.
func (w *Worker) runPipeline(ctx context.Context, logger *slog.Logger, j job.Job, workspace string) (job.Results, error) {
	opts := j.Options()

	videoPath := filepath.Join(workspace, "source"+sourceExt(j.SourceKey))
	if err := storage.Download(ctx, w.store, j.SourceKey, videoPath); err != nil {
		return job.Results{}, fmt.Errorf("fetch source media: %w", err)
	}
	if duration, err := w.engine.ProbeDuration(ctx, videoPath); err == nil {
		logger.Info("source media fetched", slog.Float64("duration_sec", duration))
	}

	audioPath := filepath.Join(workspace, "audio.wav")
	if err := w.engine.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return job.Results{}, fmt.Errorf("extract audio: %w", err)
	}

	tr, err := w.transcriber.Transcribe(ctx, audioPath, workspace)
	if err != nil {
		return job.Results{}, fmt.Errorf("transcribe audio: %w", err)
	}
	if err := transcript.Save(tr, filepath.Join(workspace, "transcript.json")); err != nil {
		return job.Results{}, err
	}

	// The generator runs uncapped; the ranker applies the clip cap.
	cands := clips.Detect(tr.Segments, clips.DetectOptions{
		MinDuration: w.cfg.MinClipDuration,
		MaxDuration: w.cfg.MaxClipDuration,
	})
	selected := w.ranker.Rank(ctx, cands, w.cfg.MaxClips)
	logger.Info("clips selected",
		slog.Int("candidates", len(cands)),
		slog.Int("selected", len(selected)),
	)

	results := job.Results{JobID: j.ID, Clips: make([]job.Clip, 0, len(selected))}
	for i, c := range selected {
		clipPath := filepath.Join(workspace, fmt.Sprintf("clip_%d.mp4", i))
		if err := w.engine.CutClip(ctx, videoPath, c.Start, c.End, clipPath); err != nil {
			return job.Results{}, fmt.Errorf("cut clip %d: %w", i, err)
		}

		if opts.Captions {
			srtPath := filepath.Join(workspace, fmt.Sprintf("clip_%d.srt", i))
			track := captions.Build(tr.Segments, c.Start, c.End)
			if err := os.WriteFile(srtPath, []byte(track), 0600); err != nil {
				return job.Results{}, fmt.Errorf("write subtitle track %d: %w", i, err)
			}

			burnedPath := filepath.Join(workspace, fmt.Sprintf("clip_%d_captioned.mp4", i))
			if err := w.engine.BurnCaptions(ctx, clipPath, srtPath, burnedPath); err != nil {
				return job.Results{}, fmt.Errorf("burn captions into clip %d: %w", i, err)
			}
			clipPath = burnedPath
		}

		key := job.ClipKey(j.ID, i)
		if err := storage.Upload(ctx, w.store, clipPath, key); err != nil {
			return job.Results{}, fmt.Errorf("upload clip %d: %w", i, err)
		}

		results.Clips = append(results.Clips, job.Clip{
			Start:    c.Start,
			End:      c.End,
			Duration: c.Duration,
			Text:     c.Text,
			S3Key:    key,
		})
	}

	text := tr.FullText()
	if opts.Summary {
		if summary, err := social.GenerateSummary(ctx, w.gen, text); err != nil {
			logger.Warn("summary generation failed", slog.String("error", err.Error()))
		} else {
			results.Summary = &summary
		}
	}
	if opts.VideoCaption {
		if caption, err := social.GenerateCaption(ctx, w.gen, text); err != nil {
			logger.Warn("caption generation failed", slog.String("error", err.Error()))
		} else {
			results.Caption = &caption
		}
	}

	if err := storage.PutJSON(ctx, w.store, job.ResultsKey(j.ID), results); err != nil {
		return job.Results{}, fmt.Errorf("write results document: %w", err)
	}
	return results, nil
}

// publishStatus overwrites the job's status document.
func (w *Worker) publishStatus(ctx context.Context, jobID string, status job.Status) error {
	if err := storage.PutJSON(ctx, w.store, job.StatusKey(jobID), job.StatusDocument{Status: status}); err != nil {
		return fmt.Errorf("publish %s status: %w", status, err)
	}
	return nil
}

// publishFailed records the failed status. A failure to publish it is
// logged and swallowed so the loop stays alive for subsequent jobs.
func (w *Worker) publishFailed(ctx context.Context, logger *slog.Logger, jobID string) {
	if err := w.publishStatus(ctx, jobID, job.StatusFailed); err != nil {
		logger.Error("failed-status publication failed", slog.String("error", err.Error()))
	}
}

// ack removes the message from the queue. Both success and failure paths
// acknowledge: a job fails once and reports once rather than requeueing
// forever.
func (w *Worker) ack(ctx context.Context, msg *queue.Message) {
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Warn("queue acknowledgement failed", slog.String("error", err.Error()))
	}
}

// sourceExt preserves the uploaded file's extension for the local copy.
func sourceExt(key string) string {
	ext := path.Ext(key)
	if ext == "" {
		return ".mp4"
	}
	return ext
}
