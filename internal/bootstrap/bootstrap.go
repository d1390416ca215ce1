// Package bootstrap provides dependency initialization for the worker and
// the HTTP API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/clippyio/clipworker/internal/clips"
	"github.com/clippyio/clipworker/internal/config"
	"github.com/clippyio/clipworker/internal/llm"
	"github.com/clippyio/clipworker/internal/media"
	"github.com/clippyio/clipworker/internal/queue"
	"github.com/clippyio/clipworker/internal/server"
	"github.com/clippyio/clipworker/internal/storage"
	"github.com/clippyio/clipworker/internal/transcribe"
	"github.com/clippyio/clipworker/internal/worker"
)

// ServerDependencies holds the initialized dependencies of the HTTP API.
type ServerDependencies struct {
	Handler http.Handler
}

// WorkerDependencies holds the initialized dependencies of the pipeline worker.
type WorkerDependencies struct {
	Worker *worker.Worker
}

// NewServerDependencies wires the store, queue, and HTTP handlers.
func NewServerDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*ServerDependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	q, err := initQueue(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	handlers := server.NewHandlers(store, q, logger,
		server.WithPresignedExpiry(cfg.PresignedExpiry),
	)
	router := server.NewRouter(handlers, logger, server.DefaultConfig())

	return &ServerDependencies{Handler: router}, nil
}

// NewWorkerDependencies wires the full pipeline behind one Worker.
func NewWorkerDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*WorkerDependencies, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	q, err := initQueue(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	gen, err := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}

	transcriber, err := transcribe.NewWhisperCPP(cfg.WhisperBin, cfg.WhisperModel)
	if err != nil {
		return nil, fmt.Errorf("create transcriber: %w", err)
	}

	engine := media.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath)
	ranker := clips.NewRanker(gen, logger)

	w := worker.New(q, store, engine, transcriber, ranker, gen, logger, worker.Config{
		WorkDir:         cfg.WorkDir,
		MinClipDuration: cfg.ClipMinSec,
		MaxClipDuration: cfg.ClipMaxSec,
		MaxClips:        cfg.MaxClips,
	})

	return &WorkerDependencies{Worker: w}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ObjectStore, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore("")
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("root", localStore.Root()),
	)
	return localStore, nil
}

// initQueue creates the appropriate queue backend based on configuration.
// The in-memory queue only spans one process; separate server and worker
// processes need SQS to see each other's jobs.
func initQueue(ctx context.Context, cfg *config.Config, logger *slog.Logger) (queue.Queue, error) {
	if cfg.SQSEnabled() {
		q, err := queue.NewSQSQueue(ctx, queue.SQSConfig{
			QueueURL:        cfg.SQSQueueURL,
			Region:          cfg.S3Region,
			Endpoint:        cfg.SQSEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			WaitTime:        cfg.SQSWaitTime,
		})
		if err != nil {
			return nil, fmt.Errorf("create SQS queue: %w", err)
		}
		logger.Info("SQS queue configured",
			slog.String("queue_url", cfg.SQSQueueURL),
		)
		return q, nil
	}

	logger.Info("in-memory queue configured")
	return queue.NewMemoryQueue(), nil
}
