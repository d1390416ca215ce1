package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippyio/clipworker/internal/clips"
	"github.com/clippyio/clipworker/internal/job"
	"github.com/clippyio/clipworker/internal/llm"
	"github.com/clippyio/clipworker/internal/queue"
	"github.com/clippyio/clipworker/internal/storage"
	"github.com/clippyio/clipworker/internal/transcript"
)

// fakeStore is an in-memory ObjectStore that records every status value
// written for a job, in order.
type fakeStore struct {
	objects   map[string][]byte
	statusLog map[string][]job.Status
	putErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:   make(map[string][]byte),
		statusLog: make(map[string][]job.Status),
	}
}

func (s *fakeStore) PutObject(_ context.Context, key string, body io.Reader) error {
	if s.putErr != nil {
		return s.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = b

	if strings.HasSuffix(key, "/status.json") {
		var doc job.StatusDocument
		if err := storage.GetJSON(context.Background(), s, key, &doc); err != nil {
			return err
		}
		s.statusLog[key] = append(s.statusLog[key], doc.Status)
	}
	return nil
}

func (s *fakeStore) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.test/" + key, nil
}

func (s *fakeStore) statuses(jobID string) []job.Status {
	return s.statusLog[job.StatusKey(jobID)]
}

// fakeQueue records acknowledgements so tests can assert the message left
// the queue on every outcome.
type fakeQueue struct {
	*queue.MemoryQueue
	deleted []string
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{MemoryQueue: queue.NewMemoryQueue()}
}

func (q *fakeQueue) Delete(ctx context.Context, receiptHandle string) error {
	q.deleted = append(q.deleted, receiptHandle)
	return q.MemoryQueue.Delete(ctx, receiptHandle)
}

// fakeEngine writes placeholder output files so the upload stage has
// something to read, and records which operations ran.
type fakeEngine struct {
	extracted []string
	cuts      []string
	burns     []string
}

func (e *fakeEngine) ExtractAudio(_ context.Context, _, audioPath string) error {
	e.extracted = append(e.extracted, audioPath)
	return os.WriteFile(audioPath, []byte("wav"), 0600)
}

func (e *fakeEngine) CutClip(_ context.Context, _ string, _, _ float64, outPath string) error {
	e.cuts = append(e.cuts, outPath)
	return os.WriteFile(outPath, []byte("clip"), 0600)
}

func (e *fakeEngine) BurnCaptions(_ context.Context, _, _, outPath string) error {
	e.burns = append(e.burns, outPath)
	return os.WriteFile(outPath, []byte("captioned clip"), 0600)
}

func (e *fakeEngine) ProbeDuration(_ context.Context, _ string) (float64, error) {
	return 60.0, nil
}

type fakeTranscriber struct {
	tr     transcript.Transcript
	err    error
	onCall func()
}

func (t *fakeTranscriber) Transcribe(_ context.Context, _, _ string) (transcript.Transcript, error) {
	if t.onCall != nil {
		t.onCall()
	}
	return t.tr, t.err
}

// fakeGen dispatches on sampling temperature: 0.2 is ranking, 0.4 summary,
// 0.7 caption.
type fakeGen struct {
	rankResp    string
	summaryResp string
	captionResp string
	summaryErr  error
	captionErr  error
}

func (g *fakeGen) Complete(_ context.Context, _ string, temperature float64) (string, error) {
	switch temperature {
	case 0.2:
		return g.rankResp, nil
	case 0.4:
		return g.summaryResp, g.summaryErr
	case 0.7:
		return g.captionResp, g.captionErr
	default:
		return "", fmt.Errorf("unexpected temperature %v", temperature)
	}
}

var _ llm.TextGenerator = (*fakeGen)(nil)

// testSegments yields three candidates under Min=5 Max=15.
func testSegments() []transcript.Segment {
	return []transcript.Segment{
		{Start: 0, End: 6, Text: "welcome to the show"},
		{Start: 6, End: 12, Text: "today we cover three things"},
		{Start: 12, End: 18, Text: "the first one is the big reveal"},
	}
}

type harness struct {
	worker *Worker
	store  *fakeStore
	queue  *fakeQueue
	engine *fakeEngine
	gen    *fakeGen
	trans  *fakeTranscriber
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newFakeStore()
	q := newFakeQueue()
	engine := &fakeEngine{}
	gen := &fakeGen{
		rankResp:    "[2, 0]",
		summaryResp: "A show about three things.",
		captionResp: "Three things you need to see",
	}
	trans := &fakeTranscriber{
		tr: transcript.Transcript{Segments: testSegments()},
	}

	w := New(q, store, engine, trans, clips.NewRanker(gen, nil), gen, nil, Config{
		WorkDir:         t.TempDir(),
		MinClipDuration: 5,
		MaxClipDuration: 15,
		MaxClips:        2,
	})
	return &harness{worker: w, store: store, queue: q, engine: engine, gen: gen, trans: trans}
}

func (h *harness) enqueue(t *testing.T, body string) *queue.Message {
	t.Helper()
	require.NoError(t, h.queue.Send(context.Background(), []byte(body)))
	msg, err := h.queue.Receive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, msg)
	return msg
}

func (h *harness) results(t *testing.T, jobID string) job.Results {
	t.Helper()
	var r job.Results
	require.NoError(t, storage.GetJSON(context.Background(), h.store, job.ResultsKey(jobID), &r))
	return r
}

func TestProcessSuccess(t *testing.T) {
	h := newHarness(t)
	h.store.objects["uploads/src.mp4"] = []byte("video bytes")

	msg := h.enqueue(t, `{"job_id":"j1","s3_key":"uploads/src.mp4"}`)
	h.worker.Process(context.Background(), msg)

	assert.Equal(t, []job.Status{job.StatusProcessing, job.StatusDone}, h.store.statuses("j1"))

	r := h.results(t, "j1")
	assert.Equal(t, "j1", r.JobID)
	require.Len(t, r.Clips, 2)

	// The engine ranked candidate 2 first; output order is preserved.
	assert.Equal(t, 12.0, r.Clips[0].Start)
	assert.Equal(t, 0.0, r.Clips[1].Start)
	assert.Equal(t, job.ClipKey("j1", 0), r.Clips[0].S3Key)
	assert.Equal(t, job.ClipKey("j1", 1), r.Clips[1].S3Key)
	assert.Contains(t, h.store.objects, job.ClipKey("j1", 0))
	assert.Contains(t, h.store.objects, job.ClipKey("j1", 1))

	require.NotNil(t, r.Summary)
	assert.Equal(t, "A show about three things.", *r.Summary)
	require.NotNil(t, r.Caption)
	assert.Equal(t, "Three things you need to see", *r.Caption)

	// Captions are on by default, so the uploaded media is the burned copy.
	assert.Len(t, h.engine.burns, 2)
	assert.Equal(t, []byte("captioned clip"), h.store.objects[job.ClipKey("j1", 0)])

	assert.Len(t, h.queue.deleted, 1)
	assertWorkspaceEmpty(t, h.worker.cfg.WorkDir)
}

func TestProcessTranscriptionFailure(t *testing.T) {
	h := newHarness(t)
	h.store.objects["uploads/src.mp4"] = []byte("video bytes")
	h.trans.err = errors.New("model exploded")

	msg := h.enqueue(t, `{"job_id":"j2","s3_key":"uploads/src.mp4"}`)
	h.worker.Process(context.Background(), msg)

	assert.Equal(t, []job.Status{job.StatusProcessing, job.StatusFailed}, h.store.statuses("j2"))
	assert.NotContains(t, h.store.objects, job.ResultsKey("j2"))
	assert.Empty(t, h.engine.cuts)

	// Failed jobs are still acknowledged and their workspace released.
	assert.Len(t, h.queue.deleted, 1)
	assertWorkspaceEmpty(t, h.worker.cfg.WorkDir)
}

func TestProcessPublishesProcessingBeforeStages(t *testing.T) {
	h := newHarness(t)
	h.store.objects["uploads/src.mp4"] = []byte("video bytes")

	var statusAtTranscribe []job.Status
	h.trans.onCall = func() {
		statusAtTranscribe = append([]job.Status(nil), h.store.statuses("j3")...)
	}

	msg := h.enqueue(t, `{"job_id":"j3","s3_key":"uploads/src.mp4"}`)
	h.worker.Process(context.Background(), msg)

	assert.Equal(t, []job.Status{job.StatusProcessing}, statusAtTranscribe)
}

func TestProcessCaptionsDisabled(t *testing.T) {
	h := newHarness(t)
	h.store.objects["uploads/src.mp4"] = []byte("video bytes")

	msg := h.enqueue(t, `{"job_id":"j4","s3_key":"uploads/src.mp4","captions":false}`)
	h.worker.Process(context.Background(), msg)

	assert.Equal(t, []job.Status{job.StatusProcessing, job.StatusDone}, h.store.statuses("j4"))
	assert.Empty(t, h.engine.burns)
	assert.Equal(t, []byte("clip"), h.store.objects[job.ClipKey("j4", 0)])
}

func TestProcessTextGenerationDisabled(t *testing.T) {
	h := newHarness(t)
	h.store.objects["uploads/src.mp4"] = []byte("video bytes")

	msg := h.enqueue(t, `{"job_id":"j5","s3_key":"uploads/src.mp4","summary":false,"video_caption":false}`)
	h.worker.Process(context.Background(), msg)

	r := h.results(t, "j5")
	assert.Nil(t, r.Summary)
	assert.Nil(t, r.Caption)
	require.Len(t, r.Clips, 2)
}

func TestProcessSummaryFailureIsRecoverable(t *testing.T) {
	h := newHarness(t)
	h.store.objects["uploads/src.mp4"] = []byte("video bytes")
	h.gen.summaryErr = errors.New("rate limited")

	msg := h.enqueue(t, `{"job_id":"j6","s3_key":"uploads/src.mp4"}`)
	h.worker.Process(context.Background(), msg)

	assert.Equal(t, []job.Status{job.StatusProcessing, job.StatusDone}, h.store.statuses("j6"))

	r := h.results(t, "j6")
	assert.Nil(t, r.Summary)
	require.NotNil(t, r.Caption)
}

func TestProcessRankingFallback(t *testing.T) {
	h := newHarness(t)
	h.store.objects["uploads/src.mp4"] = []byte("video bytes")
	h.gen.rankResp = "I think the best clips are 2 and 0."

	msg := h.enqueue(t, `{"job_id":"j7","s3_key":"uploads/src.mp4"}`)
	h.worker.Process(context.Background(), msg)

	// Unparseable ranking falls back to generation order, capped at two.
	r := h.results(t, "j7")
	require.Len(t, r.Clips, 2)
	assert.Equal(t, 0.0, r.Clips[0].Start)
	assert.Equal(t, 6.0, r.Clips[1].Start)
}

func TestProcessMalformedMessage(t *testing.T) {
	h := newHarness(t)

	msg := h.enqueue(t, `{"job_id":"j8"}`)
	h.worker.Process(context.Background(), msg)

	// No s3_key: nothing to address, so the message is dropped outright.
	assert.Empty(t, h.store.objects)
	assert.Len(t, h.queue.deleted, 1)
}

func TestProcessMissingSourceObject(t *testing.T) {
	h := newHarness(t)

	msg := h.enqueue(t, `{"job_id":"j9","s3_key":"uploads/gone.mp4"}`)
	h.worker.Process(context.Background(), msg)

	assert.Equal(t, []job.Status{job.StatusProcessing, job.StatusFailed}, h.store.statuses("j9"))
	assert.Len(t, h.queue.deleted, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.worker.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunProcessesEnqueuedJob(t *testing.T) {
	h := newHarness(t)
	h.store.objects["uploads/src.mp4"] = []byte("video bytes")
	require.NoError(t, h.queue.Send(context.Background(), []byte(`{"job_id":"j10","s3_key":"uploads/src.mp4"}`)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.worker.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(h.store.statuses("j10")) == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, []job.Status{job.StatusProcessing, job.StatusDone}, h.store.statuses("j10"))
}

func assertWorkspaceEmpty(t *testing.T, workDir string) {
	t.Helper()
	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Fail(t, "workspace not cleaned up", filepath.Join(workDir, e.Name()))
	}
}
