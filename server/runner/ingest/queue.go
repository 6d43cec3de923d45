// Package ingest decouples media ingestion from the embedding service's
// latency and failure modes: a bounded buffer absorbs enqueue bursts, a
// single worker batches tasks and dispatches them serially, and failed tasks
// are retried on detached timers tied to the queue's lifetime.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gwerrors "github.com/TAURAAI/taura-recall/server/internal/errors"
	"github.com/TAURAAI/taura-recall/store"
)

// Task is one pending image embedding. Owned by the queue from Enqueue until
// it is persisted or permanently dropped.
type Task struct {
	MediaID string
	URI     string
	Image   []byte
	Attempt int
}

// ImageBatchEmbedder is the slice of the transport client the queue needs.
// The returned slices always match the input length and order; a non-empty
// string marks that item failed.
type ImageBatchEmbedder interface {
	EmbedImageBatch(ctx context.Context, images [][]byte) ([][]float32, []string, error)
}

// Config holds queue tuning.
type Config struct {
	// Capacity is the size of the bounded buffer.
	Capacity int
	// BatchSize flushes a batch once it reaches this many tasks.
	BatchSize int
	// FlushInterval flushes a partially filled batch after this much time.
	FlushInterval time.Duration
	// OfferTimeout bounds Enqueue when the buffer is full. Zero blocks until
	// space frees up or the queue closes.
	OfferTimeout time.Duration
	// MaxAttempts is the per-task dispatch ceiling before a permanent drop.
	MaxAttempts int
	// RetryDelay is how long a failed task waits before re-enqueue.
	RetryDelay time.Duration
	// Model is the model identifier stored alongside each vector.
	Model string
}

// Queue is the embedding ingestion queue. One background worker drains the
// buffer, so only one batch is ever in flight against the embedding service.
type Queue struct {
	store    *store.Store
	embedder ImageBatchEmbedder

	tasks         chan *Task
	batchSize     int
	flushInterval time.Duration
	offerTimeout  time.Duration
	maxAttempts   int
	retryDelay    time.Duration
	model         string

	ctx    context.Context
	cancel context.CancelFunc

	worker sync.WaitGroup
	timers sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewQueue creates the queue. Call Start to launch the worker.
func NewQueue(st *store.Store, embedder ImageBatchEmbedder, cfg *Config) *Queue {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 256
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		store:         st,
		embedder:      embedder,
		tasks:         make(chan *Task, capacity),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		offerTimeout:  cfg.OfferTimeout,
		maxAttempts:   maxAttempts,
		retryDelay:    retryDelay,
		model:         cfg.Model,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches the background worker.
func (q *Queue) Start() {
	q.worker.Add(1)
	go q.run()
}

// Enqueue places a task into the bounded buffer. With a positive offer
// timeout it fails once the buffer stays full that long; with a zero timeout
// it blocks until space frees up or the queue is closed. Blocking here is the
// backpressure mechanism: a slow embedding service throttles ingestion
// instead of growing memory without bound.
func (q *Queue) Enqueue(task *Task) error {
	if q.closed.Load() {
		return gwerrors.New(gwerrors.ErrCodeQueueClosed, "ingestion queue is closed")
	}

	if q.offerTimeout > 0 {
		timer := time.NewTimer(q.offerTimeout)
		defer timer.Stop()
		select {
		case q.tasks <- task:
			return nil
		case <-timer.C:
			return gwerrors.New(gwerrors.ErrCodeQueueTimeout, "ingestion queue is full")
		case <-q.ctx.Done():
			return gwerrors.New(gwerrors.ErrCodeQueueClosed, "ingestion queue is closed")
		}
	}

	select {
	case q.tasks <- task:
		return nil
	case <-q.ctx.Done():
		return gwerrors.New(gwerrors.ErrCodeQueueClosed, "ingestion queue is closed")
	}
}

// Depth returns the number of buffered tasks.
func (q *Queue) Depth() int {
	return len(q.tasks)
}

// Close stops intake, flushes any partially filled batch once, cancels
// pending retry timers, and waits for the worker to terminate.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		q.cancel()
		q.worker.Wait()
		q.timers.Wait()
		slog.Info("ingestion queue stopped")
	})
}

func (q *Queue) run() {
	defer q.worker.Done()

	batch := make([]*Task, 0, q.batchSize)
	timer := time.NewTimer(q.flushInterval)
	defer timer.Stop()

	resetTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(q.flushInterval)
	}

	for {
		select {
		case <-q.ctx.Done():
			// Drain buffered tasks without blocking, then flush once.
			for {
				select {
				case task := <-q.tasks:
					batch = append(batch, task)
					if len(batch) >= q.batchSize {
						q.flush(batch)
						batch = batch[:0]
					}
				default:
					q.flush(batch)
					return
				}
			}
		case task := <-q.tasks:
			batch = append(batch, task)
			if len(batch) >= q.batchSize {
				q.flush(batch)
				batch = batch[:0]
				resetTimer()
			}
		case <-timer.C:
			if len(batch) > 0 {
				q.flush(batch)
				batch = batch[:0]
			}
			timer.Reset(q.flushInterval)
		}
	}
}

// flush dispatches one batch and persists the valid vectors. Failures never
// propagate to the original caller; they are retried or dropped here.
func (q *Queue) flush(batch []*Task) {
	if len(batch) == 0 {
		return
	}

	ctx := q.ctx
	if ctx.Err() != nil {
		// Final flush during shutdown runs under its own bound.
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
	}

	images := make([][]byte, len(batch))
	for i, task := range batch {
		images[i] = task.Image
	}

	vecs, itemErrs, err := q.embedder.EmbedImageBatch(ctx, images)
	if err != nil {
		slog.Warn("embedding batch failed", "size", len(batch), "error", err)
	}

	persisted := 0
	for i, task := range batch {
		if vecs != nil && i < len(vecs) && len(vecs[i]) > 0 {
			upsertErr := q.store.UpsertEmbedding(ctx, &store.MediaVector{
				MediaID:   task.MediaID,
				Embedding: vecs[i],
				Model:     q.model,
			})
			if upsertErr == nil {
				persisted++
				continue
			}
			slog.Error("failed to upsert embedding", "mediaID", task.MediaID, "error", upsertErr)
			q.handleFailure(task, upsertErr.Error())
			continue
		}

		reason := "no vector returned"
		if itemErrs != nil && i < len(itemErrs) && itemErrs[i] != "" {
			reason = itemErrs[i]
		}
		q.handleFailure(task, reason)
	}

	if persisted > 0 {
		slog.Info("embedding batch persisted", "size", len(batch), "persisted", persisted)
	}
}

// handleFailure re-enqueues the task after a delay, or drops it permanently
// once attempts are exhausted. The retry timer observes queue shutdown so no
// task is re-enqueued after Close.
func (q *Queue) handleFailure(task *Task, reason string) {
	if task.Attempt+1 >= q.maxAttempts {
		slog.Warn("dropping embedding task permanently",
			"mediaID", task.MediaID, "attempts", task.Attempt+1, "reason", reason)
		return
	}

	retry := *task
	retry.Attempt++

	q.timers.Add(1)
	go func() {
		defer q.timers.Done()
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			select {
			case q.tasks <- &retry:
			case <-q.ctx.Done():
			}
		}
	}()
}
