// Package gateway serializes front-end work per session while bounding
// parallelism across sessions.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/photosort/internal/types"
)

const laneBuffer = 100

// ErrStopped is returned by Enqueue when the queue is not running.
var ErrStopped = errors.New("queue stopped")

// Work is one unit of session-scoped work. The context is the queue's.
type Work func(ctx context.Context) error

type job struct {
	work   Work
	queued time.Time
}

// Queue manages per-session lanes with a global concurrency semaphore.
// Each session gets its own FIFO lane so that work within a session runs
// sequentially, while the semaphore limits the total number of jobs running
// across all sessions.
type Queue struct {
	lanes     map[types.SessionKey]chan job
	semaphore *semaphore.Weighted
	active    atomic.Int64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue creates a Queue that runs up to maxConcurrent jobs at once.
func NewQueue(maxConcurrent int64) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Queue{
		lanes:     make(map[types.SessionKey]chan job),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.running = true
}

// Stop cancels the queue context, closes all lanes, and waits for in-flight
// jobs to finish. Queued jobs that have not started are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	for session, lane := range q.lanes {
		close(lane)
		delete(q.lanes, session)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds work to the session's lane, creating the lane (and its
// goroutine) on first use. Returns an error if the lane's buffer is full.
func (q *Queue) Enqueue(session types.SessionKey, work Work) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return ErrStopped
	}

	lane, exists := q.lanes[session]
	if !exists {
		lane = make(chan job, laneBuffer)
		q.lanes[session] = lane
		q.wg.Add(1)
		go q.processLane(session, lane)
	}

	select {
	case lane <- job{work: work, queued: time.Now()}:
		return nil
	default:
		return fmt.Errorf("queue full for session %s", session)
	}
}

// processLane drains a single session lane, acquiring a semaphore slot
// before running each job.
func (q *Queue) processLane(session types.SessionKey, lane chan job) {
	defer q.wg.Done()
	for {
		select {
		case j, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				return
			}
			q.active.Add(1)
			slog.Debug("job started", "session", string(session), "waited", time.Since(j.queued))
			if err := j.work(q.ctx); err != nil {
				slog.Error("job failed", "session", string(session), "error", err)
			}
			q.active.Add(-1)
			q.semaphore.Release(1)
		case <-q.ctx.Done():
			return
		}
	}
}

// Active returns the number of jobs currently running.
func (q *Queue) Active() int64 {
	return q.active.Load()
}

// WaitIdle blocks until no jobs are running, or the timeout expires. Returns
// true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.active.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}
