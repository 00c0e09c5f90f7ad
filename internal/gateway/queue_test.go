package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/photosort/internal/types"
)

func TestQueueConcurrency(t *testing.T) {
	queue := NewQueue(2)
	queue.Start(context.Background())
	defer queue.Stop()

	var running, maxSeen int32
	var wg sync.WaitGroup
	work := func(ctx context.Context) error {
		defer wg.Done()
		current := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if current <= old || atomic.CompareAndSwapInt32(&maxSeen, old, current) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		if err := queue.Enqueue(types.SessionKey(fmt.Sprintf("session-%d", i)), work); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()

	if m := atomic.LoadInt32(&maxSeen); m > 2 {
		t.Errorf("expected max 2 concurrent, saw %d", m)
	}
	if m := atomic.LoadInt32(&maxSeen); m < 2 {
		t.Errorf("expected sessions to run in parallel, saw %d", m)
	}
}

func TestQueueSameSessionOrdering(t *testing.T) {
	queue := NewQueue(4)
	queue.Start(context.Background())
	defer queue.Stop()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	session := types.SessionKey("same-session")
	for i := 0; i < 3; i++ {
		err := queue.Enqueue(session, func(ctx context.Context) error {
			// Earlier jobs sleep longer; order must still hold.
			time.Sleep(time.Duration(3-i) * 10 * time.Millisecond)
			mu.Lock()
			order = append(order, i)
			n := len(order)
			mu.Unlock()
			if n == 3 {
				close(done)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for jobs")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Errorf("expected order[%d] = %d, got %d", i, i, v)
		}
	}
}

func TestQueueErrorDoesNotStopLane(t *testing.T) {
	queue := NewQueue(1)
	queue.Start(context.Background())
	defer queue.Stop()

	done := make(chan struct{})
	session := types.SessionKey("s")
	queue.Enqueue(session, func(ctx context.Context) error { return errors.New("boom") })
	queue.Enqueue(session, func(ctx context.Context) error { close(done); return nil })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second job did not run after a failure")
	}
}

func TestQueueEnqueueBeforeStartAndAfterStop(t *testing.T) {
	queue := NewQueue(1)
	noop := func(ctx context.Context) error { return nil }

	if err := queue.Enqueue("s", noop); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped before Start, got %v", err)
	}

	queue.Start(context.Background())
	if err := queue.Enqueue("s", noop); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	queue.Stop()
	queue.Stop()

	if err := queue.Enqueue("s", noop); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after Stop, got %v", err)
	}
}

func TestQueueStopCancelsContext(t *testing.T) {
	queue := NewQueue(1)
	queue.Start(context.Background())

	started := make(chan struct{})
	var sawCancel atomic.Bool
	queue.Enqueue("s", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	})

	<-started
	queue.Stop()
	if !sawCancel.Load() {
		t.Error("running job did not observe cancellation")
	}
}

func TestQueueWaitIdle(t *testing.T) {
	queue := NewQueue(1)
	queue.Start(context.Background())
	defer queue.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	queue.Enqueue("s", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	if queue.Active() != 1 {
		t.Errorf("Active = %d", queue.Active())
	}
	if queue.WaitIdle(30 * time.Millisecond) {
		t.Error("WaitIdle returned true while a job was running")
	}
	close(release)
	if !queue.WaitIdle(time.Second) {
		t.Error("WaitIdle timed out after the job finished")
	}
}
