package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerQueue_RunsEveryJob(t *testing.T) {
	var (
		mu      sync.Mutex
		results []Result
		running int32
		peak    int32
	)
	handle := func(_ context.Context, job Job) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		if job.Path == "bad.pdf" {
			return errors.New("boom")
		}
		return nil
	}
	q := NewWorkerQueue(context.Background(), handle, nil,
		WithWorkers(2),
		WithQueueSize(1),
		WithOnDone(func(r Result) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}),
	)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: fmt.Sprintf("f%d.pdf", i)}))
	}
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "bad.pdf"}))
	q.Shutdown(context.Background())

	require.Len(t, results, 6)
	failed := 0
	for _, r := range results {
		assert.False(t, r.Job.SubmittedAt.IsZero())
		if r.Err != nil {
			failed++
			assert.Equal(t, "bad.pdf", r.Job.Path)
		}
	}
	assert.Equal(t, 1, failed)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestWorkerQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewWorkerQueue(context.Background(), func(context.Context, Job) error { return nil }, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "x"}), ErrQueueClosed)
}

func TestWorkerQueue_ProcessTimeout(t *testing.T) {
	var got error
	q := NewWorkerQueue(context.Background(), func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil, WithWorkers(1), WithProcessTimeout(20*time.Millisecond), WithOnDone(func(r Result) { got = r.Err }))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.pdf"}))
	q.Shutdown(context.Background())

	assert.ErrorIs(t, got, context.DeadlineExceeded)
}
