package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan Job, 1)

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("channel down")
		}
		done <- job
		return nil
	}, QueueConfig{RetryDelay: time.Millisecond, MaxRetries: 5})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j-1", Type: "redelivery"}))

	select {
	case job := <-done:
		assert.Equal(t, "j-1", job.ID)
		assert.Equal(t, 2, job.Attempt)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to success")
	}
}

func TestQueueDropsAfterMaxRetries(t *testing.T) {
	dropped := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		panic("handler exploded")
	}, QueueConfig{RetryDelay: time.Millisecond, MaxRetries: 1, OnDrop: func(job Job, err error) {
		dropped <- job
	}})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j-2"}))

	select {
	case job := <-dropped:
		assert.Equal(t, 2, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not dropped")
	}
}

func TestQueueEnqueueGuards(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	assert.Error(t, q.Enqueue(Job{ID: "early"}))

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.Eventually(t, func() bool { return q.Depth() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "b"}))
	err := q.Enqueue(Job{ID: "c"})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(block)
	q.Stop()
	assert.Error(t, q.Enqueue(Job{ID: "late"}))
}

func TestQueueBackoffDoubles(t *testing.T) {
	q := NewQueue("test", nil, QueueConfig{RetryDelay: 100 * time.Millisecond})
	assert.Equal(t, 100*time.Millisecond, q.backoff(1))
	assert.Equal(t, 400*time.Millisecond, q.backoff(3))
}
