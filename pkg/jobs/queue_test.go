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

func TestQueueDeliversLocators(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	q := NewQueue("test", func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.Locator)
		return nil
	}, QueueConfig{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a", Type: "file.delete", Locator: "/uploads/a.pdf"}))
	require.NoError(t, q.Enqueue(Job{ID: "b", Type: "file.delete", Locator: "/uploads/b.pdf"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"/uploads/a.pdf", "/uploads/b.pdf"}, seen)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	q := NewQueue("test", func(_ context.Context, _ Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, RetryDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "flaky", Type: "file.delete", Locator: "/uploads/flaky.pdf"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueDropsJobAfterMaxRetries(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	q := NewQueue("test", func(_ context.Context, _ Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("permanent")
	}, QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "doomed", Type: "file.delete"}))

	// Initial attempt plus two retries, then the job is dropped.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 3
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestQueueRejectsEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "early"}))
}
