package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(2, func(_ context.Context, _ uuid.UUID) {})

	require.NoError(t, d.Enqueue(uuid.New()))
	require.NoError(t, d.Enqueue(uuid.New()))
	assert.ErrorIs(t, d.Enqueue(uuid.New()), ErrQueueFull)
}

func TestDispatcher_RunsEnqueuedJobs(t *testing.T) {
	var mu sync.Mutex
	ran := make(map[uuid.UUID]bool)
	done := make(chan struct{}, 4)

	d := NewDispatcher(8, func(_ context.Context, id uuid.UUID) {
		mu.Lock()
		ran[id] = true
		mu.Unlock()
		done <- struct{}{}
	})

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, d.Enqueue(id))
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx, 2) }()

	for range ids {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("workers did not drain the queue")
		}
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		assert.True(t, ran[id])
	}
}
