package task

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_Publish(t *testing.T) {
	t.Parallel()

	t.Run("full", func(t *testing.T) {
		t.Parallel()

		q := NewMemoryQueue(1, discardLogger())
		require.NoError(t, q.Publish(context.Background(), "a"))
		assert.ErrorIs(t, q.Publish(context.Background(), "b"), ErrQueueFull)
		assert.Equal(t, 1, q.Len())
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()

		q := NewMemoryQueue(1, discardLogger())
		require.NoError(t, q.Close())
		require.NoError(t, q.Close())
		assert.ErrorIs(t, q.Publish(context.Background(), "a"), ErrQueueClosed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		q := NewMemoryQueue(1, discardLogger())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, q.Publish(ctx, "a"), context.Canceled)
	})
}

func TestMemoryQueue_Consume(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue(4, discardLogger())
	require.NoError(t, q.Publish(context.Background(), "one"))
	require.NoError(t, q.Publish(context.Background(), "two"))

	var mu sync.Mutex
	var got []string
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Consume(ctx, 2, func(_ context.Context, id string) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, id)
			return nil
		})
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Consume did not return after cancellation")
	}
	assert.ElementsMatch(t, []string{"one", "two"}, got)
}
