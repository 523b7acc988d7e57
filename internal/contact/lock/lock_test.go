package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutualExclusion(t *testing.T) {
	k := NewKeyed()
	ctx := context.Background()
	keys := []string{"email:a@x.com", "phone:111"}

	var mu sync.Mutex
	var active, maxActive int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, k.Lock(ctx, keys))
			defer k.Unlock(ctx, keys)

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "overlapping keys must serialize")
}

func TestKeyedDisjointKeysRunConcurrently(t *testing.T) {
	k := NewKeyed()
	ctx := context.Background()

	require.NoError(t, k.Lock(ctx, []string{"email:a@x.com"}))
	defer k.Unlock(ctx, []string{"email:a@x.com"})

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, k.Lock(ctx, []string{"email:b@x.com"}))
		k.Unlock(ctx, []string{"email:b@x.com"})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disjoint key blocked behind an unrelated holder")
	}
}

func TestKeyedLockRespectsContext(t *testing.T) {
	k := NewKeyed()
	keys := []string{"phone:111"}

	require.NoError(t, k.Lock(context.Background(), keys))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := k.Lock(ctx, keys)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The failed waiter must not leave the key poisoned.
	k.Unlock(context.Background(), keys)
	require.NoError(t, k.Lock(context.Background(), keys))
	k.Unlock(context.Background(), keys)
}

func TestKeyedPartialAcquisitionUnwinds(t *testing.T) {
	k := NewKeyed()

	// Hold the second key so a two-key caller blocks mid-acquisition.
	require.NoError(t, k.Lock(context.Background(), []string{"phone:111"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := k.Lock(ctx, []string{"email:a@x.com", "phone:111"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The first key must have been released on the way out.
	require.NoError(t, k.Lock(context.Background(), []string{"email:a@x.com"}))
	k.Unlock(context.Background(), []string{"email:a@x.com"})
}

func TestKeyedEntriesCleanedUp(t *testing.T) {
	k := NewKeyed()
	ctx := context.Background()
	keys := []string{"email:a@x.com", "phone:111"}

	require.NoError(t, k.Lock(ctx, keys))
	k.Unlock(ctx, keys)

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.entries, "released keys must not accumulate")
}
