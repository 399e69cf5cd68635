package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLocks_Serializes(t *testing.T) {
	locks := NewSessionLocks(time.Minute, nil, nil)
	defer locks.Stop()

	var (
		mu      sync.Mutex
		running int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.Lock(context.Background(), "s1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			running++
			if running > maxSeen {
				maxSeen = running
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 1, locks.Len())
}

func TestSessionLocks_ContextCancelled(t *testing.T) {
	locks := NewSessionLocks(time.Minute, nil, nil)
	defer locks.Stop()

	unlock, err := locks.Lock(context.Background(), "s1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(ctx, "s1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Other sessions are independent.
	unlockOther, err := locks.Lock(context.Background(), "s2")
	require.NoError(t, err)
	unlockOther()

	unlock()
	unlock, err = locks.Lock(context.Background(), "s1")
	require.NoError(t, err)
	unlock()
}

func TestSessionLocks_SweepAndForget(t *testing.T) {
	locks := NewSessionLocks(time.Minute, nil, nil)
	defer locks.Stop()

	held, err := locks.Lock(context.Background(), "busy")
	require.NoError(t, err)
	unlock, err := locks.Lock(context.Background(), "idle")
	require.NoError(t, err)
	unlock()

	locks.sweep(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 1, locks.Len())

	locks.Forget("busy")
	assert.Equal(t, 1, locks.Len())
	held()
	locks.Forget("busy")
	assert.Zero(t, locks.Len())

	locks.Stop()
}
