package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMemoryStore(t *testing.T) (*MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s, err := NewMemoryStore(context.Background(), MemoryConfig{
		ShortWindow: time.Minute,
		LongWindow:  time.Hour,
		MaxSizeMB:   8,
	}, WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.(*MemoryStore), clock
}

func TestMemoryStore_SetGet(t *testing.T) {
	s, _ := newTestMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("one"), time.Minute))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	require.NoError(t, s.Set(ctx, "a", []byte("two"), time.Minute))
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func TestMemoryStore_NeverWritten(t *testing.T) {
	s, _ := newTestMemoryStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = s.Take(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryStore_ExpiryBoundary(t *testing.T) {
	s, clock := newTestMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("v"), time.Minute))

	clock.Advance(time.Minute - time.Nanosecond)
	_, err := s.Get(ctx, "a")
	require.NoError(t, err)

	clock.Advance(time.Nanosecond)
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.Take(ctx, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryStore_SetRestartsExpiry(t *testing.T) {
	s, clock := newTestMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("v1"), time.Minute))
	clock.Advance(50 * time.Second)
	require.NoError(t, s.Set(ctx, "a", []byte("v2"), time.Minute))
	clock.Advance(50 * time.Second)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	s, clock := newTestMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("v"), 0))
	clock.Advance(24 * time.Hour)

	_, err := s.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryStore_NegativeTTL(t *testing.T) {
	s, _ := newTestMemoryStore(t)
	assert.ErrorIs(t, s.Set(context.Background(), "a", []byte("v"), -time.Second), core.ErrInvalidTTL)
}

func TestMemoryStore_TTLBeyondLongWindow(t *testing.T) {
	s, _ := newTestMemoryStore(t)
	assert.ErrorIs(t, s.Set(context.Background(), "a", []byte("v"), 2*time.Hour), core.ErrInvalidTTL)
}

func TestMemoryStore_ReplaceAcrossWindows(t *testing.T) {
	s, _ := newTestMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("challenge"), time.Minute))
	assert.Equal(t, 1, s.short.Len())

	require.NoError(t, s.Set(ctx, "a", []byte("record"), 30*time.Minute))
	assert.Equal(t, 0, s.short.Len())
	assert.Equal(t, 1, s.long.Len())

	got, err := s.Take(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("record"), got)
	assert.Equal(t, 0, s.long.Len())
}

func TestMemoryStore_NewRejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewMemoryStore(ctx, MemoryConfig{ShortWindow: time.Hour, LongWindow: time.Minute, MaxSizeMB: 1})
	assert.Error(t, err)

	_, err = NewMemoryStore(ctx, MemoryConfig{ShortWindow: time.Minute, LongWindow: time.Hour})
	assert.Error(t, err)
}

func TestMemoryStore_ExpiredEntriesReleased(t *testing.T) {
	st, err := NewMemoryStore(context.Background(), MemoryConfig{
		ShortWindow: time.Second,
		LongWindow:  time.Hour,
		MaxSizeMB:   1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	s := st.(*MemoryStore)

	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("challenge:%d", i), []byte("v"), time.Millisecond))
	}
	require.Equal(t, 1000, s.short.Len())

	assert.Eventually(t, func() bool {
		return s.short.Len() == 0
	}, 5*time.Second, 100*time.Millisecond)
}

func TestMemoryStore_SizeCap(t *testing.T) {
	st, err := NewMemoryStore(context.Background(), MemoryConfig{
		ShortWindow: time.Minute,
		LongWindow:  time.Hour,
		MaxSizeMB:   1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	s := st.(*MemoryStore)

	ctx := context.Background()
	value := make([]byte, 100)
	const writes = 30000
	for i := 0; i < writes; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("challenge:%d", i), value, time.Minute))
	}

	assert.LessOrEqual(t, s.short.Capacity(), 1<<20)
	assert.Less(t, s.short.Len(), writes)

	got, err := s.Get(ctx, fmt.Sprintf("challenge:%d", writes-1))
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestMemoryStore_TakeOnce(t *testing.T) {
	s, _ := newTestMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", []byte("v"), time.Minute))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Take(ctx, "a"); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryStore_ConcurrentDistinctKeys(t *testing.T) {
	s, _ := newTestMemoryStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			value := []byte(fmt.Sprintf("value-%d", i))
			assert.NoError(t, s.Set(ctx, key, value, time.Minute))
			got, err := s.Get(ctx, key)
			assert.NoError(t, err)
			assert.Equal(t, value, got)
		}(i)
	}
	wg.Wait()
}
