package memcache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.Set(ctx, "k", []byte("v"), time.Minute)

	v, ok := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(v))

	_, ok = s.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestStore_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(WithClock(clock.Now))

	s.Set(ctx, "k", []byte("v"), 10*time.Second)
	clock.Advance(10*time.Second - time.Millisecond)
	_, ok := s.Get(ctx, "k")
	require.True(t, ok, "entry must be valid just before its ttl")

	clock.Advance(2 * time.Millisecond)
	_, ok = s.Get(ctx, "k")
	require.False(t, ok, "entry must be gone just after its ttl")
	assert.Equal(t, 0, s.Stats(ctx).Size, "expired entry is evicted by the lookup")
}

func TestStore_ExpiredEntryStaysUntilLookedUp(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Now()}
	s := NewStore(WithClock(clock.Now))
	s.Set(ctx, "k", []byte("v"), time.Second)
	clock.Advance(time.Hour)

	assert.Equal(t, 1, s.Stats(ctx).Size)
	assert.Equal(t, 1, s.Stats(ctx).Size, "Stats must not evict")
}

func TestStore_SetCopiesValue(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	buf := []byte("original")
	s.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'X'

	v, _ := s.Get(ctx, "k")
	assert.Equal(t, "original", string(v))
}

func TestStore_GetReturnsPrivateCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.Set(ctx, "k", []byte("original"), time.Minute)

	first, ok := s.Get(ctx, "k")
	require.True(t, ok)
	first[0] = 'X'
	_ = append(first[:0], "clobbered"...)

	second, ok := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "original", string(second))
}

func TestStore_NonPositiveTTLIsNotStored(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.Set(ctx, "k", []byte("v"), 0)
	_, ok := s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestStore_Invalidate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.Set(ctx, "a", []byte("1"), time.Minute)
	s.Set(ctx, "b", []byte("2"), time.Minute)
	s.Set(ctx, "c", []byte("3"), time.Minute)

	s.Invalidate(ctx, "a")
	_, ok := s.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b", "c"}, s.Stats(ctx).Keys)

	s.Invalidate(ctx)
	assert.Equal(t, 0, s.Stats(ctx).Size)
}

func TestStore_Stats(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.Set(ctx, "key", []byte("12345"), time.Minute)

	stats := s.Stats(ctx)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, []string{"key"}, stats.Keys)
	assert.Equal(t, int64(3+5+entryOverhead), stats.ApproxMemoryBytes)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			s.Set(ctx, key, []byte("v"), time.Minute)
			s.Get(ctx, key)
			if i%10 == 0 {
				s.Invalidate(ctx, key)
			}
			s.Stats(ctx)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, s.Stats(ctx).Size, 5)
}
