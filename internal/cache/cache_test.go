package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

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
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestGetOrCompute_HitWithinTTL(t *testing.T) {
	clk := newClock()
	c := New[string, int](time.Second, clk)

	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	v, hit, err := c.GetOrCompute("voltage", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 42, v)

	clk.Advance(999 * time.Millisecond)
	v, hit, err = c.GetOrCompute("voltage", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestGetOrCompute_RecomputeAfterExpiry(t *testing.T) {
	clk := newClock()
	c := New[string, int](time.Second, clk)

	calls := 0
	compute := func() (int, error) {
		calls++
		return calls, nil
	}

	_, _, _ = c.GetOrCompute("k", compute)
	clk.Advance(time.Second)

	v, hit, err := c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestGetOrCompute_FailureNotCached(t *testing.T) {
	clk := newClock()
	c := New[string, int](time.Minute, clk)

	boom := errors.New("timeout")
	calls := 0

	_, _, err := c.GetOrCompute("k", func() (int, error) {
		calls++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	v, hit, err := c.GetOrCompute("k", func() (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}

func TestInvalidate(t *testing.T) {
	c := New[int, string](time.Minute, newClock())
	c.Put(1, "a")
	c.Put(2, "b")
	c.Put(3, "c")

	c.Invalidate(1)
	c.InvalidateFunc(func(k int) bool { return k == 3 })

	_, ok := c.Get(1)
	assert.False(t, ok)
	_, ok = c.Get(3)
	assert.False(t, ok)
	v, ok := c.Get(2)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestPurge(t *testing.T) {
	clk := newClock()
	c := New[int, int](time.Second, clk)
	c.Put(1, 1)
	clk.Advance(500 * time.Millisecond)
	c.Put(2, 2)
	clk.Advance(600 * time.Millisecond)

	assert.Equal(t, 1, c.Purge())
}

func TestStats(t *testing.T) {
	c := New[int, int](time.Second, newClock())
	c.Get(1)
	c.Put(1, 1)
	c.Get(1)

	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())
}
