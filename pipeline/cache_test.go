package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetOrCreate(t *testing.T) {
	c := NewCache[string](4, nil)

	calls := 0
	v, err := c.GetOrCreate(1, func() (string, error) {
		calls++
		return "pipeline-1", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pipeline-1", v)
	assert.Equal(t, 1, calls)

	// Hit: create must not run again.
	v, err = c.GetOrCreate(1, func() (string, error) {
		calls++
		return "other", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "pipeline-1", v)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestCacheGet(t *testing.T) {
	c := NewCache[int](4, nil)

	_, ok := c.Get(7)
	assert.False(t, ok)

	_, err := c.GetOrCreate(7, func() (int, error) { return 42, nil })
	require.NoError(t, err)

	v, ok := c.Get(7)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestCacheCreateErrorNotCached(t *testing.T) {
	c := NewCache[int](4, nil)
	boom := errors.New("device lost")

	_, err := c.GetOrCreate(1, func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	// The key is still creatable after a failure.
	v, err := c.GetOrCreate(1, func() (int, error) { return 5, nil })
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestCacheEviction(t *testing.T) {
	var destroyed []int
	c := NewCache[int](2, func(v int) { destroyed = append(destroyed, v) })

	mk := func(v int) func() (int, error) {
		return func() (int, error) { return v, nil }
	}

	_, err := c.GetOrCreate(1, mk(10))
	require.NoError(t, err)
	_, err = c.GetOrCreate(2, mk(20))
	require.NoError(t, err)

	// Refresh key 1 so key 2 is the LRU victim.
	_, ok := c.Get(1)
	require.True(t, ok)

	_, err = c.GetOrCreate(3, mk(30))
	require.NoError(t, err)

	assert.Equal(t, []int{20}, destroyed)
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get(2)
	assert.False(t, ok, "evicted key is gone")
	_, ok = c.Get(1)
	assert.True(t, ok, "refreshed key survived")
}

func TestCacheClear(t *testing.T) {
	var destroyed []int
	c := NewCache[int](8, func(v int) { destroyed = append(destroyed, v) })

	for i := range 3 {
		_, err := c.GetOrCreate(uint64(i), func() (int, error) { return i * 100, nil })
		require.NoError(t, err)
	}

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.ElementsMatch(t, []int{0, 100, 200}, destroyed)

	// Cache is usable after Clear.
	_, err := c.GetOrCreate(9, func() (int, error) { return 9, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestCacheStats(t *testing.T) {
	c := NewCache[int](2, nil)

	_, err := c.GetOrCreate(1, func() (int, error) { return 1, nil })
	require.NoError(t, err)
	_, err = c.GetOrCreate(1, func() (int, error) { return 1, nil })
	require.NoError(t, err)
	_, err = c.GetOrCreate(2, func() (int, error) { return 2, nil })
	require.NoError(t, err)
	_, err = c.GetOrCreate(3, func() (int, error) { return 3, nil })
	require.NoError(t, err)

	st := c.Stats()
	assert.Equal(t, 2, st.Len)
	assert.Equal(t, 2, st.Capacity)
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(3), st.Misses)
	assert.Equal(t, uint64(1), st.Evictions)
}

func TestCacheDefaultCapacity(t *testing.T) {
	c := NewCache[int](0, nil)
	assert.Equal(t, DefaultCacheCapacity, c.Capacity())

	c = NewCache[int](-1, nil)
	assert.Equal(t, DefaultCacheCapacity, c.Capacity())
}

func TestCacheConcurrentGetOrCreate(t *testing.T) {
	c := NewCache[int](16, nil)

	var created sync.Map
	var wg sync.WaitGroup
	const goroutines = 32
	results := make([]int, goroutines)

	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := uint64(i % 4)
			v, err := c.GetOrCreate(key, func() (int, error) {
				if _, loaded := created.LoadOrStore(key, true); loaded {
					t.Errorf("key %d created twice", key)
				}
				return int(key) * 10, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, c.Len())
	for i, v := range results {
		assert.Equal(t, (i%4)*10, v)
	}
}
