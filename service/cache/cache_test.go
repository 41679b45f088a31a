package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFetchesOnce(t *testing.T) {
	c := New()
	var calls int32
	c.Register("k", func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "value", nil
	})

	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	// Second read is served from cache.
	_, err = c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetUnregistered(t *testing.T) {
	c := New()
	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnregistered)
}

func TestConcurrentGetsJoinOneFetch(t *testing.T) {
	c := New()
	var calls int32
	gate := make(chan struct{})
	c.Register("k", func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return 7, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), "k")
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchErrorNotCached(t *testing.T) {
	c := New()
	var calls int32
	c.Register("k", func(ctx context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("backend down")
		}
		return "recovered", nil
	})

	_, err := c.Get(context.Background(), "k")
	require.Error(t, err)

	v, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}

func TestSetDataPatchesAndNotifies(t *testing.T) {
	c := New()
	c.Register("k", func(ctx context.Context) (any, error) { return []int{1}, nil })
	_, err := c.Get(context.Background(), "k")
	require.NoError(t, err)

	ch, cancel := c.Subscribe("k")
	defer cancel()

	c.SetData("k", func(old any) any {
		list, _ := old.([]int)
		return append(list, 2)
	})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change notification after SetData")
	}

	v, ok := c.Data("k")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, v)
}

func TestSetDataOnEmptyKey(t *testing.T) {
	c := New()
	c.SetData("fresh", func(old any) any {
		assert.Nil(t, old)
		return "seeded"
	})
	v, ok := c.Data("fresh")
	require.True(t, ok)
	assert.Equal(t, "seeded", v)
}

func TestInvalidateRefreshesInBackground(t *testing.T) {
	c := New()
	var calls int32
	c.Register("k", func(ctx context.Context) (any, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	})
	_, err := c.Get(context.Background(), "k")
	require.NoError(t, err)

	ch, cancel := c.Subscribe("k")
	defer cancel()

	c.Invalidate("k")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("invalidate never refetched")
	}

	v, _ := c.Data("k")
	assert.Equal(t, 2, v)
}

func TestPollRefetches(t *testing.T) {
	c := New()
	var calls int32
	c.Register("k", func(ctx context.Context) (any, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	})

	stop := c.Poll("k", 20*time.Millisecond)
	defer stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 2
	}, time.Second, 10*time.Millisecond)

	stop()
	settled := atomic.LoadInt32(&calls)
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), settled+1, "poller kept running after stop")
}

func TestPollStopIdempotent(t *testing.T) {
	c := New()
	c.Register("k", func(ctx context.Context) (any, error) { return 1, nil })
	stop := c.Poll("k", time.Hour)
	stop()
	stop()
}

func TestClose(t *testing.T) {
	c := New()
	var calls int32
	c.Register("k", func(ctx context.Context) (any, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	})
	c.Poll("k", 20*time.Millisecond)
	c.Close()

	settled := atomic.LoadInt32(&calls)
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), settled+1)
}
