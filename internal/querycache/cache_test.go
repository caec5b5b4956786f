package querycache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPrefix(t *testing.T) {
	k := K("payments-list", "pending", "")
	assert.True(t, k.HasPrefix(K("payments-list")))
	assert.True(t, k.HasPrefix(K()))
	assert.False(t, k.HasPrefix(K("payments")))
	assert.False(t, K("payments").HasPrefix(k))
}

func TestSnapshotKeepsValuesBeforeChange(t *testing.T) {
	c := New(0)
	c.Set(K("payments", "1"), "a")
	c.Set(K("payments", "2"), "b")
	c.Set(K("profile"), "p")

	snap := c.Snapshot(K("payments"))
	c.Update(K("payments", "1"), func(any) any { return "changed" })
	c.Set(K("payments", "3"), "new")

	v, ok := SnapshotAs[string](snap, K("payments", "1"))
	require.True(t, ok)
	assert.Equal(t, "a", v)
	_, ok = snap.Get(K("payments", "3"))
	assert.False(t, ok, "entries added after the snapshot are not in it")
	_, ok = snap.Get(K("profile"))
	assert.False(t, ok, "other prefixes are not captured")
	_, ok = SnapshotAs[int](snap, K("payments", "2"))
	assert.False(t, ok)

	cur, _ := c.Get(K("payments", "1"))
	assert.Equal(t, "changed", cur)
}

func TestUpdateMissingKey(t *testing.T) {
	c := New(0)
	assert.False(t, c.Update(K("nope"), func(any) any { return 1 }))
	_, ok := c.Get(K("nope"))
	assert.False(t, ok)
}

func TestUpdatePrefix(t *testing.T) {
	c := New(0)
	c.Set(K("list", "a"), 1)
	c.Set(K("list", "b"), 2)
	c.Set(K("other"), 3)

	n := c.UpdatePrefix(K("list"), func(_ Key, old any) (any, bool) {
		if old.(int) == 2 {
			return 20, true
		}
		return old, false
	})
	assert.Equal(t, 1, n)
	v, _ := c.Get(K("list", "b"))
	assert.Equal(t, 20, v)
	assert.Len(t, c.Keys(K("list")), 2)
}

func TestFetchReusesFreshAndRefetchesInvalidated(t *testing.T) {
	c := New(0)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, err := FetchAs(ctx, c, K("fees", "1"), load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, _ = FetchAs(ctx, c, K("fees", "1"), load)
	assert.Equal(t, 1, v)

	c.Invalidate(K("fees"))
	got, ok := GetAs[int](c, K("fees", "1"))
	assert.True(t, ok, "invalidated values stay readable")
	assert.Equal(t, 1, got)

	v, _ = FetchAs(ctx, c, K("fees", "1"), load)
	assert.Equal(t, 2, v)
}

func TestFetchStaleAfter(t *testing.T) {
	c := New(time.Minute)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	calls := 0
	load := func(context.Context) (any, error) { calls++; return calls, nil }

	_, _ = c.Fetch(context.Background(), K("x"), load)
	now = now.Add(30 * time.Second)
	_, _ = c.Fetch(context.Background(), K("x"), load)
	assert.Equal(t, 1, calls)
	now = now.Add(time.Minute)
	_, _ = c.Fetch(context.Background(), K("x"), load)
	assert.Equal(t, 2, calls)
}

func TestFetchErrorKeepsOldValue(t *testing.T) {
	c := New(0)
	c.Set(K("x"), "old")
	c.Invalidate(K("x"))
	_, err := c.Fetch(context.Background(), K("x"), func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	v, _ := c.Get(K("x"))
	assert.Equal(t, "old", v)
}

func TestCancelDiscardsInFlightFetch(t *testing.T) {
	c := New(0)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := c.Fetch(context.Background(), K("payments", "1"), func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "server", nil
		})
		done <- err
	}()

	<-started
	c.Cancel(K("payments"))
	c.Set(K("payments", "1"), "optimistic")
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	v, _ := c.Get(K("payments", "1"))
	assert.Equal(t, "optimistic", v)
}

func TestNewerFetchSupersedesOlder(t *testing.T) {
	c := New(0)
	c.Set(K("k"), "seed")
	c.Invalidate(K("k"))

	started := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	var oldErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, oldErr = c.Fetch(context.Background(), K("k"), func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "stale", nil
		})
	}()
	<-started

	v, err := c.Fetch(context.Background(), K("k"), func(context.Context) (any, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	close(release)
	wg.Wait()
	assert.ErrorIs(t, oldErr, ErrSuperseded)
	v, _ = c.Get(K("k"))
	assert.Equal(t, "fresh", v)
}

func TestSubscribe(t *testing.T) {
	c := New(0)
	var got []string
	unsubscribe := c.Subscribe(K("payments"), func(k Key) { got = append(got, k.String()) })

	c.Set(K("payments", "1"), 1)
	c.Set(K("profile"), 2)
	c.Invalidate(K("payments"))
	unsubscribe()
	c.Set(K("payments", "2"), 3)

	assert.Equal(t, []string{K("payments", "1").String(), K("payments", "1").String()}, got)
}
