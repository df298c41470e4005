package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n int }

func TestCreateRejectsDuplicate(t *testing.T) {
	st := New[string, counter]()
	require.NoError(t, st.Create("room", &counter{}))
	assert.ErrorIs(t, st.Create("room", &counter{}), ErrExists)
	assert.Equal(t, 1, st.Len())
}

func TestGetAndRemove(t *testing.T) {
	st := New[string, counter]()
	c := &counter{n: 3}
	require.NoError(t, st.Create("a", c))

	got, ok := st.Get("a")
	require.True(t, ok)
	assert.Same(t, c, got)

	st.Remove("a")
	_, ok = st.Get("a")
	assert.False(t, ok)
	assert.ErrorIs(t, st.WithLock("a", func(*counter) error { return nil }), ErrNotFound)

	// Re-creating after removal is allowed.
	require.NoError(t, st.Create("a", &counter{}))
}

func TestWithLockSerializesMutations(t *testing.T) {
	st := New[string, counter]()
	require.NoError(t, st.Create("a", &counter{}))

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.WithLock("a", func(c *counter) error {
				v := c.n
				time.Sleep(time.Microsecond)
				c.n = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	require.NoError(t, st.WithLock("a", func(c *counter) error {
		assert.Equal(t, 200, c.n)
		return nil
	}))
}

func TestWaiterSeesRemoval(t *testing.T) {
	st := New[string, counter]()
	require.NoError(t, st.Create("a", &counter{}))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_ = st.WithLock("a", func(*counter) error {
			close(entered)
			<-release
			st.Remove("a")
			return nil
		})
	}()
	<-entered

	go func() {
		done <- st.WithLock("a", func(c *counter) error {
			c.n = 99
			return nil
		})
	}()
	close(release)

	assert.ErrorIs(t, <-done, ErrNotFound)
}

func TestWithLockPassesError(t *testing.T) {
	st := New[int, counter]()
	require.NoError(t, st.Create(1, &counter{}))
	boom := errors.New("boom")
	assert.ErrorIs(t, st.WithLock(1, func(*counter) error { return boom }), boom)
}

func TestLocksArePerSession(t *testing.T) {
	st := New[string, counter]()
	require.NoError(t, st.Create("a", &counter{}))
	require.NoError(t, st.Create("b", &counter{}))

	hold := make(chan struct{})
	go func() {
		_ = st.WithLock("a", func(*counter) error {
			<-hold
			return nil
		})
	}()
	defer close(hold)

	done := make(chan struct{})
	go func() {
		_ = st.WithLock("b", func(c *counter) error { c.n++; return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	assert.ElementsMatch(t, []string{"a", "b"}, st.Keys())
}
