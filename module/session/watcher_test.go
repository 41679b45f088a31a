package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/storage"
)

func newWatcherHarness(t *testing.T) (*Watcher, *storage.Watched, *int32) {
	t.Helper()
	w := storage.NewWatched(storage.NewMemory())
	watcher := NewWatcher(w, 20*time.Millisecond)
	var fired int32
	watcher.OnLogout(func() { atomic.AddInt32(&fired, 1) })
	t.Cleanup(watcher.Stop)
	return watcher, w, &fired
}

func TestWatcherFiresOnTokenRemoval(t *testing.T) {
	watcher, store, fired := newWatcherHarness(t)
	require.NoError(t, store.Set(storage.KeyAccessToken, "tok"))
	watcher.Start()

	require.NoError(t, store.Remove(storage.KeyAccessToken))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(fired) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresInitialAbsence(t *testing.T) {
	watcher, store, fired := newWatcherHarness(t)
	watcher.Start()

	// Starting logged out is a fresh session, not a logout.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(fired))

	// Logging in and out afterwards fires exactly once.
	require.NoError(t, store.Set(storage.KeyAccessToken, "tok"))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, store.Remove(storage.KeyAccessToken))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(fired) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWatcherDoesNotRefire(t *testing.T) {
	watcher, store, fired := newWatcherHarness(t)
	require.NoError(t, store.Set(storage.KeyAccessToken, "tok"))
	watcher.Start()

	watcher.Logout()
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(fired) == 1
	}, time.Second, 10*time.Millisecond)

	// Repeated removals while already logged out stay silent.
	watcher.Logout()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(fired))
}

func TestWatcherToken(t *testing.T) {
	watcher, store, _ := newWatcherHarness(t)
	assert.Empty(t, watcher.Token())

	require.NoError(t, store.Set(storage.KeyAccessToken, "tok"))
	assert.Equal(t, "tok", watcher.Token())
}

func TestPanickingCallbackDoesNotStopOthers(t *testing.T) {
	w := storage.NewWatched(storage.NewMemory())
	watcher := NewWatcher(w, 20*time.Millisecond)
	var fired int32
	watcher.OnLogout(func() { panic("listener bug") })
	watcher.OnLogout(func() { atomic.AddInt32(&fired, 1) })
	t.Cleanup(watcher.Stop)

	require.NoError(t, w.Set(storage.KeyAccessToken, "tok"))
	watcher.Start()
	watcher.Logout()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 10*time.Millisecond)
}

func signTestToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestExpired(t *testing.T) {
	t.Run("future exp", func(t *testing.T) {
		assert.False(t, Expired(signTestToken(t, time.Now().Add(time.Hour))))
	})

	t.Run("past exp", func(t *testing.T) {
		assert.True(t, Expired(signTestToken(t, time.Now().Add(-time.Hour))))
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.True(t, Expired("not.a.jwt"))
	})

	t.Run("missing exp claim", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "1",
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		assert.True(t, Expired(tok))
	})
}
