package daraja

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager(t *testing.T, handler http.HandlerFunc) (*TokenManager, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tm := NewTokenManager("key", "secret", Sandbox, NewTransport(nil))
	tm.baseURL = srv.URL
	return tm, srv
}

func TestTokenManager_FetchesWithBasicAuth(t *testing.T) {
	var gotAuth string
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
	})

	token, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
	assert.Equal(t, expected, gotAuth)
}

func TestTokenManager_CachesWithinBuffer(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
	})

	for i := 0; i < 3; i++ {
		_, err := tm.Token(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenManager_RefetchesAfterExpiry(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
	})

	now := time.Now()
	tm.now = func() time.Time { return now }

	_, err := tm.Token(context.Background())
	require.NoError(t, err)

	// Jump to 30s before expiry, inside the 60s buffer: must refetch.
	tm.now = func() time.Time { return now.Add(3599*time.Second - 30*time.Second) }

	_, err = tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenManager_ClearCacheForcesRefetch(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
	})

	_, err := tm.Token(context.Background())
	require.NoError(t, err)

	tm.ClearCache()

	_, err = tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenManager_MissingAccessTokenIsAuthFailed(t *testing.T) {
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"requestId":"x","errorCode":"999991"}`))
	})

	_, err := tm.Token(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeAuthFailed))
}

func TestTokenManager_DefaultLifetimeWhenExpiresAbsent(t *testing.T) {
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok-1"}`))
	})

	now := time.Now()
	tm.now = func() time.Time { return now }

	_, err := tm.Token(context.Background())
	require.NoError(t, err)

	tm.mu.Lock()
	expiry := tm.expiry
	tm.mu.Unlock()
	assert.Equal(t, now.Add(defaultTokenLifetime), expiry)
}
