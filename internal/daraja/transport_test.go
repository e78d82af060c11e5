package daraja

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_DecodesJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"ResponseCode":"0","ResponseDescription":"ok"}`))
	}))
	defer srv.Close()

	tr := NewTransport(nil)
	resp, err := tr.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   map[string]string{"hello": "there"},
	})
	require.NoError(t, err)

	var out struct {
		ResponseCode string `json:"ResponseCode"`
	}
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, "0", out.ResponseCode)
}

func TestTransport_APIErrorCarriesGatewayMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errorMessage":"Invalid Access Token"}`))
	}))
	defer srv.Close()

	tr := NewTransport(nil)
	_, err := tr.Do(context.Background(), Request{Method: http.MethodPost, URL: srv.URL})
	require.Error(t, err)

	gwErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrCodeAPI, gwErr.Code)
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	assert.Contains(t, gwErr.Message, "Invalid Access Token")
	assert.Contains(t, gwErr.RawResponse, "errorMessage")
	assert.False(t, gwErr.IsRetryable())
}

func TestTransport_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := NewTransport(nil)
	resp, err := tr.Do(context.Background(), Request{
		Method:     http.MethodPost,
		URL:        srv.URL,
		Retries:    3,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTransport_DoesNotRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tr := NewTransport(nil)
	_, err := tr.Do(context.Background(), Request{
		Method:     http.MethodPost,
		URL:        srv.URL,
		Retries:    3,
		RetryDelay: time.Millisecond,
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransport_ExhaustedRetriesStayRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewTransport(nil)
	_, err := tr.Do(context.Background(), Request{
		Method:     http.MethodPost,
		URL:        srv.URL,
		Retries:    2,
		RetryDelay: time.Millisecond,
	})
	require.Error(t, err)

	// Exhausting retries means the outcome is unknown, not failed; the
	// surfaced error must still read as transient.
	gwErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrCodeRequestFailed, gwErr.Code)
	assert.True(t, gwErr.IsRetryable())
	assert.Contains(t, err.Error(), "maximum retries exceeded")
}

func TestTransport_ExhaustedNetworkRetriesStayRetryable(t *testing.T) {
	tr := NewTransport(nil)
	_, err := tr.Do(context.Background(), Request{
		Method:     http.MethodPost,
		URL:        "http://127.0.0.1:1", // nothing listens here
		Retries:    1,
		RetryDelay: time.Millisecond,
	})
	require.Error(t, err)

	gwErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrCodeRequestFailed, gwErr.Code)
	assert.True(t, gwErr.IsRetryable())
	assert.True(t, IsErrorCode(gwErr.Err, ErrCodeNetwork))
}

func TestTransport_ExhaustedTimeoutRetriesStayRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	tr := NewTransport(nil)
	_, err := tr.Do(context.Background(), Request{
		Method:     http.MethodPost,
		URL:        srv.URL,
		Timeout:    20 * time.Millisecond,
		Retries:    1,
		RetryDelay: time.Millisecond,
	})
	require.Error(t, err)

	gwErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrCodeRequestFailed, gwErr.Code)
	assert.True(t, gwErr.IsRetryable())
	assert.True(t, IsErrorCode(gwErr.Err, ErrCodeTimeout))
}

func TestTransport_TimeoutYieldsTimeoutCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	tr := NewTransport(nil)
	_, err := tr.Do(context.Background(), Request{
		Method:  http.MethodGet,
		URL:     srv.URL,
		Timeout: 20 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeTimeout))
}

func TestTransport_NetworkError(t *testing.T) {
	tr := NewTransport(nil)
	_, err := tr.Do(context.Background(), Request{
		Method: http.MethodGet,
		URL:    "http://127.0.0.1:1", // nothing listens here
	})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeNetwork))
}

func TestTransport_RespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	tr := NewTransport(nil)
	_, err := tr.Do(ctx, Request{
		Method:     http.MethodGet,
		URL:        srv.URL,
		Retries:    10,
		RetryDelay: 5 * time.Second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
