package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/page-archiver/internal/fetcher"
	"github.com/rohmanhakim/page-archiver/internal/metadata"
	"github.com/rohmanhakim/page-archiver/pkg/retry"
	"github.com/rohmanhakim/page-archiver/pkg/timeutil"
)

func testRetryParam(maxAttempts int) retry.RetryParam {
	return retry.NewRetryParam(
		0,
		1,
		maxAttempts,
		timeutil.NewBackoffParam(time.Millisecond, 2.0, 50*time.Millisecond),
	)
}

func newFetcher(timeout time.Duration, maxSize int64) fetcher.HttpFetcher {
	return fetcher.NewHttpFetcher(&metadata.NoopSink{}, nil, timeout, maxSize)
}

func serverURL(t *testing.T, srv *httptest.Server) url.URL {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return *u
}

func TestFetchResourceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	f := newFetcher(time.Second, 0)
	result := f.FetchResource(
		context.Background(),
		fetcher.NewFetchParam(serverURL(t, srv), "test-agent"),
		testRetryParam(3),
	)

	require.NoError(t, result.Err())
	assert.Equal(t, 1, result.Attempts())
	value := result.Value()
	assert.Equal(t, []byte("png-bytes"), value.Body())
	assert.Equal(t, http.StatusOK, value.Code())
	assert.Equal(t, uint64(len("png-bytes")), value.SizeByte())
}

func TestFetchResourceSendsUserAgent(t *testing.T) {
	var gotAgent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent.Store(r.Header.Get("User-Agent"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newFetcher(time.Second, 0)
	result := f.FetchResource(
		context.Background(),
		fetcher.NewFetchParam(serverURL(t, srv), "page-archiver/1.0"),
		testRetryParam(1),
	)

	require.NoError(t, result.Err())
	assert.Equal(t, "page-archiver/1.0", gotAgent.Load())
}

func TestFetchResourceStatusErrorsAreFinal(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "404 not retried", status: http.StatusNotFound},
		{name: "403 not retried", status: http.StatusForbidden},
		{name: "500 not retried", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int64
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			f := newFetcher(time.Second, 0)
			result := f.FetchResource(
				context.Background(),
				fetcher.NewFetchParam(serverURL(t, srv), "test-agent"),
				testRetryParam(3),
			)

			require.Error(t, result.Err())
			assert.Equal(t, int64(1), calls.Load(), "server rejection must not be retried")
			assert.Equal(t, 1, result.Attempts())

			var fetchErr *fetcher.FetchError
			require.True(t, errors.As(result.Err(), &fetchErr))
			assert.Equal(t, fetcher.ErrCauseHTTPStatus, fetchErr.Cause)
			assert.Equal(t, tt.status, fetchErr.StatusCode)
		})
	}
}

func TestFetchResourceRetriesConnectionError(t *testing.T) {
	// Server closed before the fetch: every attempt fails at transport level
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := serverURL(t, srv)
	srv.Close()

	f := newFetcher(time.Second, 0)
	result := f.FetchResource(
		context.Background(),
		fetcher.NewFetchParam(target, "test-agent"),
		testRetryParam(3),
	)

	require.Error(t, result.Err())
	assert.Equal(t, 3, result.Attempts())

	var retryErr *retry.RetryError
	require.True(t, errors.As(result.Err(), &retryErr))
	assert.Equal(t, retry.ErrExhaustedAttempts, retryErr.Cause)
}

func TestFetchResourceTransientThenSuccess(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			// Drop the connection so the client sees a transport error
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte("finally"))
	}))
	defer srv.Close()

	f := newFetcher(time.Second, 0)
	result := f.FetchResource(
		context.Background(),
		fetcher.NewFetchParam(serverURL(t, srv), "test-agent"),
		testRetryParam(5),
	)

	require.NoError(t, result.Err())
	assert.Equal(t, 3, result.Attempts())
	value := result.Value()
	assert.Equal(t, []byte("finally"), value.Body())
}

func TestFetchResourceTimeoutIsRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := newFetcher(20*time.Millisecond, 0)
	result := f.FetchResource(
		context.Background(),
		fetcher.NewFetchParam(serverURL(t, srv), "test-agent"),
		testRetryParam(2),
	)

	require.Error(t, result.Err())
	assert.Equal(t, int64(2), calls.Load(), "timeouts are transient and retried")
}

func TestFetchResourceBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 1024))
	}))
	defer srv.Close()

	f := newFetcher(time.Second, 100)
	result := f.FetchResource(
		context.Background(),
		fetcher.NewFetchParam(serverURL(t, srv), "test-agent"),
		testRetryParam(3),
	)

	require.Error(t, result.Err())
	assert.Equal(t, 1, result.Attempts(), "oversized body is a final failure")

	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(result.Err(), &fetchErr))
	assert.Equal(t, fetcher.ErrCauseBodyTooLarge, fetchErr.Cause)
}

func TestFetchDocumentRejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := newFetcher(time.Second, 0)
	result := f.FetchDocument(
		context.Background(),
		fetcher.NewFetchParam(serverURL(t, srv), "test-agent"),
		testRetryParam(3),
	)

	require.Error(t, result.Err())
	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(result.Err(), &fetchErr))
	assert.Equal(t, fetcher.ErrCauseContentTypeInvalid, fetchErr.Cause)
}

func TestFetchDocumentAcceptsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer srv.Close()

	f := newFetcher(time.Second, 0)
	result := f.FetchDocument(
		context.Background(),
		fetcher.NewFetchParam(serverURL(t, srv), "test-agent"),
		testRetryParam(1),
	)

	require.NoError(t, result.Err())
	value := result.Value()
	assert.Contains(t, string(value.Body()), "<body>hi</body>")
}
