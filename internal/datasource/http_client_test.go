package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fairway-edge/internal/logger"
)

func testHTTPClientConfig() HTTPClientConfig {
	cfg := DefaultHTTPClientConfig()
	cfg.Name = "test"
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 2
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	cfg.RateLimit = 1000
	cfg.BreakerMinRequests = 100
	return cfg
}

func TestHTTPClientClassifiesPersistentServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(testHTTPClientConfig(), logger.Discard())
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, ErrCodeServerError, ErrorCode(err))
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "maintenance")
	assert.Equal(t, int32(3), calls.Load(), "retried before giving up")
}

func TestHTTPClientRecoversAfterRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(testHTTPClientConfig(), logger.Discard())
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPClientReturnsPersistentRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewRateLimitedHTTPClient(testHTTPClientConfig(), logger.Discard())
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
