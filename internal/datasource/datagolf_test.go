package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/logger"
	"github.com/yourusername/fairway-edge/internal/models"
)

func testProviderConfig(baseURL string) config.ProviderConfig {
	cfg := config.Default().Provider
	cfg.BaseURL = baseURL
	cfg.APIKey = "secret"
	cfg.MaxRetries = 0
	cfg.RequestsPerSecond = 1000
	cfg.TimeoutSeconds = 5
	return cfg
}

func TestDataGolfClientSchedule(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/get-schedule", r.URL.Path)
		assert.Equal(t, "pga", r.URL.Query().Get("tour"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "json", r.URL.Query().Get("file_format"))
		w.Write([]byte(`{"schedule":[{"event_id":14,"event_name":"The Masters","start_date":"2026-04-09"}]}`))
	}))
	defer server.Close()

	client := NewDataGolfClient(testProviderConfig(server.URL), logger.Discard())
	defer client.Close()

	events, err := client.Schedule(context.Background(), "pga")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "pga-14", events[0].ID)

	_, err = client.Schedule(context.Background(), "pga")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second call is served from cache")

	hits, misses := client.cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestDataGolfClientOddsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/betting-tools/outrights", r.URL.Path)
		assert.Equal(t, "top_10", r.URL.Query().Get("market"))
		w.Write([]byte(`{"odds":[{"dg_id":1,"player_name":"A","pinnacle":"3.5"}]}`))
	}))
	defer server.Close()

	client := NewDataGolfClient(testProviderConfig(server.URL), logger.Discard())

	for i := 0; i < 2; i++ {
		board, err := client.OutrightOdds(context.Background(), "pga", models.MarketTop10)
		require.NoError(t, err)
		require.Len(t, board.Offers, 1)
		assert.NotEmpty(t, board.Payload)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestDataGolfClientMatchupEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/betting-tools/matchups", r.URL.Path)
		assert.Equal(t, "3_balls", r.URL.Query().Get("market"))
		w.Write([]byte(`{"match_list":[{"p1_player_name":"A","p2_player_name":"B","p3_player_name":"C",
			"odds":{"bet365":{"p1":"2.5","p2":"2.8","p3":"3.1"}}}]}`))
	}))
	defer server.Close()

	client := NewDataGolfClient(testProviderConfig(server.URL), logger.Discard())

	board, err := client.MatchupOdds(context.Background(), "pga", models.MarketThreeBall)
	require.NoError(t, err)
	assert.Len(t, board.Offers, 3)
	assert.Equal(t, "a~b~c", board.Offers[0].GroupID)
}

func TestDataGolfClientRejectsWrongEndpointMarket(t *testing.T) {
	client := NewDataGolfClient(testProviderConfig("http://127.0.0.1:1"), logger.Discard())

	_, err := client.OutrightOdds(context.Background(), "pga", models.MarketMatchup)
	assert.ErrorIs(t, err, ErrUnsupportedMarket)

	_, err = client.MatchupOdds(context.Background(), "pga", models.MarketWin)
	assert.ErrorIs(t, err, ErrUnsupportedMarket)
}

func TestDataGolfClientStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, ErrCodeAuthenticationFailed},
		{http.StatusForbidden, ErrCodeAuthenticationFailed},
		{http.StatusNotFound, ErrCodeNotFound},
		{http.StatusTeapot, ErrCodeServerError},
		{http.StatusServiceUnavailable, ErrCodeServerError},
		{http.StatusTooManyRequests, ErrCodeRateLimitExceeded},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewDataGolfClient(testProviderConfig(server.URL), logger.Discard())
			_, err := client.Field(context.Background(), "pga")
			require.Error(t, err)
			assert.Equal(t, tt.code, ErrorCode(err))
		})
	}
}

func TestDataGolfClientEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewDataGolfClient(testProviderConfig(server.URL), logger.Discard())
	_, err := client.Predictions(context.Background(), "pga")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testProviderConfig(server.URL)
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.CacheTTLMinutes = 0
	client := NewDataGolfClient(cfg, logger.Discard())

	for i := 0; i < 2; i++ {
		_, err := client.Field(context.Background(), "pga")
		require.Error(t, err)
	}

	_, err := client.Field(context.Background(), "pga")
	require.Error(t, err)
	assert.Equal(t, ErrCodeCircuitOpen, ErrorCode(err))
	assert.Equal(t, int32(2), calls.Load(), "open breaker short-circuits the request")
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(testProviderConfig("http://localhost"), logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "datagolf", p.Name())

	cfg := testProviderConfig("http://localhost")
	cfg.Name = "other"
	_, err = NewProvider(cfg, logger.Discard())
	assert.Error(t, err)
}
