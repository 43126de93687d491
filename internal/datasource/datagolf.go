package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/models"
)

const dataGolfSource = "datagolf"

// maxPayloadBytes bounds a single upstream response
const maxPayloadBytes = 32 << 20

// Feed endpoints relative to the provider base URL
const (
	endpointSchedule    = "get-schedule"
	endpointField       = "field-updates"
	endpointSkills      = "preds/skill-decompositions"
	endpointPredictions = "preds/pre-tournament"
	endpointOutrights   = "betting-tools/outrights"
	endpointMatchups    = "betting-tools/matchups"
)

// DataGolfClient implements Provider against a DataGolf-style JSON feed
type DataGolfClient struct {
	httpClient *RateLimitedHTTPClient
	cache      *ResponseCache
	adapter    Adapter
	baseURL    string
	apiKey     string
	logger     *logrus.Entry
}

// NewDataGolfClient creates a new feed client
func NewDataGolfClient(cfg config.ProviderConfig, logger *logrus.Logger) *DataGolfClient {
	return &DataGolfClient{
		httpClient: NewRateLimitedHTTPClient(HTTPClientConfigFrom(dataGolfSource, cfg), logger),
		cache:      NewResponseCache(time.Duration(cfg.CacheTTLMinutes) * time.Minute),
		adapter:    Adapter{Source: dataGolfSource},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger.WithField("component", "datagolf_client"),
	}
}

// Name returns the name of the data source
func (c *DataGolfClient) Name() string {
	return dataGolfSource
}

// Schedule returns the tour's events
func (c *DataGolfClient) Schedule(ctx context.Context, tour string) ([]models.Event, error) {
	key := cacheKey(endpointSchedule, tour)
	if v, ok := c.cache.Get(key); ok {
		return v.([]models.Event), nil
	}

	payload, err := c.fetch(ctx, endpointSchedule, url.Values{"tour": {tour}})
	if err != nil {
		return nil, err
	}
	events, err := c.adapter.Events(payload, tour)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, events)
	return events, nil
}

// Field returns the entry list for the tour's current event
func (c *DataGolfClient) Field(ctx context.Context, tour string) (*models.Field, error) {
	key := cacheKey(endpointField, tour)
	if v, ok := c.cache.Get(key); ok {
		return v.(*models.Field), nil
	}

	payload, err := c.fetch(ctx, endpointField, url.Values{"tour": {tour}})
	if err != nil {
		return nil, err
	}
	field, err := c.adapter.Field(payload, tour)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, field)
	return field, nil
}

// SkillRatings returns per-player skill signals for the current event
func (c *DataGolfClient) SkillRatings(ctx context.Context, tour string) ([]models.SkillRating, error) {
	key := cacheKey(endpointSkills, tour)
	if v, ok := c.cache.Get(key); ok {
		return v.([]models.SkillRating), nil
	}

	payload, err := c.fetch(ctx, endpointSkills, url.Values{"tour": {tour}})
	if err != nil {
		return nil, err
	}
	ratings, err := c.adapter.SkillRatings(payload)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, ratings)
	return ratings, nil
}

// Predictions returns third-party market priors
func (c *DataGolfClient) Predictions(ctx context.Context, tour string) ([]models.PlayerPrediction, error) {
	key := cacheKey(endpointPredictions, tour)
	if v, ok := c.cache.Get(key); ok {
		return v.([]models.PlayerPrediction), nil
	}

	payload, err := c.fetch(ctx, endpointPredictions, url.Values{"tour": {tour}, "odds_format": {"percent"}})
	if err != nil {
		return nil, err
	}
	preds, err := c.adapter.Predictions(payload)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, preds)
	return preds, nil
}

// OutrightOdds returns the current outright board. Odds are never cached.
func (c *DataGolfClient) OutrightOdds(ctx context.Context, tour string, market models.Market) (*models.OddsBoard, error) {
	if market.IsGrouped() || !market.IsValid() {
		return nil, NewDataSourceError(dataGolfSource, ErrCodeUnsupported, string(market), ErrUnsupportedMarket)
	}

	payload, err := c.fetch(ctx, endpointOutrights, url.Values{
		"tour":        {tour},
		"market":      {string(market)},
		"odds_format": {"decimal"},
	})
	if err != nil {
		return nil, err
	}
	return c.adapter.Outrights(payload, tour, market)
}

// MatchupOdds returns the current board for a grouped market
func (c *DataGolfClient) MatchupOdds(ctx context.Context, tour string, market models.Market) (*models.OddsBoard, error) {
	if !market.IsGrouped() {
		return nil, NewDataSourceError(dataGolfSource, ErrCodeUnsupported, string(market), ErrUnsupportedMarket)
	}

	payload, err := c.fetch(ctx, endpointMatchups, url.Values{
		"tour":        {tour},
		"market":      {string(market)},
		"odds_format": {"decimal"},
	})
	if err != nil {
		return nil, err
	}
	return c.adapter.Matchups(payload, tour, market)
}

// Close releases idle connections
func (c *DataGolfClient) Close() error {
	return c.httpClient.Close()
}

func (c *DataGolfClient) fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("file_format", "json")
	logURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	started := time.Now()
	resp, err := c.httpClient.Get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, NewDataSourceError(dataGolfSource, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case http.StatusNotFound:
		return nil, NewDataSourceError(dataGolfSource, ErrCodeNotFound, endpoint+" not found", nil)
	case http.StatusTooManyRequests:
		return nil, NewDataSourceError(dataGolfSource, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewDataSourceError(dataGolfSource, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, NewDataSourceError(dataGolfSource, ErrCodeNetworkError, "failed to read response", err)
	}
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil, NewDataSourceError(dataGolfSource, ErrCodeInvalidData, endpoint+" returned an empty body", ErrNoData)
	}

	c.logger.WithFields(logrus.Fields{
		"url":         logURL,
		"bytes":       len(payload),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("Fetched upstream payload")

	return payload, nil
}
