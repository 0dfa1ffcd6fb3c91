// Package bukza talks to the bukza booking service: resource catalogs per gym
// and hourly availability per court
package bukza

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/teoh/bintangbuddy/internal/config"
	"github.com/teoh/bintangbuddy/internal/limiter"
	"github.com/teoh/bintangbuddy/internal/models"
	"github.com/teoh/bintangbuddy/internal/timecodec"
)

// maxErrorBody bounds how much of an error response ends up in error messages
const maxErrorBody = 512

// Client handles interactions with the booking service API
type Client struct {
	cfg        config.ClientConfig
	httpClient *http.Client
	tokens     *TokenManager
	limiter    limiter.Limiter
	logger     *zap.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenManager shares a token manager between clients
func WithTokenManager(tm *TokenManager) Option {
	return func(c *Client) { c.tokens = tm }
}

// WithLimiter makes every request wait on l first
func WithLimiter(l limiter.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewHTTPClient returns an HTTP client whose transport is traced
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// NewClient creates a new booking service client. Without WithTokenManager the
// client uses cfg.Token, or fetches one from cfg.AuthURL when it is empty.
func NewClient(cfg config.ClientConfig, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: NewHTTPClient(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokens == nil {
		c.tokens = NewTokenManager(c.httpClient, cfg, c.logger)
	}
	return c
}

// FetchResources lists the courts of one gym. Entries without a name or a
// numeric resource id are skipped.
func (c *Client) FetchResources(ctx context.Context, locationID string) ([]models.Resource, error) {
	endpoint, err := url.JoinPath(c.cfg.CatalogBaseURL, c.cfg.MerchantID, locationID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid catalog url: %v", ErrCatalogUnavailable, err)
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Error("bukza.catalog.fetch_failed", zap.String("location_id", locationID), zap.Error(err))
		return nil, fmt.Errorf("%w: location %s: %w", ErrCatalogUnavailable, locationID, err)
	}

	var catalog catalogResponse
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, fmt.Errorf("%w: location %s: failed to parse response: %v", ErrCatalogUnavailable, locationID, err)
	}

	resources := make([]models.Resource, 0, len(catalog.Items))
	for _, raw := range catalog.Items {
		var item catalogItem
		if err := json.Unmarshal(raw, &item); err != nil {
			c.logger.Debug("bukza.catalog.skip_entry", zap.String("location_id", locationID), zap.Error(err))
			continue
		}
		if item.Name == nil || item.ResourceID == nil {
			continue
		}
		resources = append(resources, models.Resource{Name: *item.Name, ID: *item.ResourceID})
	}

	c.logger.Debug("bukza.catalog.fetch_success",
		zap.String("location_id", locationID),
		zap.Int("resources", len(resources)))

	return resources, nil
}

// FetchSchedule returns the hourly levels of one court for the day starting at
// date, which should be local midnight of the requested day
func (c *Client) FetchSchedule(ctx context.Context, resourceID int64, date time.Time) ([]models.TimeSlot, error) {
	payload, err := json.Marshal(availabilityRequest{
		ReservationID:        nil,
		ResourceIDs:          []int64{resourceID},
		Date:                 timecodec.FormatRemoteInstant(date),
		DayCount:             1,
		IncludeHours:         true,
		IncludeRentalPoints:  true,
		IncludeWorkRuleNames: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal availability request: %w", err)
	}

	id := strconv.FormatInt(resourceID, 10)
	body, err := c.do(ctx, http.MethodPost, c.cfg.ScheduleURL, payload)
	if err != nil {
		c.logger.Error("bukza.schedule.fetch_failed", zap.String("resource_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: resource %s: %w", ErrScheduleUnavailable, id, err)
	}

	var availability availabilityResponse
	if err := json.Unmarshal(body, &availability); err != nil {
		return nil, fmt.Errorf("%w: resource %s: failed to parse response: %v", ErrScheduleUnavailable, id, err)
	}
	if len(availability.Resources) == 0 {
		return nil, fmt.Errorf("%w: resource %s: response has no resources", ErrScheduleUnavailable, id)
	}
	if len(availability.Resources[0].Days) == 0 {
		return nil, fmt.Errorf("%w: resource %s: response has no days", ErrScheduleUnavailable, id)
	}

	levels := availability.Resources[0].Days[0].Levels
	slots := make([]models.TimeSlot, 0, len(levels))
	for i, level := range levels {
		if level.StartDate == nil {
			return nil, fmt.Errorf("resource %s level %d: %w: missing startDate", id, i, timecodec.ErrMalformedTimestamp)
		}
		start, err := timecodec.ParseRemoteInstant(*level.StartDate)
		if err != nil {
			return nil, fmt.Errorf("resource %s level %d: %w", id, i, err)
		}
		slots = append(slots, models.TimeSlot{Start: start, Value: level.Value})
	}

	return slots, nil
}

// do sends one request with the service headers and returns the body of a 2xx
// response. A 401 on a fetched token is answered by fetching a new token and
// sending the request once more.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	status, body, err := c.send(ctx, method, endpoint, payload, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && c.tokens.Invalidate(token) {
		c.logger.Info("bukza.token.rejected", zap.String("endpoint", endpoint))
		if token, err = c.tokens.Token(ctx); err != nil {
			return nil, err
		}
		if status, body, err = c.send(ctx, method, endpoint, payload, token); err != nil {
			return nil, err
		}
	}

	if status < 200 || status > 299 {
		return nil, fmt.Errorf("bukza API error (status %d): %s", status, truncate(body))
	}

	return body, nil
}

// send performs a single HTTP exchange
func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, token string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req.Header, c.cfg.MerchantID, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, body, nil
}

// setHeaders attaches the fixed client headers and the bearer token
func setHeaders(h http.Header, merchantID, token string) {
	h.Set("x-bukza-user-id", merchantID)
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json;charset=UTF-8")
	h.Set("X-Requested-With", "XMLHttpRequest")
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
