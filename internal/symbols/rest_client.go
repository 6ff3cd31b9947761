package symbols

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"taxlot-matcher-go/internal/config"
)

// renameResponse is one entry of the rename feed.
type renameResponse struct {
	Old  string `json:"old"`
	New  string `json:"new"`
	Date string `json:"date"`
}

// RestClient fetches rename history from an HTTP feed.
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff time.Duration
}

// ensure RestClient implements Source
var _ Source = (*RestClient)(nil)

// NewRestClient creates a client for the feed configured in cfg.
func NewRestClient(cfg *config.Renames, logger *zap.Logger) *RestClient {
	client := resty.New().SetBaseURL(cfg.URL)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &RestClient{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		backoff: time.Second,
	}
}

// Fetch implements Source.
func (c *RestClient) Fetch(ctx context.Context) ([]Entry, error) {
	var rows []renameResponse
	req := c.client.R().
		SetContext(ctx).
		SetResult(&rows).
		SetHeader("Accept", "application/json")

	if _, err := c.doRequest(ctx, http.MethodGet, "/renames", req); err != nil {
		return nil, fmt.Errorf("failed to get renames: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		at, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			c.logger.Warn("Skipping rename with bad date", zap.String("old", r.Old), zap.String("date", r.Date))
			continue
		}
		entries = append(entries, Entry{Old: r.Old, New: r.New, Date: at})
	}
	c.logger.Info("Fetched rename history", zap.Int("count", len(entries)))
	return entries, nil
}

// doRequest executes req with rate limiting, retrying throttled and server errors.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		// Network errors are always retried; HTTP errors only when throttled or server side.
		var retryAfter time.Duration
		if err == nil {
			status := resp.StatusCode()
			if status != http.StatusTooManyRequests && status < 500 {
				return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
			}
			if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
			err = fmt.Errorf("status %s", resp.Status())
		}

		if retryAfter == 0 {
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
