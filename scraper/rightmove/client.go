package rightmove

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"rightmove-scraper/config"
	"rightmove-scraper/models"
	"rightmove-scraper/utils"
)

// Browser-like headers sent with every request. Accept-Encoding is left to the
// transport so gzip bodies are decoded transparently.
var browserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/62.0.3202.94 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9,lt;q=0.8,et;q=0.7,de;q=0.6",
}

// Client talks to the Rightmove typeahead and search APIs. It is safe for
// concurrent use; nothing in it changes after New returns.
type Client struct {
	origin         string
	http           *http.Client
	logger         *utils.Logger
	retry          *utils.RetryConfig
	params         config.SearchParams
	pageSize       int
	maxResults     int
	maxConcurrency int
}

// NewHTTPClient returns the shared HTTP client used for every API call.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// New creates a ready-to-use Rightmove Client.
func New(cfg *config.Config, httpClient *http.Client, logger *utils.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.RequestTimeout)
	}
	return &Client{
		origin:         cfg.SiteOrigin,
		http:           httpClient,
		logger:         logger,
		params:         cfg.Search,
		pageSize:       cfg.PageSize,
		maxResults:     cfg.MaxResults,
		maxConcurrency: cfg.MaxConcurrency,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			Logger:      logger,
			Retryable:   Retryable,
		},
	}
}

// get issues a GET with the browser headers and returns the body of a 2xx
// response. Transport failures, 429 and 5xx are retried per the retry config.
func (c *Client) get(ctx context.Context, op, u string) ([]byte, error) {
	var body []byte
	err := c.retry.Do(ctx, op, func() error {
		b, err := c.doGET(ctx, u)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	return body, err
}

func (c *Client) doGET(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.StatusError{Code: resp.StatusCode, URL: u}
	}
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

// Retryable reports whether a failed request may succeed if repeated.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *models.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	return true
}
