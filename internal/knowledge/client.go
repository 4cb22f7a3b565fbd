// Package knowledge fetches topic summaries from the Wikipedia REST API.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ashureev/glossy/internal/intent"
)

const (
	// DefaultBaseURL is the English Wikipedia REST endpoint.
	DefaultBaseURL = "https://en.wikipedia.org/api/rest_v1"
	defaultTimeout = 5 * time.Second
	maxBodySize    = 1 << 20 // 1MB
	userAgent      = "glossy-assistant/1.0"
)

var errInvalidPayload = errors.New("invalid summary payload")

// Config holds client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements intent.KnowledgeLookup against the page summary endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ intent.KnowledgeLookup = (*Client)(nil)

// NewClient creates a client. Zero config values fall back to defaults.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse knowledge base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("knowledge base url must be http(s), got %q", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}, nil
}

// FetchSummary requests the summary for query. A non-2xx status is reported
// as a Summary with OK=false and no error; transport and decoding failures
// are returned as errors.
func (c *Client) FetchSummary(ctx context.Context, query string) (intent.Summary, error) {
	endpoint := c.baseURL + "/page/summary/" + url.PathEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return intent.Summary{}, fmt.Errorf("build summary request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return intent.Summary{}, fmt.Errorf("fetch summary: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close summary body", "error", closeErr)
		}
	}()

	c.logger.Debug("knowledge summary fetched",
		"query", query,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return intent.Summary{OK: false}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return intent.Summary{}, fmt.Errorf("read summary body: %w", err)
	}
	return parseSummary(body)
}

func parseSummary(body []byte) (intent.Summary, error) {
	if !gjson.ValidBytes(body) {
		return intent.Summary{}, errInvalidPayload
	}
	fields := gjson.GetManyBytes(body, "type", "extract", "content_urls.desktop.page")
	return intent.Summary{
		OK:      true,
		Type:    fields[0].String(),
		Extract: fields[1].String(),
		PageURL: fields[2].String(),
	}, nil
}
