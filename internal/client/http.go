package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openshelf/bookharvest/internal/catalog"
)

// Config holds HTTP client parameters.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPClient implements Enricher and CatalogQuerier against the enrichment
// API over HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewHTTPClient builds an HTTPClient. The base URL must include the scheme.
func NewHTTPClient(cfg Config, logger *zap.Logger) (*HTTPClient, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Harvest issues one enrichment call. Non-2xx responses are returned as
// *APIError with the decoded error field, never retried here.
func (c *HTTPClient) Harvest(ctx context.Context, req HarvestRequest) (HarvestResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return HarvestResult{}, fmt.Errorf("marshal harvest request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/v1/enrich", bytes.NewReader(body))
	if err != nil {
		return HarvestResult{}, fmt.Errorf("build harvest request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return HarvestResult{}, fmt.Errorf("harvest call: %w", err)
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return HarvestResult{}, c.decodeError(resp)
	}

	var result HarvestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return HarvestResult{}, fmt.Errorf("decode harvest response: %w", err)
	}
	return result, nil
}

// Query pages the remote catalog by tier.
func (c *HTTPClient) Query(ctx context.Context, tier catalog.Tier, offset, limit int) ([]catalog.Item, error) {
	q := url.Values{}
	if tier != "" {
		q.Set("tier", string(tier))
	}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+"/v1/catalog?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("catalog call: %w", err)
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeError(resp)
	}

	var items []catalog.Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return items, nil
}

func (c *HTTPClient) decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	// The body is advisory; the status code alone still classifies.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err != nil {
		c.logger.Debug("undecodable remote error body", zap.Int("status", resp.StatusCode), zap.Error(err))
	}
	return &APIError{StatusCode: resp.StatusCode, Reason: payload.Error}
}

func (c *HTTPClient) closeBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, io.LimitReader(body, 4096)); err != nil {
		c.logger.Debug("drain response body", zap.Error(err))
	}
	if err := body.Close(); err != nil {
		c.logger.Debug("close response body", zap.Error(err))
	}
}
