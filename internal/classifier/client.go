// Package classifier calls the external categorization service that maps an
// expense description to a predicted category.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"consigli/internal/core"
)

const (
	DefaultTimeout = 5 * time.Second
	predictPath    = "/predict"
	maxBodyBytes   = 64 << 10
)

type predictRequest struct {
	Description string `json:"description"`
}

type predictResponse struct {
	Category *string `json:"category"`
}

// Client implements ports.Classifier over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient returns a client for the service at baseURL. Every call is
// bounded by timeout; zero means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + predictPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict returns the category for description. Any transport failure,
// non-2xx status, or response without a non-blank category yields an error
// wrapping core.ErrClassificationUnavailable; no default category is ever
// substituted.
func (c *Client) Predict(ctx context.Context, description string) (string, error) {
	body, err := json.Marshal(predictRequest{Description: description})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", core.ErrClassificationUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", core.ErrClassificationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrClassificationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", core.ErrClassificationUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", core.ErrClassificationUnavailable, err)
	}
	if out.Category == nil || strings.TrimSpace(*out.Category) == "" {
		return "", fmt.Errorf("%w: response has no category", core.ErrClassificationUnavailable)
	}

	return strings.TrimSpace(*out.Category), nil
}
