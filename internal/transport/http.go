package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mamalink/mamalink-go/internal/apierr"
	"github.com/mamalink/mamalink-go/internal/retry"
)

// DefaultTimeout is the per-request transport timeout.
const DefaultTimeout = 10 * time.Second

// HTTPClient talks to the real MamaLink API. Every request carries the
// standard header set and a fresh X-Request-ID for correlation.
type HTTPClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Retry   retry.Config
}

// NewHTTPClient creates a client for the given base URL. An empty token
// omits the Authorization header.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
		Retry:   retry.DefaultConfig(),
	}
}

// Do executes method path with an optional JSON body, retrying transient
// failures per the client's retry config. Non-2xx responses surface as
// *apierr.HTTPError carrying the decoded body.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	return retry.DoResult(ctx, c.Retry, func() (*Response, error) {
		return c.doOnce(ctx, method, path, payload)
	})
}

// doOnce performs a single attempt. The request is rebuilt per attempt so
// each retry gets a fresh body reader and request ID.
func (c *HTTPClient) doOnce(ctx context.Context, method, path string, payload []byte) (*Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("X-Timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &apierr.HTTPError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       data,
		}
	}

	return &Response{
		Data:       data,
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    resp.Header,
	}, nil
}
