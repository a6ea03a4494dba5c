package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/dabooks/internal/client/models"
	"github.com/dmitrijs2005/dabooks/internal/common"
	"github.com/dmitrijs2005/dabooks/internal/logging"
	"github.com/dmitrijs2005/dabooks/internal/metrics"
)

// DefaultTimeout bounds a request when no timeout option is given.
const DefaultTimeout = 15 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 8 << 20

// HTTPClient is the net/http implementation of Client.
type HTTPClient struct {
	baseURL        string
	httpClient     *http.Client
	logger         logging.Logger
	metrics        metrics.Recorder
	onUnauthorized func(ctx context.Context, token string)
	newRequestID   func() string
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client. Its Timeout is kept
// as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *HTTPClient) { c.metrics = r }
}

// WithOnUnauthorized registers a hook called whenever a request that carried
// a bearer token is answered with 401. The hook receives the rejected token,
// which may no longer be the current one.
func WithOnUnauthorized(fn func(ctx context.Context, token string)) Option {
	return func(c *HTTPClient) { c.onUnauthorized = fn }
}

// NewHTTPClient creates a client for the API rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		logger:       logging.Nop(),
		metrics:      metrics.Nop(),
		newRequestID: uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the API root the client sends requests to.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Close releases idle keep-alive connections.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Request sends one API call and returns the normalized envelope. path is
// relative to the base URL and may carry a query string. A nil body sends no
// payload. The Authorization header is set only for a non-empty token.
func (c *HTTPClient) Request(ctx context.Context, method, path string, body any, token string) (*models.Envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestID := c.newRequestID()
	req.Header.Set(common.HeaderContentType, common.ContentTypeJSON)
	req.Header.Set(common.HeaderAccept, common.ContentTypeJSON)
	req.Header.Set(common.HeaderRequestID, requestID)
	if token != "" {
		req.Header.Set(common.HeaderAuthorization, common.BearerPrefix+token)
	}

	log := c.logger.With("method", method, "path", path, "request_id", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordNetworkFailure(method)
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ctxErr
		}
		log.Warn(ctx, "request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordNetworkFailure(method)
		log.Warn(ctx, "reading response failed", "status", resp.StatusCode, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.metrics.RecordRequest(method, resp.StatusCode, elapsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		log.Warn(ctx, "request rejected", "status", resp.StatusCode, "message", apiErr.Message, "duration", elapsed)
		if resp.StatusCode == http.StatusUnauthorized && token != "" && c.onUnauthorized != nil {
			c.onUnauthorized(ctx, token)
		}
		return nil, apiErr
	}

	env, err := normalize(raw)
	if err != nil {
		log.Warn(ctx, "undecodable response", "status", resp.StatusCode, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	log.Debug(ctx, "request completed", "status", resp.StatusCode, "duration", elapsed)
	return env, nil
}

// normalize maps the server's response shapes onto models.Envelope:
// a bare array or object becomes Data; an object carrying "data" or
// "status" is unwrapped.
func normalize(raw []byte) (*models.Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &models.Envelope{}, nil
	}

	switch trimmed[0] {
	case '[':
		if !json.Valid(trimmed) {
			return nil, errors.New("malformed JSON array")
		}
		return &models.Envelope{Data: json.RawMessage(trimmed)}, nil
	case '{':
	default:
		return nil, errors.New("response is not a JSON object or array")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}

	data, hasData := fields["data"]
	_, hasStatus := fields["status"]
	if !hasData && !hasStatus {
		return &models.Envelope{Data: json.RawMessage(trimmed)}, nil
	}

	env := &models.Envelope{Data: data}
	if p, ok := fields["pagination"]; ok && string(p) != "null" {
		var info models.PageInfo
		if err := json.Unmarshal(p, &info); err != nil {
			return nil, fmt.Errorf("pagination: %w", err)
		}
		env.Pagination = &info
	}
	if m, ok := fields["message"]; ok {
		_ = json.Unmarshal(m, &env.Message)
	}
	return env, nil
}

// errorMessage picks the server's explanation out of a failed response.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return DefaultErrorMessage
}
