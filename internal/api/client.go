// Package api is the HTTP client for the FoodViz backend. All business logic
// lives behind these endpoints; the client only shapes requests, attaches the
// session token and classifies failures.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"foodviz/internal/domain"
	"foodviz/internal/infra"
	"foodviz/internal/session"
)

// DefaultTimeout bounds every outbound call when no client is injected.
const DefaultTimeout = 20 * time.Second

// maxDownloadBytes bounds a single asset download.
var maxDownloadBytes int64 = 64 << 20

// ErrMissingBaseURL indicates that the client was configured without a backend address.
var ErrMissingBaseURL = errors.New("api: base url is required")

// Options configures the backend client.
type Options struct {
	BaseURL        string
	Session        session.Store
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs authenticated calls against the backend.
type Client struct {
	baseURL    string
	session    session.Store
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("api: invalid base url: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	store := opts.Session
	if store == nil {
		store = session.NewMemoryStore(session.Session{})
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:    baseURL,
		session:    store,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session exposes the store the client reads its token from.
func (c *Client) Session() session.Store {
	return c.session
}

type requestIDKey struct{}

// ContextWithRequestID makes outbound calls reuse an inbound request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if strings.TrimSpace(id) == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok && v != "" {
		return v
	}
	return uuid.NewString()
}

// request describes one backend call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	auth        bool
}

func jsonRequest(method, path string, payload any, auth bool) (request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("api: encode request: %w", err)
	}
	return request{
		method:      method,
		path:        path,
		body:        bytes.NewReader(body),
		contentType: "application/json",
		auth:        auth,
	}, nil
}

// do executes req and returns the raw response body of a successful call.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, req.body)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	rid := requestID(ctx)
	httpReq.Header.Set("X-Request-ID", rid)
	var token string
	if req.auth {
		// The token is read before every call so a cleared session takes effect immediately.
		token = session.Token(ctx, c.session)
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("method", req.method).
			Str("path", req.path).
			Str("request_id", rid).
			Msg("api: request failed")
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(ctx, fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", rid).
		Msg("api: request completed")

	if resp.StatusCode >= 300 {
		apiErr := newStatusError(resp.StatusCode, raw)
		if resp.StatusCode == http.StatusUnauthorized && req.auth {
			c.dropSession(ctx, token, req.path)
		}
		return nil, apiErr
	}
	return raw, nil
}

// dropSession clears the stored session if it still holds the rejected
// token. The clear outlives the request context so a 401 that races a
// cancelled poll still removes the token from disk.
func (c *Client) dropSession(ctx context.Context, token, path string) {
	if token == "" {
		return
	}
	cleared, err := c.session.ClearToken(context.WithoutCancel(ctx), token)
	switch {
	case err != nil:
		c.logger.Error().Err(err).Msg("api: clear session after 401")
	case cleared:
		c.logger.Info().Str("path", path).Msg("api: session rejected, cleared stored token")
	default:
		c.logger.Info().Str("path", path).Msg("api: stale token rejected, newer session kept")
	}
}

func (c *Client) doJSON(ctx context.Context, req request, out any) error {
	raw, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

// Download fetches an absolute asset URL such as a model or image file.
// Asset hosts are public, so no token is attached.
func (c *Client) Download(ctx context.Context, assetURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(assetURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, "", fmt.Errorf("api: invalid asset url: %s", assetURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("api: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", transportError(ctx, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", newStatusError(resp.StatusCode, nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, "", transportError(ctx, fmt.Errorf("read asset: %w", err))
	}
	if int64(len(data)) > maxDownloadBytes {
		return nil, "", fmt.Errorf("api: asset larger than %d bytes: %w", maxDownloadBytes, domain.ErrValidation)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}
