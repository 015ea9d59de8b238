// Package gateway implements the banking protocol ports against a FinTS
// gateway service speaking JSON over HTTP. The gateway is stateless: every
// call carries the opaque dialog state returned by the previous one.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/bankster/internal/domain/model"
	"github.com/ericfisherdev/bankster/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BankConnector = (*Client)(nil)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client connects to the gateway. Institute-level lookups go through an
// HTTP cache honoring the gateway's Cache-Control headers; dialog calls are
// never cached.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	cached  *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client for the gateway at baseURL. A non-positive
// timeout defaults to 60 seconds; bank dialogs can be slow.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return NewClientWithHTTPClient(&http.Client{Timeout: timeout}, baseURL, logger)
}

// NewClientWithHTTPClient creates a Client using httpClient for dialog calls.
// This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing gateway URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("gateway URL %q: scheme must be http or https", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	if httpClient.Transport != nil {
		cacheTransport.Transport = httpClient.Transport
	}

	return &Client{
		baseURL: u,
		http:    httpClient,
		cached:  &http.Client{Transport: cacheTransport, Timeout: httpClient.Timeout},
		logger:  logger,
	}, nil
}

// Connect opens a session handle. No request is made until the first
// operation; persisted may be nil for a fresh anonymous dialog.
func (c *Client) Connect(_ context.Context, cfg model.BankConfig, persisted []byte) (driven.BankSession, error) {
	if cfg.URL == "" || cfg.BankCode == "" {
		return nil, errors.New("bank URL and bank code are required")
	}
	return &Session{
		client: c,
		bank:   toBankJSON(cfg),
		state:  persisted,
	}, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = u.Path + path
	return u.String()
}

// post sends body as JSON and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(c.http, req, out)
}

// getCached sends a GET through the HTTP cache.
func (c *Client) getCached(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.endpoint(path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(c.cached, req, out)
}

func (c *Client) do(hc *http.Client, req *http.Request, out any) error {
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("gateway call",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"cached", resp.Header.Get(httpcache.XFromCache) != "",
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	// Read to EOF so the cache transport can store the body.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", req.URL.Path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// decodeError maps a gateway error response to *model.RemoteError. The bank
// return code is carried verbatim when the gateway provides one.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var e errorJSON
	if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = resp.Status
		}
		return &model.RemoteError{Code: e.Code, Message: msg}
	}
	return &model.RemoteError{Code: e.Code, Message: e.Message}
}
