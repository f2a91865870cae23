// Package gateway stores content on IPFS through a Kubo RPC endpoint and reads it
// back through an HTTP gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hengadev/medlock/internal/content"
	"github.com/hengadev/medlock/internal/monitoring"
	"github.com/hengadev/medlock/internal/reliability"
	"github.com/hengadev/medlock/internal/types"
)

const (
	DefaultGatewayURL = "http://127.0.0.1:8080"
	DefaultRPCURL     = "http://127.0.0.1:5001"

	blockPutPath    = "/api/v0/block/put"
	maxResponseBody = 64 << 20

	// Kubo refuses blocks above 1 MiB unless allow-big-block is set.
	maxDefaultBlockSize = 1 << 20
)

// StatusError is a non-2xx response from the gateway or the RPC API.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: http %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.Code, e.Body)
}

func (e *StatusError) StatusCode() int { return e.Code }

type Client struct {
	gatewayURL string
	rpcURL     string
	http       *http.Client
	retry      *reliability.RetryExecutor
	breaker    *reliability.CircuitBreaker
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	retry      reliability.RetryConfig
	breaker    reliability.CircuitBreakerConfig
	logger     *slog.Logger
}

// WithHTTPClient replaces the default client, which has a 30s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithRetryConfig(cfg reliability.RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

func WithCircuitBreakerConfig(cfg reliability.CircuitBreakerConfig) Option {
	return func(o *options) { o.breaker = cfg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a client. Empty URLs fall back to the local Kubo defaults.
func New(gatewayURL, rpcURL string, opts ...Option) (*Client, error) {
	if gatewayURL == "" {
		gatewayURL = DefaultGatewayURL
	}
	if rpcURL == "" {
		rpcURL = DefaultRPCURL
	}
	for _, raw := range []string{gatewayURL, rpcURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: invalid ipfs url %q", types.ErrInvalidConfiguration, raw)
		}
	}

	o := options{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      reliability.DefaultRetryConfig(),
		breaker:    reliability.DefaultCircuitBreakerConfig(),
		logger:     monitoring.NopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		rpcURL:     strings.TrimRight(rpcURL, "/"),
		http:       o.httpClient,
		retry:      reliability.NewRetryExecutor(reliability.NewExponentialBackoffPolicy(o.retry)),
		breaker:    reliability.NewCircuitBreaker("ipfs", o.breaker),
		logger:     o.logger,
	}
	c.retry.SetOnRetryCallback(func(attempt int, delay time.Duration, err error) {
		c.logger.Warn("ipfs request retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
	})
	return c, nil
}

// do runs one logical request through the retry executor and circuit breaker.
func (c *Client) do(ctx context.Context, fn func(context.Context) error) error {
	return c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.breaker.Execute(ctx, fn)
	})
}

func readError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

type blockPutResponse struct {
	Key  string `json:"Key"`
	Size int64  `json:"Size"`
}

// Put stores data as a single raw block. The blob is never chunked into a
// UnixFS DAG, so its CID is the raw sha2-256 CID that content.Verify checks.
func (c *Client) Put(ctx context.Context, data []byte) (types.ContentID, error) {
	want, err := content.Sum(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "blob")
	if err != nil {
		return "", fmt.Errorf("%w: build upload: %w", types.ErrStoreUnavailable, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("%w: build upload: %w", types.ErrStoreUnavailable, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: build upload: %w", types.ErrStoreUnavailable, err)
	}
	query := url.Values{
		"cid-codec": {"raw"},
		"mhtype":    {"sha2-256"},
		"pin":       {"true"},
	}
	if len(data) > maxDefaultBlockSize {
		query.Set("allow-big-block", "true")
	}
	endpoint := c.rpcURL + blockPutPath + "?" + query.Encode()

	var added blockPutResponse
	err = c.do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body.Bytes()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return readError("ipfs block put", resp)
		}
		return json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&added)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}

	if types.ContentID(added.Key) != want {
		return "", fmt.Errorf("%w: ipfs block put returned %q, expected %s", types.ErrStoreUnavailable, added.Key, want)
	}
	c.logger.Debug("ipfs content added", slog.String("cid", string(want)), slog.Int("bytes", len(data)))
	return want, nil
}

func (c *Client) Get(ctx context.Context, id types.ContentID) ([]byte, error) {
	if _, err := content.Parse(id); err != nil {
		return nil, err
	}
	endpoint := c.gatewayURL + "/ipfs/" + url.PathEscape(string(id))

	var data []byte
	err := c.do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: content %s", types.ErrNotFound, id)
		}
		if resp.StatusCode != http.StatusOK {
			return readError("ipfs get", resp)
		}
		data, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return err
	})
	if errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}
	if err := content.Verify(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

// BreakerState reports the state of the client's circuit breaker.
func (c *Client) BreakerState() reliability.CircuitState {
	return c.breaker.State()
}
