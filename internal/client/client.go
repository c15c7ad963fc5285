package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_order/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBody = 4 << 20

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Breaker   circuitbreaker.Config
}

// Client is the shared REST transport for every backend contract. Calls
// carry the configured timeout, are traced and pass through one breaker.
type Client struct {
	base      *url.URL
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*response]
	userAgent string
	log       *slog.Logger
}

type response struct {
	status int
	body   []byte
}

func New(cfg Config, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = circuitbreaker.DefaultConfig("backend")
	}

	return &Client{
		base: base,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker:   circuitbreaker.New[*response](cfg.Breaker, countsAsSuccess, log),
		userAgent: cfg.UserAgent,
		log:       log,
	}, nil
}

type header struct {
	key, value string
}

// call sends in as JSON (when non-nil) and decodes a 2xx body into out
// (when non-nil). Non-2xx replies come back as *APIError.
func (c *Client) call(ctx context.Context, method, path string, in, out any, headers ...header) (int, error) {
	res, err := c.send(ctx, method, path, in, headers)
	if err != nil {
		return 0, err
	}
	if out != nil && len(res.body) > 0 {
		if err := json.Unmarshal(res.body, out); err != nil {
			return res.status, fmt.Errorf("%w: %s %s: %v", ErrBadResponse, method, path, err)
		}
	}
	return res.status, nil
}

func (c *Client) send(ctx context.Context, method, path string, in any, headers []header) (*response, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for _, h := range headers {
		req.Header.Set(h.key, h.value)
	}

	res, err := c.breaker.Execute(func() (*response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, decodeAPIError(resp.StatusCode, data)
		}
		return &response{status: resp.StatusCode, body: data}, nil
	})
	if circuitbreaker.IsOpen(err) {
		return nil, fmt.Errorf("%w: %s %s", ErrUnavailable, method, path)
	}
	if err != nil {
		c.log.DebugContext(ctx, "backend call failed", "method", method, "path", path, "error", err)
		return nil, err
	}
	return res, nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
