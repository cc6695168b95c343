// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP transport shared by metadata lookups
// and document downloads.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/bibfetch/pkg/types"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultMaxBodyBytes = 200 << 20
)

// ErrBodyTooLarge is returned when a response exceeds the configured body cap.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Response is a fully read HTTP response.
type Response struct {
	StatusCode  int
	ContentType string
	// FinalURL is the URL of the last request after redirects.
	FinalURL string
	Header   http.Header
	Body     []byte
}

// OK reports whether the status code is 200.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Client issues single-attempt GET requests. Requests are paced by a token
// bucket limiter shared by all callers of the same Client.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
}

// NewClient builds a Client from cfg. A nil hc gets a fresh http.Client with
// cfg.Timeout.
func NewClient(hc *http.Client, cfg types.HTTPConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &Client{
		http:      hc,
		limiter:   limiter,
		userAgent: cfg.UserAgent,
		maxBody:   maxBody,
	}
}

// Get fetches rawURL once. A non-empty token is sent as a bearer credential;
// net/http strips it when a redirect leaves the original host. Non-2xx
// statuses are returned as a Response, not as an error, so callers can
// classify them.
func (c *Client) Get(ctx context.Context, rawURL, token string, header http.Header) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, c.maxBody)
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    final,
		Header:      resp.Header,
		Body:        body,
	}, nil
}

// WithQuery appends params to base, preserving any existing query.
func WithQuery(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing URL %q: %w", base, err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
