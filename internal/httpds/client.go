// Package httpds fetches remote documents and images with one timeout
// policy and reports every fetch to the metrics package.
package httpds

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"upvariants/internal/metrics"
)

// DefaultUserAgent is sent when Options.UserAgent is empty. Supplier sites
// reject the Go default.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Options configures a Client.
type Options struct {
	// Timeout bounds each request including the body read. Defaults to 30s.
	Timeout time.Duration
	// Insecure skips TLS certificate verification.
	Insecure bool
	// UserAgent overrides DefaultUserAgent.
	UserAgent string
	// MaxBytes caps response bodies. Zero means 64 MiB.
	MaxBytes int64
}

// Client performs GET requests.
type Client struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	maxBytes  int64
}

// New builds a Client from opts.
func New(opts Options) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return NewWithClient(&http.Client{Transport: tr}, opts)
}

// NewWithClient wraps an existing http.Client; opts.Insecure is ignored.
func NewWithClient(hc *http.Client, opts Options) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{
		client:    hc,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.maxBytes <= 0 {
		c.maxBytes = 64 << 20
	}
	return c
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
	// Body holds up to 4KB of the response for debugging.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d for %s: %s", e.Status, e.URL, e.Body)
}

// Get fetches url and returns the body.
func (c *Client) Get(ctx context.Context, url string) (body []byte, err error) {
	start := time.Now()
	status := 0
	defer func() {
		metrics.RecordHTTP(status, err, time.Since(start), int64(len(body)))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(b)) > c.maxBytes {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, c.maxBytes)
	}
	return b, nil
}
