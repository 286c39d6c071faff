// Package nepviewer talks to the NEPViewer inverter monitoring portal.
package nepviewer

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"codeberg.org/mutker/nepcollector/internal/errors"
	"codeberg.org/mutker/nepcollector/internal/logger"
)

const (
	DefaultMonitorURL = "https://nep.nepviewer.com"
	DefaultUserURL    = "https://user.nepviewer.com"

	// The portal serves the app endpoints to mobile browsers only.
	userAgent = "Mozilla/5.0 (Linux; Android 10; Pixel 6) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/86.0.4240.110 Mobile Safari/537.36"

	maxBodySize = 16 << 20
)

// Client is a NEPViewer API client. It keeps the portal session cookie
// between calls.
type Client struct {
	client     *http.Client
	monitorURL string
	userURL    string
	log        logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMonitorURL overrides the base URL of the monitoring API.
func WithMonitorURL(u string) Option {
	return func(c *Client) { c.monitorURL = strings.TrimRight(u, "/") }
}

// WithUserURL overrides the base URL of the user portal.
func WithUserURL(u string) Option {
	return func(c *Client) { c.userURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

type userAgentTransport struct {
	transport http.RoundTripper
}

// RoundTrip sets the browser headers the portal expects.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return t.transport.RoundTrip(req)
}

// NewClient returns a client whose requests time out after timeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Transport: &userAgentTransport{transport: http.DefaultTransport},
			Timeout:   timeout,
		},
		monitorURL: DefaultMonitorURL,
		userURL:    DefaultUserURL,
		log:        logger.Get(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client.Jar == nil {
		// cookiejar.New only fails on a broken PublicSuffixList
		jar, _ := cookiejar.New(nil)
		c.client.Jar = jar
	}

	return c
}

func (c *Client) newPostFormRequest(ctx context.Context, endpoint string, data url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.New().Wrap(ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (c *Client) newGetRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.New().Wrap(ErrRequestFailed, err)
	}
	return req, nil
}

// do executes req and returns the response body when the portal answered
// 200. Any other status is an ErrUnexpectedStatus error.
func (c *Client) do(req *http.Request) (*http.Response, []byte, error) {
	errFactory := errors.New()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, errFactory.Wrap(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug().
			Str("url", req.URL.String()).
			Int("status", resp.StatusCode).
			Msg("Unexpected response status")
		return resp, nil, errFactory.WithData(ErrUnexpectedStatus, statusData{
			URL:    req.URL.String(),
			Status: resp.StatusCode,
		})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp, nil, errFactory.Wrap(ErrRequestFailed, err)
	}

	return resp, body, nil
}
