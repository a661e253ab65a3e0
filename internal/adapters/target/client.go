// Package target performs single HTTP exchanges against the endpoint under check
package target

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	perr "cyberchecker/internal/platform/errors"
)

// maxBodyBytes caps how much of a response body is read into memory
const maxBodyBytes = 2 << 20

// defaultUserAgent identifies the checker to targets unless a config overrides it
const defaultUserAgent = "cyberchecker/1.0"

// Request is one prepared HTTP request, variables already substituted
type Request struct {
	Method string
	URL    string
	Header map[string]string
	// Form carries urlencoded body fields; JSON a structured body
	// JSON wins when both are set
	Form map[string]string
	JSON map[string]any
}

// Exchange is the readable result of one request
type Exchange struct {
	Status     int
	Body       string
	Header     http.Header
	RetryAfter time.Duration
}

// Client performs exactly one exchange per call: retries are the
// caller's responsibility
type Client struct {
	http *http.Client
	ua   string
}

// Option mutates the client
type Option func(*Client)

// WithUserAgent overrides the default User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.ua = ua }
}

// New wraps an http.Client; the caller owns transport concerns
// (proxy, TLS, timeout)
func New(hc *http.Client, opts ...Option) *Client {
	c := &Client{http: hc, ua: defaultUserAgent}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do performs the exchange
// transport failures come back as Unavailable errors so the retry
// machine can classify them; any readable response is returned as-is
func (c *Client) Do(ctx context.Context, req Request) (Exchange, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return Exchange{}, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "encode json body")
		}
		body = strings.NewReader(string(b))
		contentType = "application/json"
	// GET and DELETE carry no form body; configs routinely set data
	// fields that only apply to the POST steps of a sequence
	case len(req.Form) > 0 && method != http.MethodGet && method != http.MethodDelete:
		vals := url.Values{}
		for k, v := range req.Form {
			vals.Set(k, v)
		}
		body = strings.NewReader(vals.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	hreq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return Exchange{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "build request %s %s", method, req.URL)
	}
	hreq.Header.Set("User-Agent", c.ua)
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Header {
		hreq.Header.Set(k, v)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return Exchange{}, perr.FromNetwork(err, "target exchange")
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Exchange{}, perr.FromNetwork(err, "read target response")
	}

	return Exchange{
		Status:     resp.StatusCode,
		Body:       string(b),
		Header:     resp.Header,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}, nil
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
