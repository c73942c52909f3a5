// Package gsc is the Search Console REST client: auth header plumbing, the
// paginated search-analytics query engine, sitemap management, and URL
// inspection.
package gsc

import (
	"context"
	"net/http"
	"time"

	"github.com/gsclens/gsclens/internal/logging"
	"github.com/gsclens/gsclens/internal/store"
	"github.com/gsclens/gsclens/internal/token"
)

const (
	defaultAnalyticsBase = "https://searchconsole.googleapis.com/webmasters/v3/sites"
	defaultInspectURL    = "https://searchconsole.googleapis.com/v1/urlInspection/index:inspect"
)

// Client talks to the Search Console API for one property.
type Client struct {
	site          string
	tokens        *token.Store
	http          *http.Client
	logger        *logging.Logger
	analyticsBase string
	inspectURL    string

	cache    store.Cache
	cacheTTL time.Duration

	inspectInterval time.Duration
	sleep           func(time.Duration)

	onRequest     func(endpoint string, status int)
	onCacheLookup func(result string)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) ClientOption {
	return func(cl *Client) { cl.logger = l }
}

// WithBaseURL overrides the analytics/sitemaps base URL, for tests.
func WithBaseURL(u string) ClientOption {
	return func(cl *Client) { cl.analyticsBase = u }
}

// WithInspectURL overrides the URL inspection endpoint, for tests.
func WithInspectURL(u string) ClientOption {
	return func(cl *Client) { cl.inspectURL = u }
}

// WithCache enables caching of query results with the given TTL.
func WithCache(c store.Cache, ttl time.Duration) ClientOption {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithInspectInterval sets the pause between consecutive batch-inspected
// URLs.
func WithInspectInterval(d time.Duration) ClientOption {
	return func(cl *Client) { cl.inspectInterval = d }
}

// WithRequestObserver registers a callback invoked after every outbound API
// call, used to feed metrics.
func WithRequestObserver(fn func(endpoint string, status int)) ClientOption {
	return func(cl *Client) { cl.onRequest = fn }
}

// NewClient creates a client for one Search Console property.
func NewClient(site string, tokens *token.Store, opts ...ClientOption) *Client {
	c := &Client{
		site:            site,
		tokens:          tokens,
		http:            &http.Client{Timeout: 30 * time.Second},
		logger:          logging.NewLogger(),
		analyticsBase:   defaultAnalyticsBase,
		inspectURL:      defaultInspectURL,
		inspectInterval: 100 * time.Millisecond,
		sleep:           time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Site returns the property URL this client reports on.
func (c *Client) Site() string {
	return c.site
}

// AuthHeader returns the bearer Authorization header value, or ok=false when
// no usable credential exists. A stale-but-usable token is still returned;
// the server is the final arbiter of whether it works.
func (c *Client) AuthHeader(ctx context.Context) (string, bool) {
	tok, state, err := c.tokens.Acquire(ctx)
	if state == token.Absent || tok == nil || tok.AccessToken == "" {
		if err != nil {
			c.logger.Debug("no auth header available", "error", err.Error())
		}
		return "", false
	}
	if state == token.StaleButUsable {
		c.logger.Warn("using stale access token", "error", errString(err))
	}
	return "Bearer " + tok.AccessToken, true
}

// AuthState reports the current credential state without exposing the token.
func (c *Client) AuthState(ctx context.Context) (token.State, error) {
	_, state, err := c.tokens.Acquire(ctx)
	return state, err
}

// SetRequestObserver registers the callback after construction, for wiring
// metrics that are created later than the client.
func (c *Client) SetRequestObserver(fn func(endpoint string, status int)) {
	c.onRequest = fn
}

// SetCacheObserver registers a callback fed with "hit" or "miss" on every
// report cache lookup.
func (c *Client) SetCacheObserver(fn func(result string)) {
	c.onCacheLookup = fn
}

func (c *Client) observe(endpoint string, status int) {
	if c.onRequest != nil {
		c.onRequest(endpoint, status)
	}
}

func (c *Client) observeCache(result string) {
	if c.onCacheLookup != nil {
		c.onCacheLookup(result)
	}
}

// StatusClass buckets an HTTP status code into "2xx", "4xx" etc. for metric
// labels.
func StatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}

// encodeSite percent-encodes a property URL for use as a single path
// segment. Everything outside the unreserved set is escaped, including "/"
// and ":", which is what the API expects for URL-prefix and sc-domain
// properties.
func encodeSite(site string) string {
	const upperhex = "0123456789ABCDEF"
	var b []byte
	for i := 0; i < len(site); i++ {
		ch := site[i]
		if ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' || ch >= '0' && ch <= '9' ||
			ch == '-' || ch == '_' || ch == '.' || ch == '~' {
			b = append(b, ch)
			continue
		}
		b = append(b, '%', upperhex[ch>>4], upperhex[ch&0xf])
	}
	return string(b)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
