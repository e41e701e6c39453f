// Package mediawiki is a small client for the MediaWiki Action API covering
// the login flow and the list endpoints the inactivity report reads.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
	"github.com/p-blackswan/inactivity-report/internal/runid"
)

const serviceName = "mediawiki"

// DefaultUserAgent identifies the tool to wiki operators, per the API etiquette.
const DefaultUserAgent = "AUSCReport/0.1 b.t.y.b. LFaraone@enwiki"

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer receives one callback per API round trip.
type Observer interface {
	ObserveRequest(endpoint, status string, elapsed time.Duration)
}

// Client wraps the MediaWiki Action API.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient HTTPClient
	limiter    *rate.Limiter
	observer   Observer
	assertUser bool
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit bounds outgoing requests to rps per second. A non-positive
// rps disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.httpClient.(*http.Client); ok && d > 0 {
			hc.Timeout = d
		}
	}
}

// WithObserver registers o for request accounting.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a client for the API at apiRoot. apiRoot may omit the
// scheme ("en.wikipedia.org/w/api.php"), in which case https is assumed.
func NewClient(apiRoot string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	endpoint, err := normalizeEndpoint(apiRoot)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	c := &Client{
		endpoint:   endpoint,
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second, Jar: jar},
		logger:     logger.With().Str("component", "mediawiki").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func normalizeEndpoint(apiRoot string) (string, error) {
	raw := strings.TrimSpace(apiRoot)
	if raw == "" {
		return "", perrors.InvalidInput("empty API root")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", perrors.InvalidInput("invalid API root %q", apiRoot)
	}
	return u.String(), nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// apiErrorBody is the "error" member of a failed API response.
type apiErrorBody struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type envelope struct {
	Error    *apiErrorBody              `json:"error"`
	Warnings map[string]json.RawMessage `json:"warnings"`
}

// call executes one API request and decodes the JSON body into v. Reads use
// GET; anything carrying credentials goes through POST.
func (c *Client) call(ctx context.Context, method string, params url.Values, v interface{}) error {
	params = cloneValues(params)
	params.Set("format", "json")
	params.Set("formatversion", "2")
	if c.assertUser && params.Get("action") == "query" {
		params.Set("assert", "user")
	}
	endpoint := endpointLabel(params)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	var (
		req *http.Request
		err error
	)
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, c.endpoint, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.endpoint+"?"+params.Encode(), nil)
	}
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if id, ok := runid.FromContext(ctx); ok {
		req.Header.Set(runid.Header, id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, "transport_error", start)
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(endpoint, "transport_error", start)
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.observe(endpoint, fmt.Sprintf("http_%d", resp.StatusCode), start)
		return &perrors.APIError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.observe(endpoint, "decode_error", start)
		return fmt.Errorf("decoding response: %w", err)
	}
	if env.Error != nil {
		c.observe(endpoint, "api_error", start)
		return &perrors.APIError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Code:       env.Error.Code,
			Message:    env.Error.Info,
		}
	}
	for module, w := range env.Warnings {
		c.logger.Debug().Str("module", module).RawJSON("warning", w).Msg("API warning")
	}
	c.observe(endpoint, "ok", start)

	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) observe(endpoint, status string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, status, time.Since(start))
	}
}

// endpointLabel names a request by the list, meta or action module it hits.
func endpointLabel(params url.Values) string {
	if l := params.Get("list"); l != "" {
		return l
	}
	if m := params.Get("meta"); m != "" {
		return m
	}
	return params.Get("action")
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// formatTimestamp renders t in the ISO 8601 form the API accepts.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
