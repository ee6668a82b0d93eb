package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/park285/opening-query/internal/query"
	"github.com/park285/opening-query/pkg/querydto"
	"github.com/valyala/fasthttp"
)

var ErrInvalidResponse = errors.New("analytics response is not JSON")

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analytics api error: path=%s status=%d body=%s", e.Path, e.Status, e.Body)
}

// Client posts query payloads to the analytics service. Each call is a single
// attempt; failures are returned to the caller without retry.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

// WithDialer replaces the TCP dialer, e.g. with an in-memory listener.
func WithDialer(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// QueryOpenings reports a board move. The response is returned undecoded.
func (c *Client) QueryOpenings(ctx context.Context, report querydto.MoveReport) (json.RawMessage, error) {
	return c.postJSON(ctx, query.PathQueryOpenings, report)
}

// CaseStudy runs fixed trend query n.
func (c *Client) CaseStudy(ctx context.Context, n int, payload querydto.CaseStudyPayload) (json.RawMessage, error) {
	return c.postJSON(ctx, query.CaseStudyPath(n), payload)
}

// QueryResults runs the general filter query.
func (c *Client) QueryResults(ctx context.Context, payload querydto.ResultsPayload) (json.RawMessage, error) {
	return c.postJSON(ctx, query.PathQueryResults, payload)
}

func (c *Client) postJSON(ctx context.Context, path string, in any) (json.RawMessage, error) {
	endpoint := metricEndpoint(path)
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)

	if err := ctx.Err(); err != nil {
		requestsTotal.WithLabelValues(endpoint, "transport").Inc()
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		requestsTotal.WithLabelValues(endpoint, "transport").Inc()
		return nil, fmt.Errorf("request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		requestsTotal.WithLabelValues(endpoint, "status").Inc()
		return nil, &StatusError{Path: path, Status: status, Body: truncate(string(resp.Body()), 512)}
	}

	body := append([]byte(nil), resp.Body()...)
	if !json.Valid(body) {
		requestsTotal.WithLabelValues(endpoint, "decode").Inc()
		return nil, fmt.Errorf("decode response: %w", ErrInvalidResponse)
	}
	requestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return json.RawMessage(body), nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

// metricEndpoint keeps label cardinality bounded for unknown paths.
func metricEndpoint(path string) string {
	switch {
	case path == query.PathQueryOpenings:
		return "query-openings"
	case path == query.PathQueryResults:
		return "query-results"
	case strings.HasPrefix(path, "/api/sql-complex-trend-query-"):
		return strings.TrimPrefix(path, "/api/sql-complex-")
	default:
		return "other"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
