// Package client provides the outbound HTTP client used to fetch lab targets.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lab-proxy-go/internal/allowlist"
	"lab-proxy-go/internal/config"
	"lab-proxy-go/internal/metrics"
	"lab-proxy-go/internal/model"
)

var (
	// ErrRedirectNotAllowed is returned when a redirect leaves the allow-list.
	ErrRedirectNotAllowed = errors.New("redirect target not allowed")
	// ErrTooManyRedirects is returned when the redirect chain exceeds the configured limit.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrBodyTooLarge is returned when the upstream body exceeds the buffer limit.
	ErrBodyTooLarge = errors.New("upstream body too large")
)

const userAgent = "lab-proxy/1.0"

// UpstreamClient fetches allow-listed URLs and buffers their responses.
type UpstreamClient struct {
	httpClient   *http.Client
	allow        *allowlist.List
	redirects    string
	maxRedirects int
	maxBodyBytes int64
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling, a
// bounded timeout and the configured redirect policy.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, allow *allowlist.List, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	c := &UpstreamClient{
		allow:        allow,
		redirects:    cfg.Upstream.Redirects,
		maxRedirects: cfg.Upstream.MaxRedirects,
		maxBodyBytes: cfg.Upstream.MaxBodyBytes,
		logger:       logger.With("component", "upstream_client"),
		metrics:      m,
	}
	c.httpClient = &http.Client{
		Transport:     transport,
		Timeout:       time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		CheckRedirect: c.checkRedirect,
	}
	return c
}

// checkRedirect applies the redirect policy to each hop.
func (c *UpstreamClient) checkRedirect(req *http.Request, via []*http.Request) error {
	switch c.redirects {
	case config.RedirectsNone:
		return http.ErrUseLastResponse
	case config.RedirectsFollow:
		// hops are not checked against the allow-list
	default:
		if !c.allow.Allows(req.URL.Hostname()) {
			return fmt.Errorf("%w: %s", ErrRedirectNotAllowed, req.URL.Hostname())
		}
	}

	if len(via) > c.maxRedirects {
		return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, c.maxRedirects)
	}

	c.logger.Debug("following redirect",
		"from", via[len(via)-1].URL.Host,
		"to", req.URL.Host,
	)
	return nil
}

// Fetch issues a GET for target and returns the fully buffered response.
// The context bounds the request together with the client timeout: when the
// inbound request is canceled the upstream request is canceled too.
func (c *UpstreamClient) Fetch(ctx context.Context, target *url.URL) (*model.ProxyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	host := strings.ToLower(target.Hostname())
	c.logger.Debug("upstream request",
		"host", host,
		"path", target.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(host, "error", start)
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := c.readBody(resp.Body)
	c.observe(host, strconv.Itoa(resp.StatusCode), start)
	if err != nil {
		return nil, err
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// readBody buffers at most maxBodyBytes; a zero limit disables the cap.
func (c *UpstreamClient) readBody(r io.Reader) ([]byte, error) {
	if c.maxBodyBytes <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read upstream body: %w", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, c.maxBodyBytes)
	}
	return body, nil
}

func (c *UpstreamClient) observe(host, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
	c.metrics.UpstreamResponses.WithLabelValues(host, status).Inc()
}
