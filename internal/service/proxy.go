// Package service implements the allow-listed forwarding logic.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"lab-proxy-go/internal/allowlist"
	"lab-proxy-go/internal/client"
	"lab-proxy-go/internal/model"
)

var (
	// ErrMissingURL is returned when the url parameter is absent, empty or repeated.
	ErrMissingURL = errors.New("missing url param")
	// ErrInvalidURL is returned when the url parameter is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrDomainNotAllowed is returned when the target host is not on the allow-list.
	ErrDomainNotAllowed = errors.New("domain not allowed")
)

// Framing header values written on every relayed response.
const (
	FrameOptionsValue = ""
	FrameAncestorsCSP = "frame-ancestors 'self' *"
)

// strippedResponseHeaders are dropped from the upstream copy, keyed by
// lower-case name.
var strippedResponseHeaders = map[string]bool{
	"x-frame-options":         true,
	"content-security-policy": true,
}

// ProxyService validates targets, fetches them and rewrites framing headers.
type ProxyService struct {
	client *client.UpstreamClient
	allow  *allowlist.List
	logger *slog.Logger
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.UpstreamClient, allow *allowlist.List, logger *slog.Logger) *ProxyService {
	return &ProxyService{
		client: c,
		allow:  allow,
		logger: logger.With("component", "proxy_service"),
	}
}

// Forward validates the requested URL, fetches it and returns the response
// with framing headers rewritten so it can be embedded in an iframe.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	target, err := s.resolveTarget(pr.URL)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("forwarding request",
		"host", target.Hostname(),
		"path", target.Path,
	)

	resp, err := s.client.Fetch(pr.Ctx, target)
	if err != nil {
		return nil, fmt.Errorf("forward to %s: %w", target.Hostname(), err)
	}

	resp.Header = filterResponseHeaders(resp.Header)
	return resp, nil
}

// resolveTarget turns the raw url parameter values into an allow-listed URL.
func (s *ProxyService) resolveTarget(values []string) (*url.URL, error) {
	if len(values) != 1 || values[0] == "" {
		return nil, ErrMissingURL
	}

	target, err := ParseTarget(values[0])
	if err != nil {
		return nil, err
	}

	if !s.allow.Allows(target.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrDomainNotAllowed, target.Hostname())
	}
	return target, nil
}

// ParseTarget parses raw as an absolute http or https URL with a host.
func ParseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: not an absolute URL", ErrInvalidURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	return u, nil
}

// filterResponseHeaders copies every upstream header except the framing
// ones, then sets the permissive framing values.
func filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header, len(src)+2)
	for key, vals := range src {
		if strippedResponseHeaders[strings.ToLower(key)] {
			continue
		}
		dst[key] = vals
	}
	dst.Set("X-Frame-Options", FrameOptionsValue)
	dst.Set("Content-Security-Policy", FrameAncestorsCSP)
	return dst
}
