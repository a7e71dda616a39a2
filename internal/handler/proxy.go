package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"

	"github.com/labstack/echo/v4"

	"lab-proxy-go/internal/client"
	"lab-proxy-go/internal/metrics"
	"lab-proxy-go/internal/model"
	"lab-proxy-go/internal/service"
)

// Fixed plain-text bodies returned to the caller.
const (
	msgMissingURL       = "Missing url param"
	msgDomainNotAllowed = "Domain not allowed"
	msgProxyError       = "Proxy error"
)

// queryPattern matches query strings of URLs embedded in error messages.
var queryPattern = regexp.MustCompile(`(https?://[^\s"?]+)\?[^\s"]*`)

// ProxyHandler serves GET /proxy.
type ProxyHandler struct {
	service *service.ProxyService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler. The metrics parameter may be nil.
func NewProxyHandler(svc *service.ProxyService, m *metrics.Metrics, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		metrics: m,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle fetches the allow-listed url parameter and relays the upstream
// response with framing headers rewritten.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		Ctx: req.Context(),
		URL: c.QueryParams()["url"],
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	h.metrics.ObserveOutcome(metrics.OutcomeRelayed)

	// Replace rather than add so upstream values win over middleware defaults.
	header := c.Response().Header()
	for key, vals := range resp.Header {
		header[key] = vals
	}

	c.Response().WriteHeader(resp.StatusCode)

	// The status is already on the wire; a failed write can only be logged.
	if _, err := c.Response().Write(resp.Body); err != nil {
		h.logger.Error("writing response body",
			"err", err,
			"final_url", sanitize(resp.FinalURL),
		)
	}

	return nil
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrMissingURL):
		h.metrics.ObserveOutcome(metrics.OutcomeBadRequest)
		h.logger.Warn("proxy rejected", "reason", "missing_url", "remote_ip", c.RealIP())
		return c.String(http.StatusBadRequest, msgMissingURL)

	case errors.Is(err, service.ErrDomainNotAllowed):
		h.metrics.ObserveOutcome(metrics.OutcomeForbidden)
		h.logger.Warn("proxy rejected",
			"reason", "domain_not_allowed",
			"err", err.Error(),
			"remote_ip", c.RealIP(),
		)
		return c.String(http.StatusForbidden, msgDomainNotAllowed)
	}

	h.metrics.ObserveOutcome(metrics.OutcomeError)
	h.logger.Error("proxy error",
		"cause", classifyError(err),
		"err", sanitize(err.Error()),
	)
	return c.String(http.StatusInternalServerError, msgProxyError)
}

// classifyError names the failure for operators; callers always see the
// same generic body.
func classifyError(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, client.ErrRedirectNotAllowed):
		return "redirect_blocked"
	case errors.Is(err, client.ErrTooManyRedirects):
		return "too_many_redirects"
	case errors.Is(err, client.ErrBodyTooLarge):
		return "body_too_large"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "connection"
	}

	return "other"
}

// sanitize strips query strings from URLs so lab credentials submitted via
// GET forms do not end up in logs.
func sanitize(s string) string {
	return queryPattern.ReplaceAllString(s, "${1}?[REDACTED]")
}
