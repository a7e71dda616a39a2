package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lab-proxy-go/internal/allowlist"
	"lab-proxy-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	allow   *allowlist.List
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, allow *allowlist.List, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, allow: allow, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// statusResponse is the body of GET /proxy/status.
type statusResponse struct {
	Status         string   `json:"status"`
	Version        string   `json:"version"`
	AllowedHosts   []string `json:"allowed_hosts"`
	Redirects      string   `json:"redirects"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:         "ok",
		Version:        string(h.version),
		AllowedHosts:   h.allow.Hosts(),
		Redirects:      h.cfg.Upstream.Redirects,
		TimeoutSeconds: h.cfg.Upstream.TimeoutSeconds,
	})
}
