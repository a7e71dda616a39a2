// Package model defines shared types for the proxy.
package model

import (
	"context"
	"net/http"
)

// ProxyRequest carries the target of a /proxy call. URL holds every value of
// the url query parameter so a repeated parameter can be rejected.
type ProxyRequest struct {
	Ctx context.Context
	URL []string
}

// ProxyResponse is a fully buffered upstream response ready to relay.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FinalURL   string // URL of the last hop after redirects
}
