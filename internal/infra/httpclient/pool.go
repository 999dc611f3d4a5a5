package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport is reused across all pooled clients so the Gemini
// endpoints keep warm connections instead of paying a TLS handshake
// per pipeline stage.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// NewPooledClient creates an http.Client sharing the process-wide
// connection pool.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}
