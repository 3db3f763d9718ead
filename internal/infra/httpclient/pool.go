package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport is reused across all pooled clients so the four stage
// services share one connection pool instead of paying a TCP handshake per
// pipeline run.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// NewPooledClient creates an http.Client that shares a connection pool with
// other pooled clients. A zero timeout leaves cancellation entirely to the
// request context, which streaming responses need.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}
