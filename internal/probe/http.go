package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultDashboardPort is the only service in the fleet that exposes
	// an HTTP surface; for every other service this check is always
	// inconclusive and the proc scan decides.
	DefaultDashboardPort = 8501

	DefaultHTTPTimeout = 1 * time.Second
)

// HTTPCheck issues a GET against the local dashboard health endpoint.
//
// Any completed response counts as ALIVE regardless of status code:
// the endpoint answering at all is the liveness signal. Transport
// errors (connection refused, timeout) are inconclusive.
type HTTPCheck struct {
	url    string
	client *http.Client
}

func NewHTTPCheck(port int, timeout time.Duration) *HTTPCheck {
	if port <= 0 {
		port = DefaultDashboardPort
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPCheck{
		url:    fmt.Sprintf("http://localhost:%d/health", port),
		client: &http.Client{Timeout: timeout},
	}
}

// NewHTTPCheckURL is the test seam: probe an arbitrary endpoint.
func NewHTTPCheckURL(url string, timeout time.Duration) *HTTPCheck {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPCheck{url: url, client: &http.Client{Timeout: timeout}}
}

func (c *HTTPCheck) Name() string { return "http" }

func (c *HTTPCheck) Probe(ctx context.Context, service string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	_ = resp.Body.Close()
	return true, nil
}
