package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// userAgent identifies outbound requests; some market data endpoints
// reject requests with no browser-like agent.
const userAgent = "Mozilla/5.0 (compatible; nowcast/1.0)"

var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

// DoGet performs an HTTP GET and returns the response body reader and
// status code. The caller must close the body on success.
func DoGet(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, resp.StatusCode, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	return resp.Body, resp.StatusCode, nil
}
