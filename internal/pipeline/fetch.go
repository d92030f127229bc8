package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// maxFetchBytes bounds a downloaded result image.
const maxFetchBytes = 64 << 20

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("GET %s returned status %d: %s", e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.Status)
}

// StatusCode exposes the status for error classification.
func (e *HTTPStatusError) StatusCode() int { return e.Status }

// HTTPFetcher downloads result images with a plain GET.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch returns the response body of url, failing on any non-2xx status.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPStatusError{URL: url, Status: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > maxFetchBytes {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, maxFetchBytes)
	}

	log.Debug().
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("Result image downloaded")
	return data, nil
}
