package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultChunkSize is the read granularity for streamed response bodies.
const DefaultChunkSize = 32 * 1024

// HTTPLoader is a Loader backed by net/http with configurable timeout and
// chunk size.
type HTTPLoader struct {
	client    *http.Client
	chunkSize int
}

// NewHTTPLoader creates a loader with the specified request timeout.
func NewHTTPLoader(timeout time.Duration) *HTTPLoader {
	return &HTTPLoader{
		client: &http.Client{
			Timeout: timeout,
		},
		chunkSize: DefaultChunkSize,
	}
}

// DefaultHTTPLoader returns a loader with a 1-minute timeout.
func DefaultHTTPLoader() *HTTPLoader {
	return NewHTTPLoader(time.Minute)
}

// SetChunkSize overrides the body read granularity. Values below one are
// ignored.
func (l *HTTPLoader) SetChunkSize(n int) {
	if n >= 1 {
		l.chunkSize = n
	}
}

// Fetch streams url, emitting headers, body chunks, and one terminal event.
func (l *HTTPLoader) Fetch(ctx context.Context, url string, emit func(Event)) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		emit(Complete(fmt.Errorf("failed to create request: %w", err)))
		return
	}

	resp, err := l.client.Do(req)
	if err != nil {
		emit(Complete(fmt.Errorf("failed to fetch %s: %w", url, err)))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		emit(Complete(fmt.Errorf("fetch failed: %s returned %s", url, resp.Status)))
		return
	}

	emit(Headers())

	buf := make([]byte, l.chunkSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			emit(Data(chunk))
		}
		if err == io.EOF {
			emit(Complete(nil))
			return
		}
		if err != nil {
			emit(Complete(fmt.Errorf("failed to read response from %s: %w", url, err)))
			return
		}
	}
}
