package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mbart/internal/artwork"
)

// ErrTooLarge is returned by a Fetcher when the content exceeds the limit.
// The payload's Size is still set to the known (or partial) length.
var ErrTooLarge = errors.New("content exceeds size limit")

// Fetcher retrieves the bytes behind an image link.
type Fetcher interface {
	Fetch(ctx context.Context, link string, maxBytes int64) (artwork.Payload, error)
}

// HTTPFetcher fetches over HTTP, following redirects.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPFetcher creates an HTTPFetcher with a default client.
func NewHTTPFetcher(userAgent string) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{}, UserAgent: userAgent}
}

// Fetch downloads link in one pass. With maxBytes > 0 an announced
// Content-Length above the limit stops before reading the body, and at most
// maxBytes+1 bytes are read otherwise.
func (f *HTTPFetcher) Fetch(ctx context.Context, link string, maxBytes int64) (artwork.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return artwork.Payload{}, fmt.Errorf("failed to create download request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return artwork.Payload{}, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return artwork.Payload{}, &artwork.ServiceError{URL: link, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return artwork.Payload{ContentType: contentType, Size: resp.ContentLength}, ErrTooLarge
	}

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return artwork.Payload{}, fmt.Errorf("failed to read %s: %w", link, err)
	}

	p := artwork.Payload{Data: data, ContentType: contentType, Size: int64(len(data))}
	if maxBytes > 0 && p.Size > maxBytes {
		p.Data = nil
		return p, ErrTooLarge
	}
	return p, nil
}
