// Package archive reads the Internet Archive mirror of the Cover Art Archive,
// where each release is an item named mbid-<release id>.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mbart/internal/artwork"
	"mbart/internal/provider/caa"
)

const defaultBaseURL = "https://archive.org/download"

// Client implements artwork.Source on top of the mirror's index.json files.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// New creates a new Internet Archive client.
func New(userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    defaultBaseURL,
		userAgent:  userAgent,
	}
}

// WithBaseURL points the client at another server.
func (c *Client) WithBaseURL(baseURL string) *Client {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

func (c *Client) Name() string { return "archive" }

// Index returns the images listed in the item's index.json, with links as
// published (pointing back at the Cover Art Archive).
func (c *Client) Index(ctx context.Context, releaseID string) ([]artwork.Image, error) {
	reqURL := fmt.Sprintf("%s/mbid-%s/index.json", c.baseURL, releaseID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &artwork.ServiceError{URL: reqURL, Err: fmt.Errorf("archive request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &artwork.ServiceError{URL: reqURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read archive response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("mbid-%s: %w", releaseID, artwork.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, &artwork.ServiceError{URL: reqURL, StatusCode: resp.StatusCode, Body: string(body)}
	}

	images, err := caa.DecodeListing(body)
	if err != nil {
		return nil, &artwork.ServiceError{URL: reqURL, StatusCode: resp.StatusCode, Body: string(body), Err: err}
	}
	return images, nil
}

// Artwork implements artwork.Source. Links are rewritten to the files stored
// in the archive item itself.
func (c *Client) Artwork(ctx context.Context, releaseID string) ([]artwork.Image, error) {
	images, err := c.Index(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	for i := range images {
		images[i].Link = c.FileURL(releaseID, images[i])
	}
	return images, nil
}

// FileURL is the mirror location of img: <base>/mbid-<id>/mbid-<id>-<imageid>.<ext>.
func (c *Client) FileURL(releaseID string, img artwork.Image) string {
	item := "mbid-" + releaseID
	return fmt.Sprintf("%s/%s/%s-%s.%s", c.baseURL, item, item, img.ImageID(), img.Extension())
}
