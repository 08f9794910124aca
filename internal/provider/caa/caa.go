// Package caa is a client for the Cover Art Archive JSON API.
package caa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"mbart/internal/artwork"
)

const defaultBaseURL = "https://coverartarchive.org"

// Client lists release artwork and resolves image sizes. It implements
// artwork.Source and artwork.SizeProber.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// New creates a new Cover Art Archive client.
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

func (c *Client) Name() string { return "caa" }

// Artwork lists the images of a release.
func (c *Client) Artwork(ctx context.Context, releaseID string) ([]artwork.Image, error) {
	return c.listing(ctx, "release", releaseID)
}

// GroupArtwork lists the images of the release the archive picked to
// represent a release-group.
func (c *Client) GroupArtwork(ctx context.Context, groupID string) ([]artwork.Image, error) {
	return c.listing(ctx, "release-group", groupID)
}

func (c *Client) listing(ctx context.Context, entity, id string) ([]artwork.Image, error) {
	reqURL := fmt.Sprintf("%s/%s/%s", c.baseURL, entity, id)
	body, status, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", entity, id, artwork.ErrNotFound)
	case status != http.StatusOK:
		return nil, &artwork.ServiceError{URL: reqURL, StatusCode: status, Body: string(body)}
	}

	images, err := DecodeListing(body)
	if err != nil {
		return nil, &artwork.ServiceError{URL: reqURL, StatusCode: status, Body: string(body), Err: err}
	}
	return images, nil
}

// Probe returns the byte size of the image behind link, following the
// archive's redirects with HEAD requests.
func (c *Client) Probe(ctx context.Context, link string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create probe request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", link, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &artwork.ServiceError{URL: link, StatusCode: resp.StatusCode, Err: artwork.ErrSizeUnknown}
	}
	if resp.ContentLength < 0 {
		return 0, artwork.ErrSizeUnknown
	}
	return resp.ContentLength, nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create cover art request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &artwork.ServiceError{URL: reqURL, Err: fmt.Errorf("cover art request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &artwork.ServiceError{URL: reqURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read cover art response: %w", err)}
	}
	return body, resp.StatusCode, nil
}

// DecodeListing parses an archive listing. The Internet Archive mirror
// serves the same document as index.json.
func DecodeListing(body []byte) ([]artwork.Image, error) {
	var resp listingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode cover art listing: %w", err)
	}

	images := make([]artwork.Image, 0, len(resp.Images))
	for _, img := range resp.Images {
		images = append(images, artwork.Image{
			ID:      string(img.ID),
			Link:    img.Image,
			Types:   img.Types,
			Front:   img.Front,
			Back:    img.Back,
			Comment: img.Comment,
		})
	}
	return images, nil
}

// Cover Art Archive response types

type listingResponse struct {
	Images  []image `json:"images"`
	Release string  `json:"release"`
}

type image struct {
	ID       imageID  `json:"id"`
	Image    string   `json:"image"`
	Types    []string `json:"types"`
	Front    bool     `json:"front"`
	Back     bool     `json:"back"`
	Comment  string   `json:"comment"`
	Approved bool     `json:"approved"`
}

// imageID accepts both the numeric ids of the archive and the string ids
// of its mirror.
type imageID string

func (id *imageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = imageID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("image id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("image id %s is not an integer", n)
	}
	*id = imageID(n.String())
	return nil
}
