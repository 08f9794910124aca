package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pborman/uuid"

	"mbart/internal/release"
)

const defaultAPIURL = "https://musicbrainz.org/ws/2"

var (
	// ErrInvalidID is returned before any request when an id is not an MBID.
	ErrInvalidID = errors.New("invalid musicbrainz id")
	// ErrNotFound is returned by lookups of ids MusicBrainz does not know.
	ErrNotFound = errors.New("not found on musicbrainz")
)

// Client is a MusicBrainz Web API client that implements release.Searcher.
// It performs no retries and no client-side rate limiting.
type Client struct {
	httpClient *http.Client
	apiURL     string
	userAgent  string
}

// New creates a new MusicBrainz client.
func New(userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{},
		apiURL:     defaultAPIURL,
		userAgent:  userAgent,
	}
}

// WithBaseURL points the client at another server, e.g. a mirror.
func (c *Client) WithBaseURL(apiURL string) *Client {
	if apiURL != "" {
		c.apiURL = strings.TrimRight(apiURL, "/")
	}
	return c
}

func (c *Client) Name() string { return "musicbrainz" }

// Search runs a Lucene query against the index of entity and returns the
// raw JSON response. A 404 is reported as an empty result.
func (c *Client) Search(ctx context.Context, entity, query string, limit, offset int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("fmt", "json")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	body, status, err := c.get(ctx, fmt.Sprintf("%s/%s?%s", c.apiURL, entity, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("musicbrainz search request failed: %w", err)
	}
	if status == http.StatusNotFound {
		return json.RawMessage(`{}`), nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("musicbrainz search returned %d: %s", status, trimBody(body))
	}
	return body, nil
}

// Lookup fetches one entity by MBID with the given includes.
func (c *Client) Lookup(ctx context.Context, entity, id string, inc []string) (json.RawMessage, error) {
	if uuid.Parse(id) == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	params := url.Values{}
	params.Set("fmt", "json")
	if len(inc) > 0 {
		params.Set("inc", strings.Join(inc, "+"))
	}

	body, status, err := c.get(ctx, fmt.Sprintf("%s/%s/%s?%s", c.apiURL, entity, id, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("musicbrainz lookup request failed: %w", err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	case status == http.StatusBadRequest && strings.Contains(string(body), "Invalid mbid"):
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	case status != http.StatusOK:
		return nil, fmt.Errorf("musicbrainz lookup returned %d: %s", status, trimBody(body))
	}
	return body, nil
}

// SearchReleaseGroups implements release.Searcher.
func (c *Client) SearchReleaseGroups(ctx context.Context, query string, limit, offset int) (release.SearchResult, error) {
	raw, err := c.Search(ctx, "release-group", query, limit, offset)
	if err != nil {
		return release.SearchResult{}, err
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return release.SearchResult{}, fmt.Errorf("failed to decode musicbrainz response: %w", err)
	}

	result := release.SearchResult{Count: resp.Count}
	for _, rg := range resp.ReleaseGroups {
		result.Candidates = append(result.Candidates, rg.candidate())
	}
	return result, nil
}

// LookupReleaseGroup implements release.Searcher. The returned candidate
// carries the full release list in MusicBrainz order.
func (c *Client) LookupReleaseGroup(ctx context.Context, id string) (release.Candidate, error) {
	raw, err := c.Lookup(ctx, "release-group", id, []string{"releases", "artist-credits"})
	if err != nil {
		return release.Candidate{}, err
	}

	var rg releaseGroup
	if err := json.Unmarshal(raw, &rg); err != nil {
		return release.Candidate{}, fmt.Errorf("failed to decode musicbrainz response: %w", err)
	}
	return rg.candidate(), nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create musicbrainz request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read musicbrainz response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func trimBody(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

func (rg releaseGroup) candidate() release.Candidate {
	c := release.Candidate{
		ID:             rg.ID,
		Title:          rg.Title,
		PrimaryType:    rg.PrimaryType,
		SecondaryTypes: rg.SecondaryTypes,
		Score:          rg.Score,
		ReleaseCount:   rg.Count,
	}
	for _, ac := range rg.ArtistCredit {
		name := ac.Name
		if name == "" {
			name = ac.Artist.Name
		}
		c.Artists = append(c.Artists, name)
	}
	for _, r := range rg.Releases {
		c.Releases = append(c.Releases, release.Release{
			ID:      r.ID,
			Title:   r.Title,
			Date:    r.Date,
			Country: r.Country,
		})
	}
	// Lookups carry no count field.
	if c.ReleaseCount == 0 {
		c.ReleaseCount = len(c.Releases)
	}
	return c
}

// MusicBrainz API response types

type searchResponse struct {
	Count         int            `json:"count"`
	Offset        int            `json:"offset"`
	ReleaseGroups []releaseGroup `json:"release-groups"`
}

type releaseGroup struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Score          int            `json:"score"`
	Count          int            `json:"count"`
	PrimaryType    string         `json:"primary-type"`
	SecondaryTypes []string       `json:"secondary-types"`
	ArtistCredit   []artistCredit `json:"artist-credit"`
	Releases       []mbRelease    `json:"releases"`
}

type artistCredit struct {
	Name   string     `json:"name"`
	Artist artistInfo `json:"artist"`
}

type artistInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mbRelease struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Date    string `json:"date"`
	Country string `json:"country"`
}
