package release

import (
	"context"
	"strings"
)

// Candidate is a release-group returned by a catalog search.
type Candidate struct {
	ID             string
	Title          string
	Artists        []string
	PrimaryType    string // album, single, ep, other; may be empty
	SecondaryTypes []string
	Score          int // relevance reported by the search service, 0-100
	ReleaseCount   int
	Releases       []Release
}

// Release is one edition of a release-group.
type Release struct {
	ID      string
	Title   string
	Date    string // free-form, empty when unknown
	Country string // empty when unknown
}

// SearchResult holds one page of search results. Count is the total number
// of matches reported by the service, which may exceed len(Candidates).
type SearchResult struct {
	Candidates []Candidate
	Count      int
}

// Searcher is the interface a release-group catalog must implement.
type Searcher interface {
	SearchReleaseGroups(ctx context.Context, query string, limit, offset int) (SearchResult, error)
	LookupReleaseGroup(ctx context.Context, id string) (Candidate, error)
}

// SortKey is the ranking weight of a candidate. A release count of zero
// counts as one so that it cannot cancel out the score.
func (c Candidate) SortKey() int {
	n := c.ReleaseCount
	if n < 1 {
		n = 1
	}
	return c.Score * n
}

// ArtistLine joins the credited artists for display.
func (c Candidate) ArtistLine() string {
	return strings.Join(c.Artists, ", ")
}

// TypeLine joins the primary and secondary types, e.g. "Album, Live".
func (c Candidate) TypeLine() string {
	primary := c.PrimaryType
	if primary == "" {
		primary = "none"
	}
	return strings.Join(append([]string{primary}, c.SecondaryTypes...), ", ")
}

func (r Release) DateOrUnknown() string {
	if r.Date == "" {
		return "????"
	}
	return r.Date
}

func (r Release) CountryOrUnknown() string {
	if r.Country == "" {
		return "NA"
	}
	return r.Country
}
