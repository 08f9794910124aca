package release

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MatchAny is the category filter that keeps every candidate.
const MatchAny = "all"

// ErrNoResults is returned by Rank when there is nothing left to select.
var ErrNoResults = errors.New("no search results")

// ErrEmptySearch is returned when the service itself returned no candidates.
// It wraps ErrNoResults.
var ErrEmptySearch = fmt.Errorf("%w: the search returned nothing", ErrNoResults)

// Rank filters candidates by primary type and orders them by SortKey,
// highest first. Candidates with equal keys keep the order the service
// returned them in. The input slice is left untouched.
func Rank(cands []Candidate, filter string) ([]Candidate, error) {
	if len(cands) == 0 {
		return nil, ErrEmptySearch
	}

	ranked := make([]Candidate, 0, len(cands))
	if isMatchAny(filter) {
		ranked = append(ranked, cands...)
	} else {
		for _, c := range cands {
			if strings.EqualFold(c.PrimaryType, filter) {
				ranked = append(ranked, c)
			}
		}
	}

	if len(ranked) == 0 {
		return nil, fmt.Errorf("%w: none of %d results has type %q, try another filter or a higher limit", ErrNoResults, len(cands), filter)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SortKey() > ranked[j].SortKey()
	})
	return ranked, nil
}

func isMatchAny(filter string) bool {
	return filter == "" || strings.EqualFold(filter, MatchAny)
}
