package tagger

import (
	"regexp"
	"strings"
)

// Edition suffixes that name a release rather than the release-group.
var editionPatterns = []*regexp.Regexp{
	// Parenthesized suffixes
	regexp.MustCompile(`(?i)\s*\((?:\d{4}\s+)?remaster(?:ed)?(?:\s+version)?(?:\s+\d{4})?\)`),
	regexp.MustCompile(`(?i)\s*\((?:super\s+)?deluxe(?:\s+edition|\s+version)?\)`),
	regexp.MustCompile(`(?i)\s*\((?:expanded|special|limited|collector'?s)\s+edition\)`),
	regexp.MustCompile(`(?i)\s*\(\d+(?:st|nd|rd|th)\s+anniversary(?:\s+edition)?\)`),
	regexp.MustCompile(`(?i)\s*\(bonus\s+tracks?(?:\s+version|\s+edition)?\)`),
	regexp.MustCompile(`(?i)\s*\((?:disc|cd)\s*\d+\)`),
	regexp.MustCompile(`(?i)\s*\(explicit\)`),
	regexp.MustCompile(`(?i)\s*\(clean\)`),

	// Bracketed suffixes
	regexp.MustCompile(`(?i)\s*\[(?:\d{4}\s+)?remaster(?:ed)?(?:\s+version)?(?:\s+\d{4})?\]`),
	regexp.MustCompile(`(?i)\s*\[(?:super\s+)?deluxe(?:\s+edition|\s+version)?\]`),
	regexp.MustCompile(`(?i)\s*\[(?:expanded|special|limited|collector'?s)\s+edition\]`),
	regexp.MustCompile(`(?i)\s*\[\d+(?:st|nd|rd|th)\s+anniversary(?:\s+edition)?\]`),
	regexp.MustCompile(`(?i)\s*\[bonus\s+tracks?(?:\s+version|\s+edition)?\]`),
	regexp.MustCompile(`(?i)\s*\[(?:disc|cd)\s*\d+\]`),
	regexp.MustCompile(`(?i)\s*\[explicit\]`),
	regexp.MustCompile(`(?i)\s*\[clean\]`),

	// "Album - Remastered 2009"
	regexp.MustCompile(`(?i)\s+-\s+(?:\d{4}\s+)?remaster(?:ed)?(?:\s+version)?(?:\s+\d{4})?$`),
}

// Featured artists in an artist tag
var featuringPattern = regexp.MustCompile(`(?i)\s+(?:feat\.?|ft\.?|featuring)\s+.+$`)

// NormalizeAlbum strips edition suffixes from an album tag and featured
// artists from an artist tag. An album that would end up empty is returned
// trimmed but otherwise untouched.
func NormalizeAlbum(album, artist string) (string, string) {
	album = strings.TrimSpace(album)
	artist = strings.TrimSpace(featuringPattern.ReplaceAllString(strings.TrimSpace(artist), ""))

	cleaned := album
	for _, p := range editionPatterns {
		cleaned = p.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return album, artist
	}
	return cleaned, artist
}
