// Package artwork turns the releases of a chosen release-group into a list of
// download targets.
//
// Sources (the Cover Art Archive, its Internet Archive mirror) are defined
// here and implemented under internal/provider, following the convention of
// defining interfaces where they are consumed.
package artwork

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"mbart/internal/release"
)

// ErrNotFound means the source has no artwork for the requested id.
var ErrNotFound = errors.New("no artwork found")

// ErrSizeUnknown means the size of an image could not be determined.
var ErrSizeUnknown = errors.New("size unknown")

// ServiceError describes an unexpected response from an artwork source, or
// a request that got no response (StatusCode 0).
type ServiceError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("unexpected response from %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("unexpected response from %s (status %d)", e.URL, e.StatusCode)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Image describes one artwork image as listed by a source.
type Image struct {
	ID      string
	Link    string
	Types   []string // Front, Back, Booklet, Medium, Obi, ...
	Front   bool
	Back    bool
	Comment string
}

// Source lists the artwork images of a release.
type Source interface {
	Name() string
	Artwork(ctx context.Context, releaseID string) ([]Image, error)
}

// SizeProber resolves the byte size of an image link.
type SizeProber interface {
	Probe(ctx context.Context, link string) (int64, error)
}

// Payload is the content of a fetched image.
type Payload struct {
	Data        []byte
	ContentType string
	Size        int64 // -1 when unknown
}

// Target is one image scheduled for download.
type Target struct {
	Image     Image
	Release   release.Release
	Sequence  int
	Path      string
	Size      int64
	SizeKnown bool
}

// ImageID returns the image id, falling back to the link's file name
// without extension.
func (img Image) ImageID() string {
	if img.ID != "" {
		return img.ID
	}
	base := lastSegment(img.Link)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

// Extension returns the lower-case extension of the link, "jpg" if none.
func (img Image) Extension() string {
	ext := strings.TrimPrefix(path.Ext(lastSegment(img.Link)), ".")
	if ext == "" {
		return "jpg"
	}
	return strings.ToLower(ext)
}

// TypeLine joins the role tags for display.
func (img Image) TypeLine() string {
	if len(img.Types) == 0 {
		return "-"
	}
	return strings.Join(img.Types, ", ")
}

func lastSegment(link string) string {
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	link = strings.TrimRight(link, "/")
	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}
	return link
}

// MatchAll is the image filter that keeps every image.
const MatchAll = "all"

// Matches reports whether img carries one of the comma separated role tags
// in filter. Tags are compared case-insensitively and must match exactly.
// The legacy front/back flags count for the "front" and "back" roles.
func Matches(img Image, filter string) bool {
	matched := false
	for _, role := range strings.Split(filter, ",") {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if strings.EqualFold(role, MatchAll) || matchesRole(img, role) {
			return true
		}
		matched = true
	}
	// no roles at all keeps everything
	return !matched
}

func matchesRole(img Image, role string) bool {
	for _, t := range img.Types {
		if strings.EqualFold(t, role) {
			return true
		}
	}
	switch strings.ToLower(role) {
	case "front":
		return img.Front
	case "back":
		return img.Back
	}
	return false
}

// TargetName builds the file name for an image of the seq-th release.
// The sequence prefix keeps names unique across releases.
func TargetName(seq int, img Image) string {
	return fmt.Sprintf("%02d-%s.%s", seq, sanitizeID(img.ImageID()), img.Extension())
}

// NewTarget places img of the seq-th release under dir.
func NewTarget(dir string, seq int, rel release.Release, img Image) Target {
	return Target{
		Image:    img,
		Release:  rel,
		Sequence: seq,
		Path:     filepath.Join(dir, TargetName(seq, img)),
		Size:     -1,
	}
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, id)
}
