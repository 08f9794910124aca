package artwork

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/pborman/uuid"
	caa "gopkg.in/mineo/gocaa.v1"

	"mbart/internal/release"
)

// GroupFrontClient fetches the front image chosen for a whole release-group.
// *caa.CAAClient implements it.
type GroupFrontClient interface {
	GetReleaseGroupFront(mbid uuid.UUID, size int) (caa.CoverArtImage, error)
}

// GroupFront downloads the release-group's canonical front cover, which the
// Cover Art Archive picks from one of its releases.
type GroupFront struct {
	Client GroupFrontClient
}

// NewGroupFront creates a GroupFront backed by the Cover Art Archive at baseURL.
func NewGroupFront(userAgent, baseURL string) *GroupFront {
	c := caa.NewCAAClient(userAgent)
	if baseURL != "" {
		c.BaseURL = baseURL
	}
	return &GroupFront{Client: c}
}

// Fetch returns the original-size front image of the release-group.
// The client does not take a context, so cancellation is only checked before
// the request.
func (g *GroupFront) Fetch(ctx context.Context, groupID string) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return Payload{}, err
	}

	mbid := caa.StringToUUID(groupID)
	if mbid == nil {
		return Payload{}, fmt.Errorf("invalid release-group id %q", groupID)
	}

	img, err := g.get(mbid)
	if err != nil {
		var httpErr caa.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return Payload{}, ErrNotFound
		}
		return Payload{}, fmt.Errorf("release-group front for %s: %w", groupID, err)
	}

	return Payload{
		Data:        img.Data,
		ContentType: img.Mimetype,
		Size:        int64(len(img.Data)),
	}, nil
}

// get recovers from the panic gocaa raises when the transport itself fails,
// since it reads the response status before checking the error.
func (g *GroupFront) get(mbid uuid.UUID) (img caa.CoverArtImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cover art archive request failed: %v", r)
		}
	}()
	return g.Client.GetReleaseGroupFront(mbid, caa.ImageSizeOriginal)
}

// GroupFrontPrefix starts the file name of a saved release-group front.
const GroupFrontPrefix = "00-front."

// TargetFor names the group front "00-front.<ext>" so it sorts before the
// per-release images.
func (g *GroupFront) TargetFor(dir, groupID string, p Payload) Target {
	ext := extensionForType(p.ContentType)
	return Target{
		Image: Image{
			ID:    "front",
			Link:  "release-group/" + groupID + "/front." + ext,
			Types: []string{"Front"},
			Front: true,
		},
		Release:   release.Release{ID: groupID},
		Sequence:  0,
		Path:      filepath.Join(dir, GroupFrontPrefix+ext),
		Size:      p.Size,
		SizeKnown: p.Size >= 0,
	}
}

func extensionForType(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "application/pdf":
		return "pdf"
	}
	return "jpg"
}
