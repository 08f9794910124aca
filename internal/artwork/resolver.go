package artwork

import (
	"context"
	"errors"
	"fmt"

	"mbart/internal/logger"
	"mbart/internal/release"
)

// State is the outcome of resolving one release.
type State string

const (
	StateOK       State = "ok"
	StateNoImages State = "no images"
	StateError    State = "unknown error"
)

// ReleaseStatus reports what happened for one release.
type ReleaseStatus struct {
	Release  release.Release
	Sequence int
	State    State
	Images   int // listed by the source
	Kept     int // after filtering
	TooSmall int
	URL      string
	Raw      string
	Err      error
}

// Resolution is the result of resolving a release-group's artwork.
type Resolution struct {
	Targets  []Target
	Statuses []ReleaseStatus
}

// Resolver queries a Source for every release and filters the images.
type Resolver struct {
	Source Source
	Prober SizeProber
	Logger *logger.Logger

	// Filter is a comma separated list of role tags, or "all".
	Filter string

	// MinBytes excludes images whose probed size is smaller. Zero disables
	// probing.
	MinBytes int64

	// OnStatus is called after each release.
	OnStatus func(ReleaseStatus)
}

// Resolve builds download targets under dir for the given releases, in
// order. Failures of a single release are recorded in its status and never
// abort the run; only context cancellation is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, dir string, releases []release.Release) (Resolution, error) {
	var res Resolution

	for i, rel := range releases {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		seq := i + 1
		r.Logger.Info("[%s] %s [%s]", rel.CountryOrUnknown(), rel.ID, rel.DateOrUnknown())

		status := ReleaseStatus{Release: rel, Sequence: seq, State: StateOK}
		images, err := r.Source.Artwork(ctx, rel.ID)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return res, ctx.Err()
		case errors.Is(err, ErrNotFound):
			status.State = StateNoImages
			r.Logger.Warn("no images for %s", rel.ID)
		default:
			status.State = StateError
			status.Err = err
			var svcErr *ServiceError
			if errors.As(err, &svcErr) {
				status.URL = svcErr.URL
				status.Raw = svcErr.Body
			}
			r.Logger.Warn("unknown error for %s: %v", rel.ID, err)
			r.Logger.Debug("=== %s response ===\nurl: %s\n%s", r.Source.Name(), status.URL, status.Raw)
		}

		if status.State == StateOK {
			status.Images = len(images)
			for _, img := range images {
				target, keep, err := r.filter(ctx, dir, seq, rel, img)
				if err != nil {
					return res, err
				}
				if !keep {
					if target.SizeKnown {
						status.TooSmall++
					}
					continue
				}
				status.Kept++
				res.Targets = append(res.Targets, target)
			}
			r.Logger.Debug("%s: %d images, %d kept, %d too small", rel.ID, status.Images, status.Kept, status.TooSmall)
		}

		res.Statuses = append(res.Statuses, status)
		if r.OnStatus != nil {
			r.OnStatus(status)
		}
	}

	return res, nil
}

// filter applies the role filter and the size threshold to one image.
// A rejected image with SizeKnown set was too small.
func (r *Resolver) filter(ctx context.Context, dir string, seq int, rel release.Release, img Image) (Target, bool, error) {
	target := NewTarget(dir, seq, rel, img)
	if !Matches(img, r.Filter) {
		return target, false, nil
	}
	if r.MinBytes <= 0 || r.Prober == nil {
		return target, true, nil
	}

	size, err := r.Prober.Probe(ctx, img.Link)
	if err != nil {
		if ctx.Err() != nil {
			return target, false, ctx.Err()
		}
		// Unknown size is not "too small"; the downloader checks the real bytes.
		r.Logger.Debug("could not resolve size of %s: %v", img.Link, err)
		return target, true, nil
	}

	target.Size = size
	target.SizeKnown = true
	if size < r.MinBytes {
		r.Logger.Debug("skipping %s: %d bytes is below %d", img.Link, size, r.MinBytes)
		return target, false, nil
	}
	return target, true, nil
}

// Summary is a one-line description of a release status.
func (s ReleaseStatus) Summary() string {
	switch s.State {
	case StateNoImages:
		return "no images"
	case StateError:
		return fmt.Sprintf("unknown error: %v", s.Err)
	}
	return fmt.Sprintf("%d of %d images kept", s.Kept, s.Images)
}
