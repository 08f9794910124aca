package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"mbart/internal/artwork"
	"mbart/internal/logger"
	"mbart/pkg/utils"
)

// Status is the outcome of one download attempt.
type Status string

const (
	StatusDone     Status = "done"
	StatusSkipped  Status = "skipped"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Reasons attached to skipped and rejected reports.
const (
	ReasonDryRun      = "dry run"
	ReasonExists      = "exists"
	ReasonSize        = "size out of bounds"
	ReasonType        = "type not allowed"
	ReasonResolution  = "resolution too low"
	ReasonDuplicate   = "duplicate target"
	ReasonCancelled   = "cancelled"
	ReasonFetchFailed = "fetch failed"
	ReasonWriteFailed = "write failed"
)

// Report describes what happened to one target.
type Report struct {
	Target      artwork.Target
	Status      Status
	Reason      string
	Size        int64 // -1 when unknown
	ContentType string
	Err         error
}

// HumanSize formats the size for display.
func (r Report) HumanSize() string {
	return utils.HumanSize(r.Size)
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s [%s] %s", r.Status, filepath.Base(r.Target.Path), r.Target.Image.TypeLine(), r.HumanSize())
	if r.Reason != "" {
		fmt.Fprintf(&b, " (%s)", r.Reason)
	}
	if r.Err != nil {
		fmt.Fprintf(&b, ": %v", r.Err)
	}
	return b.String()
}

// Options gate what gets written. Byte bounds are inclusive, zero means
// unbounded.
type Options struct {
	DryRun       bool
	Redownload   bool // fetch and replace existing destinations
	MinBytes     int64
	MaxBytes     int64
	AllowPDF     bool
	MinDimension int
}

// Stats summarizes a batch of reports.
type Stats struct {
	Total    int
	Done     int
	Skipped  int
	Rejected int
	Failed   int
}

// Downloader fetches targets and writes them to Fs.
type Downloader struct {
	Fs      afero.Fs
	Fetcher Fetcher
	Options Options
	Logger  *logger.Logger

	// OnProgress is called after each report of DownloadAll.
	OnProgress func()
}

// New creates a new Downloader instance
func New(fs afero.Fs, fetcher Fetcher, opts Options, log *logger.Logger) *Downloader {
	return &Downloader{
		Fs:      fs,
		Fetcher: fetcher,
		Options: opts,
		Logger:  log,
	}
}

// Download fetches one target unless it is a dry run or the destination
// already exists, neither of which touches the network.
func (d *Downloader) Download(ctx context.Context, t artwork.Target) Report {
	if r, done := d.precheck(t); done {
		return r
	}
	if ctx.Err() != nil {
		return d.report(t, StatusSkipped, ReasonCancelled, t.Size, nil)
	}

	d.Logger.Debug("fetching %s", t.Image.Link)
	p, err := d.Fetcher.Fetch(ctx, t.Image.Link, d.Options.MaxBytes)
	if err != nil {
		switch {
		case errors.Is(err, ErrTooLarge):
			r := d.report(t, StatusRejected, ReasonSize, p.Size, nil)
			r.ContentType = p.ContentType
			return r
		case ctx.Err() != nil:
			return d.report(t, StatusSkipped, ReasonCancelled, t.Size, nil)
		}
		return d.report(t, StatusFailed, ReasonFetchFailed, t.Size, err)
	}

	return d.accept(t, p)
}

// Save applies the same gating to a payload fetched elsewhere.
func (d *Downloader) Save(ctx context.Context, t artwork.Target, p artwork.Payload) Report {
	if r, done := d.precheck(t); done {
		return r
	}
	if ctx.Err() != nil {
		return d.report(t, StatusSkipped, ReasonCancelled, p.Size, nil)
	}
	return d.accept(t, p)
}

func (d *Downloader) precheck(t artwork.Target) (Report, bool) {
	if d.Options.DryRun {
		return d.report(t, StatusSkipped, ReasonDryRun, t.Size, nil), true
	}

	if d.Options.Redownload {
		return Report{}, false
	}

	exists, err := afero.Exists(d.Fs, t.Path)
	if err != nil {
		return d.report(t, StatusFailed, ReasonWriteFailed, t.Size, fmt.Errorf("failed to stat %s: %w", t.Path, err)), true
	}
	if exists {
		return d.report(t, StatusSkipped, ReasonExists, t.Size, nil), true
	}
	return Report{}, false
}

// accept runs the size, type and resolution gates and writes the payload.
func (d *Downloader) accept(t artwork.Target, p artwork.Payload) Report {
	size := int64(len(p.Data))

	if !d.sizeAllowed(size) {
		r := d.report(t, StatusRejected, ReasonSize, size, nil)
		r.ContentType = p.ContentType
		return r
	}

	if !d.Options.AllowPDF && isPDF(p.ContentType, t.Path) {
		r := d.report(t, StatusRejected, ReasonType, size, nil)
		r.ContentType = p.ContentType
		return r
	}

	if d.Options.MinDimension > 0 {
		// Formats without a registered decoder pass.
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(p.Data)); err == nil {
			if cfg.Width < d.Options.MinDimension || cfg.Height < d.Options.MinDimension {
				d.Logger.Debug("%s is %dx%d, below %dpx", t.Path, cfg.Width, cfg.Height, d.Options.MinDimension)
				r := d.report(t, StatusRejected, ReasonResolution, size, nil)
				r.ContentType = p.ContentType
				return r
			}
		}
	}

	if err := d.writeFile(t.Path, p.Data); err != nil {
		return d.report(t, StatusFailed, ReasonWriteFailed, size, err)
	}

	r := d.report(t, StatusDone, "", size, nil)
	r.ContentType = p.ContentType
	return r
}

func (d *Downloader) sizeAllowed(size int64) bool {
	if d.Options.MinBytes > 0 && size < d.Options.MinBytes {
		return false
	}
	if d.Options.MaxBytes > 0 && size > d.Options.MaxBytes {
		return false
	}
	return true
}

func isPDF(contentType, path string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// writeFile writes data next to path and renames it into place, so path
// either does not exist or holds the complete content.
func (d *Downloader) writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := d.Fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(d.Fs, dir, ".mbart-*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		d.Fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		d.Fs.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := d.Fs.Rename(tmpName, path); err != nil {
		d.Fs.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func (d *Downloader) report(t artwork.Target, status Status, reason string, size int64, err error) Report {
	r := Report{Target: t, Status: status, Reason: reason, Size: size, Err: err}
	switch status {
	case StatusFailed:
		d.Logger.Debug("%s failed: %v", t.Path, err)
	case StatusRejected:
		d.Logger.Debug("%s rejected: %s (%s)", t.Path, reason, r.HumanSize())
	}
	return r
}

// DownloadAll downloads targets with at most jobs attempts in flight.
// A path is never written by two workers: later targets with the same path
// are reported as duplicates. After cancellation no new attempt starts.
// Reports are returned in target order; onReport sees them in completion
// order and is never called concurrently.
func (d *Downloader) DownloadAll(ctx context.Context, targets []artwork.Target, jobs int, onReport func(Report)) ([]Report, Stats) {
	if jobs < 1 {
		jobs = 1
	}

	reports := make([]Report, len(targets))
	var mu sync.Mutex
	emit := func(i int, r Report) {
		mu.Lock()
		defer mu.Unlock()
		reports[i] = r
		if onReport != nil {
			onReport(r)
		}
		if d.OnProgress != nil {
			d.OnProgress()
		}
	}

	var g errgroup.Group
	g.SetLimit(jobs)

	seen := make(map[string]bool, len(targets))
	for i, t := range targets {
		if seen[t.Path] {
			emit(i, Report{Target: t, Status: StatusSkipped, Reason: ReasonDuplicate, Size: t.Size})
			continue
		}
		seen[t.Path] = true

		if ctx.Err() != nil {
			emit(i, Report{Target: t, Status: StatusSkipped, Reason: ReasonCancelled, Size: t.Size})
			continue
		}

		g.Go(func() error {
			emit(i, d.Download(ctx, t))
			return nil
		})
	}
	g.Wait()

	return reports, Tally(reports)
}

// Tally counts reports by status.
func Tally(reports []Report) Stats {
	s := Stats{Total: len(reports)}
	for _, r := range reports {
		switch r.Status {
		case StatusDone:
			s.Done++
		case StatusSkipped:
			s.Skipped++
		case StatusRejected:
			s.Rejected++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
