package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbart/internal/artwork"
	"mbart/internal/logger"
	"mbart/internal/release"
)

type fakeFetcher struct {
	mu       sync.Mutex
	payloads map[string]artwork.Payload
	errs     map[string]error
	calls    int32
	hook     func(link string)
}

func (f *fakeFetcher) Fetch(_ context.Context, link string, maxBytes int64) (artwork.Payload, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.hook != nil {
		f.hook(link)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[link]; ok {
		return artwork.Payload{}, err
	}
	p, ok := f.payloads[link]
	if !ok {
		return artwork.Payload{}, fmt.Errorf("no payload for %s", link)
	}
	if maxBytes > 0 && p.Size > maxBytes {
		return artwork.Payload{Size: p.Size, ContentType: p.ContentType}, ErrTooLarge
	}
	return p, nil
}

func payload(n int, contentType string) artwork.Payload {
	return artwork.Payload{Data: bytes.Repeat([]byte{'x'}, n), ContentType: contentType, Size: int64(n)}
}

func quietLogger() *logger.Logger {
	l := logger.New(false)
	l.SetOutput(nil)
	return l
}

func releaseFor(seq int) release.Release {
	return release.Release{ID: fmt.Sprintf("rel-%d", seq)}
}

func target(seq int, id, link string) artwork.Target {
	img := artwork.Image{ID: id, Link: link, Types: []string{"Front"}}
	return artwork.NewTarget(filepath.Join("Covers", "Album"), seq, releaseFor(seq), img)
}

func TestDownload_DryRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{payloads: map[string]artwork.Payload{"http://caa/1.jpg": payload(10, "image/jpeg")}}
	d := New(fs, f, Options{DryRun: true}, quietLogger())

	tgt := target(1, "1", "http://caa/1.jpg")
	r := d.Download(context.Background(), tgt)

	assert.Equal(t, StatusSkipped, r.Status)
	assert.Equal(t, ReasonDryRun, r.Reason)
	assert.Zero(t, atomic.LoadInt32(&f.calls), "dry run must not fetch")

	exists, _ := afero.Exists(fs, tgt.Path)
	assert.False(t, exists)
	dirExists, _ := afero.DirExists(fs, filepath.Dir(tgt.Path))
	assert.False(t, dirExists)
}

func TestDownload_WritesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{payloads: map[string]artwork.Payload{"http://caa/1.jpg": payload(1500, "image/jpeg")}}
	d := New(fs, f, Options{}, quietLogger())

	tgt := target(1, "1", "http://caa/1.jpg")
	r := d.Download(context.Background(), tgt)
	require.Equal(t, StatusDone, r.Status, r.String())
	assert.Equal(t, int64(1500), r.Size)
	assert.Equal(t, "1 kb", r.HumanSize())

	data, err := afero.ReadFile(fs, tgt.Path)
	require.NoError(t, err)
	assert.Len(t, data, 1500)

	entries, err := afero.ReadDir(fs, filepath.Dir(tgt.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDownload_ExistsIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{payloads: map[string]artwork.Payload{"http://caa/1.jpg": payload(100, "image/jpeg")}}
	d := New(fs, f, Options{}, quietLogger())
	tgt := target(1, "1", "http://caa/1.jpg")

	first := d.Download(context.Background(), tgt)
	require.Equal(t, StatusDone, first.Status)
	before, _ := afero.ReadFile(fs, tgt.Path)

	f.payloads["http://caa/1.jpg"] = payload(200, "image/jpeg")
	second := d.Download(context.Background(), tgt)

	assert.Equal(t, StatusSkipped, second.Status)
	assert.Equal(t, ReasonExists, second.Reason)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls), "existing file must not be fetched")

	after, _ := afero.ReadFile(fs, tgt.Path)
	assert.Equal(t, before, after)
}

func TestDownload_RedownloadReplaces(t *testing.T) {
	fs := afero.NewMemMapFs()
	link := "http://caa/1.jpg"
	f := &fakeFetcher{payloads: map[string]artwork.Payload{link: payload(100, "image/jpeg")}}
	tgt := target(1, "1", link)

	first := New(fs, f, Options{}, quietLogger()).Download(context.Background(), tgt)
	require.Equal(t, StatusDone, first.Status)

	f.payloads[link] = payload(300, "image/jpeg")
	kept := New(fs, f, Options{}, quietLogger()).Download(context.Background(), tgt)
	assert.Equal(t, ReasonExists, kept.Reason)
	data, _ := afero.ReadFile(fs, tgt.Path)
	assert.Len(t, data, 100, "without re-download the file stays")

	again := New(fs, f, Options{Redownload: true}, quietLogger()).Download(context.Background(), tgt)
	require.Equal(t, StatusDone, again.Status, again.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.calls))

	data, err := afero.ReadFile(fs, tgt.Path)
	require.NoError(t, err)
	assert.Len(t, data, 300, "re-download replaces the file")

	entries, err := afero.ReadDir(fs, filepath.Dir(tgt.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestDownload_RedownloadRejectedKeepsOld(t *testing.T) {
	fs := afero.NewMemMapFs()
	link := "http://caa/1.jpg"
	f := &fakeFetcher{payloads: map[string]artwork.Payload{link: payload(100, "image/jpeg")}}
	tgt := target(1, "1", link)

	require.Equal(t, StatusDone, New(fs, f, Options{}, quietLogger()).Download(context.Background(), tgt).Status)

	f.payloads[link] = payload(5000, "image/jpeg")
	r := New(fs, f, Options{Redownload: true, MaxBytes: 1000}, quietLogger()).Download(context.Background(), tgt)
	assert.Equal(t, StatusRejected, r.Status)

	data, _ := afero.ReadFile(fs, tgt.Path)
	assert.Len(t, data, 100)
}

func TestDownload_SizeOutOfBounds(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{payloads: map[string]artwork.Payload{
		"http://caa/small.jpg": payload(50_000, "image/jpeg"),
		"http://caa/huge.jpg":  payload(40_000_000, "image/jpeg"),
		"http://caa/edge.jpg":  payload(200_000, "image/jpeg"),
	}}
	d := New(fs, f, Options{MinBytes: 200 * 1000, MaxBytes: 30000 * 1000}, quietLogger())

	small := target(1, "small", "http://caa/small.jpg")
	r := d.Download(context.Background(), small)
	assert.Equal(t, StatusRejected, r.Status)
	assert.Equal(t, ReasonSize, r.Reason)
	assert.Equal(t, "50 kb", r.HumanSize())
	exists, _ := afero.Exists(fs, small.Path)
	assert.False(t, exists)

	huge := target(1, "huge", "http://caa/huge.jpg")
	r = d.Download(context.Background(), huge)
	assert.Equal(t, StatusRejected, r.Status)
	assert.Equal(t, ReasonSize, r.Reason)
	assert.Equal(t, "40.00 mb", r.HumanSize())

	edge := target(1, "edge", "http://caa/edge.jpg")
	r = d.Download(context.Background(), edge)
	assert.Equal(t, StatusDone, r.Status, "bounds are inclusive")
}

func TestDownload_PDF(t *testing.T) {
	f := &fakeFetcher{payloads: map[string]artwork.Payload{
		"http://caa/booklet.pdf": payload(100, "application/pdf"),
		"http://caa/scan.jpg":    payload(100, "application/pdf; charset=binary"),
	}}

	d := New(afero.NewMemMapFs(), f, Options{}, quietLogger())
	r := d.Download(context.Background(), target(1, "booklet", "http://caa/booklet.pdf"))
	assert.Equal(t, StatusRejected, r.Status)
	assert.Equal(t, ReasonType, r.Reason)

	r = d.Download(context.Background(), target(1, "scan", "http://caa/scan.jpg"))
	assert.Equal(t, ReasonType, r.Reason)

	d = New(afero.NewMemMapFs(), f, Options{AllowPDF: true}, quietLogger())
	r = d.Download(context.Background(), target(1, "booklet", "http://caa/booklet.pdf"))
	assert.Equal(t, StatusDone, r.Status)
}

func pngOf(t *testing.T, w, h int) artwork.Payload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return artwork.Payload{Data: buf.Bytes(), ContentType: "image/png", Size: int64(buf.Len())}
}

func TestDownload_MinDimension(t *testing.T) {
	f := &fakeFetcher{payloads: map[string]artwork.Payload{
		"http://caa/thumb.png": pngOf(t, 50, 50),
		"http://caa/wide.png":  pngOf(t, 600, 100),
		"http://caa/big.png":   pngOf(t, 300, 300),
		"http://caa/raw.jpg":   payload(100, "image/jpeg"),
	}}
	d := New(afero.NewMemMapFs(), f, Options{MinDimension: 250}, quietLogger())

	r := d.Download(context.Background(), target(1, "thumb", "http://caa/thumb.png"))
	assert.Equal(t, ReasonResolution, r.Reason)
	r = d.Download(context.Background(), target(1, "wide", "http://caa/wide.png"))
	assert.Equal(t, ReasonResolution, r.Reason)
	r = d.Download(context.Background(), target(1, "big", "http://caa/big.png"))
	assert.Equal(t, StatusDone, r.Status)
	r = d.Download(context.Background(), target(1, "raw", "http://caa/raw.jpg"))
	assert.Equal(t, StatusDone, r.Status, "undecodable content passes the gate")
}

func TestDownload_FetchFailure(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{
		"http://caa/1.jpg": &artwork.ServiceError{URL: "http://caa/1.jpg", StatusCode: 500},
	}}
	fs := afero.NewMemMapFs()
	d := New(fs, f, Options{}, quietLogger())

	tgt := target(1, "1", "http://caa/1.jpg")
	r := d.Download(context.Background(), tgt)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Error(t, r.Err)
	exists, _ := afero.Exists(fs, tgt.Path)
	assert.False(t, exists)
}

type failingRenameFs struct{ afero.Fs }

func (f failingRenameFs) Rename(string, string) error { return errors.New("disk full") }

func TestDownload_WriteFailureLeavesNothing(t *testing.T) {
	mem := afero.NewMemMapFs()
	f := &fakeFetcher{payloads: map[string]artwork.Payload{"http://caa/1.jpg": payload(10, "image/jpeg")}}
	d := New(failingRenameFs{mem}, f, Options{}, quietLogger())

	tgt := target(1, "1", "http://caa/1.jpg")
	r := d.Download(context.Background(), tgt)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, ReasonWriteFailed, r.Reason)

	entries, err := afero.ReadDir(mem, filepath.Dir(tgt.Path))
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file must be removed")
}

func TestSave_GatesPayload(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := New(fs, &fakeFetcher{}, Options{MinBytes: 1000}, quietLogger())

	tgt := target(0, "front", "release-group/x/front.jpg")
	r := d.Save(context.Background(), tgt, payload(10, "image/jpeg"))
	assert.Equal(t, StatusRejected, r.Status)

	r = d.Save(context.Background(), tgt, payload(2000, "image/jpeg"))
	assert.Equal(t, StatusDone, r.Status)

	r = d.Save(context.Background(), tgt, payload(2000, "image/jpeg"))
	assert.Equal(t, ReasonExists, r.Reason)
}

func TestDownloadAll_OrderAndStats(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{payloads: map[string]artwork.Payload{}}
	var targets []artwork.Target
	for i := 1; i <= 8; i++ {
		link := fmt.Sprintf("http://caa/%d.jpg", i)
		f.payloads[link] = payload(100*i, "image/jpeg")
		targets = append(targets, target(i, fmt.Sprint(i), link))
	}
	f.errs = map[string]error{"http://caa/8.jpg": errors.New("reset by peer")}

	d := New(fs, f, Options{MinBytes: 200}, quietLogger())

	var seen int32
	reports, stats := d.DownloadAll(context.Background(), targets, 4, func(Report) { atomic.AddInt32(&seen, 1) })

	require.Len(t, reports, 8)
	for i, r := range reports {
		assert.Equal(t, targets[i].Path, r.Target.Path)
	}
	assert.Equal(t, int32(8), seen)
	assert.Equal(t, Stats{Total: 8, Done: 6, Rejected: 1, Failed: 1}, stats)
}

func TestDownloadAll_DuplicatePaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := &fakeFetcher{payloads: map[string]artwork.Payload{
		"http://caa/a.jpg": payload(10, "image/jpeg"),
		"http://caa/b.jpg": payload(20, "image/jpeg"),
	}}
	d := New(fs, f, Options{}, quietLogger())

	a := target(1, "same", "http://caa/a.jpg")
	b := target(1, "same", "http://caa/b.jpg")

	reports, stats := d.DownloadAll(context.Background(), []artwork.Target{a, b}, 2, nil)
	assert.Equal(t, StatusDone, reports[0].Status)
	assert.Equal(t, ReasonDuplicate, reports[1].Reason)
	assert.Equal(t, 1, stats.Done)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))

	data, _ := afero.ReadFile(fs, a.Path)
	assert.Len(t, data, 10)
}

func TestDownloadAll_StopsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeFetcher{payloads: map[string]artwork.Payload{}}
	var targets []artwork.Target
	for i := 1; i <= 5; i++ {
		link := fmt.Sprintf("http://caa/%d.jpg", i)
		f.payloads[link] = payload(10, "image/jpeg")
		targets = append(targets, target(i, fmt.Sprint(i), link))
	}
	f.hook = func(link string) {
		if link == "http://caa/2.jpg" {
			cancel()
		}
	}

	d := New(afero.NewMemMapFs(), f, Options{}, quietLogger())
	reports, stats := d.DownloadAll(ctx, targets, 1, nil)

	assert.Equal(t, int32(2), atomic.LoadInt32(&f.calls))
	assert.Equal(t, StatusDone, reports[0].Status)
	for _, r := range reports[2:] {
		assert.Equal(t, ReasonCancelled, r.Reason)
	}
	assert.Equal(t, 5, stats.Total)
}

func TestReportString(t *testing.T) {
	r := Report{
		Target: target(3, "42", "http://caa/42.jpg"),
		Status: StatusSkipped,
		Reason: ReasonExists,
		Size:   -1,
	}
	assert.Equal(t, "skipped - 03-42.jpg [Front] ? (exists)", r.String())
}
