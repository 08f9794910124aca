package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"mbart/internal/artwork"
	"mbart/internal/config"
	"mbart/internal/downloader"
	"mbart/internal/logger"
	"mbart/internal/provider/archive"
	"mbart/internal/provider/caa"
	"mbart/internal/provider/musicbrainz"
	"mbart/internal/release"
	"mbart/internal/selector"
	"mbart/internal/tagger"
	"mbart/pkg/utils"
)

// Hooks let a front follow a run. Every field is optional.
type Hooks struct {
	OnSearch        func(total, shown int)
	OnRanked        func(cands []release.Candidate)
	OnSelected      func(c release.Candidate, dir string)
	OnReleaseStatus func(s artwork.ReleaseStatus)
	OnTargets       func(n int)
	OnReport        func(r downloader.Report)
	OnWarning       func(msg string)
}

// Result summarizes a completed run.
type Result struct {
	Candidate release.Candidate
	Dir       string
	Statuses  []artwork.ReleaseStatus
	Reports   []downloader.Report
	Stats     downloader.Stats
	Embedded  int
}

// EmbedFunc writes image data into the audio files of a folder.
type EmbedFunc func(dir string, data []byte, log *logger.Logger) (embedded, failed int, err error)

// Pipeline runs search → rank → select → lookup → resolve → download.
type Pipeline struct {
	Config     config.Config
	Logger     *logger.Logger
	Search     release.Searcher
	Selector   selector.Selector
	Resolver   *artwork.Resolver
	Downloader *downloader.Downloader
	GroupFront *artwork.GroupFront
	Fs         afero.Fs
	Embed      EmbedFunc
	Hooks      Hooks
}

// New wires a pipeline against the real services and the OS filesystem.
func New(cfg config.Config, log *logger.Logger, sel selector.Selector) *Pipeline {
	fs := afero.NewOsFs()
	caaClient := caa.New(cfg.UserAgent).WithBaseURL(cfg.CoverArtURL)

	p := &Pipeline{
		Config:   cfg,
		Logger:   log,
		Search:   musicbrainz.New(cfg.UserAgent).WithBaseURL(cfg.MusicBrainzURL),
		Selector: sel,
		Resolver: &artwork.Resolver{
			Source:   NewSource(cfg, log),
			Prober:   caaClient,
			Logger:   log,
			Filter:   cfg.ImageFilter,
			MinBytes: cfg.MinBytes(),
		},
		Downloader: downloader.New(fs, downloader.NewHTTPFetcher(cfg.UserAgent), Options(cfg), log),
		Fs:         fs,
		Embed:      tagger.EmbedArtwork,
	}
	if cfg.GroupFront {
		p.GroupFront = artwork.NewGroupFront(cfg.UserAgent, cfg.CoverArtURL)
	}
	return p
}

// NewSource returns the artwork source selected by cfg.Source.
func NewSource(cfg config.Config, log *logger.Logger) artwork.Source {
	caaClient := caa.New(cfg.UserAgent).WithBaseURL(cfg.CoverArtURL)
	archiveClient := archive.New(cfg.UserAgent).WithBaseURL(cfg.ArchiveURL)

	switch cfg.Source {
	case config.SourceArchive:
		return archiveClient
	case config.SourceAuto:
		return artwork.NewChain([]artwork.Source{caaClient, archiveClient}, log)
	}
	return caaClient
}

// Options maps the configuration onto the download gates.
func Options(cfg config.Config) downloader.Options {
	return downloader.Options{
		DryRun:       cfg.DryRun,
		Redownload:   cfg.Redownload,
		MinBytes:     cfg.MinBytes(),
		MaxBytes:     cfg.MaxBytes(),
		AllowPDF:     cfg.AllowPDF,
		MinDimension: cfg.MinDimension,
	}
}

// FolderName is the output folder of a release-group.
func FolderName(c release.Candidate) string {
	return utils.SanitizeName(c.Title)
}

// Run executes the full pipeline. Failures before the artwork stage are
// returned; per-release and per-image failures only show up in the result.
// selector.ErrCancelled is returned unwrapped.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	cfg := p.Config
	var result Result

	p.Logger.Info("=== Searching release-groups for %q ===", cfg.Query)
	found, err := p.Search.SearchReleaseGroups(ctx, cfg.Query, cfg.Limit, cfg.Offset)
	if err != nil {
		return result, fmt.Errorf("search failed: %w", err)
	}
	if p.Hooks.OnSearch != nil {
		p.Hooks.OnSearch(found.Count, len(found.Candidates))
	}

	ranked, err := release.Rank(found.Candidates, cfg.SearchFilter)
	if err != nil {
		return result, err
	}
	if p.Hooks.OnRanked != nil {
		p.Hooks.OnRanked(ranked)
	}

	chosen, err := p.Selector.Select(ctx, ranked)
	if err != nil {
		return result, err
	}

	full, err := p.Search.LookupReleaseGroup(ctx, chosen.ID)
	if err != nil {
		return result, fmt.Errorf("failed to look up release-group %s: %w", chosen.ID, err)
	}
	chosen.Releases = full.Releases
	if len(full.Releases) > chosen.ReleaseCount {
		chosen.ReleaseCount = len(full.Releases)
	}
	result.Candidate = chosen

	dir := filepath.Join(cfg.OutputDir, FolderName(chosen))
	result.Dir = dir
	if !cfg.DryRun {
		if err := p.Fs.MkdirAll(dir, 0755); err != nil {
			return result, fmt.Errorf("failed to create folder %s: %w", dir, err)
		}
	}
	p.Logger.Debug("%d releases, saving to %s", len(chosen.Releases), dir)
	if p.Hooks.OnSelected != nil {
		p.Hooks.OnSelected(chosen, dir)
	}

	var reports []downloader.Report
	if p.GroupFront != nil {
		if r, ok := p.groupFront(ctx, chosen.ID, dir); ok {
			reports = append(reports, r)
		}
	}

	if p.Resolver.OnStatus == nil {
		p.Resolver.OnStatus = p.Hooks.OnReleaseStatus
	}
	resolution, err := p.Resolver.Resolve(ctx, dir, chosen.Releases)
	result.Statuses = resolution.Statuses
	if err != nil {
		return result, err
	}
	if p.Hooks.OnTargets != nil {
		p.Hooks.OnTargets(len(resolution.Targets))
	}

	jobs := cfg.ParallelJobs
	p.Logger.Info("=== Downloading %d images (%d parallel) ===", len(resolution.Targets), jobs)
	downloaded, _ := p.Downloader.DownloadAll(ctx, resolution.Targets, jobs, p.Hooks.OnReport)
	reports = append(reports, downloaded...)

	result.Reports = reports
	result.Stats = downloader.Tally(reports)

	if cfg.EmbedDir != "" && !cfg.DryRun && ctx.Err() == nil {
		result.Embedded = p.embed(reports)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// groupFront saves the release-group's own front cover. Failures are
// warnings. The extension depends on the fetched content type, so an
// existing 00-front.* is looked up before any request is made.
func (p *Pipeline) groupFront(ctx context.Context, groupID, dir string) (downloader.Report, bool) {
	t := p.GroupFront.TargetFor(dir, groupID, artwork.Payload{ContentType: "image/jpeg", Size: -1})
	existing := p.existingFront(dir)
	if existing != "" {
		t.Path = existing
	}
	if p.Config.DryRun || (existing != "" && !p.Config.Redownload) {
		r := p.Downloader.Save(ctx, t, artwork.Payload{Size: -1})
		p.report(r)
		return r, true
	}

	payload, err := p.GroupFront.Fetch(ctx, groupID)
	if err != nil {
		if errors.Is(err, artwork.ErrNotFound) {
			p.warn("release-group has no front cover")
		} else if ctx.Err() == nil {
			p.warn(fmt.Sprintf("release-group front failed: %v", err))
		}
		return downloader.Report{}, false
	}

	r := p.Downloader.Save(ctx, p.GroupFront.TargetFor(dir, groupID, payload), payload)
	p.report(r)
	return r, true
}

// existingFront returns the path of a previously saved group front in dir.
func (p *Pipeline) existingFront(dir string) string {
	entries, err := afero.ReadDir(p.Fs, dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), artwork.GroupFrontPrefix) {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

// embed writes the first downloaded front image into the audio files of
// EmbedDir.
func (p *Pipeline) embed(reports []downloader.Report) int {
	for _, r := range reports {
		if r.Status != downloader.StatusDone || !artwork.Matches(r.Target.Image, "front") {
			continue
		}

		data, err := afero.ReadFile(p.Fs, r.Target.Path)
		if err != nil {
			p.warn(fmt.Sprintf("failed to read %s: %v", r.Target.Path, err))
			return 0
		}

		embed := p.Embed
		if embed == nil {
			embed = tagger.EmbedArtwork
		}
		embedded, failed, err := embed(p.Config.EmbedDir, data, p.Logger)
		if err != nil {
			p.warn(fmt.Sprintf("failed to embed artwork: %v", err))
			return 0
		}
		if failed > 0 {
			p.warn(fmt.Sprintf("%d files could not be tagged", failed))
		}
		p.Logger.Info("Embedded %s in %d files", filepath.Base(r.Target.Path), embedded)
		return embedded
	}

	p.warn("no front image downloaded, nothing to embed")
	return 0
}

func (p *Pipeline) report(r downloader.Report) {
	if p.Hooks.OnReport != nil {
		p.Hooks.OnReport(r)
	}
}

func (p *Pipeline) warn(msg string) {
	p.Logger.Warn("%s", msg)
	if p.Hooks.OnWarning != nil {
		p.Hooks.OnWarning(msg)
	}
}
