package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"mbart/internal/config"
)

type cliArgs struct {
	cfg        config.Config
	configPath string
	initConfig bool
	version    bool
	help       bool
}

// parseArgs parses command-line arguments and loads configuration.
// Priority: CLI flags > config file > defaults
func parseArgs(args []string) (cliArgs, error) {
	var out cliArgs
	def := config.DefaultConfig()

	fs := pflag.NewFlagSet("mbart", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	limit := fs.IntP("limit", "l", def.Limit, "number of release-groups to list (1-100)")
	offset := fs.Int("offset", def.Offset, "search result offset")
	output := fs.StringP("output", "o", def.OutputDir, "output folder")
	imageFilter := fs.StringP("image-filter", "i", def.ImageFilter, "image types to keep, comma separated, or \"all\"")
	searchFilter := fs.StringP("search-filter", "s", def.SearchFilter, "primary type: all, album, single, ep, broadcast, other")
	auto := fs.BoolP("auto", "a", false, "pick the top ranked release-group without asking")
	dryRun := fs.BoolP("dry-run", "n", false, "list what would be downloaded")
	redownload := fs.Bool("re-download", false, "download images that already exist and replace them")
	minSize := fs.Int64("min-size", 0, "minimum image size in KB (0 = no limit)")
	maxSize := fs.Int64("max-size", 0, "maximum image size in KB (0 = no limit)")
	minDim := fs.Int("min-dim", 0, "minimum image width and height in px (0 = no limit)")
	allowPDF := fs.Bool("allow-pdf", false, "keep PDF booklets")
	parallel := fs.IntP("parallel", "p", def.ParallelJobs, "parallel downloads (1-10)")
	source := fs.String("source", def.Source, "artwork source: caa, archive, auto")
	groupFront := fs.Bool("group-front", false, "also save the release-group front as 00-front")
	embed := fs.String("embed", "", "embed the front cover into the audio files of `dir`")
	verbose := fs.BoolP("verbose", "v", false, "show detailed output")
	fs.StringVarP(&out.configPath, "config", "c", "", "path to config file")
	fs.BoolVar(&out.initConfig, "init-config", false, "create a default config file")
	fs.BoolVarP(&out.version, "version", "V", false, "print the version")
	fs.BoolVarP(&out.help, "help", "h", false, "show this help message")

	if err := fs.Parse(args); err != nil {
		return out, err
	}
	if out.help || out.version || out.initConfig {
		return out, nil
	}

	cfg, err := config.LoadConfigFile(out.configPath)
	if err != nil {
		return out, fmt.Errorf("failed to load config: %w", err)
	}
	if out.configPath == "" {
		out.configPath = config.FindConfigFile()
	}

	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("limit", func() { cfg.Limit = *limit })
	set("offset", func() { cfg.Offset = *offset })
	set("output", func() { cfg.OutputDir = config.ExpandHome(*output) })
	set("image-filter", func() { cfg.ImageFilter = *imageFilter })
	set("search-filter", func() { cfg.SearchFilter = strings.ToLower(*searchFilter) })
	set("auto", func() { cfg.AutoSelect = *auto })
	set("dry-run", func() { cfg.DryRun = *dryRun })
	set("re-download", func() { cfg.Redownload = *redownload })
	set("min-size", func() { cfg.MinSizeKB = *minSize })
	set("max-size", func() { cfg.MaxSizeKB = *maxSize })
	set("min-dim", func() { cfg.MinDimension = *minDim })
	set("allow-pdf", func() { cfg.AllowPDF = *allowPDF })
	set("parallel", func() { cfg.ParallelJobs = *parallel })
	set("source", func() { cfg.Source = strings.ToLower(*source) })
	set("group-front", func() { cfg.GroupFront = *groupFront })
	set("embed", func() { cfg.EmbedDir = config.ExpandHome(*embed) })
	set("verbose", func() { cfg.Verbose = *verbose })

	cfg.Query = strings.TrimSpace(strings.Join(fs.Args(), " "))
	out.cfg = cfg
	return out, nil
}

// initConfigFile creates a new config file with default values
func initConfigFile(w io.Writer, path string) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "Config file already exists at: %s\n", path)
		fmt.Fprintln(w, "Delete it first if you want to recreate it.")
		return nil
	}

	if err := config.SaveConfigFile(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Fprintf(w, "Created default config file at: %s\n", path)
	fmt.Fprintln(w, "\nYou can now edit this file to customize your settings.")
	fmt.Fprintln(w, "Available options:")
	fmt.Fprintln(w, "  output_dir: folder the covers are saved under")
	fmt.Fprintln(w, "  image_filter: front, back, booklet, ... or all")
	fmt.Fprintln(w, "  search_filter: all, album, single, ep, broadcast, other")
	fmt.Fprintln(w, "  source: caa, archive, auto")
	fmt.Fprintln(w, "  parallel_jobs: 1-10 (number of parallel downloads)")
	fmt.Fprintln(w, "  min_size_kb / max_size_kb / min_dimension: download gates (0 = off)")
	return nil
}

// printUsage displays the help message
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "mbart - Download cover art for MusicBrainz release-groups")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: mbart [options] <query>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -l, --limit <n>            Number of release-groups to list (1-100, default: 5)")
	fmt.Fprintln(w, "      --offset <n>           Search result offset")
	fmt.Fprintln(w, "  -o, --output <dir>         Output folder (default: Covers)")
	fmt.Fprintln(w, "  -i, --image-filter <list>  Image types to keep, e.g. front,back or all (default: front)")
	fmt.Fprintln(w, "  -s, --search-filter <type> all, album, single, ep, broadcast, other (default: all)")
	fmt.Fprintln(w, "  -a, --auto                 Pick the top ranked release-group")
	fmt.Fprintln(w, "  -n, --dry-run              Preview what would be downloaded")
	fmt.Fprintln(w, "      --re-download          Replace images that already exist")
	fmt.Fprintln(w, "      --min-size <kb>        Skip images smaller than this")
	fmt.Fprintln(w, "      --max-size <kb>        Skip images larger than this")
	fmt.Fprintln(w, "      --min-dim <px>         Skip images narrower or shorter than this")
	fmt.Fprintln(w, "      --allow-pdf            Keep PDF booklets")
	fmt.Fprintln(w, "  -p, --parallel <n>         Number of parallel downloads (1-10, default: 1)")
	fmt.Fprintln(w, "      --source <name>        caa, archive or auto (default: caa)")
	fmt.Fprintln(w, "      --group-front          Also save the release-group front as 00-front")
	fmt.Fprintln(w, "      --embed <dir>          Embed the front cover into the audio files of dir")
	fmt.Fprintln(w, "  -v, --verbose              Show detailed output")
	fmt.Fprintln(w, "  -c, --config <path>        Path to config file")
	fmt.Fprintln(w, "  -V, --version              Print the version")
	fmt.Fprintln(w, "  -h, --help                 Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintln(w, "  --init-config              Create a default config file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config file locations (checked in order):")
	fmt.Fprintln(w, "  ./mbart.yaml")
	fmt.Fprintln(w, "  ~/.config/mbart/config.yaml")
	fmt.Fprintln(w, "  ~/.mbart.yaml")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Logging:")
	fmt.Fprintln(w, "  Normal mode: Progress bar shown, detailed logs saved to:")
	fmt.Fprintln(w, "    ~/.local/share/mbart/logs/")
	fmt.Fprintln(w, "  Verbose mode: All output to stdout, no progress bar, no file logging")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  # Pick a release-group and save its front covers")
	fmt.Fprintln(w, "  mbart \"OK Computer\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Every image of the top album match, 4 at a time")
	fmt.Fprintln(w, "  mbart -a -s album -i all -p 4 \"Kid A\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Only large fronts, falling back to the Internet Archive")
	fmt.Fprintln(w, "  mbart --min-dim 1000 --source auto \"Amnesiac\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Query from the tags of an album folder and embed the cover")
	fmt.Fprintln(w, "  mbart -a --embed ~/Music/Radiohead/Amnesiac")
}
