package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"

	"mbart/internal/artwork"
	"mbart/internal/config"
	"mbart/internal/display"
	"mbart/internal/downloader"
	"mbart/internal/logger"
	"mbart/internal/pipeline"
	"mbart/internal/progress"
	"mbart/internal/release"
	"mbart/internal/selector"
	"mbart/internal/shutdown"
	"mbart/internal/tagger"
)

var version = "dev"

const (
	exitOK        = 0
	exitError     = 1
	exitCancelled = 130
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(argv []string) int {
	args, err := parseArgs(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		return exitError
	}

	switch {
	case args.help:
		printUsage(os.Stdout)
		return exitOK
	case args.version:
		fmt.Printf("mbart %s\n", version)
		return exitOK
	case args.initConfig:
		if err := initConfigFile(os.Stdout, config.GetDefaultConfigPath()); err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
			return exitError
		}
		return exitOK
	}

	cfg := args.cfg
	if cfg.Query == "" && cfg.EmbedDir != "" {
		query, err := tagger.QueryFromDir(cfg.EmbedDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] no query given and %v\n", err)
			return exitError
		}
		cfg.Query = query
	}
	if cfg.Query == "" && len(argv) == 0 {
		printUsage(os.Stderr)
		return exitError
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] Configuration error: %v\n", err)
		return exitError
	}

	sh := shutdown.New()
	sh.Listen()

	log := logger.New(cfg.Verbose)
	defer log.Close()

	if !cfg.Verbose {
		logDir := config.GetDefaultLogPath()
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Failed to create log directory: %v\n", err)
		} else {
			logFile := filepath.Join(logDir, fmt.Sprintf("mbart_%s.log", time.Now().Format("2006-01-02_15-04-05")))
			if err := log.SetFileLog(logFile); err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] Failed to setup file logging: %v\n", err)
			} else {
				log.Debug("Logging to file: %s", logFile)
			}
		}
	}

	if args.configPath != "" {
		log.Debug("Loaded configuration from: %s", args.configPath)
	}
	log.Debug("Query: %s", cfg.Query)

	err = run(sh.Context(), cfg, log, os.Stdin, os.Stdout)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, selector.ErrCancelled), sh.Interrupted(), errors.Is(err, context.Canceled):
		log.Warn("Cancelled")
		return exitCancelled
	default:
		log.Error("%v", err)
		return exitError
	}
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger, in io.Reader, out io.Writer) error {
	var sel selector.Selector = selector.Auto{}
	if !cfg.AutoSelect {
		sel = &selector.Interactive{
			In:          in,
			Out:         out,
			Format:      display.CandidateLine,
			Erase:       isTerminal(out),
			MaxAttempts: 3,
		}
	}

	var (
		mu  sync.Mutex
		bar *progress.Bar
	)
	// say prints a display line unless the progress bar owns the terminal.
	// Without -v the plain text also lands in the log file.
	say := func(line string) {
		mu.Lock()
		if bar == nil {
			fmt.Fprintln(out, line)
		}
		mu.Unlock()
		if !cfg.Verbose {
			log.Debug("%s", ansi.Strip(line))
		}
	}

	p := pipeline.New(cfg, log, sel)
	p.Hooks = pipeline.Hooks{
		OnSearch: func(total, shown int) {
			say(display.SearchLine(total, shown))
		},
		OnSelected: func(c release.Candidate, dir string) {
			say(display.SelectedLine(c, dir))
		},
		OnReleaseStatus: func(s artwork.ReleaseStatus) {
			say(display.ReleaseLine(s))
		},
		OnTargets: func(n int) {
			if cfg.Verbose || cfg.DryRun || n == 0 {
				return
			}
			mu.Lock()
			bar = progress.New(n, out)
			mu.Unlock()
			log.SetProgressBar(true)
		},
		OnReport: func(r downloader.Report) {
			mu.Lock()
			b := bar
			mu.Unlock()
			if b != nil {
				b.Increment()
			}
			say(display.ReportLine(r))
		},
	}

	res, err := p.Run(ctx)

	mu.Lock()
	if bar != nil {
		bar.Finish()
		bar = nil
		log.SetProgressBar(false)
	}
	mu.Unlock()

	if err != nil {
		return err
	}

	fmt.Fprintln(out, display.Summary(res.Stats))
	if res.Embedded > 0 {
		log.Info("Embedded cover art in %d files", res.Embedded)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
