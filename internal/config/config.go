package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Artwork sources
const (
	SourceCAA     = "caa"
	SourceArchive = "archive"
	SourceAuto    = "auto"
)

// Config contains the program configuration
type Config struct {
	Query          string `yaml:"-"`
	OutputDir      string `yaml:"output_dir"`
	ImageFilter    string `yaml:"image_filter"`
	SearchFilter   string `yaml:"search_filter"`
	Limit          int    `yaml:"limit"`
	Offset         int    `yaml:"offset"`
	AutoSelect     bool   `yaml:"auto_select"`
	DryRun         bool   `yaml:"dry_run"`
	Redownload     bool   `yaml:"re_download"`
	Verbose        bool   `yaml:"verbose"`
	MinSizeKB      int64  `yaml:"min_size_kb"`
	MaxSizeKB      int64  `yaml:"max_size_kb"`
	MinDimension   int    `yaml:"min_dimension"`
	AllowPDF       bool   `yaml:"allow_pdf"`
	ParallelJobs   int    `yaml:"parallel_jobs"`
	Source         string `yaml:"source"`
	GroupFront     bool   `yaml:"group_front"`
	EmbedDir       string `yaml:"embed_dir,omitempty"`
	UserAgent      string `yaml:"user_agent"`
	MusicBrainzURL string `yaml:"musicbrainz_url"`
	CoverArtURL    string `yaml:"coverart_url"`
	ArchiveURL     string `yaml:"archive_url"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		OutputDir:      "Covers",
		ImageFilter:    "front",
		SearchFilter:   "all",
		Limit:          5,
		ParallelJobs:   1,
		Source:         SourceCAA,
		UserAgent:      "mbart/1.0",
		MusicBrainzURL: "https://musicbrainz.org/ws/2",
		CoverArtURL:    "https://coverartarchive.org",
		ArchiveURL:     "https://archive.org/download",
	}
}

// MinBytes is the lower size bound in bytes, 0 when unbounded.
func (c Config) MinBytes() int64 { return c.MinSizeKB * 1000 }

// MaxBytes is the upper size bound in bytes, 0 when unbounded.
func (c Config) MaxBytes() int64 { return c.MaxSizeKB * 1000 }

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.OutputDir = ExpandHome(cfg.OutputDir)
	cfg.EmbedDir = ExpandHome(cfg.EmbedDir)

	return cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./mbart.yaml",
		"./mbart.yml",
		filepath.Join(home, ".config", "mbart", "config.yaml"),
		filepath.Join(home, ".config", "mbart", "config.yml"),
		filepath.Join(home, ".mbart.yaml"),
		filepath.Join(home, ".mbart.yml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the current configuration to a YAML file
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "mbart", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(homeDir(), ".local", "share", "mbart", "logs")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

var searchFilters = []string{"all", "album", "single", "ep", "broadcast", "other"}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Query) == "" {
		return fmt.Errorf("search query cannot be empty")
	}

	if c.Limit < 1 || c.Limit > 100 {
		return fmt.Errorf("limit must be between 1 and 100, got %d", c.Limit)
	}
	if c.Offset < 0 {
		return fmt.Errorf("offset cannot be negative, got %d", c.Offset)
	}

	if c.ParallelJobs < 1 {
		return fmt.Errorf("parallel jobs must be at least 1, got %d", c.ParallelJobs)
	}
	if c.ParallelJobs > 10 {
		return fmt.Errorf("parallel jobs cannot exceed 10, got %d", c.ParallelJobs)
	}

	if c.MinSizeKB < 0 || c.MaxSizeKB < 0 {
		return fmt.Errorf("size bounds cannot be negative")
	}
	if c.MaxSizeKB > 0 && c.MinSizeKB > c.MaxSizeKB {
		return fmt.Errorf("min_size_kb (%d) exceeds max_size_kb (%d)", c.MinSizeKB, c.MaxSizeKB)
	}
	if c.MinDimension < 0 {
		return fmt.Errorf("min_dimension cannot be negative, got %d", c.MinDimension)
	}

	if strings.Trim(c.ImageFilter, ", \t") == "" {
		return fmt.Errorf("image_filter cannot be empty, use \"all\" to keep every image")
	}

	validFilter := false
	for _, f := range searchFilters {
		if strings.EqualFold(c.SearchFilter, f) {
			validFilter = true
			break
		}
	}
	if !validFilter {
		return fmt.Errorf("unknown search filter %q, valid filters: %v", c.SearchFilter, searchFilters)
	}

	switch c.Source {
	case SourceCAA, SourceArchive, SourceAuto:
	default:
		return fmt.Errorf("unknown source %q, valid sources: caa, archive, auto", c.Source)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user_agent cannot be empty")
	}

	for name, u := range map[string]string{
		"musicbrainz_url": c.MusicBrainzURL,
		"coverart_url":    c.CoverArtURL,
		"archive_url":     c.ArchiveURL,
	} {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("%s must start with http:// or https://", name)
		}
	}

	return nil
}
