package utils

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Abbey Road", "Abbey Road"},
		{"AC/DC: Live", "AC_DC_ Live"},
		{"  ...And Justice for All  ", "And Justice for All"},
		{"What?", "What_"},
		{"tab\there", "tabhere"},
		{"", "untitled"},
		{"..", "untitled"},
	}

	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{-1, "?"},
		{0, "0 kb"},
		{999, "0 kb"},
		{50_000, "50 kb"},
		{1_000_000, "1000 kb"},
		{1_234_567, "1.23 mb"},
		{30_000_000, "30.00 mb"},
	}

	for _, tt := range tests {
		if got := HumanSize(tt.size); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestFindAudioFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "cd2")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		filepath.Join(dir, "01.flac"),
		filepath.Join(dir, "cover.jpg"),
		filepath.Join(sub, "01.MP3"),
	} {
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := FindAudioFiles(dir)
	if err != nil {
		t.Fatalf("FindAudioFiles() error: %v", err)
	}
	sort.Strings(files)
	if len(files) != 2 {
		t.Fatalf("expected 2 audio files, got %v", files)
	}
	if files[0] != filepath.Join(dir, "01.flac") {
		t.Errorf("files[0] = %q", files[0])
	}

	if _, err := FindAudioFiles(""); err == nil {
		t.Error("expected error for empty dir")
	}
	if _, err := FindAudioFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing dir")
	}
}
