// Package tagger embeds downloaded artwork into audio files and reads album
// tags to build a search query.
package tagger

import (
	"errors"
	"fmt"
	"strings"

	"go.senan.xyz/taglib"

	"mbart/internal/logger"
	"mbart/pkg/utils"
)

// ErrNoTags is returned when no audio file in a folder has an album tag.
var ErrNoTags = errors.New("no album tags found")

// WriteArtwork embeds artwork image data into an audio file.
func WriteArtwork(path string, imageData []byte) error {
	if len(imageData) == 0 {
		return nil
	}
	if err := taglib.WriteImage(path, imageData); err != nil {
		return fmt.Errorf("failed to write artwork to %s: %w", path, err)
	}
	return nil
}

// EmbedArtwork writes imageData into every audio file under dir.
func EmbedArtwork(dir string, imageData []byte, log *logger.Logger) (embedded, failed int, err error) {
	files, err := utils.FindAudioFiles(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to find audio files: %w", err)
	}

	for _, file := range files {
		if err := WriteArtwork(file, imageData); err != nil {
			log.Warn("%v", err)
			failed++
			continue
		}
		log.Debug("embedded artwork in %s", file)
		embedded++
	}
	return embedded, failed, nil
}

// QueryFromDir builds a release-group query from the album and artist tags
// of the first tagged audio file under dir.
func QueryFromDir(dir string) (string, error) {
	files, err := utils.FindAudioFiles(dir)
	if err != nil {
		return "", fmt.Errorf("failed to find audio files: %w", err)
	}

	for _, file := range files {
		tags, err := taglib.ReadTags(file)
		if err != nil {
			continue
		}
		album := firstTag(tags, taglib.Album)
		if album == "" {
			continue
		}

		artist := firstTag(tags, taglib.AlbumArtist)
		if artist == "" {
			artist = firstTag(tags, taglib.Artist)
		}
		return BuildQuery(NormalizeAlbum(album, artist)), nil
	}

	return "", fmt.Errorf("%w in %s", ErrNoTags, dir)
}

// BuildQuery makes a Lucene release-group query from an album title and an
// optional artist.
func BuildQuery(album, artist string) string {
	q := fmt.Sprintf("releasegroup:%q", luceneEscape(album))
	if artist != "" {
		q += fmt.Sprintf(" AND artist:%q", luceneEscape(artist))
	}
	return q
}

// luceneEscape drops the characters that would end a quoted phrase.
func luceneEscape(s string) string {
	return strings.TrimSpace(strings.NewReplacer(`"`, "", `\`, "").Replace(s))
}

func firstTag(tags map[string][]string, key string) string {
	if vals, ok := tags[key]; ok && len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
