// Package library reads songs from the local music collection and writes
// fetched lyrics back, either into the file's tags or to a sidecar .lrc file.
package library

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.senan.xyz/taglib"

	"lrcfetch/internal/logger"
	"lrcfetch/internal/track"
	"lrcfetch/pkg/utils"
)

// LyricsTag is the tag key holding embedded lyrics.
const LyricsTag = "LYRICS"

// Song is a local audio file and what its tags say about it.
type Song struct {
	Track     track.Track
	Path      string
	HasLyrics bool
}

func (s Song) String() string {
	return s.Track.String()
}

// Load reads tags and duration from the audio file at path.
func Load(path string) (Song, error) {
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return Song{}, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}
	props, err := taglib.ReadProperties(path)
	if err != nil {
		return Song{}, fmt.Errorf("failed to read properties from %s: %w", path, err)
	}

	return Song{
		Track: track.FromTags(
			firstTag(tags, taglib.Title),
			firstTag(tags, taglib.Artist),
			firstTag(tags, taglib.Album),
			props.Length,
		),
		Path:      path,
		HasLyrics: hasLyrics(firstTag(tags, LyricsTag)),
	}, nil
}

// hasLyrics ignores the "[offset:...]" stub some players write.
func hasLyrics(value string) bool {
	return value != "" && !strings.HasPrefix(value, "[offset")
}

func firstTag(tags map[string][]string, key string) string {
	if vals, ok := tags[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// FromPath collects the songs named by path: a single audio file, an M3U
// playlist, or a directory searched recursively. Files that cannot be read
// are logged and skipped.
func FromPath(path string, log *logger.Logger) ([]Song, error) {
	if log == nil {
		log = logger.Discard()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}

	var files []string
	switch {
	case info.IsDir():
		files, err = utils.FindAudioFiles(path)
		if err != nil {
			return nil, err
		}
	case utils.IsPlaylist(path):
		files, err = playlistEntries(path)
		if err != nil {
			return nil, err
		}
	default:
		song, err := Load(path)
		if err != nil {
			return nil, err
		}
		return []Song{song}, nil
	}

	songs := make([]Song, 0, len(files))
	for _, f := range files {
		song, err := Load(f)
		if err != nil {
			log.Warn("Skipping %s: %v", f, err)
			continue
		}
		songs = append(songs, song)
	}
	return songs, nil
}

func playlistEntries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist: %w", err)
	}
	defer f.Close()
	return ReadPlaylist(f, filepath.Dir(path))
}

// ReadPlaylist returns the entries of an M3U playlist. Comment and blank
// lines are skipped and relative entries are resolved against dir.
func ReadPlaylist(r io.Reader, dir string) ([]string, error) {
	var entries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(dir, line)
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}
	return entries, nil
}

// LRCPath returns the sidecar lyrics path for an audio file.
func LRCPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".lrc"
}

// Saver stores lyrics for a song.
type Saver struct {
	Dump bool // write <stem>.lrc instead of embedding
}

// Save stores text as the song's lyrics.
func (s Saver) Save(song Song, text string) error {
	if s.Dump {
		if err := utils.WriteFileAtomic(LRCPath(song.Path), []byte(text), 0644); err != nil {
			return fmt.Errorf("failed to dump lyrics: %w", err)
		}
		return nil
	}

	tags := map[string][]string{LyricsTag: {text}}
	if err := taglib.WriteTags(song.Path, tags, 0); err != nil {
		return fmt.Errorf("failed to embed lyrics in %s: %w", song.Path, err)
	}
	return nil
}
