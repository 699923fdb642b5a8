package track

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Track describes a song, either read from local tags or built from a
// provider search result. It is compared field by field and never mutated.
type Track struct {
	Title    string
	Artist   string // may list several collaborators
	Album    string
	Duration float64 // seconds
}

var (
	parenthesized = regexp.MustCompile(`\([^)]*\)`)
	deluxeSuffix  = regexp.MustCompile(`(?i)deluxe .*$`)
	epWord        = regexp.MustCompile(`(?i)\bEP\b`)
	apostrophes   = strings.NewReplacer("’", "'", "‘", "'")
)

// FromTags builds a Track from raw local tags, cleaning up the usual noise
// found in file metadata (edition suffixes, bracketed annotations, curly
// apostrophes).
func FromTags(title, artist, album string, length time.Duration) Track {
	title = clean(title)
	title = parenthesized.ReplaceAllString(title, "")

	album = clean(album)
	album = deluxeSuffix.ReplaceAllString(album, "deluxe")
	album = epWord.ReplaceAllString(album, "")

	return Track{
		Title:    strings.Join(strings.Fields(title), " "),
		Artist:   strings.Join(strings.Fields(clean(artist)), " "),
		Album:    strings.Join(strings.Fields(album), " "),
		Duration: length.Seconds(),
	}
}

func clean(s string) string {
	return strings.TrimSpace(apostrophes.Replace(norm.NFC.String(s)))
}

// Query returns the combined "title artist album" string used by the
// ratio matching policy.
func (t Track) Query() string {
	return t.Title + " " + t.Artist + " " + t.Album
}

// Length returns the duration as a time.Duration.
func (t Track) Length() time.Duration {
	return time.Duration(t.Duration * float64(time.Second))
}

// Label is a one-line "Artist - Title" form for progress displays.
func (t Track) Label() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

func (t Track) String() string {
	return "Song details {\n" +
		"\ttitle: " + t.Title + "\n" +
		"\tartist: " + t.Artist + "\n" +
		"\talbum: " + t.Album + "\n" +
		"\tduration: " + strconv.FormatFloat(t.Duration, 'f', -1, 64) + "\n" +
		"}"
}
