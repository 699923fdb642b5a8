package lyrics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lrcfetch/internal/track"
)

// ErrNoLyrics is returned when a track was matched but the provider has no
// lyrics of the requested format for it.
var ErrNoLyrics = errors.New("lyrics not found")

// Format selects between timestamped and plain lyrics.
type Format string

const (
	Synced Format = "synced"
	Plain  Format = "plain"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case Synced:
		return Synced, nil
	case Plain:
		return Plain, nil
	}
	return "", fmt.Errorf("unknown lyrics type %q, valid types: synced, plain", s)
}

// Provider fetches lyrics for a local track from one remote service.
type Provider interface {
	Name() string
	Lyrics(ctx context.Context, t track.Track, format Format) (string, error)
}

// Timestamp renders milliseconds as an LRC "mm:ss.cc" stamp.
func Timestamp(ms int) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d.%02d", ms/1000/60, ms/1000%60, ms%1000/10)
}

// WithHeader prepends the zero-time title line expected by players when
// the lyrics are synced. Plain lyrics are returned unchanged.
func WithHeader(title, text string, format Format) string {
	if format != Synced {
		return text
	}
	return "[" + Timestamp(0) + "] " + title + "\n" + text
}

// IsSynced reports whether text carries at least one LRC timestamp line.
func IsSynced(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 10 && line[0] == '[' && line[3] == ':' && line[6] == '.' {
			return true
		}
	}
	return false
}
