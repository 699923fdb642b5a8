// Package lrclib fetches lyrics from the public LRCLIB database.
package lrclib

import (
	"context"
	"net/http"
	"net/url"

	"lrcfetch/internal/lyrics"
	"lrcfetch/internal/match"
	"lrcfetch/internal/provider"
	"lrcfetch/internal/track"
)

// Record is one search result.
type Record struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	SyncedLyrics string  `json:"syncedLyrics"`
	PlainLyrics  string  `json:"plainLyrics"`
}

func project(r Record) string {
	return r.TrackName + " " + r.ArtistName + " " + r.AlbumName
}

func describe(r Record) match.Profile {
	return match.Profile{
		Track: track.Track{
			Title:    r.TrackName,
			Artist:   r.ArtistName,
			Album:    r.AlbumName,
			Duration: r.Duration,
		},
		Instrumental: r.Instrumental,
	}
}

// Client implements lyrics.Provider for LRCLIB.
type Client struct {
	http     *provider.HTTP
	strategy match.Strategy[Record]
	confirm  provider.Confirmer
	apiURL   string
}

// New creates an LRCLIB client.
func New(opts provider.Options) *Client {
	return &Client{
		http:     provider.NewHTTP("lrclib", opts.UserAgent, opts.Log()),
		strategy: match.NewStrategyWith[Record](opts.Normalizer, opts.Policy, opts.Floor, match.ProjectFunc[Record](project), match.DescribeFunc[Record](describe)),
		confirm:  opts.Confirm,
		apiURL:   "https://lrclib.net/api",
	}
}

func (c *Client) Name() string { return "lrclib" }

// Lyrics searches LRCLIB, picks the record matching t and returns its
// lyrics in the requested format.
func (c *Client) Lyrics(ctx context.Context, t track.Track, format lyrics.Format) (string, error) {
	records := c.search(ctx, t)

	best, err := provider.Choose(c.Name(), c.strategy, records, t, c.confirm)
	if err != nil {
		return "", err
	}

	if format != lyrics.Synced {
		if best.PlainLyrics == "" {
			return "", lyrics.ErrNoLyrics
		}
		return best.PlainLyrics, nil
	}
	if !lyrics.IsSynced(best.SyncedLyrics) {
		return "", lyrics.ErrNoLyrics
	}
	return best.SyncedLyrics, nil
}

func (c *Client) search(ctx context.Context, t track.Track) []Record {
	params := url.Values{}
	params.Set("track_name", t.Title)
	params.Set("artist_name", t.Artist)
	params.Set("album_name", t.Album)

	var records []Record
	if !c.http.GetJSON(ctx, c.apiURL+"/search", params, http.Header{}, &records) {
		return nil
	}
	return records
}
