// Package musixmatch fetches lyrics through the Musixmatch desktop API.
package musixmatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lrcfetch/internal/lyrics"
	"lrcfetch/internal/match"
	"lrcfetch/internal/provider"
	"lrcfetch/internal/tokencache"
	"lrcfetch/internal/track"
)

const (
	appID = "web-desktop-app-v1.0"

	// TokenFile is the cache file name inside the token directory.
	TokenFile = "musixmatch_api.json"

	tokenTTL = 600 * time.Second
)

// Track is one track.search result.
type Track struct {
	ID           int    `json:"track_id"`
	Name         string `json:"track_name"`
	ArtistName   string `json:"artist_name"`
	AlbumName    string `json:"album_name"`
	Length       int    `json:"track_length"`
	Instrumental int    `json:"instrumental"`
	HasLyrics    int    `json:"has_lyrics"`
	HasSubtitles int    `json:"has_subtitles"`
}

func project(t Track) string {
	return t.Name + " " + t.ArtistName + " " + t.AlbumName
}

func describe(t Track) match.Profile {
	return match.Profile{
		Track: track.Track{
			Title:    t.Name,
			Artist:   t.ArtistName,
			Album:    t.AlbumName,
			Duration: float64(t.Length),
		},
		Instrumental: t.Instrumental == 1,
	}
}

// Client implements lyrics.Provider for Musixmatch.
type Client struct {
	http     *provider.HTTP
	tokens   *tokencache.Cache
	strategy match.Strategy[Track]
	confirm  provider.Confirmer
	apiURL   string
	now      func() time.Time
}

// New creates a Musixmatch client caching its user token in tokenDir.
func New(opts provider.Options, tokenDir string) *Client {
	log := opts.Log()
	return &Client{
		http:     provider.NewHTTP("musixmatch", opts.UserAgent, log),
		tokens:   tokencache.New(filepath.Join(tokenDir, TokenFile), log),
		strategy: match.NewStrategyWith[Track](opts.Normalizer, opts.Policy, opts.Floor, match.ProjectFunc[Track](project), match.DescribeFunc[Track](describe)),
		confirm:  opts.Confirm,
		apiURL:   "https://apic-desktop.musixmatch.com/ws/1.1",
		now:      time.Now,
	}
}

func (c *Client) Name() string { return "musixmatch" }

// Lyrics searches Musixmatch by title and artist, picks the track matching
// t and fetches its subtitles (synced) or lyrics body (plain).
func (c *Client) Lyrics(ctx context.Context, t track.Track, format lyrics.Format) (string, error) {
	var tracks []Track
	err := c.withToken(ctx, func(token string) (err error) {
		tracks, err = c.search(ctx, token, t)
		return err
	})
	if err != nil {
		return "", err
	}

	best, err := provider.Choose(c.Name(), c.strategy, tracks, t, c.confirm)
	if err != nil {
		return "", err
	}

	available := best.HasLyrics
	if format == lyrics.Synced {
		available = best.HasSubtitles
	}
	if available == 0 {
		return "", lyrics.ErrNoLyrics
	}

	var text string
	err = c.withToken(ctx, func(token string) (err error) {
		if format == lyrics.Synced {
			text, err = c.subtitle(ctx, token, best.ID)
		} else {
			text, err = c.lyricsBody(ctx, token, best.ID)
		}
		return err
	})
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", lyrics.ErrNoLyrics
	}
	if format == lyrics.Synced && !lyrics.IsSynced(text) {
		return "", lyrics.ErrNoLyrics
	}
	return text, nil
}

// withToken runs fn with the user token. When Musixmatch rejects it the
// token is invalidated and fn runs once more with a fresh one.
func (c *Client) withToken(ctx context.Context, fn func(token string) error) error {
	token, err := c.tokens.Get(ctx, c.refreshToken)
	if err != nil {
		return err
	}
	if err = fn(token); !errors.Is(err, provider.ErrUnauthorized) {
		return err
	}

	c.tokens.Invalidate(token)
	if token, err = c.tokens.Get(ctx, c.refreshToken); err != nil {
		return err
	}
	if err = fn(token); errors.Is(err, provider.ErrUnauthorized) {
		return fmt.Errorf("%w: musixmatch rejected a fresh token", tokencache.ErrNoToken)
	}
	return err
}

type header struct {
	StatusCode int `json:"status_code"`
}

var errStatus = errors.New("musixmatch request failed")

// get calls an API method. Only ErrUnauthorized matters to callers; any
// other failure means no data.
func (c *Client) get(ctx context.Context, method string, params url.Values, body interface{}) error {
	params.Set("app_id", appID)

	var resp struct {
		Message struct {
			Header header      `json:"header"`
			Body   interface{} `json:"body"`
		} `json:"message"`
	}
	resp.Message.Body = body

	h := http.Header{"Accept": {"application/json"}}
	if err := c.http.Get(ctx, c.apiURL+"/"+method, params, h, &resp); err != nil {
		return err
	}
	switch resp.Message.Header.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return provider.ErrUnauthorized
	default:
		return errStatus
	}
}

// unauthorized keeps ErrUnauthorized and drops every other failure.
func unauthorized(err error) error {
	if errors.Is(err, provider.ErrUnauthorized) {
		return err
	}
	return nil
}

func (c *Client) refreshToken(ctx context.Context) (tokencache.Token, error) {
	var body struct {
		UserToken string `json:"user_token"`
	}
	if err := c.get(ctx, "token.get", url.Values{}, &body); err != nil {
		return tokencache.Token{}, fmt.Errorf("token.get failed: %w", err)
	}
	if body.UserToken == "" || strings.HasPrefix(body.UserToken, "UpgradeOnly") {
		return tokencache.Token{}, errors.New("musixmatch asked for a captcha, try again later")
	}
	return tokencache.Token{
		Value:     body.UserToken,
		ExpiresAt: c.now().Add(tokenTTL).Unix(),
	}, nil
}

func (c *Client) search(ctx context.Context, token string, t track.Track) ([]Track, error) {
	params := url.Values{}
	params.Set("usertoken", token)
	params.Set("q", strings.TrimSpace(t.Title+" "+t.Artist))
	params.Set("page", "1")
	params.Set("page_size", "5")

	var body struct {
		TrackList []struct {
			Track Track `json:"track"`
		} `json:"track_list"`
	}
	if err := c.get(ctx, "track.search", params, &body); err != nil {
		return nil, unauthorized(err)
	}

	tracks := make([]Track, 0, len(body.TrackList))
	for _, item := range body.TrackList {
		tracks = append(tracks, item.Track)
	}
	return tracks, nil
}

func (c *Client) subtitle(ctx context.Context, token string, id int) (string, error) {
	params := url.Values{}
	params.Set("usertoken", token)
	params.Set("track_id", strconv.Itoa(id))
	params.Set("subtitle_format", "lrc")

	var body struct {
		Subtitle struct {
			Body string `json:"subtitle_body"`
		} `json:"subtitle"`
	}
	if err := c.get(ctx, "track.subtitle.get", params, &body); err != nil {
		return "", unauthorized(err)
	}
	return body.Subtitle.Body, nil
}

func (c *Client) lyricsBody(ctx context.Context, token string, id int) (string, error) {
	params := url.Values{}
	params.Set("usertoken", token)
	params.Set("track_id", strconv.Itoa(id))

	var body struct {
		Lyrics struct {
			Body string `json:"lyrics_body"`
		} `json:"lyrics"`
	}
	if err := c.get(ctx, "track.lyrics.get", params, &body); err != nil {
		return "", unauthorized(err)
	}
	return body.Lyrics.Body, nil
}
