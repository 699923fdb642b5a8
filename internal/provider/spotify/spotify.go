// Package spotify finds tracks through the Spotify Web API and fetches their
// lyrics from the web player's lyrics service.
//
// Two credentials are involved: an app token obtained with the client
// credentials grant for searching, and a web player token derived from the
// user's sp_dc cookie for the lyrics endpoint. Both are cached on disk.
package spotify

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

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"lrcfetch/internal/logger"
	"lrcfetch/internal/lyrics"
	"lrcfetch/internal/match"
	"lrcfetch/internal/provider"
	"lrcfetch/internal/tokencache"
	"lrcfetch/internal/track"
)

const (
	// APITokenFile and LyricsTokenFile are the cache file names inside the
	// token directory.
	APITokenFile    = "spotify_api.json"
	LyricsTokenFile = "spotify_lyrics.json"

	webPlayerAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/101.0.0.0 Safari/537.36"
)

// Credentials configure access to Spotify.
type Credentials struct {
	ClientID     string
	ClientSecret string
	SPDC         string // sp_dc cookie of a logged-in web player session
}

func project(t spotify.FullTrack) string {
	return t.Name + " " + joinArtists(t.Artists, " ") + " " + t.Album.Name
}

func describe(t spotify.FullTrack) match.Profile {
	return match.Profile{Track: track.Track{
		Title:    t.Name,
		Artist:   joinArtists(t.Artists, ", "),
		Album:    t.Album.Name,
		Duration: (time.Duration(t.Duration) * time.Millisecond).Seconds(),
	}}
}

func joinArtists(artists []spotify.SimpleArtist, sep string) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, sep)
}

// Client implements lyrics.Provider for Spotify.
type Client struct {
	creds    Credentials
	http     *provider.HTTP
	api      *tokencache.Cache
	lrc      *tokencache.Cache
	strategy match.Strategy[spotify.FullTrack]
	confirm  provider.Confirmer
	logger   *logger.Logger

	// Overridable for testing
	tokenURL    string
	apiURL      string
	lrcTokenURL string
	lyricsURL   string
}

// New creates a Spotify client caching its tokens in tokenDir.
func New(opts provider.Options, creds Credentials, tokenDir string) *Client {
	log := opts.Log()
	return &Client{
		creds:       creds,
		http:        provider.NewHTTP("spotify", opts.UserAgent, log),
		api:         tokencache.New(filepath.Join(tokenDir, APITokenFile), log),
		lrc:         tokencache.New(filepath.Join(tokenDir, LyricsTokenFile), log),
		strategy:    match.NewStrategyWith[spotify.FullTrack](opts.Normalizer, opts.Policy, opts.Floor, match.ProjectFunc[spotify.FullTrack](project), match.DescribeFunc[spotify.FullTrack](describe)),
		confirm:     opts.Confirm,
		logger:      log,
		tokenURL:    "https://accounts.spotify.com/api/token",
		apiURL:      "https://api.spotify.com/v1",
		lrcTokenURL: "https://open.spotify.com/get_access_token",
		lyricsURL:   "https://spclient.wg.spotify.com/color-lyrics/v2/track",
	}
}

func (c *Client) Name() string { return "spotify" }

// Lyrics searches the catalogue by title and artist, picks the track
// matching t and renders its lyrics lines.
func (c *Client) Lyrics(ctx context.Context, t track.Track, format lyrics.Format) (string, error) {
	var tracks []spotify.FullTrack
	err := withToken(ctx, c.api, c.refreshAPIToken, func(token string) (err error) {
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

	var doc lyricsDoc
	var found bool
	err = withToken(ctx, c.lrc, c.refreshLyricsToken, func(token string) (err error) {
		doc, found, err = c.fetchLyrics(ctx, token, best.ID)
		return err
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", lyrics.ErrNoLyrics
	}
	return render(doc, format)
}

// withToken runs fn with a token from cache, retrying once with a fresh
// token when Spotify answers 401.
func withToken(ctx context.Context, cache *tokencache.Cache, refresh tokencache.RefreshFunc, fn func(token string) error) error {
	token, err := cache.Get(ctx, refresh)
	if err != nil {
		return err
	}
	if err = fn(token); !errors.Is(err, provider.ErrUnauthorized) {
		return err
	}

	cache.Invalidate(token)
	if token, err = cache.Get(ctx, refresh); err != nil {
		return err
	}
	if err = fn(token); errors.Is(err, provider.ErrUnauthorized) {
		return fmt.Errorf("%w: spotify rejected a fresh token", tokencache.ErrNoToken)
	}
	return err
}

func (c *Client) refreshAPIToken(ctx context.Context) (tokencache.Token, error) {
	if c.creds.ClientID == "" || c.creds.ClientSecret == "" {
		return tokencache.Token{}, errors.New("spotify client id and secret are not configured")
	}

	cfg := &clientcredentials.Config{
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		TokenURL:     c.tokenURL,
	}
	tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, c.http.Client))
	if err != nil {
		return tokencache.Token{}, fmt.Errorf("client credentials exchange failed: %w", err)
	}

	return tokencache.Token{
		Value:     tok.AccessToken,
		ExpiresAt: tok.Expiry.Unix(),
		Extra:     map[string]interface{}{"token_type": tok.TokenType},
	}, nil
}

// search returns no tracks on failure; only a rejected token is an error.
func (c *Client) search(ctx context.Context, apiToken string, t track.Track) ([]spotify.FullTrack, error) {
	httpClient := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, c.http.Client),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiToken, TokenType: "Bearer"}),
	)
	client := spotify.New(httpClient, spotify.WithBaseURL(c.apiURL+"/"))

	query := "track:" + t.Title
	if t.Artist != "" {
		query += " artist:" + t.Artist
	}
	res, err := client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(10))
	if err != nil {
		c.logger.Debug("spotify: search failed: %v", err)
		var apiErr spotify.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, provider.ErrUnauthorized
		}
		return nil, nil
	}
	if res.Tracks == nil {
		return nil, nil
	}
	return res.Tracks.Tracks, nil
}

func (c *Client) refreshLyricsToken(ctx context.Context) (tokencache.Token, error) {
	if c.creds.SPDC == "" {
		return tokencache.Token{}, errors.New("spotify sp_dc cookie is not configured")
	}

	params := url.Values{}
	params.Set("reason", "transport")
	params.Set("productType", "web_player")
	header := http.Header{
		"User-Agent":   {webPlayerAgent},
		"App-Platform": {"WebPlayer"},
		"Cookie":       {"sp_dc=" + c.creds.SPDC},
	}

	var body struct {
		ClientID                         string `json:"clientId"`
		AccessToken                      string `json:"accessToken"`
		AccessTokenExpirationTimestampMs int64  `json:"accessTokenExpirationTimestampMs"`
		IsAnonymous                      bool   `json:"isAnonymous"`
	}
	if !c.http.GetJSON(ctx, c.lrcTokenURL, params, header, &body) {
		return tokencache.Token{}, errors.New("web player token request failed")
	}
	if body.IsAnonymous {
		return tokencache.Token{}, errors.New("sp_dc cookie was rejected, the session is anonymous")
	}

	return tokencache.Token{
		Value:     body.AccessToken,
		ExpiresAt: body.AccessTokenExpirationTimestampMs / 1000,
		Extra: map[string]interface{}{
			"clientId":    body.ClientID,
			"isAnonymous": body.IsAnonymous,
		},
	}, nil
}

type lyricsDoc struct {
	Lyrics struct {
		SyncType string `json:"syncType"`
		Lines    []struct {
			StartTimeMs string `json:"startTimeMs"`
			Words       string `json:"words"`
		} `json:"lines"`
	} `json:"lyrics"`
}

func (c *Client) fetchLyrics(ctx context.Context, lrcToken string, id spotify.ID) (lyricsDoc, bool, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("vocalRemoval", "false")
	params.Set("market", "from_token")
	header := http.Header{
		"Authorization": {"Bearer " + lrcToken},
		"User-Agent":    {webPlayerAgent},
		"App-Platform":  {"WebPlayer"},
		"Accept":        {"application/json"},
	}

	var doc lyricsDoc
	err := c.http.Get(ctx, c.lyricsURL+"/"+url.PathEscape(string(id)), params, header, &doc)
	if errors.Is(err, provider.ErrUnauthorized) {
		return doc, false, err
	}
	return doc, err == nil, nil
}

func render(doc lyricsDoc, format lyrics.Format) (string, error) {
	lines := doc.Lyrics.Lines
	if len(lines) == 0 {
		return "", lyrics.ErrNoLyrics
	}
	if format == lyrics.Synced && doc.Lyrics.SyncType == "UNSYNCED" {
		return "", lyrics.ErrNoLyrics
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if format != lyrics.Synced {
			out[i] = line.Words
			continue
		}
		ms, err := strconv.Atoi(line.StartTimeMs)
		if err != nil {
			return "", fmt.Errorf("%w: bad timestamp %q", lyrics.ErrNoLyrics, line.StartTimeMs)
		}
		out[i] = "[" + lyrics.Timestamp(ms) + "] " + line.Words
	}
	return strings.Join(out, "\n"), nil
}
