package musixmatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lrcfetch/internal/lyrics"
	"lrcfetch/internal/match"
	"lrcfetch/internal/provider"
	"lrcfetch/internal/tokencache"
	"lrcfetch/internal/track"
)

var loveStory = track.Track{Title: "Love Story", Artist: "Taylor Swift", Album: "Fearless", Duration: 235}

type fakeAPI struct {
	userToken    string
	tokenCalls   int
	instrumental int
	subtitle     string
	lyricsBody   string
	rejectAll    bool
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	write := func(w http.ResponseWriter, status int, body string) {
		fmt.Fprintf(w, `{"message": {"header": {"status_code": %d}, "body": %s}}`, status, body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token.get", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls++
		if got := r.URL.Query().Get("app_id"); got != appID {
			t.Errorf("app_id = %q", got)
		}
		write(w, 200, fmt.Sprintf(`{"user_token": %q}`, f.userToken))
	})
	mux.HandleFunc("/track.search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if f.rejectAll || q.Get("usertoken") != f.userToken {
			write(w, 401, `""`)
			return
		}
		if q.Get("q") != "Love Story Taylor Swift" || q.Get("page_size") != "5" {
			t.Errorf("search query = %v", q)
		}
		write(w, 200, fmt.Sprintf(`{"track_list": [
			{"track": {"track_id": 1, "track_name": "Bohemian Rhapsody", "artist_name": "Queen",
				"album_name": "A Night at the Opera", "track_length": 354, "has_lyrics": 1, "has_subtitles": 1}},
			{"track": {"track_id": 42, "track_name": "Love Story", "artist_name": "Taylor Swift",
				"album_name": "Fearless", "track_length": 235, "instrumental": %d, "has_lyrics": 1, "has_subtitles": 1}}
		]}`, f.instrumental))
	})
	mux.HandleFunc("/track.subtitle.get", func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query(); q.Get("track_id") != "42" || q.Get("subtitle_format") != "lrc" {
			t.Errorf("subtitle query = %v", q)
		}
		if f.subtitle == "" {
			write(w, 404, `[]`)
			return
		}
		write(w, 200, fmt.Sprintf(`{"subtitle": {"subtitle_body": %q}}`, f.subtitle))
	})
	mux.HandleFunc("/track.lyrics.get", func(w http.ResponseWriter, r *http.Request) {
		if id := r.URL.Query().Get("track_id"); id != "42" {
			t.Errorf("track_id = %q", id)
		}
		write(w, 200, fmt.Sprintf(`{"lyrics": {"lyrics_body": %q}}`, f.lyricsBody))
	})
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI) (*Client, string) {
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	c := New(provider.Options{}, dir)
	c.apiURL = srv.URL
	return c, dir
}

func TestLyrics(t *testing.T) {
	tests := []struct {
		name    string
		api     fakeAPI
		format  lyrics.Format
		want    string
		wantErr error
	}{
		{
			name:   "synced",
			api:    fakeAPI{userToken: "tok", subtitle: "[00:12.00] We were both young"},
			format: lyrics.Synced,
			want:   "[00:12.00] We were both young",
		},
		{
			name:   "plain",
			api:    fakeAPI{userToken: "tok", lyricsBody: "We were both young"},
			format: lyrics.Plain,
			want:   "We were both young",
		},
		{
			name:    "no subtitles",
			api:     fakeAPI{userToken: "tok"},
			format:  lyrics.Synced,
			wantErr: lyrics.ErrNoLyrics,
		},
		{
			name:    "subtitle without timestamps",
			api:     fakeAPI{userToken: "tok", subtitle: "We were both young"},
			format:  lyrics.Synced,
			wantErr: lyrics.ErrNoLyrics,
		},
		{
			name:    "instrumental",
			api:     fakeAPI{userToken: "tok", instrumental: 1},
			format:  lyrics.Synced,
			wantErr: match.ErrInstrumental,
		},
		{
			name:    "captcha token",
			api:     fakeAPI{userToken: "UpgradeOnlyUpgradeOnlyUpgradeOnly"},
			format:  lyrics.Synced,
			wantErr: tokencache.ErrNoToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := tt.api
			c, _ := newTestClient(t, &api)

			got, err := c.Lyrics(context.Background(), loveStory, tt.format)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Lyrics = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTokenCached(t *testing.T) {
	api := &fakeAPI{userToken: "tok", lyricsBody: "We were both young"}
	c, dir := newTestClient(t, api)
	now := time.Now()
	c.now = func() time.Time { return now }

	if _, err := c.Lyrics(context.Background(), loveStory, lyrics.Plain); err != nil {
		t.Fatal(err)
	}

	// a second client reads the token file instead of asking again
	c2 := New(provider.Options{}, dir)
	c2.apiURL = c.apiURL
	if _, err := c2.Lyrics(context.Background(), loveStory, lyrics.Plain); err != nil {
		t.Fatal(err)
	}
	if api.tokenCalls != 1 {
		t.Errorf("token fetched %d times, want 1", api.tokenCalls)
	}

	tok, ok := tokencache.Load(c.tokens.Path())
	if !ok {
		t.Fatal("token not stored")
	}
	if tok.Value != "tok" || tok.ExpiresAt != now.Unix()+600 {
		t.Errorf("stored token = %+v", tok)
	}
}

func TestRejectedTokenRefreshed(t *testing.T) {
	api := &fakeAPI{userToken: "tok", lyricsBody: "We were both young"}
	c, _ := newTestClient(t, api)
	err := tokencache.Store(c.tokens.Path(), tokencache.Token{Value: "revoked", ExpiresAt: time.Now().Unix() + 600})
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.Lyrics(context.Background(), loveStory, lyrics.Plain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "We were both young" {
		t.Errorf("Lyrics = %q", got)
	}
	if api.tokenCalls != 1 {
		t.Errorf("token fetched %d times, want 1", api.tokenCalls)
	}
	if tok, _ := tokencache.Load(c.tokens.Path()); tok.Value != "tok" {
		t.Errorf("stored token = %q, want tok", tok.Value)
	}
}

func TestTokenRejectedTwice(t *testing.T) {
	api := &fakeAPI{userToken: "tok", rejectAll: true}
	c, _ := newTestClient(t, api)

	_, err := c.Lyrics(context.Background(), loveStory, lyrics.Plain)
	if !errors.Is(err, tokencache.ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}
	if api.tokenCalls != 2 {
		t.Errorf("token fetched %d times, want 2", api.tokenCalls)
	}
}
