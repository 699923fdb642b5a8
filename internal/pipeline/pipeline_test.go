package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrcfetch/internal/library"
	"lrcfetch/internal/logger"
	"lrcfetch/internal/lyrics"
	"lrcfetch/internal/match"
	"lrcfetch/internal/tokencache"
	"lrcfetch/internal/track"
)

func init() {
	color.NoColor = true
}

type fakeProvider struct {
	name    string
	results map[string]string // title -> lyrics
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Lyrics(_ context.Context, t track.Track, _ lyrics.Format) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if text, ok := f.results[t.Title]; ok {
		return text, nil
	}
	return "", match.ErrNoMatch
}

type memSaver struct {
	saved map[string]string
	fail  bool
}

func (m *memSaver) Save(song library.Song, text string) error {
	if m.fail {
		return errors.New("disk full")
	}
	if m.saved == nil {
		m.saved = make(map[string]string)
	}
	m.saved[song.Path] = text
	return nil
}

func song(title string, hasLyrics bool) library.Song {
	return library.Song{
		Track:     track.Track{Title: title, Artist: "Taylor Swift", Album: "Fearless"},
		Path:      "/music/" + title + ".mp3",
		HasLyrics: hasLyrics,
	}
}

func quietLogger() (*logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logger.New(false)
	log.SetOutput(&buf)
	return log, &buf
}

func TestRunFallback(t *testing.T) {
	first := &fakeProvider{name: "spotify", results: map[string]string{}}
	second := &fakeProvider{name: "lrclib", results: map[string]string{"Love Story": "[00:12.00] We were both young"}}
	saver := &memSaver{}
	log, out := quietLogger()

	stats, err := Run(context.Background(), Options{Format: lyrics.Synced},
		[]library.Song{song("Love Story", false)},
		[]lyrics.Provider{first, second}, saver, nil, log, Hooks{})
	require.NoError(t, err)

	assert.Equal(t, Stats{Total: 1, Saved: 1}, stats)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, "[00:00.00] Love Story\n[00:12.00] We were both young", saver.saved["/music/Love Story.mp3"])
	assert.Contains(t, out.String(), "falling back to next provider")
	assert.Contains(t, out.String(), "1 lyrics saved out of 1 songs")
}

func TestRunPlainHasNoHeader(t *testing.T) {
	p := &fakeProvider{name: "lrclib", results: map[string]string{"Love Story": "We were both young"}}
	saver := &memSaver{}
	log, _ := quietLogger()

	_, err := Run(context.Background(), Options{Format: lyrics.Plain},
		[]library.Song{song("Love Story", false)}, []lyrics.Provider{p}, saver, nil, log, Hooks{})
	require.NoError(t, err)
	assert.Equal(t, "We were both young", saver.saved["/music/Love Story.mp3"])
}

func TestRunOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		providers func() []lyrics.Provider
		song      library.Song
		opts      Options
		prompt    Prompter
		saverFail bool
		want      Stats
	}{
		{
			name: "existing lyrics skipped",
			providers: func() []lyrics.Provider {
				return []lyrics.Provider{&fakeProvider{name: "lrclib", err: errors.New("should not be called")}}
			},
			song: song("Love Story", true),
			opts: Options{Format: lyrics.Synced},
			want: Stats{Total: 1, Skipped: 1},
		},
		{
			name: "existing lyrics overwritten",
			providers: func() []lyrics.Provider {
				return []lyrics.Provider{&fakeProvider{name: "lrclib", results: map[string]string{"Love Story": "x"}}}
			},
			song: song("Love Story", true),
			opts: Options{Format: lyrics.Synced, Overwrite: true},
			want: Stats{Total: 1, Saved: 1},
		},
		{
			name: "instrumental stops the song",
			providers: func() []lyrics.Provider {
				return []lyrics.Provider{
					&fakeProvider{name: "musixmatch", err: match.ErrInstrumental},
					&fakeProvider{name: "lrclib", results: map[string]string{"Love Story": "x"}},
				}
			},
			song: song("Love Story", false),
			opts: Options{Format: lyrics.Synced},
			want: Stats{Total: 1, Instrumental: 1},
		},
		{
			name: "missing token falls back",
			providers: func() []lyrics.Provider {
				return []lyrics.Provider{
					&fakeProvider{name: "spotify", err: fmt.Errorf("%w: sp_dc cookie was rejected", tokencache.ErrNoToken)},
					&fakeProvider{name: "lrclib", results: map[string]string{"Love Story": "x"}},
				}
			},
			song: song("Love Story", false),
			opts: Options{Format: lyrics.Synced},
			want: Stats{Total: 1, Saved: 1},
		},
		{
			name: "no provider has lyrics",
			providers: func() []lyrics.Provider {
				return []lyrics.Provider{
					&fakeProvider{name: "spotify", err: lyrics.ErrNoLyrics},
					&fakeProvider{name: "lrclib"},
				}
			},
			song: song("Love Story", false),
			opts: Options{Format: lyrics.Synced},
			want: Stats{Total: 1, Failed: 1},
		},
		{
			name: "save failure tries next provider then fails",
			providers: func() []lyrics.Provider {
				return []lyrics.Provider{&fakeProvider{name: "lrclib", results: map[string]string{"Love Story": "x"}}}
			},
			song:      song("Love Story", false),
			opts:      Options{Format: lyrics.Synced},
			saverFail: true,
			want:      Stats{Total: 1, Failed: 1},
		},
		{
			name: "interactive decline",
			providers: func() []lyrics.Provider {
				return []lyrics.Provider{&fakeProvider{name: "lrclib", err: errors.New("should not be called")}}
			},
			song:   song("Love Story", false),
			opts:   Options{Format: lyrics.Synced, Interactive: true},
			prompt: PromptFunc(func(library.Song) bool { return false }),
			want:   Stats{Total: 1, Skipped: 1},
		},
		{
			name: "interactive accept refetches existing lyrics",
			providers: func() []lyrics.Provider {
				return []lyrics.Provider{&fakeProvider{name: "lrclib", results: map[string]string{"Love Story": "x"}}}
			},
			song:   song("Love Story", true),
			opts:   Options{Format: lyrics.Synced, Interactive: true},
			prompt: PromptFunc(func(library.Song) bool { return true }),
			want:   Stats{Total: 1, Saved: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, _ := quietLogger()
			stats, err := Run(context.Background(), tt.opts, []library.Song{tt.song},
				tt.providers(), &memSaver{fail: tt.saverFail}, tt.prompt, log, Hooks{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, stats)
		})
	}
}

func TestRunHooks(t *testing.T) {
	p := &fakeProvider{name: "lrclib", results: map[string]string{"Love Story": "x"}}
	var (
		started  []int
		progress int
		savedBy  []string
		warnings []string
	)
	hooks := Hooks{
		OnSong:     func(i, total int, _ library.Song) { started = append(started, i) },
		OnProgress: func() { progress++ },
		OnSaved:    func(_ library.Song, provider string) { savedBy = append(savedBy, provider) },
		OnWarning:  func(msg string) { warnings = append(warnings, msg) },
	}
	noToken := &fakeProvider{name: "spotify", err: fmt.Errorf("%w: not configured", tokencache.ErrNoToken)}
	log, _ := quietLogger()

	songs := []library.Song{song("Love Story", false), song("White Horse", false), song("Fifteen", true)}
	stats, err := Run(context.Background(), Options{Format: lyrics.Synced}, songs,
		[]lyrics.Provider{noToken, p}, &memSaver{}, nil, log, hooks)
	require.NoError(t, err)

	assert.Equal(t, Stats{Total: 3, Saved: 1, Skipped: 1, Failed: 1}, stats)
	assert.Equal(t, []int{0, 1, 2}, started)
	assert.Equal(t, 3, progress)
	assert.Equal(t, []string{"lrclib"}, savedBy)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "Spotify no token")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeProvider{name: "lrclib", results: map[string]string{"Love Story": "x", "White Horse": "y"}}
	hooks := Hooks{OnSaved: func(library.Song, string) { cancel() }}
	log, _ := quietLogger()

	songs := []library.Song{song("Love Story", false), song("White Horse", false)}
	stats, err := Run(ctx, Options{Format: lyrics.Synced}, songs, []lyrics.Provider{p}, &memSaver{}, nil, log, hooks)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Stats{Total: 2, Saved: 1}, stats)
	assert.Equal(t, 1, p.calls)
}
