package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/fatih/color"

	"lrcfetch/internal/library"
	"lrcfetch/internal/logger"
	"lrcfetch/internal/lyrics"
	"lrcfetch/internal/match"
	"lrcfetch/internal/tokencache"
)

// Options controls a run.
type Options struct {
	Format      lyrics.Format
	Overwrite   bool // replace lyrics a song already has
	Interactive bool // ask before each song
}

// Saver stores fetched lyrics for a song. library.Saver implements it.
type Saver interface {
	Save(song library.Song, text string) error
}

// Prompter asks the user whether to process a song.
type Prompter interface {
	Continue(song library.Song) bool
}

// PromptFunc adapts a function to Prompter.
type PromptFunc func(song library.Song) bool

func (f PromptFunc) Continue(song library.Song) bool { return f(song) }

// Hooks let callers follow progress without parsing log output.
type Hooks struct {
	OnSong     func(index, total int, song library.Song)
	OnProgress func()
	OnSaved    func(song library.Song, provider string)
	OnWarning  func(msg string)
}

// Stats summarizes a run.
type Stats struct {
	Total        int `json:"total"`
	Saved        int `json:"saved"`
	Skipped      int `json:"skipped"`
	Instrumental int `json:"instrumental"`
	Failed       int `json:"failed"`
}

type outcome int

const (
	failed outcome = iota
	saved
	instrumental
)

// Run fetches lyrics for every song, trying providers in order until one
// returns lyrics that could be saved. It stops between songs when ctx is
// cancelled and returns the stats gathered so far with ctx's error.
func Run(ctx context.Context, opts Options, songs []library.Song, providers []lyrics.Provider, saver Saver, prompter Prompter, log *logger.Logger, hooks Hooks) (Stats, error) {
	if log == nil {
		log = logger.Discard()
	}
	stats := Stats{Total: len(songs)}

	for i, song := range songs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		log.Print(color.FgCyan, "\nProcessing song %d / %d", i+1, len(songs))
		log.Info("%s", song)
		if hooks.OnSong != nil {
			hooks.OnSong(i, len(songs), song)
		}

		if opts.Interactive && prompter != nil {
			if !prompter.Continue(song) {
				log.Info("Skipping song")
				stats.Skipped++
				progress(hooks)
				continue
			}
		} else if song.HasLyrics && !opts.Overwrite {
			log.Info("Lyrics already present, skipping")
			stats.Skipped++
			progress(hooks)
			continue
		}

		switch fetch(ctx, opts, song, providers, saver, log, hooks) {
		case saved:
			stats.Saved++
		case instrumental:
			stats.Instrumental++
		default:
			stats.Failed++
		}
		progress(hooks)
	}

	log.Print(color.FgGreen, "%d lyrics saved out of %d songs", stats.Saved, stats.Total)
	return stats, nil
}

func fetch(ctx context.Context, opts Options, song library.Song, providers []lyrics.Provider, saver Saver, log *logger.Logger, hooks Hooks) outcome {
	for _, p := range providers {
		log.Print(color.FgBlue, "Fetching lyrics from %s", p.Name())

		text, err := p.Lyrics(ctx, song.Track, opts.Format)
		switch {
		case err == nil:
		case errors.Is(err, match.ErrInstrumental):
			log.Print(color.FgYellow, "Song is instrumental, skipping")
			return instrumental
		case errors.Is(err, tokencache.ErrNoToken):
			msg := titleCase(p.Name()) + " " + err.Error()
			log.Error("%s", msg)
			if hooks.OnWarning != nil {
				hooks.OnWarning(msg)
			}
			continue
		case errors.Is(err, match.ErrNoMatch), errors.Is(err, lyrics.ErrNoLyrics):
			log.Print(color.FgYellow, "Lyrics not found, falling back to next provider")
			continue
		default:
			if ctx.Err() != nil {
				return failed
			}
			log.Warn("%s failed: %v, falling back to next provider", p.Name(), err)
			continue
		}

		text = lyrics.WithHeader(song.Track.Title, text, opts.Format)
		if err := saver.Save(song, text); err != nil {
			log.Error("Failed to save lyrics: %v", err)
			continue
		}

		if song.HasLyrics {
			log.Print(color.FgGreen, "Lyrics overridden")
		} else {
			log.Print(color.FgGreen, "Lyrics saved")
		}
		if hooks.OnSaved != nil {
			hooks.OnSaved(song, p.Name())
		}
		return saved
	}
	return failed
}

func progress(hooks Hooks) {
	if hooks.OnProgress != nil {
		hooks.OnProgress()
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
