package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"lrcfetch/internal/config"
	"lrcfetch/internal/library"
	"lrcfetch/internal/logger"
	"lrcfetch/internal/pipeline"
	"lrcfetch/internal/progress"
	"lrcfetch/internal/provider"
	"lrcfetch/internal/providers"
	"lrcfetch/internal/shutdown"
)

// exitError carries an exit code for an error that was already logged.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}

func execute(cfg config.Config, configPath, path string, quiet bool) error {
	sh := shutdown.New()
	sh.Listen()

	log := logger.New(cfg.Verbose)
	defer log.Close()

	if !cfg.Verbose {
		logDir := config.GetDefaultLogPath()
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Failed to create log directory: %v\n", err)
		} else {
			logFile := filepath.Join(logDir, fmt.Sprintf("lrcfetch_%s.log", time.Now().Format("2006-01-02_15-04-05")))
			if err := log.SetFileLog(logFile); err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] Failed to setup file logging: %v\n", err)
			} else {
				log.Debug("Logging to file: %s", logFile)
			}
		}
	}

	if configPath != "" {
		log.Debug("Loaded configuration from: %s", configPath)
	}

	err := run(sh, cfg, path, quiet && !cfg.Verbose, log)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		log.Warn("Interrupted")
		return &exitError{code: 130, err: err}
	default:
		log.Error("%v", err)
		return &exitError{code: 1, err: err}
	}
}

func run(sh *shutdown.Handler, cfg config.Config, path string, showBar bool, log *logger.Logger) error {
	if err := os.MkdirAll(cfg.TokenDir, 0700); err != nil {
		return fmt.Errorf("error creating token folder: %w", err)
	}
	log.Debug("Token folder: %s", cfg.TokenDir)

	var (
		confirm  provider.Confirmer
		prompt   pipeline.Prompter
		interact = !cfg.Yes
	)
	if interact {
		p := newPrompter(os.Stdin, color.Output)
		confirm, prompt = p, p
	}

	registry := providers.Build(cfg, confirm, log)
	order, unknown, err := registry.Order(cfg.Order)
	if err != nil {
		return err
	}
	for _, name := range unknown {
		log.Warn("Provider %s not found", name)
	}
	if len(order) == 0 {
		return fmt.Errorf("no usable provider in order %q, valid providers: %s", cfg.Order, strings.Join(registry.Names(), ", "))
	}

	songs, err := library.FromPath(path, log)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		log.Warn("No songs found in %s", path)
		return nil
	}
	log.Debug("Found %d songs", len(songs))

	var bar *progress.Bar
	hooks := pipeline.Hooks{}
	if showBar {
		bar = progress.NewWriter(color.Output, len(songs))
		log.SetProgressBar(true)
		sh.AddCleanup(func() {
			bar.Finish()
			log.SetProgressBar(false)
		})
		hooks.OnSong = func(_, _ int, song library.Song) {
			bar.SetLabel(song.Track.Label())
		}
		hooks.OnProgress = bar.Increment
	}

	opts := pipeline.Options{
		Format:      cfg.Format(),
		Overwrite:   cfg.OverwriteExisting(),
		Interactive: interact,
	}
	stats, err := pipeline.Run(sh.Context(), opts, songs, order, library.Saver{Dump: cfg.Dump}, prompt, log, hooks)
	sh.Shutdown()

	if bar != nil {
		log.Print(color.FgGreen, "%d lyrics saved out of %d songs (%d skipped, %d instrumental, %d not found)",
			stats.Saved, stats.Total, stats.Skipped, stats.Instrumental, stats.Failed)
	}
	return err
}
