// Package providers assembles the lyrics providers from configuration.
package providers

import (
	"lrcfetch/internal/config"
	"lrcfetch/internal/logger"
	"lrcfetch/internal/lyrics"
	"lrcfetch/internal/match"
	"lrcfetch/internal/provider"
	"lrcfetch/internal/provider/lrclib"
	"lrcfetch/internal/provider/musixmatch"
	"lrcfetch/internal/provider/spotify"
)

// Options returns the provider options for name under cfg.
func Options(cfg config.Config, name string, confirm provider.Confirmer, log *logger.Logger) provider.Options {
	return provider.Options{
		Policy:     cfg.Policy(name),
		Floor:      cfg.MatchFloor,
		Normalizer: match.NewNormalizer(cfg.ProtectedNames),
		Confirm:    confirm,
		UserAgent:  cfg.UserAgent,
		Logger:     log,
	}
}

// Build creates every known provider and registers it by name. confirm may
// be nil, in which case doubtful affinity matches are rejected.
func Build(cfg config.Config, confirm provider.Confirmer, log *logger.Logger) *lyrics.Registry {
	creds := spotify.Credentials{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		SPDC:         cfg.SpotifySPDC,
	}

	return lyrics.NewRegistry(
		lrclib.New(Options(cfg, "lrclib", confirm, log)),
		musixmatch.New(Options(cfg, "musixmatch", confirm, log), cfg.TokenDir),
		spotify.New(Options(cfg, "spotify", confirm, log), creds, cfg.TokenDir),
	)
}
