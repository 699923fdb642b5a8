package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"lrcfetch/internal/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lrcfetch [flags] <file|directory|playlist.m3u>",
		Short: "Fetch synced lyrics for local music from LRCLIB, Spotify and Musixmatch",
		Long: `lrcfetch reads the tags of local audio files, looks each song up in the
configured lyrics providers and embeds the lyrics found into the file
(or writes a sibling .lrc file with --dump).

Config file locations (checked in order):
  ./lrcfetch.yaml, ./lrcfetch.yml
  $XDG_CONFIG_HOME/lrcfetch/config.yaml

Unless --verbose is given, detailed logs are also written to
  $XDG_DATA_HOME/lrcfetch/logs/`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, configPath, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return execute(cfg, configPath, args[0], quietMode(cmd.Flags()))
		},
	}

	flags := cmd.Flags()
	flags.StringP("type", "t", "synced", "Lyrics type: synced or plain")
	flags.BoolP("yes", "y", false, "Don't ask before each song or on doubtful matches")
	flags.StringP("overwrite", "w", "skip", "Songs that already have lyrics: yes or skip")
	flags.StringP("order", "o", "spotify,lrclib", "Comma separated provider order, unique prefixes allowed")
	flags.BoolP("verbose", "v", false, "Show debug output, no file logging")
	flags.BoolP("dump", "d", false, "Write lyrics to .lrc files instead of embedding them")
	flags.BoolP("quiet", "q", false, "Show only a progress bar (implies --yes)")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to config file")

	cmd.AddCommand(newInitConfigCmd())
	return cmd
}

// loadConfig loads the config file and applies the flags that were set on
// the command line. Priority: CLI flags > config file > defaults.
func loadConfig(flags *pflag.FlagSet) (config.Config, string, error) {
	configPath, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, "", err
	}

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to load config: %w", err)
	}
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	quiet := false
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "type":
			cfg.Type = f.Value.String()
		case "overwrite":
			cfg.Overwrite = f.Value.String()
		case "order":
			cfg.Order = f.Value.String()
		case "yes":
			cfg.Yes = f.Value.String() == "true"
		case "verbose":
			cfg.Verbose = f.Value.String() == "true"
		case "dump":
			cfg.Dump = f.Value.String() == "true"
		case "quiet":
			quiet = f.Value.String() == "true"
		}
	})
	if quiet {
		cfg.Yes = true
	}

	return cfg, configPath, cfg.Validate()
}

func quietMode(flags *pflag.FlagSet) bool {
	quiet, _ := flags.GetBool("quiet")
	return quiet
}

func newInitConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "init-config",
		Short:        "Create a default config file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.GetDefaultConfigPath()
			}
			force, _ := cmd.Flags().GetBool("force")
			return initConfigFile(cmd, path, force)
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return cmd
}

func initConfigFile(cmd *cobra.Command, path string, force bool) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(out, "Config file already exists at: %s\n", path)
		fmt.Fprintln(out, "Use --force if you want to recreate it.")
		return nil
	}

	if err := config.SaveConfigFile(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Fprintf(out, "Created default config file at: %s\n", path)
	fmt.Fprintln(out, "\nYou can now edit this file to customize your settings.")
	fmt.Fprintln(out, "Available options:")
	fmt.Fprintln(out, "  spotify_client_id, spotify_client_secret: Spotify app credentials")
	fmt.Fprintln(out, "  spotify_sp_dc: sp_dc cookie of a logged-in Spotify web player")
	fmt.Fprintln(out, "  order: provider order, e.g. spotify,lrclib,musixmatch")
	fmt.Fprintln(out, "  type: synced or plain")
	fmt.Fprintln(out, "  overwrite: yes or skip")
	fmt.Fprintln(out, "  match_floor: 0-100, minimum similarity for a match")
	fmt.Fprintln(out, "  match_policy: per provider, ratio or affinity")
	fmt.Fprintln(out, "  protected_names: names keeping a ' x ' separator intact")
	return nil
}
