package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"lrcfetch/internal/lyrics"
	"lrcfetch/internal/match"
)

// ProviderNames lists every provider the program knows.
var ProviderNames = []string{"lrclib", "musixmatch", "spotify"}

// Config contains the program configuration
type Config struct {
	SpotifyClientID     string            `yaml:"spotify_client_id"`
	SpotifyClientSecret string            `yaml:"spotify_client_secret"`
	SpotifySPDC         string            `yaml:"spotify_sp_dc"`
	TokenDir            string            `yaml:"token_dir"`
	Order               string            `yaml:"order"`
	Type                string            `yaml:"type"`
	Overwrite           string            `yaml:"overwrite"`
	Dump                bool              `yaml:"dump"`
	Verbose             bool              `yaml:"verbose"`
	Yes                 bool              `yaml:"yes"`
	MatchFloor          float64           `yaml:"match_floor"`
	MatchPolicy         map[string]string `yaml:"match_policy"`
	ProtectedNames      []string          `yaml:"protected_names"`
	UserAgent           string            `yaml:"user_agent"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		TokenDir:       filepath.Join(xdg.StateHome, "lrcfetch", "tokens"),
		Order:          "spotify,lrclib",
		Type:           string(lyrics.Synced),
		Overwrite:      "skip",
		MatchFloor:     match.DefaultFloor,
		MatchPolicy:    map[string]string{"musixmatch": string(match.PolicyAffinity)},
		ProtectedNames: match.DefaultProtected,
	}
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.TokenDir = ExpandHome(cfg.TokenDir)

	return cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(xdg.Home, path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	for _, path := range []string{"./lrcfetch.yaml", "./lrcfetch.yml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	if path, err := xdg.SearchConfigFile(filepath.Join("lrcfetch", "config.yaml")); err == nil {
		return path
	}
	return ""
}

// SaveConfigFile saves the current configuration to a YAML file
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "lrcfetch", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(xdg.DataHome, "lrcfetch", "logs")
}

// Format returns the validated lyrics format.
func (c *Config) Format() lyrics.Format {
	f, _ := lyrics.ParseFormat(c.Type)
	return f
}

// OverwriteExisting reports whether songs with lyrics are fetched again.
func (c *Config) OverwriteExisting() bool {
	return c.Overwrite == "yes"
}

// Policy returns the match policy configured for provider.
func (c *Config) Policy(provider string) match.Policy {
	p, err := match.ParsePolicy(c.MatchPolicy[provider])
	if err != nil {
		return match.PolicyRatio
	}
	return p
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := lyrics.ParseFormat(c.Type); err != nil {
		return err
	}

	if c.Overwrite != "yes" && c.Overwrite != "skip" {
		return fmt.Errorf("overwrite must be 'yes' or 'skip', got %q", c.Overwrite)
	}

	if strings.TrimSpace(c.Order) == "" {
		return fmt.Errorf("order cannot be empty")
	}

	if c.MatchFloor <= 0 || c.MatchFloor > 100 {
		return fmt.Errorf("match_floor must be above 0 and at most 100, got %.1f", c.MatchFloor)
	}

	known := make(map[string]bool, len(ProviderNames))
	for _, name := range ProviderNames {
		known[name] = true
	}
	providers := make([]string, 0, len(c.MatchPolicy))
	for name := range c.MatchPolicy {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	for _, name := range providers {
		if !known[name] {
			return fmt.Errorf("unknown provider %q in match_policy, valid providers: %s", name, strings.Join(ProviderNames, ", "))
		}
		if _, err := match.ParsePolicy(c.MatchPolicy[name]); err != nil {
			return fmt.Errorf("match_policy for %s: %w", name, err)
		}
	}

	if c.TokenDir == "" {
		return fmt.Errorf("token_dir cannot be empty")
	}

	return nil
}
