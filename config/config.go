// Package config loads enveye configuration from a YAML file, .env files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/usertbera/enveye/fs"
	"github.com/usertbera/enveye/lipgloss"
	"github.com/usertbera/enveye/logging"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "ENVEYE_"

	// GeminiAPIKeyEnv is read when gemini.api_key is not configured.
	GeminiAPIKeyEnv = "GEMINI_API_KEY"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Config is the complete enveye configuration.
type Config struct {
	Service ServiceConfig `koanf:"service"`
	Theme   string        `koanf:"theme"`
	Log     LogConfig     `koanf:"log"`
	Server  ServerConfig  `koanf:"server"`
	Gemini  GeminiConfig  `koanf:"gemini"`

	// Clipboard is a command line that receives copied text on stdin, such
	// as "wl-copy" or "xclip -selection clipboard". Empty uses the system
	// clipboard.
	Clipboard string `koanf:"clipboard"`
}

// ServiceConfig points the client at the explanation service.
type ServiceConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// LogConfig configures the log file. An empty File disables file logging.
type LogConfig struct {
	Level      string `koanf:"level"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// GeminiConfig configures the Gemini explainer used by serve.
type GeminiConfig struct {
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: 60 * time.Second,
		},
		Theme: lipgloss.ThemeDark,
		Log: LogConfig{
			Level:      "info",
			File:       fs.DefaultLogPath(),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8000",
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 60 * time.Second,
		},
	}
}

// Load builds the configuration.
//
// Precedence (highest to lowest):
//  1. Environment variables (ENVEYE_SERVICE_BASE_URL, ENVEYE_LOG_LEVEL, ...)
//  2. YAML config file
//  3. Defaults
//
// An empty configPath means fs.DefaultConfigPath(), which may be missing.
// An explicit configPath must exist.
//
// Environment variables drop the prefix and split on the first underscore:
//
//	ENVEYE_SERVICE_BASE_URL -> service.base_url
//	ENVEYE_LOG_MAX_SIZE_MB  -> log.max_size_mb
//	ENVEYE_THEME            -> theme
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	explicit := configPath != ""
	if !explicit {
		configPath = fs.DefaultConfigPath()
	}

	content, err := readConfigFile(configPath)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", transformEnv), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv(GeminiAPIKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func transformEnv(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// LoadDotEnv loads variables from .env files into the process environment.
// Variables already set are not overridden. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Service.BaseURL)
	if err != nil {
		return fmt.Errorf("service.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("service.base_url: scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("service.base_url: missing host")
	}
	if c.Service.Timeout <= 0 {
		return fmt.Errorf("service.timeout must be positive")
	}

	if _, err := lipgloss.ThemeByName(c.Theme); err != nil {
		return fmt.Errorf("theme: %w", err)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_size_mb and log.max_backups cannot be negative")
	}

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("server.addr: %w", err)
	}
	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("gemini.timeout must be positive")
	}
	return nil
}
