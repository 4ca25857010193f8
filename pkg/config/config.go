// Package config loads the corpus source manifest used by `xc download`.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/LuminosoInsight/exquisite-corpus/pkg/langid"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Source kinds.
const (
	KindText = "text" // stored as fetched (plain, .gz or .zst)
	KindHTML = "html" // article text is extracted with readability
	KindTar  = "tar"  // .txt members of a (gzipped) tarball are concatenated

	kindTgz = "tgz" // accepted as KindTar
)

const defaultDataDir = "data"

// Source describes one downloadable corpus.
type Source struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Kind     string `yaml:"kind,omitempty"`
	Language string `yaml:"language,omitempty"`
	Dest     string `yaml:"dest,omitempty"` // relative to <data_dir>/raw
}

// Config is the parsed manifest.
type Config struct {
	DataDir  string   `yaml:"data_dir,omitempty"`
	LogLevel string   `yaml:"log_level,omitempty"`
	Sources  []Source `yaml:"sources"`
}

// Load reads the manifest at path, applies defaults and environment
// overrides (XC_DATA_DIR, XC_LOG_LEVEL) and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: config path is empty", ErrInvalidConfig)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse is Load without the file read.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidConfig, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		s.Name = strings.TrimSpace(s.Name)
		switch strings.ToLower(strings.TrimSpace(s.Kind)) {
		case "":
			s.Kind = KindText
		case kindTgz:
			s.Kind = KindTar
		}
		if s.Dest == "" {
			s.Dest = defaultDest(*s)
		}
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("XC_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("XC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// defaultDest names the downloaded file after the source, keeping the
// compression suffix of the URL so readers pick the right codec.
func defaultDest(s Source) string {
	switch s.Kind {
	case KindHTML, KindTar:
		return s.Name + ".txt"
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return s.Name + ".txt"
	}
	switch ext := path.Ext(u.Path); ext {
	case ".gz", ".zst":
		return s.Name + ".txt" + ext
	}
	return s.Name + ".txt"
}

// Validate checks the log level, names, URLs, kinds and languages.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
		}
	}
	seen := make(map[string]bool, len(c.Sources))
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Name == "" {
			return fmt.Errorf("%w: source #%d has no name", ErrInvalidConfig, i)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate source name %q", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = true

		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: source %q: url must be http(s), got %q", ErrInvalidConfig, s.Name, s.URL)
		}
		switch s.Kind {
		case KindText, KindHTML, KindTar:
		default:
			return fmt.Errorf("%w: source %q: unknown kind %q", ErrInvalidConfig, s.Name, s.Kind)
		}
		if s.Language != "" {
			lang, err := langid.Standardize(s.Language)
			if err != nil {
				return fmt.Errorf("%w: source %q: %v", ErrInvalidConfig, s.Name, err)
			}
			s.Language = lang
		}
		if filepath.IsAbs(s.Dest) || strings.HasPrefix(filepath.Clean(s.Dest), "..") {
			return fmt.Errorf("%w: source %q: dest must stay inside the data dir", ErrInvalidConfig, s.Name)
		}
	}
	return nil
}

// Source returns the named source.
func (c *Config) Source(name string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// RawDir is where downloads land.
func (c *Config) RawDir() string {
	return filepath.Join(c.DataDir, "raw")
}
