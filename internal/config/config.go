package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmcder000/semantic-diff/internal/quote"
)

// Config file names searched for in the home and working directories.
const (
	KDLFileName  = ".semdiff.kdl"
	TOMLFileName = ".semdiff.toml"
)

type Config struct {
	Version int     `toml:"version"`
	Locate  Locate  `toml:"locate"`
	Server  Server  `toml:"server"`
	Cache   Cache   `toml:"cache"`
	Batch   Batch   `toml:"batch"`
	Logging Logging `toml:"logging"`
	Display Display `toml:"display"`
}

// Locate holds the resolution policy knobs
type Locate struct {
	HighConfidenceThreshold float64 `toml:"high_confidence_threshold"`
	MaxDocLenForDP          int     `toml:"max_doc_len_for_dp"`    // normalized runes
	MaxQueryLenForDP        int     `toml:"max_query_len_for_dp"`  // normalized runes
	PreferEarlierOrigin     bool    `toml:"prefer_earlier_origin"` // DP tie-break direction
	CoverageTrials          int     `toml:"coverage_trials"`
	StemTokens              bool    `toml:"stem_tokens"`
	Parallel                bool    `toml:"parallel"` // run approximate and coverage tiers concurrently
}

type Server struct {
	Addr                string `toml:"addr"`
	RequestTimeoutSec   int    `toml:"request_timeout_sec"`
	ShutdownTimeoutSec  int    `toml:"shutdown_timeout_sec"`
	MaxBodyBytes        int64  `toml:"max_body_bytes"`
	MaxQuotesPerRequest int    `toml:"max_quotes_per_request"`
	EnableMetrics       bool   `toml:"enable_metrics"`
}

// Cache controls reuse of prepared documents across requests
type Cache struct {
	Enabled      bool `toml:"enabled"`
	MaxDocuments int  `toml:"max_documents"`
}

type Batch struct {
	Workers int `toml:"workers"` // 0 = auto-detect
}

type Logging struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
	File   string `toml:"file"` // empty = stderr
}

type Display struct {
	Color         string `toml:"color"` // "auto", "always", "never"
	ContextWindow int    `toml:"context_window"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Locate: Locate{
			HighConfidenceThreshold: quote.DefaultHighConfidenceThreshold,
			MaxDocLenForDP:          quote.DefaultMaxDocLenForDP,
			MaxQueryLenForDP:        quote.DefaultMaxQueryLenForDP,
			CoverageTrials:          quote.DefaultCoverageTrials,
		},
		Server: Server{
			Addr:                ":5001",
			RequestTimeoutSec:   30,
			ShutdownTimeoutSec:  5,
			MaxBodyBytes:        1 << 20,
			MaxQuotesPerRequest: 64,
			EnableMetrics:       true,
		},
		Cache: Cache{
			Enabled:      true,
			MaxDocuments: 32,
		},
		Batch: Batch{
			Workers: 0,
		},
		Logging: Logging{
			Level: "info",
		},
		Display: Display{
			Color:         "auto",
			ContextWindow: 120,
		},
	}
}

// Options converts the locate section into resolver options.
func (l Locate) Options() quote.Options {
	return quote.Options{
		HighConfidenceThreshold: l.HighConfidenceThreshold,
		MaxDocLenForDP:          l.MaxDocLenForDP,
		MaxQueryLenForDP:        l.MaxQueryLenForDP,
		PreferEarlierOrigin:     l.PreferEarlierOrigin,
		CoverageTrials:          l.CoverageTrials,
		StemTokens:              l.StemTokens,
		Parallel:                l.Parallel,
	}
}

// Load reads the config file at path, picking the format by extension. An
// empty path searches the home directory and then the working directory,
// with the working directory taking precedence. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromDir(".")
	}

	cfg := Default()
	if err := loadFileInto(cfg, path); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir layers ~/.semdiff.{kdl,toml} under dir/.semdiff.{kdl,toml}.
func LoadFromDir(dir string) (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		if abs, _ := filepath.Abs(dir); abs != home {
			if err := loadFirstInto(cfg, home); err != nil {
				return nil, err
			}
		}
	}
	if err := loadFirstInto(cfg, dir); err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFirstInto(cfg *Config, dir string) error {
	for _, name := range []string{KDLFileName, TOMLFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return loadFileInto(cfg, path)
		}
	}
	return nil
}

func loadFileInto(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return parseTOMLInto(cfg, content)
	default:
		return parseKDLInto(cfg, string(content))
	}
}
