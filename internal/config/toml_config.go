package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// parseTOMLInto decodes a TOML document over cfg. Keys that are absent keep
// their current values.
//
//	[locate]
//	high_confidence_threshold = 0.9
//
//	[server]
//	addr = ":5001"
func parseTOMLInto(cfg *Config, content []byte) error {
	if err := toml.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return nil
}

// MarshalTOML renders cfg as TOML, for `semdiff config` output.
func MarshalTOML(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
