package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	sderrors "github.com/jmcder000/semantic-diff/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults
// Returns an error if validation fails
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateLocateConfig(&cfg.Locate); err != nil {
		return sderrors.NewConfigError("locate", "", err)
	}

	if err := v.validateServerConfig(&cfg.Server); err != nil {
		return sderrors.NewConfigError("server", "", err)
	}

	if cfg.Cache.MaxDocuments < 0 {
		return sderrors.NewConfigError("cache.max_documents", fmt.Sprint(cfg.Cache.MaxDocuments),
			errors.New("cannot be negative"))
	}

	if cfg.Batch.Workers < 0 {
		return sderrors.NewConfigError("batch.workers", fmt.Sprint(cfg.Batch.Workers),
			errors.New("cannot be negative"))
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "error", "fatal", "disabled":
	default:
		return sderrors.NewConfigError("logging.level", cfg.Logging.Level, errors.New("unknown level"))
	}

	switch cfg.Display.Color {
	case "", "auto", "always", "never":
	default:
		return sderrors.NewConfigError("display.color", cfg.Display.Color,
			errors.New(`must be "auto", "always" or "never"`))
	}

	if cfg.Display.ContextWindow < 0 {
		return sderrors.NewConfigError("display.context_window", fmt.Sprint(cfg.Display.ContextWindow),
			errors.New("cannot be negative"))
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateLocateConfig(l *Locate) error {
	if l.HighConfidenceThreshold <= 0 || l.HighConfidenceThreshold > 1 {
		return fmt.Errorf("HighConfidenceThreshold must be in (0, 1], got %v", l.HighConfidenceThreshold)
	}

	if l.MaxDocLenForDP <= 0 {
		return fmt.Errorf("MaxDocLenForDP must be positive, got %d", l.MaxDocLenForDP)
	}

	if l.MaxQueryLenForDP <= 0 {
		return fmt.Errorf("MaxQueryLenForDP must be positive, got %d", l.MaxQueryLenForDP)
	}

	// the DP table is n*m cells; past this a single request takes seconds
	if int64(l.MaxDocLenForDP)*int64(l.MaxQueryLenForDP) > 1<<30 {
		return fmt.Errorf("MaxDocLenForDP*MaxQueryLenForDP must not exceed %d, got %d",
			int64(1<<30), int64(l.MaxDocLenForDP)*int64(l.MaxQueryLenForDP))
	}

	if l.CoverageTrials < 0 || l.CoverageTrials > 64 {
		return fmt.Errorf("CoverageTrials must be between 0 and 64, got %d", l.CoverageTrials)
	}

	return nil
}

func (v *Validator) validateServerConfig(s *Server) error {
	if s.Addr == "" {
		return errors.New("server addr cannot be empty")
	}

	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("MaxBodyBytes must be positive, got %d", s.MaxBodyBytes)
	}

	if s.RequestTimeoutSec < 0 || s.ShutdownTimeoutSec < 0 {
		return fmt.Errorf("timeouts cannot be negative, got request=%d shutdown=%d", s.RequestTimeoutSec, s.ShutdownTimeoutSec)
	}

	if s.MaxQuotesPerRequest < 0 {
		return fmt.Errorf("MaxQuotesPerRequest cannot be negative, got %d", s.MaxQuotesPerRequest)
	}

	return nil
}

// setSmartDefaults applies smart defaults based on system capabilities
func (v *Validator) setSmartDefaults(cfg *Config) {
	// Use cores-1 to leave headroom for the system, minimum of 1
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = max(1, runtime.NumCPU()-1)
	}

	if cfg.Locate.CoverageTrials == 0 {
		cfg.Locate.CoverageTrials = 5
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Display.Color == "" {
		cfg.Display.Color = "auto"
	}

	if cfg.Server.RequestTimeoutSec == 0 {
		cfg.Server.RequestTimeoutSec = 30
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.ValidateAndSetDefaults(cfg)
}
