package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}
var validStoreDrivers = map[string]bool{"sqlite": true, "memory": true}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateServer(&cfg.Server)
	v.validateAnalysis(&cfg.Analysis)
	v.validatePipeline(&cfg.Pipeline)
	v.validateAgents(&cfg.Agents)
	v.validateGeneration(&cfg.Generation)
	v.validateRetry(&cfg.Retry)
	v.validateStore(&cfg.Store)
	v.validateDiag(&cfg.Diag)
	v.validatePrivacy(&cfg.Privacy)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	if !validLogLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}
	if !validLogFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 1 and 65535")
	}
}

func (v *Validator) validateAnalysis(cfg *AnalysisConfig) {
	if cfg.Model == "" {
		v.addError("analysis.model", cfg.Model, "must not be empty")
	}
	if cfg.ChunkSize <= 0 {
		v.addError("analysis.chunk_size", cfg.ChunkSize, "must be positive")
	}
	if cfg.MaxConcurrency < 0 {
		v.addError("analysis.max_concurrency", cfg.MaxConcurrency, "must not be negative")
	}
	if cfg.CallTimeout <= 0 {
		v.addError("analysis.call_timeout", cfg.CallTimeout, "must be positive")
	}
}

func (v *Validator) validatePipeline(cfg *PipelineConfig) {
	if cfg.Model == "" {
		v.addError("pipeline.model", cfg.Model, "must not be empty")
	}
	if cfg.CallTimeout <= 0 {
		v.addError("pipeline.call_timeout", cfg.CallTimeout, "must be positive")
	}
}

func (v *Validator) validateAgents(cfg *AgentsConfig) {
	if cfg.Model == "" {
		v.addError("agents.model", cfg.Model, "must not be empty")
	}
	if cfg.MaxGroup < 0 {
		v.addError("agents.max_group", cfg.MaxGroup, "must not be negative")
	}
	if cfg.MetricsWindow <= 0 {
		v.addError("agents.metrics_window", cfg.MetricsWindow, "must be positive")
	}
}

func (v *Validator) validateGeneration(cfg *GenerationConfig) {
	if cfg.Model == "" {
		v.addError("generation.model", cfg.Model, "must not be empty")
	}
	if cfg.IDFloor <= 0 {
		v.addError("generation.id_floor", cfg.IDFloor, "must be positive")
	}
}

func (v *Validator) validateRetry(cfg *RetryConfig) {
	if cfg.MaxAttempts < 1 {
		v.addError("retry.max_attempts", cfg.MaxAttempts, "must be at least 1")
	}
	if cfg.BaseDelay < 0 {
		v.addError("retry.base_delay", cfg.BaseDelay, "must not be negative")
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		v.addError("retry.max_delay", cfg.MaxDelay, "must be at least base_delay")
	}
	if cfg.JitterMax < 0 {
		v.addError("retry.jitter_max", cfg.JitterMax, "must not be negative")
	}
	if cfg.Multiplier < 1 {
		v.addError("retry.multiplier", cfg.Multiplier, "must be at least 1")
	}
}

func (v *Validator) validateStore(cfg *StoreConfig) {
	if !validStoreDrivers[cfg.Driver] {
		v.addError("store.driver", cfg.Driver, "must be one of: sqlite, memory")
	}
	if cfg.Driver == "sqlite" && cfg.Path == "" {
		v.addError("store.path", cfg.Path, "must be set for the sqlite driver")
	}
}

func (v *Validator) validateDiag(cfg *DiagConfig) {
	if cfg.Capacity <= 0 {
		v.addError("diag.capacity", cfg.Capacity, "must be positive")
	}
}

func (v *Validator) validatePrivacy(cfg *PrivacyConfig) {
	for i, rule := range cfg.ScrubRules {
		field := fmt.Sprintf("privacy.scrub_rules[%d]", i)
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			v.addError(field+".pattern", rule.Pattern, "must be a valid regular expression")
		}
		if rule.Placeholder == "" {
			v.addError(field+".placeholder", rule.Placeholder, "must not be empty")
		}
	}
}
