package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Agents     AgentsConfig     `mapstructure:"agents"`
	Generation GenerationConfig `mapstructure:"generation"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Store      StoreConfig      `mapstructure:"store"`
	Diag       DiagConfig       `mapstructure:"diag"`
	Privacy    PrivacyConfig    `mapstructure:"privacy"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// BackendConfig configures the model backend connection.
type BackendConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// AnalysisConfig configures chunked batch analysis.
type AnalysisConfig struct {
	Model          string        `mapstructure:"model"`
	ChunkSize      int           `mapstructure:"chunk_size"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	Anonymize      bool          `mapstructure:"anonymize"`
}

// PipelineConfig configures the phased agentic pipeline.
type PipelineConfig struct {
	Model       string        `mapstructure:"model"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	Anonymize   bool          `mapstructure:"anonymize"`
}

// AgentsConfig configures the parallel agent coordinator.
type AgentsConfig struct {
	Model         string        `mapstructure:"model"`
	MaxGroup      int           `mapstructure:"max_group"`
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
	MetricsWindow int           `mapstructure:"metrics_window"`
}

// GenerationConfig configures synthetic record generation.
type GenerationConfig struct {
	Model       string        `mapstructure:"model"`
	IDFloor     int           `mapstructure:"id_floor"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// RetryConfig configures model call retry behavior.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	JitterMax   time.Duration `mapstructure:"jitter_max"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// StoreConfig configures record persistence.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// DiagConfig configures the diagnostic flow buffer.
type DiagConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// ScrubRule is a user-supplied PII pattern applied after the built-in rules.
type ScrubRule struct {
	Pattern     string `mapstructure:"pattern"`
	Placeholder string `mapstructure:"placeholder"`
}

// PrivacyConfig configures free-text scrubbing.
type PrivacyConfig struct {
	ScrubRules []ScrubRule `mapstructure:"scrub_rules"`
}
