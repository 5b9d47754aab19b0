// Package config loads tcsynth's YAML configuration, applying environment
// overrides for anything secret. Modeled on the teacher's per-concern
// Config struct and Load/Save/applyEnvOverrides shape.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tcsynth configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	LLM       LLMConfig       `yaml:"llm"`
	Execution ExecutionConfig `yaml:"execution"`
	Loop      LoopConfig      `yaml:"loop"`
	Store     StoreConfig     `yaml:"store"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig configures the LLM Gateway (C6). APIKey is NEVER given a
// literal default — it is populated solely from applyEnvOverrides; its
// yaml:"-" tag means a config file can neither set nor store it.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"-"`
	Timeout     string  `yaml:"timeout"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	MaxRetries  int     `yaml:"max_retries"`
}

// ExecutionConfig configures the Sandboxed Code Runner (C1) and Native
// Compiler (C2).
type ExecutionConfig struct {
	CompilerPath    string `yaml:"compiler_path"`
	CompileTimeout  string `yaml:"compile_timeout"`
	RunTimeout      string `yaml:"run_timeout"`
	MaxOutputBytes  int    `yaml:"max_output_bytes"`
	WorkerPoolSize  int    `yaml:"worker_pool_size"`
}

// LoopConfig configures the Supervisor (C11).
type LoopConfig struct {
	MaxIterations           int     `yaml:"max_iterations"`
	MaxWallClock            string  `yaml:"max_wall_clock"`
	DiversityFloor          float64 `yaml:"diversity_floor"`
	MaxConsecutiveRejects   int     `yaml:"max_consecutive_rejects"`
	MaxValidatorCompileFails int    `yaml:"max_validator_compile_fails"`
}

// StoreConfig configures the Suite Store (C14).
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// RetrieverConfig configures the Corpus Retriever (C15).
type RetrieverConfig struct {
	Enabled      bool   `yaml:"enabled"`
	IndexPath    string `yaml:"index_path"`
	TopK         int    `yaml:"top_k"`
	EmbedModel   string `yaml:"embed_model"`
}

// LoggingConfig configures internal/telemetry.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Verbose bool   `yaml:"verbose"`
}

// ValidProviders lists the LLM backends the gateway knows how to construct.
var ValidProviders = []string{"anthropic", "openai", "gemini", "xai", "zai", "openrouter"}

// DefaultConfig returns the baseline configuration before any file or
// environment overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		Name:    "tcsynth",
		Version: "0.1.0",

		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-pro",
			Timeout:     "120s",
			Temperature: 0.4,
			MaxTokens:   8192,
			MaxRetries:  4,
		},

		Execution: ExecutionConfig{
			CompilerPath:   "g++",
			CompileTimeout: "60s",
			RunTimeout:     "5s",
			MaxOutputBytes: 8 << 20,
			WorkerPoolSize: 4,
		},

		Loop: LoopConfig{
			MaxIterations:            12,
			MaxWallClock:             "10m",
			DiversityFloor:           0.2,
			MaxConsecutiveRejects:    3,
			MaxValidatorCompileFails: 3,
		},

		Store: StoreConfig{
			DatabasePath: "tcsynth.db",
		},

		Retriever: RetrieverConfig{
			Enabled:    false,
			IndexPath:  "tcsynth_corpus.db",
			TopK:       3,
			EmbedModel: "text-embedding-004",
		},

		Logging: LoggingConfig{
			Enabled: false,
			Dir:     ".tcsynth/logs",
		},
	}
}

// Load reads a YAML config file at path, falling back to defaults when it
// does not exist, then applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to path as YAML. APIKey is never
// serialized (tagged yaml:"-"), so secrets never land on disk via Save.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides applies provider API keys and a handful of operational
// knobs from the environment, in provider priority order. This is the ONLY
// source of LLM.APIKey: DefaultConfig never sets one.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "anthropic"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("XAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "xai"
	}
	if key := os.Getenv("ZAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "zai"
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openrouter"
	}

	if cc := os.Getenv("TCSYNTH_COMPILER"); cc != "" {
		c.Execution.CompilerPath = cc
	}
	if db := os.Getenv("TCSYNTH_DB"); db != "" {
		c.Store.DatabasePath = db
	}
}

// GetLLMTimeout parses LLM.Timeout, defaulting to 120s on any parse error.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetCompileTimeout parses Execution.CompileTimeout, defaulting to 20s.
func (c *Config) GetCompileTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.CompileTimeout)
	if err != nil {
		return 20 * time.Second
	}
	return d
}

// GetRunTimeout parses Execution.RunTimeout, defaulting to 5s.
func (c *Config) GetRunTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.RunTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetMaxWallClock parses Loop.MaxWallClock, defaulting to 10m.
func (c *Config) GetMaxWallClock() time.Duration {
	d, err := time.ParseDuration(c.Loop.MaxWallClock)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// Validate rejects configurations the rest of the pipeline cannot run
// with: an unknown provider, or a non-positive resource budget.
func (c *Config) Validate() error {
	valid := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown llm provider %q (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.Execution.WorkerPoolSize <= 0 {
		return fmt.Errorf("execution.worker_pool_size must be positive, got %d", c.Execution.WorkerPoolSize)
	}
	if c.Loop.MaxIterations <= 0 {
		return fmt.Errorf("loop.max_iterations must be positive, got %d", c.Loop.MaxIterations)
	}
	return nil
}
