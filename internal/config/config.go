package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ChunkStrategyWindow    = "window"
	ChunkStrategyRecursive = "recursive"
)

type Config struct {
	Server       ServerConfig `yaml:"server"`
	Log          LogConfig    `yaml:"log"`
	RAG          RAGConfig    `yaml:"rag"`
	EmbedLLM     LLMConfig    `yaml:"embed_llm"`
	InferenceLLM LLMConfig    `yaml:"inference_llm"`
}

type ServerConfig struct {
	Addr               string        `yaml:"addr" validate:"required"`
	MaxUploadBytes     int64         `yaml:"max_upload_bytes" validate:"gt=0"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

type RAGConfig struct {
	ChunkSize        int    `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap     int    `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	ChunkStrategy    string `yaml:"chunk_strategy" validate:"oneof=window recursive"`
	TopK             int    `yaml:"top_k" validate:"gt=0"`
	MaxHistoryTurns  int    `yaml:"max_history_turns" validate:"gte=0"`
	MaxHistoryTokens int    `yaml:"max_history_tokens" validate:"gte=0"`
}

// LLMConfig describes one model endpoint. A non-empty environment variable
// named by APIKeyEnv takes precedence over Key.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model" validate:"required"`
	Key       string `yaml:"key"`
	APIKeyEnv string `yaml:"api_key_env"`
	CacheSize int    `yaml:"cache_size" validate:"gte=0"`
}

// String hides the credential.
func (c LLMConfig) String() string {
	key := ""
	if c.Key != "" {
		key = "***"
	}
	return fmt.Sprintf("{provider:%s base_url:%s model:%s key:%s}", c.Provider, c.BaseURL, c.Model, key)
}

var (
	embedProviders     = []string{"ollama", "openai", "googleai"}
	inferenceProviders = []string{"gemini", "openai", "ollama"}
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":8080",
			MaxUploadBytes:     32 << 20,
			SessionIdleTimeout: 30 * time.Minute,
		},
		Log: LogConfig{Level: "info", Pretty: true},
		RAG: RAGConfig{
			ChunkSize:       1000,
			ChunkOverlap:    100,
			ChunkStrategy:   ChunkStrategyWindow,
			TopK:            4,
			MaxHistoryTurns: 10,
		},
		EmbedLLM: LLMConfig{
			Provider:  "ollama",
			BaseURL:   "http://localhost:11434",
			Model:     "all-minilm",
			CacheSize: 256,
		},
		InferenceLLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-1.5-flash-latest",
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults. A missing file is
// not an error. Credentials are resolved from the environment (and a local .env
// file) afterwards.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyDefaults(cfg)
	resolveKey(&cfg.EmbedLLM)
	resolveKey(&cfg.InferenceLLM)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RAG.ChunkStrategy == "" {
		cfg.RAG.ChunkStrategy = ChunkStrategyWindow
	}
	cfg.EmbedLLM.Provider = strings.ToLower(strings.TrimSpace(cfg.EmbedLLM.Provider))
	cfg.InferenceLLM.Provider = strings.ToLower(strings.TrimSpace(cfg.InferenceLLM.Provider))
	if cfg.InferenceLLM.APIKeyEnv == "" {
		switch cfg.InferenceLLM.Provider {
		case "gemini":
			cfg.InferenceLLM.APIKeyEnv = "GEMINI_API_KEY"
		case "openai":
			cfg.InferenceLLM.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if cfg.EmbedLLM.APIKeyEnv == "" {
		switch cfg.EmbedLLM.Provider {
		case "googleai":
			cfg.EmbedLLM.APIKeyEnv = "GEMINI_API_KEY"
		case "openai":
			cfg.EmbedLLM.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
}

func resolveKey(c *LLMConfig) {
	if c.APIKeyEnv == "" {
		return
	}
	if v := strings.TrimSpace(os.Getenv(c.APIKeyEnv)); v != "" {
		c.Key = v
	}
}

// Validate checks the configuration at startup. A missing credential for a
// hosted provider is reported here rather than on the first request.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !slices.Contains(embedProviders, c.EmbedLLM.Provider) {
		return fmt.Errorf("invalid config: embed_llm.provider %q is not one of %v", c.EmbedLLM.Provider, embedProviders)
	}
	if !slices.Contains(inferenceProviders, c.InferenceLLM.Provider) {
		return fmt.Errorf("invalid config: inference_llm.provider %q is not one of %v", c.InferenceLLM.Provider, inferenceProviders)
	}
	if c.InferenceLLM.Provider != "ollama" && c.InferenceLLM.Key == "" {
		return fmt.Errorf("invalid config: inference_llm credential missing (set %s)", envName(c.InferenceLLM))
	}
	if c.EmbedLLM.Provider != "ollama" && c.EmbedLLM.Key == "" {
		return fmt.Errorf("invalid config: embed_llm credential missing (set %s)", envName(c.EmbedLLM))
	}
	return nil
}

func envName(c LLMConfig) string {
	if c.APIKeyEnv != "" {
		return c.APIKeyEnv
	}
	return "key"
}
