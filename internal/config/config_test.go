package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "secret")
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 1000, cfg.RAG.ChunkSize)
		assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
		assert.Equal(t, 4, cfg.RAG.TopK)
		assert.Equal(t, "GEMINI_API_KEY", cfg.InferenceLLM.APIKeyEnv)
		assert.Equal(t, "secret", cfg.InferenceLLM.Key)
		require.NoError(t, cfg.Validate())
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		path := writeConfig(t, `
server:
  addr: ":9090"
  session_idle_timeout: 5m
rag:
  chunk_size: 500
  chunk_overlap: 50
  top_k: 2
embed_llm:
  provider: OpenAI
  model: text-embedding-3-small
inference_llm:
  provider: openai
  model: gpt-4o-mini
`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, 5*time.Minute, cfg.Server.SessionIdleTimeout)
		assert.Equal(t, 500, cfg.RAG.ChunkSize)
		assert.Equal(t, ChunkStrategyWindow, cfg.RAG.ChunkStrategy)
		assert.Equal(t, "openai", cfg.EmbedLLM.Provider)
		assert.Equal(t, "sk-test", cfg.EmbedLLM.Key)
		assert.Equal(t, "sk-test", cfg.InferenceLLM.Key)
		require.NoError(t, cfg.Validate())
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "rag: [unterminated"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.InferenceLLM.Key = "k"
		return cfg
	}

	t.Run("missing generator credential is a startup error", func(t *testing.T) {
		cfg := Default()
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inference_llm credential missing")
	})

	t.Run("overlap must be smaller than size", func(t *testing.T) {
		cfg := valid()
		cfg.RAG.ChunkOverlap = cfg.RAG.ChunkSize
		require.Error(t, cfg.Validate())
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := valid()
		cfg.EmbedLLM.Provider = "faiss"
		require.Error(t, cfg.Validate())
	})

	t.Run("ollama generator needs no key", func(t *testing.T) {
		cfg := Default()
		cfg.InferenceLLM.Provider = "ollama"
		cfg.InferenceLLM.Model = "llama3"
		require.NoError(t, cfg.Validate())
	})

	t.Run("key is hidden when printed", func(t *testing.T) {
		cfg := valid()
		assert.NotContains(t, cfg.InferenceLLM.String(), "k}")
		assert.Contains(t, cfg.InferenceLLM.String(), "***")
	})
}
