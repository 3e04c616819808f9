package config

import (
	"testing"
	"time"

	"tara-tutor-be/pkg/tutor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("GENERATOR_TIMEOUT", "")
	t.Setenv("CHUNK_SIZE", "not-a-number")

	cfg := Load()

	assert.Equal(t, "ollama", cfg.Ai.LLMProvider)
	assert.Equal(t, 60*time.Second, cfg.Ai.GeneratorTimeout)
	assert.Equal(t, 1500, cfg.Tutor.ChunkSize)
	assert.InDelta(t, 0.7, cfg.Ai.Temperature, 1e-9)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GENERATOR_TIMEOUT", "15s")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, 15*time.Second, cfg.Ai.GeneratorTimeout)
	assert.Equal(t, 2*time.Hour, cfg.Tutor.SessionTTL)
	assert.InDelta(t, 0.2, cfg.Ai.Temperature, 1e-9)
	assert.True(t, cfg.Tracing.Enabled)
}

func validConfig() *Config {
	return &Config{
		App:   AppConfig{JwtSecret: "secret"},
		Ai:    AIConfig{LLMProvider: "ollama", EmbeddingProvider: "ollama"},
		Tutor: TutorConfig{IndexBackend: "memory"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"local stack", func(c *Config) {}, false},
		{"openai without key", func(c *Config) { c.Ai.LLMProvider = "openai" }, true},
		{"openai with key", func(c *Config) { c.Ai.LLMProvider = "openai"; c.Keys.OpenAI = "sk" }, false},
		{"gemini without key", func(c *Config) { c.Ai.EmbeddingProvider = "gemini" }, true},
		{"jina without key", func(c *Config) { c.Ai.EmbeddingProvider = "jina" }, true},
		{"jina with key", func(c *Config) { c.Ai.EmbeddingProvider = "jina"; c.Keys.Jina = "k" }, false},
		{"pgvector without dsn", func(c *Config) { c.Tutor.IndexBackend = "pgvector" }, true},
		{"no jwt secret", func(c *Config) { c.App.JwtSecret = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tutor.ErrMissingCredential)
		})
	}
}

func TestFeedbackEnabled(t *testing.T) {
	assert.False(t, FeedbackConfig{SpreadsheetID: "x"}.Enabled())
	assert.True(t, FeedbackConfig{SpreadsheetID: "x", ClientID: "a", ClientSecret: "b", RefreshToken: "c"}.Enabled())
}
