package factory

import (
	"context"
	"fmt"

	"tara-tutor-be/internal/constant"
	"tara-tutor-be/pkg/llm"
	"tara-tutor-be/pkg/llm/ollama"
	"tara-tutor-be/pkg/llm/openai"
)

type Config struct {
	Provider    string // "ollama" | "openai"
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
}

func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama", "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = constant.OllamaDefaultBaseURL
		}
		model := cfg.Model
		if model == "" {
			model = constant.OllamaDefaultModel
		}
		return ollama.NewOllamaProvider(baseURL, model, cfg.Temperature), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		return openai.NewOpenAIProvider(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
