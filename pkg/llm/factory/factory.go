package factory

import (
	"context"
	"fmt"

	"subchapter-tutor-be/internal/config"
	"subchapter-tutor-be/pkg/llm"
	"subchapter-tutor-be/pkg/llm/gemini"
	"subchapter-tutor-be/pkg/llm/huggingface"
	"subchapter-tutor-be/pkg/llm/ollama"
)

func NewLLMGateway(ctx context.Context, cfg config.AIConfig) (llm.Gateway, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return gemini.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.LLMModel), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(cfg.HuggingFaceAPIKey, cfg.HuggingFaceBaseURL, cfg.LLMModel), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
