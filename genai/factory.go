package genai

import (
	"fmt"
	"log"
	"time"
)

// Analyzer providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// NewAnalyzerClient creates the provider named by provider and wraps it with
// the retrying client. The mock provider is not wrapped; it cannot fail.
func NewAnalyzerClient(provider, baseURL, apiKey, modelID string, timeout time.Duration) (AnalyzerClient, error) {
	switch provider {
	case ProviderGemini:
		return NewRetryingClient(NewGeminiClient(baseURL, apiKey, modelID, timeout)), nil
	case ProviderOpenAI:
		return NewRetryingClient(NewOpenAIClient(baseURL, apiKey, modelID)), nil
	case ProviderMock:
		log.Println("using mock analyzer client")
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported analyzer provider %q", provider)
	}
}
