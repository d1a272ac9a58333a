package genai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient calls an OpenAI-compatible chat completion API.
type OpenAIClient struct {
	client  *openai.Client
	modelID string
}

// NewOpenAIClient creates a new OpenAI-compatible client. baseURL may be
// empty to use the public OpenAI endpoint.
func NewOpenAIClient(baseURL, apiKey, modelID string) *OpenAIClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		modelID: modelID,
	}
}

var _ AnalyzerClient = (*OpenAIClient)(nil)

// GetRiskAssessment sends the prompt as a single user message and parses the
// JSON body of the first choice.
func (c *OpenAIClient) GetRiskAssessment(ctx context.Context, prompt string) (*Analysis, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	return parseAnalysis(resp.Choices[0].Message.Content)
}
