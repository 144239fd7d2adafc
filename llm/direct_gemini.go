package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DirectGeminiClient talks to the Gemini API directly through the genai
// SDK, bypassing Genkit. It is a lighter-weight alternative to
// GenkitClient for deployments that only ever use Gemini.
type DirectGeminiClient struct {
	client *genai.Client
	model  string
}

// NewDirectGeminiClient creates a direct Gemini API client.
func NewDirectGeminiClient(ctx context.Context, apiKey, model string) (*DirectGeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &DirectGeminiClient{client: client, model: model}, nil
}

func (c *DirectGeminiClient) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (map[string]interface{}, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not initialized")
	}

	model := c.client.GenerativeModel(c.model)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.SetTemperature(0.4)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no content in gemini response")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += fmt.Sprintf("%v", part)
	}

	return ParseStructured(text)
}

// Close releases the underlying Gemini client.
func (c *DirectGeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
