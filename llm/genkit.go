package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/va6996/tripplanner/bootstrap/zai"
	"github.com/va6996/tripplanner/config"
)

// GenkitClient generates structured output through Firebase Genkit,
// backed by whichever plugin cfg.AI.Plugin selects.
type GenkitClient struct {
	gk    *genkit.Genkit
	model ai.Model
}

// NewGenkitClient initializes Genkit with the configured plugin
// (gemini, ollama, or zai) and resolves its chat model.
func NewGenkitClient(ctx context.Context, cfg *config.AIConfig) (*GenkitClient, error) {
	switch cfg.Plugin {
	case "ollama":
		plugin := &ollama.Ollama{ServerAddress: cfg.Ollama.BaseURL}
		gk := genkit.Init(ctx, genkit.WithPlugins(plugin))
		model := plugin.DefineModel(gk, ollama.ModelDefinition{
			Name: cfg.Ollama.Model,
			Type: "chat",
		}, &ai.ModelOptions{
			Supports: &ai.ModelSupports{
				Multiturn:  true,
				SystemRole: true,
				Tools:      false,
				Media:      false,
			},
		})
		return &GenkitClient{gk: gk, model: model}, nil

	case "zai":
		if cfg.Zai.APIKey == "" {
			return nil, fmt.Errorf("ZAI_API_KEY must be set when AI_PLUGIN=zai")
		}
		plugin := &zai.Zai{APIKey: cfg.Zai.APIKey}
		gk := genkit.Init(ctx, genkit.WithPlugins(plugin))
		model := genkit.LookupModel(gk, "zai/"+cfg.Zai.Model)
		if model == nil {
			return nil, fmt.Errorf("zai model %q not registered", cfg.Zai.Model)
		}
		return &GenkitClient{gk: gk, model: model}, nil

	default:
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY must be set (or set AI_PLUGIN=ollama or zai)")
		}
		gk := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.Gemini.APIKey}))
		model := googlegenai.GoogleAIModel(gk, cfg.Gemini.Model)
		return &GenkitClient{gk: gk, model: model}, nil
	}
}

// GenerateStructured generates a response via the configured plugin. The
// underlying Genkit Go SDK does not currently expose a max-output-tokens
// option through the functional With* API, so this backend ignores
// maxTokens: the budget the macro planner picks from the trip length is
// not applied to the call.
func (c *GenkitClient) GenerateStructured(ctx context.Context, systemPrompt, userPrompt string, _ int) (map[string]interface{}, error) {
	resp, err := genkit.Generate(ctx,
		c.gk,
		ai.WithModel(c.model),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt(userPrompt),
		ai.WithTemperature(0.4),
	)
	if err != nil {
		return nil, fmt.Errorf("genkit generate failed: %w", err)
	}

	return ParseStructured(resp.Text())
}
