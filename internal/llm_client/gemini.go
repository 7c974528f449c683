package llm_client

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiDefault = "gemini-2.0-flash"

type geminiProvider struct {
	client *genai.Client
}

func newGemini(ctx context.Context, cfg Config) (*geminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s is not set", EnvGeminiAPIKey)
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client init: %w", err)
	}
	return &geminiProvider{client: c}, nil
}

func (p *geminiProvider) defaultModel() string { return geminiDefault }

func (p *geminiProvider) generate(ctx context.Context, prompt, model string, jsonOut bool, schema any) (string, error) {
	if !strings.HasPrefix(strings.ToLower(model), "gemini-") {
		model = geminiDefault
	}
	var gc *genai.GenerateContentConfig
	if jsonOut {
		gc = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
		if schema != nil {
			gc.ResponseJsonSchema = schema
		}
	}
	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), gc)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	return out.String(), nil
}
