package llm_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const (
	ollamaDefault     = "phi4:latest"
	ollamaDefaultHost = "http://localhost:11434"
)

type ollamaProvider struct {
	client *api.Client
}

func newOllama(cfg Config) (*ollamaProvider, error) {
	host := strings.TrimSpace(cfg.OllamaHost)
	if host == "" {
		c, err := api.ClientFromEnvironment()
		if err == nil {
			return &ollamaProvider{client: c}, nil
		}
		host = ollamaDefaultHost
	}
	u, err := url.Parse(host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ollama: bad host %q", host)
	}
	return &ollamaProvider{client: api.NewClient(u, nil)}, nil
}

func (p *ollamaProvider) defaultModel() string { return ollamaDefault }

func (p *ollamaProvider) generate(ctx context.Context, prompt, model string, jsonOut bool, schema any) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
	}
	if jsonOut {
		format := json.RawMessage(`"json"`)
		if schema != nil {
			b, err := json.Marshal(schema)
			if err != nil {
				return "", fmt.Errorf("ollama marshal schema: %w", err)
			}
			format = b
		}
		req.Format = format
		req.Prompt += "\n\nReturn ONLY strict JSON. No extra text."
	}
	var out strings.Builder
	err := p.client.Generate(ctx, req, func(gr api.GenerateResponse) error {
		out.WriteString(gr.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return out.String(), nil
}
