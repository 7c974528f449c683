package llm_client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/QwerMotion/the-Azathoth-project/internal/config"
)

var (
	ErrNotInitialized = errors.New("llm client not initialized")
	ErrDisabled       = errors.New("no llm backend configured")
	ErrEmptyResponse  = errors.New("llm returned an empty response")
)

const (
	BackendGemini = "gemini"
	BackendOllama = "ollama"
)

const EnvGeminiAPIKey = "GEMINI_API_KEY"

type Config struct {
	Backend    string
	Model      string
	OllamaHost string
	APIKey     string
}

// ConfigFromSettings picks the backend settings and reads the Gemini key
// straight from the environment so it never sits in Settings.
func ConfigFromSettings(s config.Settings) Config {
	return Config{
		Backend:    s.LLMBackend,
		Model:      s.LLMModel,
		OllamaHost: s.OllamaHost,
		APIKey:     os.Getenv(EnvGeminiAPIKey),
	}
}

type provider interface {
	defaultModel() string
	generate(ctx context.Context, prompt, model string, jsonOut bool, schema any) (string, error)
}

// Client talks to one configured backend.
type Client struct {
	p       provider
	backend string
	model   string
}

// New builds a client for cfg.Backend. An empty backend returns ErrDisabled.
func New(ctx context.Context, cfg Config) (*Client, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	var (
		p   provider
		err error
	)
	switch backend {
	case "", "none", "off":
		return nil, ErrDisabled
	case BackendGemini:
		p, err = newGemini(ctx, cfg)
	case BackendOllama:
		p, err = newOllama(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = p.defaultModel()
	}
	return &Client{p: p, backend: backend, model: model}, nil
}

func (c *Client) Backend() string {
	if c == nil {
		return ""
	}
	return c.backend
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.p == nil {
		return "", ErrNotInitialized
	}
	out, err := c.p.generate(ctx, prompt, c.model, false, nil)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// GenerateJSON asks for a JSON document and returns it with any markdown
// fencing removed. schema may be nil.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema any) (string, error) {
	if c == nil || c.p == nil {
		return "", ErrNotInitialized
	}
	out, err := c.p.generate(ctx, prompt, c.model, true, schema)
	if err != nil {
		return "", err
	}
	out = CleanJSON(out)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// CleanJSON strips ```json fences and surrounding whitespace.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
