package llm_client

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	out      string
	err      error
	gotJSON  bool
	gotModel string
}

func (s *stubProvider) defaultModel() string { return "stub-1" }

func (s *stubProvider) generate(_ context.Context, _ string, model string, jsonOut bool, _ any) (string, error) {
	s.gotModel = model
	s.gotJSON = jsonOut
	return s.out, s.err
}

func TestCleanJSON(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"whitespace", "  {\"a\":1}\n", `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"empty", "   ", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanJSON(tc.in); got != tc.want {
				t.Fatalf("CleanJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr error
		wantAny bool
	}{
		{name: "disabled", cfg: Config{}, wantErr: ErrDisabled},
		{name: "none", cfg: Config{Backend: "none"}, wantErr: ErrDisabled},
		{name: "unknown", cfg: Config{Backend: "gpt"}, wantAny: true},
		{name: "gemini without key", cfg: Config{Backend: "gemini"}, wantAny: true},
		{name: "ollama bad host", cfg: Config{Backend: "ollama", OllamaHost: "::nope"}, wantAny: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(context.Background(), tc.cfg)
			if c != nil {
				t.Fatalf("expected nil client, got %+v", c)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantAny && err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestNew_Ollama(t *testing.T) {
	c, err := New(context.Background(), Config{Backend: "OLLAMA", OllamaHost: "http://127.0.0.1:11434"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Backend() != BackendOllama || c.Model() != ollamaDefault {
		t.Fatalf("got backend=%q model=%q", c.Backend(), c.Model())
	}
}

func TestClient_GenerateJSON(t *testing.T) {
	stub := &stubProvider{out: "```json\n{\"verb\":\"mine\"}\n```"}
	c := &Client{p: stub, backend: "stub", model: "stub-2"}

	got, err := c.GenerateJSON(context.Background(), "prompt", nil)
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if got != `{"verb":"mine"}` {
		t.Fatalf("got %q", got)
	}
	if !stub.gotJSON || stub.gotModel != "stub-2" {
		t.Fatalf("provider saw json=%v model=%q", stub.gotJSON, stub.gotModel)
	}

	stub.out = "```json\n```"
	if _, err := c.GenerateJSON(context.Background(), "prompt", nil); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestClient_Nil(t *testing.T) {
	var c *Client
	if _, err := c.Generate(context.Background(), "x"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v", err)
	}
	if c.Backend() != "" {
		t.Fatal("nil client reports a backend")
	}
}
