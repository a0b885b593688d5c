package openai_test

import (
	"testing"

	"github.com/dquispe/ventavoz/pkg/provider/llm"
	"github.com/dquispe/ventavoz/pkg/provider/llm/openai"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := openai.New("", "gpt-4o-mini"); err == nil {
		t.Error("New with empty apiKey: want error, got nil")
	}
	if _, err := openai.New("sk-test", ""); err == nil {
		t.Error("New with empty model: want error, got nil")
	}
	if _, err := openai.New("sk-test", "gpt-4o-mini"); err != nil {
		t.Errorf("New with valid args: unexpected error %v", err)
	}
}

func TestCountTokensApproximation(t *testing.T) {
	t.Parallel()

	p, err := openai.New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	n, err := p.CountTokens([]llm.Message{
		{Role: "user", Content: "dame dos kilos de arroz"},
	})
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if n <= 0 {
		t.Errorf("CountTokens = %d, want > 0", n)
	}

	// More content must never count fewer tokens.
	bigger, _ := p.CountTokens([]llm.Message{
		{Role: "user", Content: "dame dos kilos de arroz y tres botellas de inca kola bien heladas"},
	})
	if bigger <= n {
		t.Errorf("longer message counted %d tokens, shorter counted %d", bigger, n)
	}
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	p, err := openai.New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	caps := p.Capabilities()
	if caps.ContextWindow != 128_000 {
		t.Errorf("ContextWindow = %d, want 128000", caps.ContextWindow)
	}
	if caps.MaxOutputTokens != 16_384 {
		t.Errorf("MaxOutputTokens = %d, want 16384", caps.MaxOutputTokens)
	}
}
