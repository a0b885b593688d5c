package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/dquispe/ventavoz/pkg/provider/llm"
	llmmock "github.com/dquispe/ventavoz/pkg/provider/llm/mock"
)

func newLLMFallbackPair(primary, secondary *llmmock.Provider) *LLMFallback {
	fb := NewLLMFallback(primary, "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	if secondary != nil {
		fb.AddFallback("ollama", secondary)
	}
	return fb
}

func TestLLMFallbackCompletePrefersPrimary(t *testing.T) {
	primary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"items":[]}`},
	}
	secondary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "should not be used"},
	}
	fb := newLLMFallbackPair(primary, secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got, want := resp.Content, `{"items":[]}`; got != want {
		t.Errorf("Content = %q, want %q", got, want)
	}
	if got := len(primary.CompleteCalls); got != 1 {
		t.Errorf("primary calls = %d, want 1", got)
	}
	if got := len(secondary.CompleteCalls); got != 0 {
		t.Errorf("secondary calls = %d, want 0", got)
	}
}

func TestLLMFallbackCompleteFailsOver(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errBackendDown}
	secondary := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "from fallback"},
	}
	fb := newLLMFallbackPair(primary, secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got, want := resp.Content, "from fallback"; got != want {
		t.Errorf("Content = %q, want %q", got, want)
	}
}

func TestLLMFallbackCompleteAllFail(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errBackendDown}
	secondary := &llmmock.Provider{CompleteErr: errBackendDown}
	fb := newLLMFallbackPair(primary, secondary)

	_, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("Complete() error = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallbackCountTokensFailsOver(t *testing.T) {
	primary := &llmmock.Provider{CountTokensErr: errBackendDown}
	secondary := &llmmock.Provider{TokenCount: 42}
	fb := newLLMFallbackPair(primary, secondary)

	count, err := fb.CountTokens([]llm.Message{{Role: "user", Content: "dame dos panes"}})
	if err != nil {
		t.Fatalf("CountTokens() error = %v", err)
	}
	if count != 42 {
		t.Errorf("CountTokens() = %d, want 42", count)
	}
}

func TestLLMFallbackCapabilitiesFromPrimary(t *testing.T) {
	primary := &llmmock.Provider{
		ModelCapabilities: llm.ModelCapabilities{
			ContextWindow:   128000,
			MaxOutputTokens: 16384,
		},
	}
	fb := newLLMFallbackPair(primary, nil)

	caps := fb.Capabilities()
	if caps.ContextWindow != 128000 {
		t.Errorf("ContextWindow = %d, want 128000", caps.ContextWindow)
	}
	if caps.MaxOutputTokens != 16384 {
		t.Errorf("MaxOutputTokens = %d, want 16384", caps.MaxOutputTokens)
	}
}
