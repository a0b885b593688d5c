package resilience

import (
	"context"

	"github.com/dquispe/ventavoz/pkg/provider/llm"
)

// LLMFallback is an [llm.Provider] that routes each call to the first
// healthy backend in a [FallbackGroup]. Even with a single backend the
// breaker stops a failing model API from being hammered on every voice
// command.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback wraps primary in a failover group.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers another LLM backend, tried after the primary.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete runs the completion against the first healthy backend.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// CountTokens counts with the first healthy backend's tokenizer.
func (f *LLMFallback) CountTokens(messages []llm.Message) (int, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (int, error) {
		return p.CountTokens(messages)
	})
}

// Capabilities reports the primary backend's capabilities. Static metadata
// does not fail over.
func (f *LLMFallback) Capabilities() llm.ModelCapabilities {
	if len(f.group.backends) > 0 {
		return f.group.backends[0].value.Capabilities()
	}
	return llm.ModelCapabilities{}
}
