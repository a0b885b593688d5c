package llm_test

import (
	"math"
	"testing"

	"github.com/dquispe/ventavoz/pkg/provider/llm"
)

func TestEstimateCost(t *testing.T) {
	t.Parallel()

	usage := llm.Usage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000}

	tests := []struct {
		model string
		want  float64
	}{
		{"gpt-4o-mini", 0.75},                // 0.15 + 0.60
		{"gpt-4o-mini-2024-07-18", 0.75},     // dated snapshot matches prefix
		{"claude-3-haiku-20240307", 1.50},    // 0.25 + 1.25
		{"claude-sonnet-4-20250514", 18.00},  // generic claude fallback
		{"gemini-1.5-flash", 0.375},          // 0.075 + 0.30
		{"llama3.2", 0},                      // local model, no bill
		{"", 0},
	}

	for _, tt := range tests {
		got := llm.EstimateCost(tt.model, usage)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("EstimateCost(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestEstimateCostZeroUsage(t *testing.T) {
	t.Parallel()
	if got := llm.EstimateCost("gpt-4o-mini", llm.Usage{}); got != 0 {
		t.Errorf("EstimateCost with zero usage = %v, want 0", got)
	}
}
