package llm

import "strings"

// modelPricing holds per-million-token USD rates for a model family.
type modelPricing struct {
	inputPerMillion  float64
	outputPerMillion float64
}

// pricingTable maps lowercase model-name prefixes to their rates. Longer
// prefixes must come before shorter ones sharing them; EstimateCost scans in
// order.
var pricingTable = []struct {
	prefix string
	rates  modelPricing
}{
	{"gpt-4o-mini", modelPricing{0.15, 0.60}},
	{"gpt-4o", modelPricing{2.50, 10.00}},
	{"gpt-4.1-mini", modelPricing{0.40, 1.60}},
	{"gpt-4.1", modelPricing{2.00, 8.00}},
	{"gpt-3.5-turbo", modelPricing{0.50, 1.50}},
	{"claude-3-5-haiku", modelPricing{0.80, 4.00}},
	{"claude-3-haiku", modelPricing{0.25, 1.25}},
	{"claude-3-5-sonnet", modelPricing{3.00, 15.00}},
	{"claude", modelPricing{3.00, 15.00}},
	{"gemini-1.5-flash", modelPricing{0.075, 0.30}},
	{"gemini-2.0-flash", modelPricing{0.10, 0.40}},
	{"gemini-1.5-pro", modelPricing{1.25, 5.00}},
	{"gemini", modelPricing{0.10, 0.40}},
}

// EstimateCost returns the approximate USD cost of a request given its token
// usage and the model that served it. Unknown models (including local ones
// like Ollama) cost zero — local inference has no per-token bill, and an
// unrecognised hosted model is better reported as zero than as a wrong guess.
func EstimateCost(model string, u Usage) float64 {
	lower := strings.ToLower(model)
	for _, entry := range pricingTable {
		if strings.HasPrefix(lower, entry.prefix) {
			in := float64(u.PromptTokens) / 1_000_000 * entry.rates.inputPerMillion
			out := float64(u.CompletionTokens) / 1_000_000 * entry.rates.outputPerMillion
			return in + out
		}
	}
	return 0
}
