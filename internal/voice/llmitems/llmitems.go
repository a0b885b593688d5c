// Package llmitems extracts structured purchase items from a speech
// transcript using an LLM.
//
// It is the fallback path for transcripts the rule-based segmenter handles
// poorly: run-on sentences, fillers, self-corrections. The model receives
// the raw transcript and a fixed Spanish system prompt and must answer with
// a JSON array of items; anything else is a hard error, never a guessed
// cart.
package llmitems

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dquispe/ventavoz/pkg/provider/llm"
)

// systemPrompt instructs the model to act as a bodega cashier's assistant.
// The contract is strict JSON: every deviation is rejected by Extract, so
// the prompt repeats the format requirement and pins the edge cases
// (quantities default to 1, "X soles de Y" carries an amount instead).
const systemPrompt = `Eres el asistente de una bodega peruana. Te paso lo que dijo el cliente o el bodeguero y tú extraes los productos pedidos.

Responde SOLO con un arreglo JSON, sin texto adicional, sin markdown. Cada elemento tiene:
- "nombre": el producto, sin cantidades ni unidades (ej. "arroz", "inca kola")
- "cantidad": número (puede ser decimal: "medio kilo" es 0.5). Si no se menciona, usa 1.
- "unidad": "kg", "litro" o "unidad" si se menciona, si no, cadena vacía
- "monto": solo si piden por monto ("2 soles de pan"), el monto en soles; si no, 0

Ejemplos:
"dame dos kilos de arroz y una inca kola" -> [{"nombre":"arroz","cantidad":2,"unidad":"kg","monto":0},{"nombre":"inca kola","cantidad":1,"unidad":"","monto":0}]
"3 soles de pan" -> [{"nombre":"pan","cantidad":0,"unidad":"","monto":3}]
"nada" -> []`

// defaultTemperature keeps extraction near-deterministic; creativity here
// means wrong carts.
const defaultTemperature = 0.1

// defaultMaxTokens bounds the reply. A counter order is a handful of items;
// a longer response is the model rambling.
const defaultMaxTokens = 512

// Item is one product request extracted from the transcript.
type Item struct {
	// Name is the product query, cleaned of quantities and units.
	Name string
	// Quantity is the requested amount. Zero when Amount is set.
	Quantity float64
	// Unit is "kg", "litro", "unidad", or empty.
	Unit string
	// Amount is the soles budget for amount-based requests ("2 soles de
	// pan"); zero for quantity-based requests.
	Amount float64
}

// Extraction is the result of one transcript extraction, including the
// token accounting needed for per-request cost reporting.
type Extraction struct {
	Items   []Item
	Usage   llm.Usage
	Model   string
	CostUSD float64
}

// Option is a functional option for Extractor.
type Option func(*Extractor)

// WithTemperature overrides the default sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *Extractor) { e.temperature = t }
}

// WithMaxTokens overrides the default completion token cap.
func WithMaxTokens(n int) Option {
	return func(e *Extractor) { e.maxTokens = n }
}

// Extractor turns transcripts into item lists via an LLM provider.
// Safe for concurrent use if the underlying provider is.
type Extractor struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
}

// New constructs an Extractor on top of the given provider.
func New(provider llm.Provider, opts ...Option) (*Extractor, error) {
	if provider == nil {
		return nil, fmt.Errorf("llmitems: provider must not be nil")
	}
	e := &Extractor{
		provider:    provider,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// rawItem mirrors the JSON contract in the system prompt.
type rawItem struct {
	Nombre   string  `json:"nombre"`
	Cantidad float64 `json:"cantidad"`
	Unidad   string  `json:"unidad"`
	Monto    float64 `json:"monto"`
}

// Extract sends transcript to the model and parses the structured reply.
//
// An unparseable reply fails the whole extraction: a half-understood order
// at a cash register is worse than asking the customer to repeat it.
func (e *Extractor) Extract(ctx context.Context, transcript string) (*Extraction, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("llmitems: transcript must not be empty")
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: transcript},
	}
	if err := e.checkBudget(messages); err != nil {
		return nil, err
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: transcript},
		},
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llmitems: completion: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("llmitems: provider returned no response")
	}

	var raw []rawItem
	payload := stripFences(resp.Content)
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("llmitems: parse model output: %w", err)
	}

	out := &Extraction{
		Usage:   resp.Usage,
		Model:   resp.Model,
		CostUSD: llm.EstimateCost(resp.Model, resp.Usage),
	}
	for _, r := range raw {
		name := strings.TrimSpace(r.Nombre)
		if name == "" {
			continue
		}
		item := Item{
			Name:     name,
			Quantity: r.Cantidad,
			Unit:     strings.TrimSpace(r.Unidad),
			Amount:   r.Monto,
		}
		// Quantity defaults to one unless this is an amount-based request.
		if item.Quantity <= 0 && item.Amount <= 0 {
			item.Quantity = 1
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// checkBudget rejects transcripts that would not fit the model's context
// window once the completion budget is reserved. Providers that do not
// report a window (zero ContextWindow) are not checked.
func (e *Extractor) checkBudget(messages []llm.Message) error {
	window := e.provider.Capabilities().ContextWindow
	if window <= 0 {
		return nil
	}
	tokens, err := e.provider.CountTokens(messages)
	if err != nil {
		return fmt.Errorf("llmitems: count tokens: %w", err)
	}
	if tokens+e.maxTokens > window {
		return fmt.Errorf("llmitems: transcript of %d tokens exceeds model context window of %d", tokens, window)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence, which models emit
// despite being told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
