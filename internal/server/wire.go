package server

import "github.com/dquispe/ventavoz/pkg/types"

// parseRequest is the shared JSON body of both parse endpoints.
type parseRequest struct {
	StoreID    int64  `json:"store_id"`
	Transcript string `json:"transcript"`
}

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

// transcribeResponse is the body of a successful transcription.
type transcribeResponse struct {
	Text string `json:"text"`
}

// productPayload is the wire form of one catalog product.
type productPayload struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Unit      string  `json:"unit,omitempty"`
}

// commandPayload carries the classified command and its non-item fields.
type commandPayload struct {
	Intent        string  `json:"intent"`
	ProductQuery  string  `json:"product_query,omitempty"`
	OldQuery      string  `json:"old_query,omitempty"`
	NewQuery      string  `json:"new_query,omitempty"`
	NewPrice      float64 `json:"new_price,omitempty"`
	TargetAmount  float64 `json:"target_amount,omitempty"`
	RequiresOwner bool    `json:"requires_owner,omitempty"`
}

// itemPayload is one auto-resolved cart line.
type itemPayload struct {
	Product       productPayload `json:"product"`
	Quantity      float64        `json:"quantity"`
	UnitRequested string         `json:"unit_requested,omitempty"`
	Subtotal      float64        `json:"subtotal"`
}

// candidatePayload is one option the user can pick for an ambiguous mention.
type candidatePayload struct {
	Product productPayload `json:"product"`
	Score   float64        `json:"score"`
}

// ambiguousPayload is one product mention that needs a user choice.
type ambiguousPayload struct {
	Query         string             `json:"query"`
	Quantity      float64            `json:"quantity"`
	UnitRequested string             `json:"unit_requested,omitempty"`
	TargetAmount  float64            `json:"target_amount,omitempty"`
	Candidates    []candidatePayload `json:"candidates"`
}

// timingPayload is the per-stage latency breakdown in milliseconds, matching
// what the POS frontend shows in its debug panel.
type timingPayload struct {
	PreprocessMS float64 `json:"preprocess_ms"`
	LLMMS        float64 `json:"llm_ms,omitempty"`
	MatchMS      float64 `json:"match_ms"`
	TotalMS      float64 `json:"total_ms"`
}

// resolutionResponse is the body of a successful parse.
type resolutionResponse struct {
	Command             commandPayload     `json:"command"`
	CorrectedTranscript string             `json:"corrected_transcript"`
	Items               []itemPayload      `json:"items"`
	Ambiguous           []ambiguousPayload `json:"ambiguous,omitempty"`
	NotFound            []string           `json:"not_found,omitempty"`
	Total               float64            `json:"total"`
	Timing              timingPayload      `json:"timing"`
	CostUSD             float64            `json:"cost_usd,omitempty"`
}

// newResolutionResponse converts an engine resolution into its wire form.
func newResolutionResponse(res *types.Resolution) resolutionResponse {
	out := resolutionResponse{
		Command: commandPayload{
			Intent:        string(res.Command.Type),
			ProductQuery:  res.Command.ProductQuery,
			OldQuery:      res.Command.OldQuery,
			NewQuery:      res.Command.NewQuery,
			NewPrice:      res.Command.NewPrice,
			TargetAmount:  res.Command.TargetAmount,
			RequiresOwner: res.Command.RequiresOwner,
		},
		CorrectedTranscript: res.CorrectedTranscript,
		Items:               make([]itemPayload, 0, len(res.Items)),
		NotFound:            res.NotFound,
		Total:               res.Total(),
		Timing: timingPayload{
			PreprocessMS: float64(res.Timing.Preprocess.Microseconds()) / 1000,
			LLMMS:        float64(res.Timing.LLM.Microseconds()) / 1000,
			MatchMS:      float64(res.Timing.Match.Microseconds()) / 1000,
			TotalMS:      float64(res.Timing.Total.Microseconds()) / 1000,
		},
		CostUSD: res.CostUSD,
	}

	for _, it := range res.Items {
		out.Items = append(out.Items, itemPayload{
			Product:       newProductPayload(it.Entry),
			Quantity:      it.Quantity,
			UnitRequested: it.UnitRequested,
			Subtotal:      it.Subtotal,
		})
	}
	for _, amb := range res.Ambiguous {
		p := ambiguousPayload{
			Query:         amb.Query,
			Quantity:      amb.Quantity,
			UnitRequested: amb.UnitRequested,
			TargetAmount:  amb.TargetAmount,
			Candidates:    make([]candidatePayload, 0, len(amb.Candidates)),
		}
		for _, c := range amb.Candidates {
			p.Candidates = append(p.Candidates, candidatePayload{
				Product: newProductPayload(c.Entry),
				Score:   c.Score,
			})
		}
		out.Ambiguous = append(out.Ambiguous, p)
	}
	return out
}

func newProductPayload(e types.CatalogEntry) productPayload {
	return productPayload{
		ID:        e.ID,
		Name:      e.Name,
		UnitPrice: e.UnitPrice,
		Unit:      e.Unit,
	}
}
