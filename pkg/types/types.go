// Package types defines the shared types used across all ventavoz packages.
//
// These types form the lingua franca between the voice pipeline stages, the
// catalog source, the LLM item extractor, and the HTTP layer. Each package
// defines its own internals, but cross-cutting data structures live here to
// avoid circular imports.
package types

import (
	"strings"
	"time"
)

// CatalogEntry is a searchable projection of one store product. The matcher
// only ever reads a snapshot of these for the duration of a single resolution
// call — entries are never mutated or cached across calls, because a live
// store's catalog can change between commands.
type CatalogEntry struct {
	// ID is an opaque product identifier assigned by the catalog owner.
	ID int64

	// Name is the display name (e.g., "Inca Kola 500ml"). Never empty.
	Name string

	// Aliases holds alternate names the product is known by — regional
	// nicknames and short forms ("coca", "amarilla"). Always a flat ordered
	// list; the comma-joined string form some catalogs store is split at
	// the data-model boundary so the matcher never branches on shape.
	Aliases []string

	// UnitPrice is the sale price per unit in soles.
	UnitPrice float64

	// Unit is the sale unit ("kg", "unidad", "litro").
	Unit string

	// Stock is the quantity available. Auxiliary information only; a match
	// is never filtered out for being out of stock.
	Stock float64
}

// ItemRequest is one product mention extracted from a transcript, before
// catalog matching.
type ItemRequest struct {
	// ProductQuery is the cleaned search text, with quantities, units, and
	// leading articles stripped.
	ProductQuery string

	// Quantity is the requested amount. Defaults to 1 when the utterance
	// carries no explicit quantity.
	Quantity float64

	// UnitRequested is the unit token spoken alongside the quantity
	// ("kilo", "litro"), or empty when none was detected. Reconciling it
	// against the product's sale unit is the caller's concern.
	UnitRequested string
}

// Intent is the command category assigned to a transcript by the classifier.
type Intent string

const (
	// IntentSale starts a fresh cart ("vender", "nueva venta").
	IntentSale Intent = "sale"

	// IntentAdd appends items to the current cart. This is the default for
	// any transcript that matches no other rule.
	IntentAdd Intent = "add"

	// IntentRemove removes a product from the cart ("quita la coca").
	IntentRemove Intent = "remove"

	// IntentChangePrice updates a product's price ("arroz a 5 soles").
	IntentChangePrice Intent = "change_price"

	// IntentChangeProduct swaps one cart product for another ("cambia la
	// coca por inca kola").
	IntentChangeProduct Intent = "change_product"

	// IntentCancel discards the whole cart.
	IntentCancel Intent = "cancel"

	// IntentConfirm closes the sale.
	IntentConfirm Intent = "confirm"

	// IntentQueryTotal asks for the running total without changing the cart.
	IntentQueryTotal Intent = "query_total"

	// IntentSaleByBudget sells as much of a product as a target amount of
	// money buys ("2 soles de papa").
	IntentSaleByBudget Intent = "sale_by_budget"
)

// ParsedCommand is the classifier's structured output for one transcript.
// Exactly the fields relevant to Type are populated; the rest stay zero.
// A ParsedCommand has no lifecycle beyond the single resolution call that
// produced it.
type ParsedCommand struct {
	// Type is the detected intent.
	Type Intent

	// Items holds the per-product requests for IntentSale and IntentAdd.
	Items []ItemRequest

	// ProductQuery is the single product reference for IntentRemove,
	// IntentChangePrice, and IntentSaleByBudget.
	ProductQuery string

	// OldQuery and NewQuery are set for IntentChangeProduct.
	OldQuery string
	NewQuery string

	// NewPrice is the target price in soles for IntentChangePrice.
	NewPrice float64

	// TargetAmount is the money budget in soles for IntentSaleByBudget.
	TargetAmount float64

	// RequiresOwner flags commands that the surrounding application must
	// gate on owner authorization (price changes). Enforcement happens
	// outside this engine; the flag is only surfaced.
	RequiresOwner bool
}

// MatchOutcome distinguishes the three possible results of matching one
// query against the catalog.
type MatchOutcome string

const (
	// MatchResolved means a single confident winner was found.
	MatchResolved MatchOutcome = "resolved"

	// MatchAmbiguous means several candidates scored comparably high and
	// the user must choose. Silently picking one would risk charging the
	// customer for the wrong product.
	MatchAmbiguous MatchOutcome = "ambiguous"

	// MatchNotFound means nothing in the catalog scored above the
	// rejection floor.
	MatchNotFound MatchOutcome = "not_found"
)

// Candidate pairs a catalog entry with the relevance score it earned for a
// particular query.
type Candidate struct {
	Entry CatalogEntry
	Score float64
}

// MatchResult is the outcome of matching one query against the catalog.
//
// Which fields are meaningful depends on Outcome:
//
//   - MatchResolved: Entry and Score are set.
//   - MatchAmbiguous: Candidates holds the top options in descending score
//     order, for the user to choose from.
//   - MatchNotFound: only Query is set.
//
// Ambiguity is always communicated through this value — never through
// package-level state — so concurrent resolutions cannot observe each
// other's candidates.
type MatchResult struct {
	// Outcome selects the variant.
	Outcome MatchOutcome

	// Query is the search text this result answers, after normalization.
	Query string

	// Entry is the winning product for MatchResolved.
	Entry CatalogEntry

	// Score is the winning score for MatchResolved.
	Score float64

	// Candidates holds the ranked options for MatchAmbiguous.
	Candidates []Candidate
}

// ResolvedItem is one cart line produced by a confident match.
type ResolvedItem struct {
	Entry         CatalogEntry
	Quantity      float64
	UnitRequested string

	// Subtotal is Quantity × Entry.UnitPrice, precomputed so the HTTP
	// layer can render lines without pricing logic.
	Subtotal float64
}

// AmbiguousItem is one product mention that needs a user choice before it
// can become a cart line.
type AmbiguousItem struct {
	Query         string
	Quantity      float64
	UnitRequested string

	// TargetAmount is the soles budget for amount-based requests ("2 soles
	// de pan"), preserved so the purchase can complete once a candidate is
	// picked. Zero for quantity-based requests.
	TargetAmount float64

	Candidates []Candidate
}

// Timing records per-stage latency of one resolution, mirroring what the
// POS frontend displays in its debug panel.
type Timing struct {
	Preprocess time.Duration
	LLM        time.Duration
	Match      time.Duration
	Total      time.Duration
}

// Resolution is the complete result of processing one transcript. It is the
// value the HTTP layer serializes; nothing in it is ever persisted by the
// engine itself.
type Resolution struct {
	// Command is the classified command, including any non-item payload
	// (new price, target amount, ...).
	Command ParsedCommand

	// CorrectedTranscript is the transcript after normalization and brand
	// correction, surfaced for display and debugging.
	CorrectedTranscript string

	// Items holds the auto-resolved cart lines.
	Items []ResolvedItem

	// Ambiguous holds the mentions that need a user choice. When non-empty
	// the caller is expected to re-invoke with a chosen candidate ID rather
	// than have the engine re-guess.
	Ambiguous []AmbiguousItem

	// NotFound lists the queries that matched nothing.
	NotFound []string

	// Timing is the per-stage latency breakdown.
	Timing Timing

	// CostUSD is the approximate LLM spend for this resolution. Zero on
	// the rule-based path.
	CostUSD float64
}

// Total returns the sum of all resolved line subtotals.
func (r *Resolution) Total() float64 {
	var t float64
	for _, it := range r.Items {
		t += it.Subtotal
	}
	return t
}

// SplitAliases converts stored alias values into the canonical flat list.
// Catalogs written by older app versions hold aliases as one comma-joined
// string; newer rows hold a list. Both shapes pass through here exactly
// once, at the data-model boundary.
func SplitAliases(raw []string) []string {
	var out []string
	for _, a := range raw {
		for _, part := range strings.Split(a, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
