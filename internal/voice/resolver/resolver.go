// Package resolver orchestrates the full voice-command pipeline: transcript
// in, typed resolution out.
//
// One resolution is a stateless start-to-finish run: normalize and
// brand-correct, classify, extract product queries, match each one against
// a per-call catalog snapshot, and partition the results into resolved,
// ambiguous, and not-found buckets. Nothing is shared between runs, so a
// single Resolver serves any number of registers concurrently.
//
// Two variants share everything except item extraction: Resolve uses the
// rule-based segmenter; ResolveLLM replaces segmentation with an LLM item
// extractor, whose output still goes through the catalog matcher — model
// output is validated, never trusted blindly.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dquispe/ventavoz/internal/catalog"
	"github.com/dquispe/ventavoz/internal/voice/brand"
	"github.com/dquispe/ventavoz/internal/voice/intent"
	"github.com/dquispe/ventavoz/internal/voice/llmitems"
	"github.com/dquispe/ventavoz/internal/voice/match"
	"github.com/dquispe/ventavoz/internal/voice/segment"
	"github.com/dquispe/ventavoz/internal/voice/textnorm"
	"github.com/dquispe/ventavoz/pkg/types"
)

// ErrNoExtractor is returned by [Resolver.ResolveLLM] when no LLM item
// extractor was configured via [WithExtractor].
var ErrNoExtractor = errors.New("resolver: no LLM extractor configured")

// Option is a functional option for Resolver.
type Option func(*Resolver)

// WithMatcher replaces the default catalog matcher.
func WithMatcher(m *match.Matcher) Option {
	return func(r *Resolver) { r.matcher = m }
}

// WithCorrector replaces the built-in brand correction table.
func WithCorrector(c *brand.Corrector) Option {
	return func(r *Resolver) { r.corrector = c }
}

// WithExtractor sets the LLM item extractor used by [Resolver.ResolveLLM].
func WithExtractor(e *llmitems.Extractor) Option {
	return func(r *Resolver) { r.extractor = e }
}

// WithCommandLog enables best-effort audit logging of every resolution.
func WithCommandLog(l catalog.CommandLog) Option {
	return func(r *Resolver) { r.commandLog = l }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// Resolver runs the voice-command pipeline against one catalog source.
// Safe for concurrent use.
type Resolver struct {
	source     catalog.Source
	matcher    *match.Matcher
	corrector  *brand.Corrector
	extractor  *llmitems.Extractor
	commandLog catalog.CommandLog
	log        *slog.Logger
}

// New constructs a Resolver reading product snapshots from source.
func New(source catalog.Source, opts ...Option) (*Resolver, error) {
	if source == nil {
		return nil, fmt.Errorf("resolver: catalog source must not be nil")
	}
	r := &Resolver{
		source:    source,
		matcher:   match.New(),
		corrector: brand.Default(),
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Resolve processes transcript for storeID using the rule-based pipeline.
//
// It never returns an error for transcript content — noise resolves to an
// empty or not-found result. Errors are reserved for the catalog fetch
// failing; per the register's contract, a half-resolved cart is worse than
// asking the cashier to repeat.
func (r *Resolver) Resolve(ctx context.Context, storeID int64, transcript string) (*types.Resolution, error) {
	start := time.Now()

	corrected, cmd := r.preprocess(transcript)
	res := &types.Resolution{Command: cmd, CorrectedTranscript: corrected}
	res.Timing.Preprocess = time.Since(start)

	if isTerminal(cmd.Type) {
		res.Timing.Total = time.Since(start)
		r.record(ctx, storeID, transcript, res)
		return res, nil
	}

	products, err := r.source.ActiveProducts(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("resolver: fetch catalog: %w", err)
	}

	matchStart := time.Now()
	r.resolveQueries(res, products)
	res.Timing.Match = time.Since(matchStart)
	res.Timing.Total = time.Since(start)

	r.logResolution(storeID, res)
	r.record(ctx, storeID, transcript, res)
	return res, nil
}

// ResolveLLM processes transcript for storeID with LLM-assisted item
// extraction. Terminal and pattern-parsed commands behave exactly as in
// [Resolver.Resolve]; only sale/add item extraction changes. The LLM call
// and the catalog fetch run concurrently — they are independent, and the
// model call dominates latency.
//
// An extractor must have been configured via [WithExtractor]. LLM failures
// fail the whole command: no silent fallback to an empty cart.
func (r *Resolver) ResolveLLM(ctx context.Context, storeID int64, transcript string) (*types.Resolution, error) {
	if r.extractor == nil {
		return nil, ErrNoExtractor
	}

	start := time.Now()

	corrected, cmd := r.preprocess(transcript)
	res := &types.Resolution{Command: cmd, CorrectedTranscript: corrected}
	res.Timing.Preprocess = time.Since(start)

	if isTerminal(cmd.Type) {
		res.Timing.Total = time.Since(start)
		r.record(ctx, storeID, transcript, res)
		return res, nil
	}

	if cmd.Type != types.IntentSale && cmd.Type != types.IntentAdd {
		// Structured commands carry their queries in the parsed payload;
		// the model adds nothing there.
		products, err := r.source.ActiveProducts(ctx, storeID)
		if err != nil {
			return nil, fmt.Errorf("resolver: fetch catalog: %w", err)
		}
		matchStart := time.Now()
		r.resolveQueries(res, products)
		res.Timing.Match = time.Since(matchStart)
		res.Timing.Total = time.Since(start)
		r.record(ctx, storeID, transcript, res)
		return res, nil
	}

	var (
		products   []types.CatalogEntry
		extraction *llmitems.Extraction
		llmTook    time.Duration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = r.source.ActiveProducts(gctx, storeID)
		if err != nil {
			return fmt.Errorf("fetch catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		llmStart := time.Now()
		var err error
		extraction, err = r.extractor.Extract(gctx, corrected)
		llmTook = time.Since(llmStart)
		if err != nil {
			return fmt.Errorf("extract items: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}

	res.Timing.LLM = llmTook
	res.CostUSD = extraction.CostUSD

	matchStart := time.Now()
	for _, item := range extraction.Items {
		result := r.matcher.Match(item.Name, products)
		switch result.Outcome {
		case types.MatchResolved:
			qty := item.Quantity
			if item.Amount > 0 && result.Entry.UnitPrice > 0 {
				// Budget request: the amount buys as much as it buys.
				qty = item.Amount / result.Entry.UnitPrice
			}
			res.Items = append(res.Items, types.ResolvedItem{
				Entry:         result.Entry,
				Quantity:      qty,
				UnitRequested: item.Unit,
				Subtotal:      round2(qty * result.Entry.UnitPrice),
			})
		case types.MatchAmbiguous:
			res.Ambiguous = append(res.Ambiguous, types.AmbiguousItem{
				Query:         result.Query,
				Quantity:      item.Quantity,
				UnitRequested: item.Unit,
				TargetAmount:  item.Amount,
				Candidates:    result.Candidates,
			})
		case types.MatchNotFound:
			res.NotFound = append(res.NotFound, result.Query)
		}
		res.Command.Items = append(res.Command.Items, types.ItemRequest{
			ProductQuery:  item.Name,
			Quantity:      item.Quantity,
			UnitRequested: item.Unit,
		})
	}
	res.Timing.Match = time.Since(matchStart)
	res.Timing.Total = time.Since(start)

	r.logResolution(storeID, res)
	r.record(ctx, storeID, transcript, res)
	return res, nil
}

// preprocess normalizes, brand-corrects, classifies, and extracts the
// command payload from transcript. Pure computation.
func (r *Resolver) preprocess(transcript string) (string, types.ParsedCommand) {
	corrected := r.corrector.Correct(textnorm.Normalize(transcript))
	return corrected, classifyCommand(corrected)
}

// classifyCommand maps the transcript to a ParsedCommand, filling exactly
// the payload fields the detected intent uses.
func classifyCommand(text string) types.ParsedCommand {
	switch intent.Classify(text) {
	case intent.TypeQueryTotal:
		return types.ParsedCommand{Type: types.IntentQueryTotal}

	case intent.TypeCancel:
		return types.ParsedCommand{Type: types.IntentCancel}

	case intent.TypeConfirm:
		return types.ParsedCommand{Type: types.IntentConfirm}

	case intent.TypeRemove:
		cmd := types.ParsedCommand{Type: types.IntentRemove}
		if q, ok := intent.ParseRemove(text); ok {
			cmd.ProductQuery = q
		}
		return cmd

	case intent.TypeChangeProduct:
		if pc, ok := intent.ParseProductChange(text); ok {
			return types.ParsedCommand{
				Type:     types.IntentChangeProduct,
				OldQuery: pc.OldQuery,
				NewQuery: pc.NewQuery,
			}
		}
		return types.ParsedCommand{Type: types.IntentChangeProduct}

	case intent.TypeSaleByBudget:
		if bs, ok := intent.ParseSaleByBudget(text); ok {
			return types.ParsedCommand{
				Type:         types.IntentSaleByBudget,
				ProductQuery: bs.ProductQuery,
				TargetAmount: bs.TargetAmount,
			}
		}
		return types.ParsedCommand{Type: types.IntentSaleByBudget}

	case intent.TypeChangePrice:
		cmd := types.ParsedCommand{Type: types.IntentChangePrice, RequiresOwner: true}
		if pc, ok := intent.ParsePriceChange(text); ok {
			cmd.ProductQuery = pc.ProductQuery
			cmd.NewPrice = pc.NewPrice
		}
		return cmd

	case intent.TypeChange:
		// Generic change: try price first, then product swap.
		if pc, ok := intent.ParsePriceChange(text); ok {
			return types.ParsedCommand{
				Type:          types.IntentChangePrice,
				ProductQuery:  pc.ProductQuery,
				NewPrice:      pc.NewPrice,
				RequiresOwner: true,
			}
		}
		if sw, ok := intent.ParseProductChange(text); ok {
			return types.ParsedCommand{
				Type:     types.IntentChangeProduct,
				OldQuery: sw.OldQuery,
				NewQuery: sw.NewQuery,
			}
		}
		// Neither parser matched; treat as an add so the utterance is not
		// lost entirely.
		return types.ParsedCommand{Type: types.IntentAdd, Items: segment.Items(text)}

	case intent.TypeSale:
		return types.ParsedCommand{Type: types.IntentSale, Items: segment.Items(text)}

	default:
		return types.ParsedCommand{Type: types.IntentAdd, Items: segment.Items(text)}
	}
}

// resolveQueries matches every product query the command carries and fills
// the resolution buckets.
func (r *Resolver) resolveQueries(res *types.Resolution, products []types.CatalogEntry) {
	cmd := &res.Command

	switch cmd.Type {
	case types.IntentSale, types.IntentAdd:
		for _, item := range cmd.Items {
			r.bucket(res, r.matcher.Match(item.ProductQuery, products), item.Quantity, item.UnitRequested, 0)
		}

	case types.IntentSaleByBudget:
		if cmd.ProductQuery != "" {
			r.bucket(res, r.matcher.Match(cmd.ProductQuery, products), 0, "", cmd.TargetAmount)
		}

	case types.IntentRemove, types.IntentChangePrice:
		if cmd.ProductQuery != "" {
			r.bucket(res, r.matcher.Match(cmd.ProductQuery, products), 0, "", 0)
		}

	case types.IntentChangeProduct:
		// Old and new resolve independently; either may come back ambiguous.
		if cmd.OldQuery != "" {
			r.bucket(res, r.matcher.Match(cmd.OldQuery, products), 0, "", 0)
		}
		if cmd.NewQuery != "" {
			r.bucket(res, r.matcher.Match(cmd.NewQuery, products), 1, "", 0)
		}
	}
}

// bucket routes one match result into the resolution's partition. amount,
// when non-zero, converts a soles budget into a quantity at the matched
// product's price.
func (r *Resolver) bucket(res *types.Resolution, result types.MatchResult, qty float64, unit string, amount float64) {
	switch result.Outcome {
	case types.MatchResolved:
		if amount > 0 && result.Entry.UnitPrice > 0 {
			qty = amount / result.Entry.UnitPrice
		}
		res.Items = append(res.Items, types.ResolvedItem{
			Entry:         result.Entry,
			Quantity:      qty,
			UnitRequested: unit,
			Subtotal:      round2(qty * result.Entry.UnitPrice),
		})
	case types.MatchAmbiguous:
		res.Ambiguous = append(res.Ambiguous, types.AmbiguousItem{
			Query:         result.Query,
			Quantity:      qty,
			UnitRequested: unit,
			TargetAmount:  amount,
			Candidates:    result.Candidates,
		})
	case types.MatchNotFound:
		res.NotFound = append(res.NotFound, result.Query)
	}
}

// record writes the audit row when a command log is configured. A failed
// write is logged and dropped; it must never fail the sale.
func (r *Resolver) record(ctx context.Context, storeID int64, transcript string, res *types.Resolution) {
	if r.commandLog == nil {
		return
	}
	err := r.commandLog.Record(ctx, catalog.CommandRecord{
		StoreID:    storeID,
		Transcript: transcript,
		Corrected:  res.CorrectedTranscript,
		Intent:     res.Command.Type,
		ItemCount:  len(res.Items),
		Ambiguous:  len(res.Ambiguous),
		NotFound:   len(res.NotFound),
		CostUSD:    res.CostUSD,
		Duration:   res.Timing.Total,
	})
	if err != nil {
		r.log.Warn("command audit log write failed", "store_id", storeID, "error", err)
	}
}

// logResolution emits the per-command debug line the owner sees in server
// logs.
func (r *Resolver) logResolution(storeID int64, res *types.Resolution) {
	r.log.Debug("voice command resolved",
		"store_id", storeID,
		"intent", res.Command.Type,
		"items", len(res.Items),
		"ambiguous", len(res.Ambiguous),
		"not_found", len(res.NotFound),
		"total", res.Total(),
		"took", res.Timing.Total,
	)
}

// isTerminal reports whether the intent needs no catalog lookup at all.
func isTerminal(t types.Intent) bool {
	return t == types.IntentCancel || t == types.IntentConfirm || t == types.IntentQueryTotal
}

// round2 rounds to whole cents so subtotals sum the way a receipt does.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
