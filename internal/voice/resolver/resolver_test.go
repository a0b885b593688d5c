package resolver_test

import (
	"context"
	"errors"
	"math"
	"testing"

	catmock "github.com/dquispe/ventavoz/internal/catalog/mock"
	"github.com/dquispe/ventavoz/internal/voice/llmitems"
	"github.com/dquispe/ventavoz/internal/voice/resolver"
	"github.com/dquispe/ventavoz/pkg/provider/llm"
	llmmock "github.com/dquispe/ventavoz/pkg/provider/llm/mock"
	"github.com/dquispe/ventavoz/pkg/types"
)

const testStoreID = 1

func bodegaCatalog() []types.CatalogEntry {
	return []types.CatalogEntry{
		{ID: 1, Name: "Coca Cola 500ml", UnitPrice: 3.50, Unit: "unidad"},
		{ID: 2, Name: "Pan Francés", UnitPrice: 0.20, Unit: "unidad"},
		{ID: 3, Name: "Arroz Costeño 1kg", UnitPrice: 4.80, Unit: "kg"},
		{ID: 4, Name: "Inca Kola 500ml", UnitPrice: 3.00, Unit: "unidad"},
		{ID: 5, Name: "Cerveza Pilsen 620ml", UnitPrice: 7.00, Unit: "unidad"},
		{ID: 6, Name: "Cerveza Cristal 620ml", UnitPrice: 6.50, Unit: "unidad"},
		{ID: 7, Name: "Papa Blanca", UnitPrice: 2.50, Unit: "kg"},
	}
}

func newResolver(t *testing.T, source *catmock.Source, opts ...resolver.Option) *resolver.Resolver {
	t.Helper()
	r, err := resolver.New(source, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestResolveSale(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	res, err := r.Resolve(context.Background(), testStoreID, "2 cocas y un pan")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if res.Command.Type != types.IntentAdd {
		t.Errorf("intent = %v, want add", res.Command.Type)
	}
	if len(res.Ambiguous) != 0 || len(res.NotFound) != 0 {
		t.Fatalf("ambiguous = %v, not found = %v, want none", res.Ambiguous, res.NotFound)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %d, want 2: %+v", len(res.Items), res.Items)
	}

	coca, pan := res.Items[0], res.Items[1]
	if coca.Entry.ID != 1 || coca.Quantity != 2 || !approx(coca.Subtotal, 7.00) {
		t.Errorf("line 1 = %+v, want Coca Cola x2 = 7.00", coca)
	}
	if pan.Entry.ID != 2 || pan.Quantity != 1 || !approx(pan.Subtotal, 0.20) {
		t.Errorf("line 2 = %+v, want Pan Francés x1 = 0.20", pan)
	}
	if got := res.Total(); !approx(got, 7.20) {
		t.Errorf("total = %v, want 7.20", got)
	}
}

func TestResolveCancelSkipsCatalog(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	res, err := r.Resolve(context.Background(), testStoreID, "cancelar")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Command.Type != types.IntentCancel {
		t.Errorf("intent = %v, want cancel", res.Command.Type)
	}
	if len(source.Calls) != 0 {
		t.Errorf("catalog fetches = %d, want 0 for a terminal command", len(source.Calls))
	}
}

func TestResolveAmbiguous(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	res, err := r.Resolve(context.Background(), testStoreID, "dame una cerveza")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(res.Items) != 0 {
		t.Errorf("items = %+v, want none", res.Items)
	}
	if len(res.Ambiguous) != 1 {
		t.Fatalf("ambiguous = %d, want 1", len(res.Ambiguous))
	}
	amb := res.Ambiguous[0]
	if amb.Quantity != 1 {
		t.Errorf("ambiguous quantity = %v, want 1", amb.Quantity)
	}
	if len(amb.Candidates) != 2 {
		t.Fatalf("candidates = %d, want both beers: %+v", len(amb.Candidates), amb.Candidates)
	}
}

func TestResolveNotFound(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	res, err := r.Resolve(context.Background(), testStoreID, "dame detergente")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Items) != 0 || len(res.Ambiguous) != 0 {
		t.Errorf("items = %v, ambiguous = %v, want none", res.Items, res.Ambiguous)
	}
	if len(res.NotFound) != 1 || res.NotFound[0] != "detergente" {
		t.Errorf("not found = %v, want [detergente]", res.NotFound)
	}
}

func TestResolveRemove(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	res, err := r.Resolve(context.Background(), testStoreID, "quita la coca")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Command.Type != types.IntentRemove {
		t.Fatalf("intent = %v, want remove", res.Command.Type)
	}
	if res.Command.ProductQuery != "coca" {
		t.Errorf("product query = %q, want coca", res.Command.ProductQuery)
	}
	if len(res.Items) != 1 || res.Items[0].Entry.ID != 1 {
		t.Fatalf("items = %+v, want the matched Coca Cola", res.Items)
	}
	if res.Items[0].Subtotal != 0 {
		t.Errorf("remove subtotal = %v, want 0", res.Items[0].Subtotal)
	}
}

func TestResolveChangePrice(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	res, err := r.Resolve(context.Background(), testStoreID, "cambiar precio de arroz a 5 soles")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cmd := res.Command
	if cmd.Type != types.IntentChangePrice {
		t.Fatalf("intent = %v, want change_price", cmd.Type)
	}
	if cmd.NewPrice != 5 {
		t.Errorf("new price = %v, want 5", cmd.NewPrice)
	}
	if !cmd.RequiresOwner {
		t.Error("price change should be flagged for owner authorization")
	}
	if len(res.Items) != 1 || res.Items[0].Entry.ID != 3 {
		t.Errorf("items = %+v, want the matched rice", res.Items)
	}
}

func TestResolveChangeProduct(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	res, err := r.Resolve(context.Background(), testStoreID, "cambia la coca por inca kola")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cmd := res.Command
	if cmd.Type != types.IntentChangeProduct {
		t.Fatalf("intent = %v, want change_product", cmd.Type)
	}
	if cmd.OldQuery != "coca" || cmd.NewQuery != "inca kola" {
		t.Errorf("old = %q new = %q", cmd.OldQuery, cmd.NewQuery)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %+v, want both sides matched", res.Items)
	}
	if res.Items[0].Entry.ID != 1 || res.Items[1].Entry.ID != 4 {
		t.Errorf("matched IDs = %d, %d, want 1 then 4", res.Items[0].Entry.ID, res.Items[1].Entry.ID)
	}
}

func TestResolveSaleByBudget(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	res, err := r.Resolve(context.Background(), testStoreID, "2 soles de papa")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cmd := res.Command
	if cmd.Type != types.IntentSaleByBudget {
		t.Fatalf("intent = %v, want sale_by_budget", cmd.Type)
	}
	if cmd.TargetAmount != 2 {
		t.Errorf("target amount = %v, want 2", cmd.TargetAmount)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items = %+v, want 1", res.Items)
	}
	line := res.Items[0]
	if line.Entry.ID != 7 {
		t.Errorf("matched = %q, want Papa Blanca", line.Entry.Name)
	}
	// 2 soles at 2.50/kg buys 0.8 kg.
	if !approx(line.Quantity, 0.8) || !approx(line.Subtotal, 2.00) {
		t.Errorf("quantity = %v subtotal = %v, want 0.8 and 2.00", line.Quantity, line.Subtotal)
	}
}

func TestResolveSaleByBudgetAmbiguousKeepsAmount(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	res, err := r.Resolve(context.Background(), testStoreID, "5 soles de cerveza")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("items = %+v, want none", res.Items)
	}
	if len(res.Ambiguous) != 1 {
		t.Fatalf("ambiguous = %d, want 1", len(res.Ambiguous))
	}
	// The soles budget must survive disambiguation so the sale can complete
	// once the clerk picks a beer.
	if amb := res.Ambiguous[0]; !approx(amb.TargetAmount, 5) {
		t.Errorf("target amount = %v, want 5", amb.TargetAmount)
	}
}

func TestResolveBrandCorrection(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	res, err := r.Resolve(context.Background(), testStoreID, "dame una hinca cola")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.CorrectedTranscript != "dame una inca kola" {
		t.Errorf("corrected = %q, want %q", res.CorrectedTranscript, "dame una inca kola")
	}
	if len(res.Items) != 1 || res.Items[0].Entry.ID != 4 {
		t.Fatalf("items = %+v, want Inca Kola", res.Items)
	}
}

func TestResolveCatalogError(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Err: errors.New("connection refused")}
	r := newResolver(t, source)

	if _, err := r.Resolve(context.Background(), testStoreID, "dame un pan"); err == nil {
		t.Error("want catalog fetch error, got nil")
	}
}

func TestResolveEmptyTranscript(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	res, err := r.Resolve(context.Background(), testStoreID, "   ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Items) != 0 || len(res.Ambiguous) != 0 || len(res.NotFound) != 0 {
		t.Errorf("noise must resolve empty, got %+v", res)
	}
}

func TestResolveRecordsCommandLog(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	log := &catmock.CommandLog{}
	r := newResolver(t, source, resolver.WithCommandLog(log))

	if _, err := r.Resolve(context.Background(), testStoreID, "2 cocas y un pan"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(log.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(log.Records))
	}
	rec := log.Records[0]
	if rec.StoreID != testStoreID || rec.Intent != types.IntentAdd || rec.ItemCount != 2 {
		t.Errorf("record = %+v", rec)
	}
}

func TestResolveCommandLogFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	log := &catmock.CommandLog{Err: errors.New("disk full")}
	r := newResolver(t, source, resolver.WithCommandLog(log))

	if _, err := r.Resolve(context.Background(), testStoreID, "2 cocas"); err != nil {
		t.Errorf("audit log failure must not fail the command: %v", err)
	}
}

func TestResolveLLM(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `[{"nombre":"arroz","cantidad":2,"unidad":"kg","monto":0},{"nombre":"inca kola","cantidad":1,"unidad":"","monto":0}]`,
			Model:   "gpt-4o-mini",
			Usage:   llm.Usage{PromptTokens: 300, CompletionTokens: 50},
		},
	}
	extractor, err := llmitems.New(provider)
	if err != nil {
		t.Fatalf("llmitems.New: %v", err)
	}

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source, resolver.WithExtractor(extractor))

	res, err := r.ResolveLLM(context.Background(), testStoreID, "dame dos kilos de arroz y una inca kola porfa")
	if err != nil {
		t.Fatalf("ResolveLLM: %v", err)
	}

	if len(res.Items) != 2 {
		t.Fatalf("items = %+v, want 2", res.Items)
	}
	if res.Items[0].Entry.ID != 3 || res.Items[0].Quantity != 2 || res.Items[0].UnitRequested != "kg" {
		t.Errorf("line 1 = %+v, want arroz x2 kg", res.Items[0])
	}
	if res.Items[1].Entry.ID != 4 {
		t.Errorf("line 2 = %+v, want Inca Kola", res.Items[1])
	}
	if res.CostUSD <= 0 {
		t.Errorf("CostUSD = %v, want > 0", res.CostUSD)
	}
	if len(source.Calls) != 1 {
		t.Errorf("catalog fetches = %d, want 1", len(source.Calls))
	}
}

func TestResolveLLMAmountItem(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `[{"nombre":"pan","cantidad":0,"unidad":"","monto":3}]`,
		},
	}
	extractor, err := llmitems.New(provider)
	if err != nil {
		t.Fatalf("llmitems.New: %v", err)
	}

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source, resolver.WithExtractor(extractor))

	res, err := r.ResolveLLM(context.Background(), testStoreID, "3 soles de pan")
	if err != nil {
		t.Fatalf("ResolveLLM: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items = %+v, want 1", res.Items)
	}
	line := res.Items[0]
	// 3 soles at 0.20 each buys 15 pieces.
	if !approx(line.Quantity, 15) || !approx(line.Subtotal, 3.00) {
		t.Errorf("quantity = %v subtotal = %v, want 15 and 3.00", line.Quantity, line.Subtotal)
	}
}

func TestResolveLLMAmbiguousAmountItemKeepsAmount(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `[{"nombre":"cerveza","cantidad":0,"unidad":"","monto":7}]`,
		},
	}
	extractor, err := llmitems.New(provider)
	if err != nil {
		t.Fatalf("llmitems.New: %v", err)
	}

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source, resolver.WithExtractor(extractor))

	res, err := r.ResolveLLM(context.Background(), testStoreID, "7 soles de cerveza")
	if err != nil {
		t.Fatalf("ResolveLLM: %v", err)
	}
	if len(res.Ambiguous) != 1 {
		t.Fatalf("ambiguous = %d, want 1: %+v", len(res.Ambiguous), res.Ambiguous)
	}
	if amb := res.Ambiguous[0]; !approx(amb.TargetAmount, 7) {
		t.Errorf("target amount = %v, want 7", amb.TargetAmount)
	}
}

func TestResolveLLMFailureIsFatal(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{CompleteErr: errors.New("rate limited")}
	extractor, err := llmitems.New(provider)
	if err != nil {
		t.Fatalf("llmitems.New: %v", err)
	}

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source, resolver.WithExtractor(extractor))

	if _, err := r.ResolveLLM(context.Background(), testStoreID, "dame dos panes"); err == nil {
		t.Error("LLM failure must fail the command, got nil error")
	}
}

func TestResolveLLMWithoutExtractor(t *testing.T) {
	t.Parallel()

	source := &catmock.Source{Products: bodegaCatalog()}
	r := newResolver(t, source)

	_, err := r.ResolveLLM(context.Background(), testStoreID, "dame un pan")
	if !errors.Is(err, resolver.ErrNoExtractor) {
		t.Errorf("ResolveLLM() error = %v, want ErrNoExtractor", err)
	}
}
