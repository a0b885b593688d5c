// Package intent classifies a normalized transcript into one of the POS
// command categories and extracts the command's payload.
//
// Natural cashier speech is ambiguous — "cambiar" appears in both
// price-change and product-swap utterances, and "por" joins both swaps
// ("coca por inca kola") and budget sales ("papa por 2 soles"). Classify
// therefore tests ordered keyword and pattern groups, most specific first,
// so structural numeric patterns win before generic keyword matches can
// misroute a command.
package intent

import (
	"regexp"
	"strings"
)

// Type is the classifier's verdict for one transcript.
type Type string

const (
	// TypeQueryTotal asks for the running total.
	TypeQueryTotal Type = "query_total"

	// TypeCancel discards the whole cart.
	TypeCancel Type = "cancel"

	// TypeConfirm closes the sale.
	TypeConfirm Type = "confirm"

	// TypeRemove takes a product out of the cart.
	TypeRemove Type = "remove"

	// TypeChangeProduct swaps one product for another.
	TypeChangeProduct Type = "change_product"

	// TypeSaleByBudget sells a money amount's worth of a product.
	TypeSaleByBudget Type = "sale_by_budget"

	// TypeChangePrice updates a product's price.
	TypeChangePrice Type = "change_price"

	// TypeChange is a generic change with no structural pattern matched;
	// the caller tries a price parse, then a product-swap parse.
	TypeChange Type = "change"

	// TypeSale starts a fresh cart before adding items.
	TypeSale Type = "sale"

	// TypeAdd appends items to the current cart. The default.
	TypeAdd Type = "add"
)

// Keyword groups. Matching is substring-based over the normalized transcript,
// mirroring how cashiers embed command words mid-sentence.
var (
	cancelWords    = []string{"cancelar", "anular", "borra todo", "borrar todo", "elimina todo"}
	cancelAllWords = []string{"borra todo", "borrar todo", "elimina todo"}
	confirmWords   = []string{"listo", "total", "confirmar", "suma", "cierra", "terminar", "dale", "ok", "vale", "eso es todo"}
	addWords       = []string{"adicionar", "sumale", "agregar", "agrega", "anadir", "anade", "aumentar", "pon", "incluye"}
	changeWords    = []string{"cambiar", "cambia", "modificar", "corregir", "actualizar", "ajustar", "mejor"}
	removeWords    = []string{"quitar", "quita", "eliminar", "elimina", "sacar", "saca", "borrar", "borra", "ya no", "no quiero"}
	queryWords     = []string{"cuanto", "total", "suma", "va"}
	saleWords      = []string{"vender", "vende", "nueva venta", "empezar venta"}
)

var (
	budgetSolesDe   = regexp.MustCompile(`\d+\s*soles?\s+de\s+`)
	budgetPorSoles  = regexp.MustCompile(`por\s+\d+\s*soles?`)
	budgetDameSoles = regexp.MustCompile(`(?:dame|quiero)\s+\d+\s*soles?\s+(?:en|de)\s+`)
	priceASoles     = regexp.MustCompile(`\ba\s+\d+(?:\.\d+)?\s*soles?\b`)
	pricePonle      = regexp.MustCompile(`(?:ponle|ponlo|dale)\s+\d+(?:\.\d+)?\s*soles?`)
)

// Classify inspects a normalized transcript and returns its command type.
// Rules are tested in a fixed precedence order; the first match wins. Every
// transcript classifies — the fallthrough is TypeAdd (append to cart), with
// TypeSale only for explicit new-sale verbs.
func Classify(text string) Type {
	text = strings.ToLower(strings.TrimSpace(text))

	// 1. Total query: a query word plus the asking pattern.
	if containsAny(text, queryWords) && (strings.Contains(text, "va") || strings.Contains(text, "total")) {
		return TypeQueryTotal
	}

	// 2. Explicit full-cancel phrases.
	if containsAny(text, cancelAllWords) {
		return TypeCancel
	}

	// 3. General cancel words, unless a remove word is present — "quita
	// esto" must not cancel the whole cart.
	if containsAny(text, cancelWords) && !containsAny(text, removeWords) {
		return TypeCancel
	}

	// 4. Confirm.
	if containsAny(text, confirmWords) {
		return TypeConfirm
	}

	// 5. Remove.
	if containsAny(text, removeWords) {
		return TypeRemove
	}

	// 6. Product swap: "X por Y" with a change word.
	if strings.Contains(text, " por ") && containsAny(text, changeWords) {
		return TypeChangeProduct
	}

	// 7. Budget sale. Checked before price change because "por N soles"
	// would otherwise misroute.
	if budgetSolesDe.MatchString(text) {
		return TypeSaleByBudget
	}
	if budgetPorSoles.MatchString(text) && !containsAny(text, changeWords) {
		return TypeSaleByBudget
	}
	if budgetDameSoles.MatchString(text) {
		return TypeSaleByBudget
	}

	// 8. Price change.
	if priceASoles.MatchString(text) {
		return TypeChangePrice
	}
	if strings.Contains(text, "precio") && strings.Contains(text, " a ") {
		return TypeChangePrice
	}
	if pricePonle.MatchString(text) {
		return TypeChangePrice
	}

	// 9. Generic change: the caller attempts price then product parsing.
	if containsAny(text, changeWords) {
		return TypeChange
	}

	// 10. Default sale/add. Explicit sale verbs start a fresh cart;
	// everything else appends so a mid-sale command never wipes the cart.
	if containsAny(text, saleWords) {
		return TypeSale
	}
	return TypeAdd
}

// SaleWords returns the verbs that select TypeSale over TypeAdd. The
// segmenter strips them (together with add words) before item extraction.
func SaleWords() []string {
	return append(append([]string{}, saleWords...), "registrar")
}

// AddWords returns the explicit add verbs, for stripping before item
// extraction.
func AddWords() []string {
	return append([]string{}, addWords...)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
