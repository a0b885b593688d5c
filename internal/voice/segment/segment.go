// Package segment splits a sale transcript into one request per product
// mention.
//
// Cashiers chain items with commas and "y": "dame dos cocas, un pan y medio
// kilo de arroz". Each fragment is parsed for a quantity (defaulting to one
// when absent), then stripped of everything that is not the product name —
// consumed number and fraction tokens, unit words, leading articles — so the
// matcher receives the smallest text that still names the product.
package segment

import (
	"regexp"
	"strings"

	"github.com/dquispe/ventavoz/internal/voice/intent"
	"github.com/dquispe/ventavoz/internal/voice/quantity"
	"github.com/dquispe/ventavoz/pkg/types"
)

var (
	splitRe    = regexp.MustCompile(`,|\s+y\s+`)
	articlesRe = regexp.MustCompile(`\b(de|del|la|el|los|las|un|una)\b`)
	fillerRe   = regexp.MustCompile(`\b(dame|quiero|necesito|por favor|me das|vendeme)\b`)
)

// Items segments a sale/add transcript into ItemRequests. The transcript is
// expected to be normalized and brand-corrected already.
//
// Sale and add verbs are stripped first so "agrega dos cocas" and "dos
// cocas" segment identically. A fragment that reduces to nothing after
// quantity and article stripping is discarded rather than returned as an
// empty item; a transcript of pure noise therefore yields an empty slice,
// never an error.
func Items(text string) []types.ItemRequest {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	for _, w := range append(intent.AddWords(), intent.SaleWords()...) {
		text = strings.ReplaceAll(text, w, " ")
	}
	text = fillerRe.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")

	var items []types.ItemRequest
	for _, part := range splitRe.Split(text, -1) {
		if item, ok := parseOne(strings.TrimSpace(part)); ok {
			items = append(items, item)
		}
	}
	return items
}

// parseOne extracts one ItemRequest from a single fragment.
func parseOne(part string) (types.ItemRequest, bool) {
	if part == "" {
		return types.ItemRequest{}, false
	}

	qty := 1.0
	unit := ""
	if q, ok := quantity.Parse(part); ok {
		qty = q.Value
		unit = q.Unit
	} else if q.Unit != "" {
		// "kilo de arroz": no amount spoken, but the unit still matters.
		unit = q.Unit
	}

	query := quantity.Strip(part)
	query = articlesRe.ReplaceAllString(query, " ")
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return types.ItemRequest{}, false
	}

	return types.ItemRequest{
		ProductQuery:  query,
		Quantity:      qty,
		UnitRequested: unit,
	}, true
}
