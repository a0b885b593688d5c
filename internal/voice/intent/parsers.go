package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// PriceChange is the payload of a change-price command.
type PriceChange struct {
	ProductQuery string
	NewPrice     float64
}

// BudgetSale is the payload of a sale-by-budget command.
type BudgetSale struct {
	ProductQuery string
	TargetAmount float64
}

// ProductChange is the payload of a product-swap command.
type ProductChange struct {
	OldQuery string
	NewQuery string
}

var (
	pricePattern1 = regexp.MustCompile(`precio\s+(?:de\s+)?(.+?)\s+a\s+(\d+(?:\.\d+)?)\s*soles?`)
	pricePattern2 = regexp.MustCompile(`(?:ponle|ponlo|dale)\s+(\d+(?:\.\d+)?)\s*soles?\s+(?:al?|a la)\s+(.+)`)
	pricePattern3 = regexp.MustCompile(`(?:cambiar\s+precio\s+(?:de\s+)?)?(.+?)\s+a\s+(\d+(?:\.\d+)?)\s*soles?`)

	budgetPattern1 = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*soles?\s+de\s+(.+)`)
	budgetPattern2 = regexp.MustCompile(`(.+?)\s+por\s+(\d+(?:\.\d+)?)\s*soles?`)
	budgetPattern3 = regexp.MustCompile(`(?:dame|quiero)\s+(\d+(?:\.\d+)?)\s*soles?\s+(?:en|de)\s+(.+)`)

	swapPattern = regexp.MustCompile(`(?:cambiar|cambia|cambio|mejor)\s+(?:el|la|los|las)?\s*(.+?)\s+por\s+(.+)`)

	articlesRe     = regexp.MustCompile(`\b(de|del|la|el|los|las|un|una)\b`)
	changeNoiseRe  = regexp.MustCompile(`\b(cambiar|precio|modificar|de|del|la|el)\b`)
	removeNoiseRe  = regexp.MustCompile(`\b(el|la|los|las|un|una|de|del)\b`)
	swapArticlesRe = regexp.MustCompile(`\b(el|la|los|las|un|una)\b`)
)

// ParsePriceChange extracts the product and the new price from a
// change-price utterance. Returns false when none of the supported shapes
// match.
//
// Supported shapes:
//
//	"precio de X a N soles"
//	"ponle N soles al X" (and ponlo/dale variants)
//	"cambiar X a N soles" (only when the utterance names a single product)
func ParsePriceChange(text string) (PriceChange, bool) {
	text = strings.ToLower(text)

	if m := pricePattern1.FindStringSubmatch(text); m != nil {
		return PriceChange{
			ProductQuery: strings.TrimSpace(m[1]),
			NewPrice:     mustFloat(m[2]),
		}, true
	}

	if m := pricePattern2.FindStringSubmatch(text); m != nil {
		return PriceChange{
			ProductQuery: strings.TrimSpace(m[2]),
			NewPrice:     mustFloat(m[1]),
		}, true
	}

	// The loose shape is skipped for multi-item utterances: " y " means the
	// "a N soles" most likely belongs to one item of a larger sale.
	if !strings.Contains(text, " y ") {
		if m := pricePattern3.FindStringSubmatch(text); m != nil {
			product := cleanQuery(changeNoiseRe, m[1])
			if product != "" {
				return PriceChange{ProductQuery: product, NewPrice: mustFloat(m[2])}, true
			}
		}
	}

	return PriceChange{}, false
}

// ParseSaleByBudget extracts the product and target amount from a budget
// sale utterance ("2 soles de papa", "papa por 2 soles", "dame 2 soles en
// papa").
func ParseSaleByBudget(text string) (BudgetSale, bool) {
	text = strings.ToLower(text)

	if m := budgetPattern1.FindStringSubmatch(text); m != nil {
		return BudgetSale{
			ProductQuery: cleanQuery(articlesRe, m[2]),
			TargetAmount: mustFloat(m[1]),
		}, true
	}

	if m := budgetPattern2.FindStringSubmatch(text); m != nil {
		return BudgetSale{
			ProductQuery: cleanQuery(articlesRe, m[1]),
			TargetAmount: mustFloat(m[2]),
		}, true
	}

	if m := budgetPattern3.FindStringSubmatch(text); m != nil {
		return BudgetSale{
			ProductQuery: cleanQuery(articlesRe, m[2]),
			TargetAmount: mustFloat(m[1]),
		}, true
	}

	return BudgetSale{}, false
}

// ParseProductChange extracts the outgoing and incoming product queries from
// a swap utterance ("cambia la coca por inca kola").
func ParseProductChange(text string) (ProductChange, bool) {
	text = strings.ToLower(text)

	m := swapPattern.FindStringSubmatch(text)
	if m == nil {
		return ProductChange{}, false
	}

	old := cleanQuery(swapArticlesRe, m[1])
	newQ := cleanQuery(swapArticlesRe, m[2])
	if old == "" || newQ == "" {
		return ProductChange{}, false
	}
	return ProductChange{OldQuery: old, NewQuery: newQ}, true
}

// ParseRemove strips the remove verbs and articles from a remove utterance
// and returns what is left as the product query. Returns false when nothing
// remains ("quita eso" carries no query to match).
func ParseRemove(text string) (string, bool) {
	text = strings.ToLower(text)

	// Longer phrases first so "ya no quiero" goes before "no quiero".
	for _, phrase := range []string{"ya no quiero", "no quiero", "ya no"} {
		text = strings.ReplaceAll(text, phrase, "")
	}
	for _, w := range removeWords {
		text = strings.ReplaceAll(text, w, "")
	}

	query := cleanQuery(removeNoiseRe, text)
	if query == "" {
		return "", false
	}
	return query, true
}

// cleanQuery removes the given noise words and collapses whitespace.
func cleanQuery(noise *regexp.Regexp, s string) string {
	s = noise.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// mustFloat converts a digit capture that the regex already validated.
func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
