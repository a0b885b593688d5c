// Package quantity extracts numeric quantities from Spanish retail speech.
//
// Bodega customers phrase amounts many ways: digits ("3"), number words
// ("tres"), fractions ("medio", "tres cuartos"), compounds ("uno y medio"),
// and the colloquial decimal forms used for weights and money ("dos
// cincuenta" meaning 2.5). Parse recognizes all of them with a fixed
// most-specific-first order so "dos y cuarto" never half-parses as "dos".
//
// Unit tokens ("kilo", "litro", "unidad") are stripped before number
// extraction so they cannot interfere, and the detected unit is reported
// back to the caller — whether a unit mismatch against the product's sale
// unit matters is the caller's decision, not this package's.
package quantity

import (
	"regexp"
	"strconv"
	"strings"
)

// Quantity is a parsed amount plus the unit token it was spoken with.
type Quantity struct {
	// Value is the numeric amount.
	Value float64

	// Unit is the canonical unit detected in the phrase ("kg", "litro",
	// "unidad"), or empty when the phrase carried none.
	Unit string
}

// fractions maps standalone fraction phrases to values. Ordered longest
// phrase first so "tres cuartos" wins over "cuarto".
var fractions = []struct {
	phrase string
	value  float64
}{
	{"una tercera parte", 1.0 / 3.0},
	{"tres cuartitos", 0.75},
	{"tres cuartos", 0.75},
	{"dos tercios", 2.0 / 3.0},
	{"dos tercio", 2.0 / 3.0},
	{"un cuarto", 0.25},
	{"un tercio", 1.0 / 3.0},
	{"una media", 0.5},
	{"un medio", 0.5},
	{"cuartito", 0.25},
	{"tercio", 1.0 / 3.0},
	{"cuarto", 0.25},
	{"media", 0.5},
	{"medio", 0.5},
}

// numbers covers the common retail range. Spoken quantities above fifty are
// effectively always digits in transcripts.
var numbers = map[string]float64{
	"un": 1, "uno": 1, "una": 1,
	"dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
	"once": 11, "doce": 12, "trece": 13, "catorce": 14, "quince": 15,
	"dieciseis": 16, "diecisiete": 17, "dieciocho": 18, "diecinueve": 19,
	"veinte": 20, "veinticinco": 25, "treinta": 30, "cuarenta": 40, "cincuenta": 50,
	"docena": 12,
}

// units maps spoken unit tokens to their canonical form.
var units = map[string]string{
	"kilo": "kg", "kilos": "kg", "kg": "kg",
	"litro": "litro", "litros": "litro",
	"unidad": "unidad", "unidades": "unidad", "und": "unidad",
}

var (
	unitRe    = regexp.MustCompile(`\b(kilo|kilos|kg|litro|litros|unidad|unidades|und)\b`)
	compound  = regexp.MustCompile(`\b([\w.]+)\s+y\s+(\w+(?:\s+\w+)?)\b`)
	decimalRe = regexp.MustCompile(`\b(\w+)\s+(cincuenta|setenta y cinco)\b`)
	digitsRe  = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)
)

// Parse extracts a quantity from phrase. It reports ok=false when the phrase
// carries no recognizable amount; the caller decides whether that means "one"
// (a bare product mention usually does).
//
// Recognition order, first match wins:
//  1. Compound forms: "dos y medio" → 2.5, "uno y cuarto" → 1.25.
//  2. Decimal-word forms: "dos cincuenta" → 2.5, "tres setenta y cinco" → 3.75.
//  3. Standalone fraction phrases: "medio" → 0.5, "tres cuartos" → 0.75.
//  4. Standalone number words: "tres" → 3.
//  5. Literal digits with optional decimal point: "2.5" → 2.5.
func Parse(phrase string) (Quantity, bool) {
	text := strings.ToLower(strings.TrimSpace(phrase))
	if text == "" {
		return Quantity{}, false
	}

	q := Quantity{Unit: detectUnit(text)}
	text = strings.TrimSpace(unitRe.ReplaceAllString(text, " "))
	text = strings.Join(strings.Fields(text), " ")

	// 1. Compound: base + fraction. The fraction word must be in the
	// fraction table, otherwise fall through — "dos setenta y cinco" is a
	// decimal form, not a compound.
	if m := compound.FindStringSubmatch(text); m != nil {
		if frac, ok := fractionValue(m[2]); ok {
			if base, ok := baseValue(m[1]); ok {
				q.Value = base + frac
				return q, true
			}
		}
	}

	// 2. Colloquial decimals: "<base> cincuenta" = +0.5, "<base> setenta y
	// cinco" = +0.75.
	if m := decimalRe.FindStringSubmatch(text); m != nil {
		if base, ok := baseValue(m[1]); ok {
			switch m[2] {
			case "cincuenta":
				q.Value = base + 0.5
			case "setenta y cinco":
				q.Value = base + 0.75
			}
			return q, true
		}
	}

	// 3. Standalone fractions, longest phrase first.
	for _, f := range fractions {
		if containsPhrase(text, f.phrase) {
			q.Value = f.value
			return q, true
		}
	}

	// 4. Number words, scanned left to right by token.
	for _, tok := range strings.Fields(text) {
		if v, ok := numbers[tok]; ok {
			q.Value = v
			return q, true
		}
	}

	// 5. Literal digits.
	if m := digitsRe.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			q.Value = v
			return q, true
		}
	}

	// No amount found. The detected unit is still returned — "kilo de
	// arroz" means one kilo, and the caller needs the unit to know that.
	return q, false
}

// Strip removes everything Parse would consume — digits, fraction phrases,
// number words, decimal words, and unit tokens — and collapses the
// remainder's whitespace. The segmenter uses it to isolate the product text
// of a sub-phrase.
func Strip(phrase string) string {
	text := strings.ToLower(phrase)
	text = unitRe.ReplaceAllString(text, " ")
	text = digitsRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "setenta y cinco", " ")
	for _, f := range fractions {
		text = removePhrase(text, f.phrase)
	}

	fields := strings.Fields(text)
	kept := fields[:0]
	for _, tok := range fields {
		if _, isNumber := numbers[tok]; isNumber {
			continue
		}
		if tok == "y" || tok == "cincuenta" {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// baseValue resolves the base of a compound or decimal form: a digit string
// or a number word.
func baseValue(tok string) (float64, bool) {
	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		return v, true
	}
	v, ok := numbers[tok]
	return v, ok
}

// fractionValue resolves a fraction word or two-word fraction phrase.
func fractionValue(phrase string) (float64, bool) {
	phrase = strings.TrimSpace(phrase)
	for _, f := range fractions {
		if phrase == f.phrase {
			return f.value, true
		}
	}
	// Two-word regex captures may include a trailing token that is not part
	// of the fraction ("medio kilo"); retry with the first word only.
	if first, _, cut := strings.Cut(phrase, " "); cut {
		for _, f := range fractions {
			if first == f.phrase {
				return f.value, true
			}
		}
	}
	return 0, false
}

// detectUnit returns the canonical unit for the first unit token in text.
func detectUnit(text string) string {
	if m := unitRe.FindStringSubmatch(text); m != nil {
		return units[m[1]]
	}
	return ""
}

// containsPhrase reports whether phrase appears in text on word boundaries.
func containsPhrase(text, phrase string) bool {
	idx := strings.Index(text, phrase)
	for idx >= 0 {
		beforeOK := idx == 0 || text[idx-1] == ' '
		after := idx + len(phrase)
		afterOK := after == len(text) || text[after] == ' '
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(text[idx+1:], phrase)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

// removePhrase deletes whole-word occurrences of phrase from text, leaving
// embedded occurrences ("medio" inside "remedio") untouched.
func removePhrase(text, phrase string) string {
	from := 0
	for {
		idx := strings.Index(text[from:], phrase)
		if idx < 0 {
			return text
		}
		idx += from
		beforeOK := idx == 0 || text[idx-1] == ' '
		after := idx + len(phrase)
		afterOK := after == len(text) || text[after] == ' '
		if beforeOK && afterOK {
			text = strings.TrimSpace(text[:idx] + " " + text[after:])
			from = 0
			continue
		}
		from = idx + 1
	}
}
