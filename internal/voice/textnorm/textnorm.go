// Package textnorm normalizes raw transcript text before any parsing or
// matching happens.
//
// Speech-to-text output for Peruvian Spanish arrives with accents, mixed
// case, stray punctuation, and irregular spacing — none of which carry
// meaning for catalog matching ("limón" and "limon" name the same product).
// Normalize strips all of it in one deterministic pass so every downstream
// stage can assume clean lowercase ASCII-ish text.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes Unicode (NFD) so base characters separate from their
// combining marks, removes the marks (category Mn), and recomposes (NFC).
// Shared by all Normalize calls; transform.Chain values are stateless until
// used with a fresh transform.String.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// leadingPunct is the punctuation trimmed from both ends of a transcript.
// Spanish inverted marks included.
const leadingPunct = "¡!¿?.,;:"

// Normalize strips diacritical marks, lowercases, trims leading and trailing
// punctuation, and collapses whitespace runs to single spaces.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x). It never
// fails; input that cannot be decomposed passes through unchanged.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	stripped, _, err := transform.String(stripMarks, text)
	if err != nil {
		// Malformed UTF-8 sequences are left as-is rather than dropped;
		// the matcher will simply not match them.
		stripped = text
	}

	lowered := strings.ToLower(stripped)
	trimmed := strings.Trim(lowered, leadingPunct)

	return strings.Join(strings.Fields(trimmed), " ")
}
