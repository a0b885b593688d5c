// Package brand rewrites known speech-to-text mistakes for local brand names
// before a transcript is parsed.
//
// Whisper-style transcription reliably mangles Peruvian brands: "inca kola"
// comes back as "hinca cola", "sporade" as "spore", "cheetos" as "chitos".
// The corrector applies an ordered table of whole-word substitutions so that
// downstream catalog matching sees the canonical spelling the store actually
// uses. It also normalizes hyphenated brand forms to spaced forms
// ("coca-cola" → "coca cola") because catalogs store unhyphenated names.
//
// The table is configuration, not behavior: the built-in rules cover the
// vocabulary observed in production transcripts, and [Load] accepts a YAML
// file for per-deployment additions.
package brand

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule is a single substitution. Wrong must be a whole word or phrase; it is
// matched with word boundaries so "spore" never corrupts "esporas".
type Rule struct {
	Wrong     string `yaml:"wrong"`
	Canonical string `yaml:"canonical"`
}

// Corrector applies an ordered rule table to transcript text. It is
// read-only after construction and safe for concurrent use.
type Corrector struct {
	rules []compiledRule
}

type compiledRule struct {
	re        *regexp.Regexp
	canonical string
}

var collapseSpaces = regexp.MustCompile(`\s+`)

// New compiles the given rules in order. Rules apply strictly in table
// order; the table is constructed so rules do not conflict for the supported
// vocabulary, but order is still deterministic rather than assumed confluent.
func New(rules []Rule) (*Corrector, error) {
	c := &Corrector{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if strings.TrimSpace(r.Wrong) == "" {
			return nil, fmt.Errorf("brand: rule with empty wrong form (canonical %q)", r.Canonical)
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(strings.ToLower(r.Wrong)) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("brand: compile rule %q: %w", r.Wrong, err)
		}
		c.rules = append(c.rules, compiledRule{re: re, canonical: r.Canonical})
	}
	return c, nil
}

// Default returns a Corrector loaded with the built-in Peruvian brand table.
func Default() *Corrector {
	c, err := New(defaultRules)
	if err != nil {
		// The built-in table is static and covered by tests; a compile
		// failure here is a programming error.
		panic(err)
	}
	return c
}

// Load reads a YAML rule file and returns a Corrector combining the built-in
// table with the file's rules appended after it (file rules win on re-match
// because they run later).
//
// File format:
//
//	rules:
//	  - wrong: "vimto"
//	    canonical: "bimbo"
func Load(path string) (*Corrector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("brand: open %q: %w", path, err)
	}
	defer f.Close()

	c, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("brand: parse %q: %w", path, err)
	}
	return c, nil
}

// LoadFromReader decodes a YAML rule file from r. Useful in tests where rule
// files are constructed from string literals.
func LoadFromReader(r io.Reader) (*Corrector, error) {
	var file struct {
		Rules []Rule `yaml:"rules"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("brand: decode yaml: %w", err)
	}
	return New(append(append([]Rule{}, defaultRules...), file.Rules...))
}

// Correct lowercases text, replaces hyphens with spaces, collapses
// whitespace, and applies every rule in table order using whole-word
// matching. Input is expected to already be accent-normalized; Correct does
// not strip diacritics itself.
func (c *Corrector) Correct(text string) string {
	out := strings.ToLower(text)
	out = strings.ReplaceAll(out, "-", " ")
	out = collapseSpaces.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)

	for _, r := range c.rules {
		out = r.re.ReplaceAllString(out, r.canonical)
	}
	return out
}

// defaultRules is the built-in correction table, ordered. Multi-word wrong
// forms come before single-word forms that could partially overlap them.
var defaultRules = []Rule{
	// Bebidas
	{Wrong: "hinca cola", Canonical: "inca kola"},
	{Wrong: "hinca kola", Canonical: "inca kola"},
	{Wrong: "inka cola", Canonical: "inca kola"},
	{Wrong: "inca cola", Canonical: "inca kola"},
	{Wrong: "incacola", Canonical: "inca kola"},
	{Wrong: "cocacola", Canonical: "coca cola"},
	{Wrong: "esporade", Canonical: "sporade"},
	{Wrong: "spore", Canonical: "sporade"},
	{Wrong: "gatore", Canonical: "gatorade"},
	{Wrong: "gatorate", Canonical: "gatorade"},
	{Wrong: "pilsner", Canonical: "pilsen"},
	{Wrong: "cusquenia", Canonical: "cusquena"},
	{Wrong: "cusquenya", Canonical: "cusquena"},

	// Panaderia
	{Wrong: "pang", Canonical: "pan"},
	{Wrong: "panes", Canonical: "pan"},

	// Lacteos
	{Wrong: "layve", Canonical: "laive"},
	{Wrong: "puravida", Canonical: "pura vida"},

	// Golosinas
	{Wrong: "sublima", Canonical: "sublime"},
	{Wrong: "cua cua", Canonical: "cuacua"},
	{Wrong: "fill", Canonical: "field"},
	{Wrong: "morocha", Canonical: "morochas"},
	{Wrong: "galletas", Canonical: "galleta"},

	// Snacks
	{Wrong: "leis", Canonical: "lays"},
	{Wrong: "chitos", Canonical: "cheetos"},
	{Wrong: "piqueos", Canonical: "piqueo"},

	// Limpieza
	{Wrong: "ase", Canonical: "ace"},
	{Wrong: "poet", Canonical: "poett"},

	// Basicos: plural a singular para estandarizar con el catalogo
	{Wrong: "huevos", Canonical: "huevo"},
	{Wrong: "fideos", Canonical: "fideo"},
}
