// Package match implements the catalog relevance engine that grounds a
// spoken product query against a store's live product list.
//
// Exact or substring matching alone fails both ways in Spanish retail
// vocabulary: requiring exactness makes noisy voice input unusable, while
// naive containment produces dangerous false positives — a three-letter
// query like "pan" must never match "Ají Panca". The matcher therefore
// computes a graded relevance score per candidate from several signal
// tiers, then uses the score distribution rather than a single threshold
// to decide between three outcomes:
//
//   - auto-accept, when one candidate clearly wins;
//   - an ambiguous prompt, when several candidates score comparably high —
//     silently picking one at a cash register charges the customer wrong;
//   - not-found, when nothing clears the rejection floor.
//
// The margin-of-victory rule is the load-bearing decision: "highest score
// wins" silently picks Pilsen over Cristal when both score 0.9 for
// "cerveza", and "always ask on >1 match" is unusably chatty when one
// obvious winner sits above unrelated low-scoring noise.
package match

import (
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/dquispe/ventavoz/internal/voice/textnorm"
	"github.com/dquispe/ventavoz/pkg/types"
)

// Score tiers, highest to lowest. The gaps between tiers are what the
// margin-of-victory rule measures, so the values are named rather than
// inlined.
const (
	scoreExact       = 1.0
	scorePrefixWord  = 0.95
	scoreFirstWord   = 0.9
	scoreWholeWord   = 0.85
	scoreSimilar     = 0.75
	scoreShortWord   = 0.7
	scoreWordPrefix  = 0.7
	scoreSubstring   = 0.5
	shortQueryMaxLen = 3
	wordPrefixMinLen = 4
	substringMinLen  = 5
)

// defaultDenyList holds short Spanish retail words that are known to appear
// inside unrelated product names. They are matched on word boundaries only,
// regardless of length.
var defaultDenyList = []string{"pan", "sal", "te", "ron", "ace", "gas", "luz", "aji", "col"}

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithAcceptFloor sets the minimum score at which a lone candidate is
// auto-accepted. Default: 0.6.
func WithAcceptFloor(floor float64) Option {
	return func(m *Matcher) { m.acceptFloor = floor }
}

// WithCandidateFloor sets the score a candidate must exceed (strictly) to be
// considered at all. Default: 0.5.
func WithCandidateFloor(floor float64) Option {
	return func(m *Matcher) { m.candidateFloor = floor }
}

// WithMargin sets the margin-of-victory: the gap by which a high-scoring
// leader must beat the runner-up to be auto-accepted. Default: 0.15.
func WithMargin(margin float64) Option {
	return func(m *Matcher) { m.margin = margin }
}

// WithMaxOptions caps how many candidates an ambiguous result carries for
// the user to choose from. Default: 6.
func WithMaxOptions(n int) Option {
	return func(m *Matcher) { m.maxOptions = n }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler similarity for the
// fuzzy tier that catches transcription typos ("aroz" for "arroz").
// Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) { m.fuzzyThreshold = threshold }
}

// WithDenyList replaces the built-in short-word deny list.
func WithDenyList(words []string) Option {
	return func(m *Matcher) {
		m.denyList = make(map[string]struct{}, len(words))
		for _, w := range words {
			m.denyList[w] = struct{}{}
		}
	}
}

// Matcher scores queries against catalog snapshots. It is read-only after
// construction and safe for concurrent use; every Match call works purely
// on its arguments.
type Matcher struct {
	acceptFloor    float64
	candidateFloor float64
	highScore      float64
	margin         float64
	maxOptions     int
	fuzzyThreshold float64
	denyList       map[string]struct{}
}

// New returns a Matcher with the supplied options applied over the
// defaults: accept floor 0.6, candidate floor 0.5, margin 0.15, six
// ambiguous options, fuzzy threshold 0.85, and the built-in deny list.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		acceptFloor:    0.6,
		candidateFloor: 0.5,
		highScore:      scoreWholeWord,
		margin:         0.15,
		maxOptions:     6,
		fuzzyThreshold: 0.85,
	}
	WithDenyList(defaultDenyList)(m)
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match scores query against every entry in catalog and applies the
// decision policy. The catalog slice is a borrowed read-only snapshot; it is
// never mutated or retained.
//
// Match is total: an empty query, an empty catalog, or pure noise all yield
// a NotFound result, never an error.
func (m *Matcher) Match(query string, catalog []types.CatalogEntry) types.MatchResult {
	q := textnorm.Normalize(query)
	if q == "" || len(catalog) == 0 {
		return types.MatchResult{Outcome: types.MatchNotFound, Query: q}
	}

	// Plural and singular variants are both tried; noisy transcripts and
	// catalogs disagree on trailing "s" constantly. Shortness is judged on
	// the query as spoken, so "pan" stays boundary-only even as "panes".
	variants := pluralVariants(q)
	short := m.isShort(q)

	candidates := make([]types.Candidate, 0, 4)
	for _, entry := range catalog {
		best := 0.0
		for _, v := range variants {
			if s := m.scoreEntry(v, entry, short); s > best {
				best = s
			}
		}
		if best > m.candidateFloor {
			candidates = append(candidates, types.Candidate{Entry: entry, Score: best})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Entry.Name < candidates[j].Entry.Name
	})

	return m.decide(q, candidates)
}

// scoreEntry returns the best score across the entry's name and aliases.
func (m *Matcher) scoreEntry(query string, entry types.CatalogEntry, short bool) float64 {
	best := m.score(query, entry.Name, short)
	for _, alias := range types.SplitAliases(entry.Aliases) {
		if s := m.score(query, alias, short); s > best {
			best = s
		}
	}
	return best
}

// score computes the tiered relevance of query against one candidate name.
// Both sides are normalized before comparison.
func (m *Matcher) score(query, name string, short bool) float64 {
	n := textnorm.Normalize(name)
	if n == "" {
		return 0
	}

	// Tier 1: exact equality.
	if n == query {
		return scoreExact
	}

	// Tier 2: the candidate starts with the query as a complete word.
	if strings.HasPrefix(n, query+" ") {
		return scorePrefixWord
	}

	words := strings.Fields(n)

	// Tier 3: first word equals the query.
	if len(words) > 0 && words[0] == query {
		return scoreFirstWord
	}

	// Tier 4: the query is a whole word anywhere in the candidate.
	for _, w := range words {
		if strings.Trim(w, ".,;:()[]{}") == query {
			return scoreWholeWord
		}
	}

	// Short queries accept nothing weaker than a word-boundary match:
	// substring containment is how "pan" ends up matching "Ají Panca".
	if short {
		if wordBoundary(query).MatchString(n) {
			return scoreShortWord
		}
		return 0
	}

	// Tier 5: fuzzy similarity against each candidate word, for
	// transcription typos the brand table does not cover.
	bestJW := matchr.JaroWinkler(query, n, false)
	for _, w := range words {
		if s := matchr.JaroWinkler(query, w, false); s > bestJW {
			bestJW = s
		}
	}
	if bestJW >= m.fuzzyThreshold {
		return scoreSimilar
	}

	// Tier 6: the query prefixes some inner word.
	if len(query) >= wordPrefixMinLen {
		for _, w := range words {
			if strings.HasPrefix(w, query) {
				return scoreWordPrefix
			}
		}
	}

	// Tier 7: raw substring, long queries only.
	if len(query) >= substringMinLen && strings.Contains(n, query) {
		return scoreSubstring
	}

	return 0
}

// decide applies the two-tier accept policy to the sorted candidate list.
func (m *Matcher) decide(query string, candidates []types.Candidate) types.MatchResult {
	switch {
	case len(candidates) == 0:
		return types.MatchResult{Outcome: types.MatchNotFound, Query: query}

	case len(candidates) == 1:
		if candidates[0].Score >= m.acceptFloor {
			return types.MatchResult{
				Outcome: types.MatchResolved,
				Query:   query,
				Entry:   candidates[0].Entry,
				Score:   candidates[0].Score,
			}
		}
		// One weak candidate: let the user confirm rather than guess.
		return types.MatchResult{Outcome: types.MatchAmbiguous, Query: query, Candidates: candidates}
	}

	top, second := candidates[0], candidates[1]

	// An exact match beats everything that is not also exact.
	if top.Score == scoreExact && second.Score < scoreExact {
		return types.MatchResult{Outcome: types.MatchResolved, Query: query, Entry: top.Entry, Score: top.Score}
	}

	// A high scorer that wins by a clear margin is accepted without
	// prompting; near-ties always prompt.
	if top.Score >= m.highScore && top.Score-second.Score > m.margin {
		return types.MatchResult{Outcome: types.MatchResolved, Query: query, Entry: top.Entry, Score: top.Score}
	}

	if len(candidates) > m.maxOptions {
		candidates = candidates[:m.maxOptions]
	}
	return types.MatchResult{Outcome: types.MatchAmbiguous, Query: query, Candidates: candidates}
}

// isShort reports whether query gets the strict word-boundary-only rule.
func (m *Matcher) isShort(query string) bool {
	if _, deny := m.denyList[query]; deny {
		return true
	}
	return len([]rune(query)) <= shortQueryMaxLen
}

// pluralVariants returns the query plus its trailing-s counterpart.
func pluralVariants(q string) []string {
	if strings.HasSuffix(q, "s") {
		return []string{q, strings.TrimSuffix(q, "s")}
	}
	return []string{q, q + "s"}
}

// wordBoundary compiles a \bq\b matcher for a short query. Queries are
// normalized lowercase words, so QuoteMeta is belt and braces.
func wordBoundary(q string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(q) + `\b`)
}
