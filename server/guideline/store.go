// Package guideline serves the store policy corpus: exact category lookup
// plus a small scored free-text search over the documents.
package guideline

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"
)

const maxSearchMatches = 2

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// stopWords are low-signal Portuguese tokens stripped before scoring.
var stopWords = map[string]struct{}{
	"o": {}, "a": {}, "os": {}, "as": {}, "um": {}, "uma": {},
	"de": {}, "do": {}, "da": {}, "em": {}, "para": {}, "com": {},
	"no": {}, "na": {}, "que": {}, "está": {}, "procurando": {}, "cliente": {},
}

type snapshot struct {
	docs       map[string]string
	categories []string
}

// Store holds an immutable corpus snapshot. Reload swaps the whole
// snapshot at once, so a concurrent lookup sees either the old corpus or
// the new one, never a mix.
type Store struct {
	snap atomic.Pointer[snapshot]
}

// NewStore builds a Store seeded with the default corpus.
func NewStore() *Store {
	s := &Store{}
	s.Reload(DefaultCorpus())
	return s
}

// Reload replaces the corpus. Categories with an empty body are dropped so
// a later lookup cannot mistake blank content for a hit.
func (s *Store) Reload(docs map[string]string) {
	next := &snapshot{docs: make(map[string]string, len(docs))}
	for category, body := range docs {
		key := normalizeCategory(category)
		if key == "" || strings.TrimSpace(body) == "" {
			continue
		}
		next.docs[key] = body
		next.categories = append(next.categories, key)
	}
	sort.Strings(next.categories)
	s.snap.Store(next)
}

func (s *Store) Lookup(category string) (contractx.Guideline, error) {
	key := normalizeCategory(category)
	snap := s.snap.Load()
	body, ok := snap.docs[key]
	if !ok {
		return contractx.Guideline{}, fmt.Errorf("guideline %q: %w", key, contractx.ErrNotFound)
	}
	return contractx.Guideline{Category: key, Body: body}, nil
}

func (s *Store) Categories() []string {
	snap := s.snap.Load()
	return append([]string(nil), snap.categories...)
}

// Search scores every document against the query and returns the top
// matches with their full bodies. A miss still lists the available
// categories so the caller can recover.
func (s *Store) Search(query string) contractx.GuidelineSearchResult {
	snap := s.snap.Load()
	cleaned := strings.ToLower(strings.TrimSpace(query))
	terms := searchTerms(cleaned)

	type scored struct {
		category string
		score    int
	}
	var results []scored
	for category, body := range snap.docs {
		score := scoreDocument(cleaned, terms, category, body)
		if score > 0 {
			results = append(results, scored{category: category, score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].category < results[j].category
	})

	out := contractx.GuidelineSearchResult{Query: query}
	if len(results) == 0 {
		out.Available = append([]string(nil), snap.categories...)
		return out
	}
	if len(results) > maxSearchMatches {
		results = results[:maxSearchMatches]
	}
	for _, r := range results {
		out.Matches = append(out.Matches, contractx.GuidelineMatch{Category: r.category, Score: r.score})
		out.Guidelines = append(out.Guidelines, contractx.Guideline{Category: r.category, Body: snap.docs[r.category]})
	}
	return out
}

// scoreDocument applies the relevance ladder: category substring matches
// weigh most, then term hits in the category name, then capped occurrence
// counts in the body, with a bonus when every term matched somewhere.
func scoreDocument(cleaned string, terms []string, category, body string) int {
	catLower := strings.ToLower(category)
	bodyLower := strings.ToLower(body)

	score := 0
	if cleaned != "" && (strings.Contains(catLower, cleaned) || strings.Contains(cleaned, catLower)) {
		score += 20
	}
	matched := 0
	for _, term := range terms {
		if strings.Contains(catLower, term) {
			score += 15
			matched++
		}
		if occurrences := strings.Count(bodyLower, term); occurrences > 0 {
			if occurrences > 5 {
				occurrences = 5
			}
			score += occurrences * 2
			matched++
		}
	}
	if len(terms) > 1 && matched >= len(terms) {
		score += 10
	}
	return score
}

func searchTerms(cleaned string) []string {
	tokens := wordPattern.FindAllString(cleaned, -1)
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if len([]rune(tok)) <= 2 {
			continue
		}
		terms = append(terms, tok)
	}
	if len(terms) == 0 {
		return tokens
	}
	return terms
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
