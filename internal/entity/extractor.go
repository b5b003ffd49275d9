// Package entity extracts named references (people, organizations, places,
// recurring topics) from market text and reduces each to a canonical key.
//
// Extraction is purely lexical: every vocabulary pattern is scanned over the
// full text, the first capturing group (or the whole match) is normalized, and
// the alias table folds surface forms like "Donald J. Trump" and "Trump" into
// one key. Results are deduplicated by key, first occurrence wins, and come
// out in rule order rather than text order.
package entity

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Category groups entities by kind.
type Category string

const (
	People Category = "people"
	Orgs   Category = "orgs"
	Places Category = "places"
	Topics Category = "topics"
)

// Entity is one recognized reference in a piece of text.
type Entity struct {
	Value      string   `json:"value"`
	Category   Category `json:"category"`
	Normalized string   `json:"normalized"`
}

type compiledRule struct {
	category Category
	re       *regexp.Regexp
}

// Extractor scans text with a fixed, compiled vocabulary. It is safe for
// concurrent use; nothing is mutated after construction.
type Extractor struct {
	rules   []compiledRule
	aliases map[string]string
}

// NewExtractor compiles v. Pattern order is preserved: categories in the order
// given, patterns in the order listed.
func NewExtractor(v Vocabulary) (*Extractor, error) {
	e := &Extractor{aliases: make(map[string]string, len(v.Aliases))}
	for _, rule := range v.Rules {
		for _, pattern := range rule.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid %s pattern %q: %w", rule.Category, pattern, err)
			}
			e.rules = append(e.rules, compiledRule{category: rule.Category, re: re})
		}
	}
	for surface, canonical := range v.Aliases {
		e.aliases[normalize(surface)] = normalize(canonical)
	}
	return e, nil
}

// MustNewExtractor is like NewExtractor but panics on an invalid vocabulary.
func MustNewExtractor(v Vocabulary) *Extractor {
	e, err := NewExtractor(v)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract returns the entities found in text, deduplicated by canonical key.
// Results follow rule order (category, then pattern), not their position in
// text. An empty result means the text has nothing matchable.
func (e *Extractor) Extract(text string) []Entity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	seen := make(map[string]bool)
	var entities []Entity
	for _, rule := range e.rules {
		for _, loc := range rule.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if len(loc) >= 4 && loc[2] >= 0 {
				start, end = loc[2], loc[3]
			}
			raw := text[start:end]
			key := e.Canonical(raw)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			entities = append(entities, Entity{
				Value:      strings.TrimSpace(raw),
				Category:   rule.category,
				Normalized: key,
			})
		}
	}
	return entities
}

// Canonical maps a surface form to its canonical key.
func (e *Extractor) Canonical(surface string) string {
	key := normalize(surface)
	if canonical, ok := e.aliases[key]; ok {
		return canonical
	}
	return key
}

// Keys returns the normalized keys of entities, preserving order.
func Keys(entities []Entity) []string {
	keys := make([]string, len(entities))
	for i, ent := range entities {
		keys[i] = ent.Normalized
	}
	return keys
}

// normalize folds compatibility forms, lowercases, collapses whitespace and
// trims surrounding punctuation.
func normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " .,;:!?'\"")
}
