// Package semantic assigns market text a coarse claim type (leadership
// change, discrete action, price threshold...) and decides which claim types
// can describe the same event.
package semantic

import (
	"slices"
	"strings"
)

// Context is the dominant kind of claim a piece of text makes.
type Context string

const (
	Leadership Context = "leadership"
	Action     Context = "action"
	Price      Context = "price"
	Timing     Context = "timing"
	Outcome    Context = "outcome"
	Comparison Context = "comparison"
	Unknown    Context = "unknown"
)

// Classifier scores text against keyword lists. It is read-only after
// construction and safe for concurrent use.
type Classifier struct {
	order     []Context
	keywords  map[Context][]string
	adjacency map[Context][]Context
}

// NewClassifier copies r so later changes to it have no effect.
func NewClassifier(r Rules) *Classifier {
	c := &Classifier{
		order:     append([]Context(nil), r.Order...),
		keywords:  make(map[Context][]string, len(r.Keywords)),
		adjacency: cloneAdjacency(r.Adjacency),
	}
	for ctx, words := range r.Keywords {
		lowered := make([]string, len(words))
		for i, w := range words {
			lowered[i] = strings.ToLower(w)
		}
		c.keywords[ctx] = lowered
	}
	return c
}

// Classify counts, per context, how many of its keywords occur in text and
// returns the context with the strictly highest count. Unknown when nothing
// matches.
func (c *Classifier) Classify(text string) Context {
	lower := strings.ToLower(text)

	best, bestScore := Unknown, 0
	for _, ctx := range c.order {
		score := 0
		for _, kw := range c.keywords[ctx] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = ctx, score
		}
	}
	return best
}

// Compatible reports whether texts of contexts a and b may describe the same
// event.
func (c *Classifier) Compatible(a, b Context) bool {
	if a == Unknown || b == Unknown {
		return true
	}
	if a == b {
		return true
	}
	return slices.Contains(c.adjacency[a], b) || slices.Contains(c.adjacency[b], a)
}
