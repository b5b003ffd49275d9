// Package matcher decides, for one source market, which target event (if any)
// resolves on the same real-world outcome.
//
// Matching runs in two stages. The PreFilter ranks the target pool by entity
// overlap, gated by semantic context. The Engine then applies a tiered policy:
// strong entity matches are accepted directly, everything else is sent to an
// external classifier, and the entity score is the fallback when the
// classifier is unavailable or unsure.
package matcher

import (
	"cmp"
	"slices"

	"github.com/rewired-gh/polymatch/internal/entity"
	"github.com/rewired-gh/polymatch/internal/models"
	"github.com/rewired-gh/polymatch/internal/semantic"
)

// Candidate is a target event that survived pre-filtering.
type Candidate struct {
	Event             *models.TargetEvent
	TargetEventID     string
	Title             string
	Subtitle          string
	EntityScore       float64
	MatchedEntities   []string
	Context           semantic.Context
	ContextCompatible bool
}

// PreFilter scores a candidate pool against a source question.
type PreFilter struct {
	extractor *entity.Extractor
	contexts  *semantic.Classifier
}

// NewPreFilter creates a PreFilter from an entity extractor and a context classifier.
func NewPreFilter(extractor *entity.Extractor, contexts *semantic.Classifier) *PreFilter {
	return &PreFilter{extractor: extractor, contexts: contexts}
}

// Filter returns the candidates sharing at least one entity with question,
// highest EntityScore first. A candidate sharing exactly one entity must also
// be context-compatible; two or more shared entities are kept regardless.
func (p *PreFilter) Filter(question string, pool []models.TargetEvent) []Candidate {
	sourceKeys := entity.Keys(p.extractor.Extract(question))
	if len(sourceKeys) == 0 {
		return nil
	}
	sourceCtx := p.contexts.Classify(question)

	var candidates []Candidate
	for i := range pool {
		event := &pool[i]
		text := event.Text()

		candidateKeys := entity.Keys(p.extractor.Extract(text))
		if len(candidateKeys) == 0 {
			continue
		}

		matched := intersect(sourceKeys, candidateKeys)
		if len(matched) == 0 {
			continue
		}

		candidateCtx := p.contexts.Classify(text)
		compatible := p.contexts.Compatible(sourceCtx, candidateCtx)
		if len(matched) == 1 && !compatible {
			continue
		}

		candidates = append(candidates, Candidate{
			Event:             event,
			TargetEventID:     event.ID,
			Title:             event.Title,
			Subtitle:          event.Subtitle,
			EntityScore:       diceScore(len(matched), len(sourceKeys), len(candidateKeys)),
			MatchedEntities:   matched,
			Context:           candidateCtx,
			ContextCompatible: compatible,
		})
	}

	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.EntityScore, a.EntityScore)
	})
	return candidates
}

// diceScore is 2|M| / (|S| + |C|).
func diceScore(matched, source, candidate int) float64 {
	if source+candidate == 0 {
		return 0
	}
	return 2 * float64(matched) / float64(source+candidate)
}

// intersect returns the keys of a that also appear in b, in a's order.
func intersect(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, k := range b {
		inB[k] = true
	}
	var out []string
	for _, k := range a {
		if inB[k] {
			out = append(out, k)
		}
	}
	return out
}
