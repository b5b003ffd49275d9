package matcher

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rewired-gh/polymatch/internal/logger"
	"github.com/rewired-gh/polymatch/internal/models"
)

// Thresholds of the decision policy.
const (
	// StrongMatchEntities is the matched-entity count at which a
	// context-compatible top candidate is accepted without the classifier.
	StrongMatchEntities = 3
	// MinClassifierConfidence is the lowest classifier confidence accepted.
	MinClassifierConfidence = 25
	// FallbackMinScore is the entity score a top candidate needs to be used
	// when the classifier is unavailable or unsure.
	FallbackMinScore = 0.4
)

const (
	reasonNoOverlap    = "no entity overlap found"
	reasonNoConfidence = "no confident match"
)

// Outcome wraps a MatchResult with how it was reached.
type Outcome struct {
	Result            models.MatchResult
	ClassifierInvoked bool
	ClassifierStatus  Status
}

// Engine applies the tiered match policy. It holds no per-call state and may
// be shared, but the batch runner calls it sequentially.
type Engine struct {
	prefilter     *PreFilter
	classifier    MatchClassifier
	maxCandidates int
	now           func() time.Time
}

// NewEngine creates an Engine. maxCandidates is clamped to
// [1, MaxClassifierCandidates].
func NewEngine(prefilter *PreFilter, classifier MatchClassifier, maxCandidates int) *Engine {
	if maxCandidates < 1 || maxCandidates > MaxClassifierCandidates {
		maxCandidates = MaxClassifierCandidates
	}
	return &Engine{
		prefilter:     prefilter,
		classifier:    classifier,
		maxCandidates: maxCandidates,
		now:           time.Now,
	}
}

// Decide always produces a result; "none" is a valid outcome, not an error.
// ExpiresAt is left for the store to set.
func (e *Engine) Decide(ctx context.Context, source models.MarketRef, pool []models.TargetEvent) Outcome {
	base := models.MatchResult{
		SourceMarketID: source.ID,
		SourceQuestion: source.Question,
		MatchedAt:      e.now(),
	}

	candidates := e.prefilter.Filter(source.Question, pool)
	if len(candidates) == 0 {
		return Outcome{Result: noMatch(base, reasonNoOverlap)}
	}

	top := candidates[0]
	if len(top.MatchedEntities) >= StrongMatchEntities && top.ContextCompatible {
		result := accept(base, top, models.MatchMethodEntity,
			math.Min(top.EntityScore*1.5, 0.95),
			int(math.Round(math.Min(top.EntityScore*150, 95))),
			top.MatchedEntities,
			fmt.Sprintf("strong entity match on %d shared entities", len(top.MatchedEntities)))
		return Outcome{Result: result}
	}

	sent := candidates
	if len(sent) > e.maxCandidates {
		sent = sent[:e.maxCandidates]
	}

	cls := e.classifier.Classify(ctx, source.Question, sent)
	out := Outcome{ClassifierInvoked: true, ClassifierStatus: cls.Status}

	switch cls.Status {
	case StatusUnavailable:
		logger.Warn("Classifier unavailable for market %s: %s", source.ID, cls.Detail)
	case StatusMalformed:
		logger.Warn("Classifier returned malformed output for market %s: %s", source.ID, cls.Detail)
	}

	d := cls.Decision
	if cls.Status != StatusOK || d.EventIndex < 0 || d.Confidence < MinClassifierConfidence {
		out.Result = e.fallback(base, top, cls)
		return out
	}

	if d.EventIndex >= len(sent) {
		out.Result = noMatch(base, fmt.Sprintf("classifier returned out-of-bounds index %d for %d candidates", d.EventIndex, len(sent)))
		return out
	}

	chosen := sent[d.EventIndex]
	entities := d.MatchedConcepts
	if len(entities) == 0 {
		entities = chosen.MatchedEntities
	}
	out.Result = accept(base, chosen, models.MatchMethodAI, float64(d.Confidence)/100, d.Confidence, entities, d.Reasoning)
	return out
}

// fallback uses the top pre-filter candidate when the classifier could not
// produce a confident pick.
func (e *Engine) fallback(base models.MatchResult, top Candidate, cls Classification) models.MatchResult {
	if top.EntityScore >= FallbackMinScore && top.ContextCompatible {
		reason := fmt.Sprintf("fallback to entity match (score %.2f): classifier %s", top.EntityScore, cls.Status)
		if cls.Status == StatusOK {
			reason = fmt.Sprintf("fallback to entity match (score %.2f): classifier confidence %d at index %d",
				top.EntityScore, cls.Decision.Confidence, cls.Decision.EventIndex)
		}
		return accept(base, top, models.MatchMethodEntity,
			top.EntityScore,
			int(math.Round(top.EntityScore*100)),
			top.MatchedEntities,
			reason)
	}

	if cls.Status == StatusOK && cls.Decision.Reasoning != "" {
		return noMatch(base, cls.Decision.Reasoning)
	}
	return noMatch(base, reasonNoConfidence)
}

func accept(base models.MatchResult, cand Candidate, method models.MatchMethod, similarity float64, confidence int, entities []string, reasoning string) models.MatchResult {
	r := base
	r.TargetEventID = cand.TargetEventID
	r.TargetTitle = cand.Title
	if cand.Event != nil {
		if m := cand.Event.BestMarket(); m != nil {
			r.TargetMarketID = m.ID
		}
	}
	r.Similarity = similarity
	r.Confidence = confidence
	r.MatchMethod = method
	r.MatchedEntities = append([]string(nil), entities...)
	r.Reasoning = reasoning
	return r
}

func noMatch(base models.MatchResult, reasoning string) models.MatchResult {
	r := base
	r.MatchMethod = models.MatchMethodNone
	r.MatchedEntities = []string{}
	r.Reasoning = reasoning
	return r
}
