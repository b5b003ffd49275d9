package models

import (
	"errors"
	"fmt"
	"time"
)

// MatchMethod records which tier of the decision policy produced a result.
type MatchMethod string

const (
	MatchMethodEntity MatchMethod = "entity"
	MatchMethodAI     MatchMethod = "ai"
	MatchMethodNone   MatchMethod = "none"
)

// Valid reports whether m is one of the known methods.
func (m MatchMethod) Valid() bool {
	switch m {
	case MatchMethodEntity, MatchMethodAI, MatchMethodNone:
		return true
	}
	return false
}

// MatchResult is the persisted outcome of one match attempt for a source market.
// A "none" result is a valid outcome and carries no target identifiers.
type MatchResult struct {
	ID              string      `json:"id"`
	SourceMarketID  string      `json:"source_market_id"`
	SourceQuestion  string      `json:"source_question"`
	TargetEventID   string      `json:"target_event_id,omitempty"`
	TargetMarketID  string      `json:"target_market_id,omitempty"`
	TargetTitle     string      `json:"target_title,omitempty"`
	Similarity      float64     `json:"similarity"` // 0–1
	Confidence      int         `json:"confidence"` // 0–100
	MatchMethod     MatchMethod `json:"match_method"`
	MatchedEntities []string    `json:"matched_entities"`
	Reasoning       string      `json:"reasoning"`
	MatchedAt       time.Time   `json:"matched_at"`
	ExpiresAt       time.Time   `json:"expires_at"`
}

// Matched reports whether the result points at a target event.
func (r *MatchResult) Matched() bool {
	return r.MatchMethod != MatchMethodNone && r.TargetEventID != ""
}

// Live reports whether the result has not yet expired at now.
func (r *MatchResult) Live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// Validate checks that all match result fields are valid
func (r *MatchResult) Validate() error {
	if r.SourceMarketID == "" {
		return errors.New("source market ID must not be empty")
	}
	if r.Similarity < 0.0 || r.Similarity > 1.0 {
		return errors.New("similarity must be between 0.0 and 1.0")
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return errors.New("confidence must be between 0 and 100")
	}
	if !r.MatchMethod.Valid() {
		return fmt.Errorf("unknown match method %q", r.MatchMethod)
	}
	if r.MatchMethod == MatchMethodNone && (r.TargetEventID != "" || r.TargetMarketID != "") {
		return errors.New("a 'none' result must not reference a target")
	}
	if r.MatchMethod != MatchMethodNone && r.TargetEventID == "" {
		return errors.New("a matched result must reference a target event")
	}
	return nil
}
