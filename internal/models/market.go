package models

import (
	"errors"
	"time"
)

// SourceMarket represents a single source-venue question being matched.
// Volume24h drives batch priority: the busiest unmatched markets are matched first.
type SourceMarket struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Slug        string    `json:"slug,omitempty"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
	Probability float64   `json:"probability"` // Current Yes probability (0–1)
	Volume      float64   `json:"volume"`      // Lifetime volume (mana)
	Volume24h   float64   `json:"volume_24h"`  // 24-hour volume (mana)
	IsResolved  bool      `json:"is_resolved"`
	CloseTime   time.Time `json:"close_time"`
	Mechanism   string    `json:"mechanism"`
	OutcomeType string    `json:"outcome_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks that all market fields are valid.
func (m *SourceMarket) Validate() error {
	if m.ID == "" {
		return errors.New("market ID must not be empty")
	}
	if m.Question == "" {
		return errors.New("market question must not be empty")
	}
	if m.Probability < 0.0 || m.Probability > 1.0 {
		return errors.New("probability must be between 0.0 and 1.0")
	}
	if m.Volume < 0 {
		return errors.New("volume must not be negative")
	}
	if m.Volume24h < 0 {
		return errors.New("volume 24h must not be negative")
	}
	return nil
}

// MarketRef is the minimal id/question pair handed to the batch jobs.
type MarketRef struct {
	ID       string `json:"id" db:"id"`
	Question string `json:"question" db:"question"`
}
