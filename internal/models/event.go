// Package models defines the core domain entities for the polymatch application.
// These models represent source-venue markets, target-venue events, cross-venue
// match results, and the AI-generated summaries and geotags cached per market.
// Persisted models include built-in validation to ensure data integrity.
//
// Terminology:
//   - Source market: a single CPMM question on the source venue. This is the unit we match.
//   - Target event: a binary-contract event page on the target venue, grouping one or more markets.
//   - Target market: one tradable contract inside a target event.
package models

import (
	"errors"
	"strings"
	"time"
)

// Target market statuses that count as tradable when choosing a representative market.
const (
	MarketStatusOpen   = "open"
	MarketStatusActive = "active"
)

// TargetEvent is a target-venue event with its nested markets.
type TargetEvent struct {
	ID        string         `json:"id"`        // Event ticker
	SeriesID  string         `json:"series_id"` // Parent series ticker
	Title     string         `json:"title"`
	Subtitle  string         `json:"subtitle,omitempty"`
	Category  string         `json:"category,omitempty"`
	Markets   []TargetMarket `json:"markets"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TargetMarket is one contract inside a TargetEvent.
type TargetMarket struct {
	ID        string    `json:"id"` // Market ticker
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	YesBid    float64   `json:"yes_bid"` // Dollars (0–1)
	YesAsk    float64   `json:"yes_ask"`
	LastPrice float64   `json:"last_price"`
	Volume    float64   `json:"volume"`
	Volume24h float64   `json:"volume_24h"`
	CloseTime time.Time `json:"close_time"`
}

// Text returns the title and subtitle joined for matching.
func (e *TargetEvent) Text() string {
	if e.Subtitle == "" {
		return e.Title
	}
	return e.Title + " " + e.Subtitle
}

// BestMarket returns the first open or active market, falling back to the first
// market. It returns nil when the event has no markets.
func (e *TargetEvent) BestMarket() *TargetMarket {
	if len(e.Markets) == 0 {
		return nil
	}
	for i := range e.Markets {
		status := strings.ToLower(e.Markets[i].Status)
		if status == MarketStatusOpen || status == MarketStatusActive {
			return &e.Markets[i]
		}
	}
	return &e.Markets[0]
}

// Validate checks that all event fields are valid.
func (e *TargetEvent) Validate() error {
	if e.ID == "" {
		return errors.New("event ID must not be empty")
	}
	if e.Title == "" {
		return errors.New("event title must not be empty")
	}
	for i := range e.Markets {
		m := &e.Markets[i]
		if m.ID == "" {
			return errors.New("market ID must not be empty")
		}
		if m.EventID != e.ID {
			return errors.New("market event ID must match parent event")
		}
		if m.YesBid < 0.0 || m.YesBid > 1.0 || m.YesAsk < 0.0 || m.YesAsk > 1.0 {
			return errors.New("market prices must be between 0.0 and 1.0")
		}
		if m.Volume < 0 || m.Volume24h < 0 {
			return errors.New("market volume must not be negative")
		}
	}
	return nil
}
