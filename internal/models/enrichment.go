package models

import (
	"errors"
	"time"
)

// Summary is an AI-generated plain-language explanation of a source market.
type Summary struct {
	MarketID    string    `json:"market_id"`
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Validate checks that all summary fields are valid
func (s *Summary) Validate() error {
	if s.MarketID == "" {
		return errors.New("market ID must not be empty")
	}
	if s.Summary == "" {
		return errors.New("summary must not be empty")
	}
	return nil
}

// Geographic scopes a market can be tagged with.
const (
	GeoScopeGlobal  = "global"
	GeoScopeCountry = "country"
	GeoScopeRegion  = "region"
	GeoScopeCity    = "city"
	GeoScopeNone    = "none"
)

// GeoTag places a source market on the map.
type GeoTag struct {
	MarketID    string    `json:"market_id"`
	Scope       string    `json:"scope"`
	Country     string    `json:"country,omitempty"`
	Region      string    `json:"region,omitempty"`
	City        string    `json:"city,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Validate checks that all geotag fields are valid
func (g *GeoTag) Validate() error {
	if g.MarketID == "" {
		return errors.New("market ID must not be empty")
	}
	switch g.Scope {
	case GeoScopeGlobal, GeoScopeCountry, GeoScopeRegion, GeoScopeCity, GeoScopeNone:
	default:
		return errors.New("scope must be one of: global, country, region, city, none")
	}
	if g.Latitude < -90 || g.Latitude > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if g.Longitude < -180 || g.Longitude > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}
