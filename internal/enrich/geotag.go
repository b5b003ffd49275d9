package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rewired-gh/polymatch/internal/models"
	"github.com/rewired-gh/polymatch/internal/textgen"
)

type geoTagPayload struct {
	Scope     string  `json:"scope" validate:"required,oneof=global country region city none"`
	Country   string  `json:"country"`
	Region    string  `json:"region"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

func (e *Enricher) geoTagOne(ctx context.Context, ref models.MarketRef) error {
	text, err := e.generator.Generate(ctx, GeoTagPrompt(ref.Question))
	if err != nil {
		return err
	}

	tag, err := e.parseGeoTag(text)
	if err != nil {
		return err
	}
	tag.MarketID = ref.ID

	return e.store.StoreGeoTag(ctx, tag, e.cfg.GeoTagTTL)
}

// parseGeoTag decodes and validates a geotag. Local scopes need a country;
// global and none carry no place or coordinates.
func (e *Enricher) parseGeoTag(text string) (*models.GeoTag, error) {
	var payload geoTagPayload
	if err := textgen.DecodeJSON(text, &payload); err != nil {
		return nil, fmt.Errorf("decode geotag: %w", err)
	}
	payload.Scope = strings.ToLower(strings.TrimSpace(payload.Scope))
	if err := e.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("validate geotag: %w", err)
	}

	tag := &models.GeoTag{Scope: payload.Scope}
	switch payload.Scope {
	case models.GeoScopeGlobal, models.GeoScopeNone:
		return tag, nil
	}

	tag.Country = strings.TrimSpace(payload.Country)
	if tag.Country == "" {
		return nil, errors.New("validate geotag: country is required for a local scope")
	}
	tag.Region = strings.TrimSpace(payload.Region)
	tag.City = strings.TrimSpace(payload.City)
	tag.Latitude = payload.Latitude
	tag.Longitude = payload.Longitude
	return tag, nil
}

// GeoTagPrompt renders the geotag prompt for a market question.
func GeoTagPrompt(question string) string {
	var b strings.Builder
	b.WriteString("Locate the real-world event behind a prediction market question.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Pick the narrowest scope that fits:\n")
	b.WriteString("- global: worldwide or not tied to one place\n")
	b.WriteString("- country, region or city: tied to that place (give its name and approximate centre coordinates)\n")
	b.WriteString("- none: no geographic aspect at all\n\n")
	b.WriteString(`Respond with JSON only: {"scope": "...", "country": "...", "region": "...", "city": "...", "latitude": 0, "longitude": 0}`)
	return b.String()
}
