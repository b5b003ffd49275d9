package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rewired-gh/polymatch/internal/models"
	"github.com/rewired-gh/polymatch/internal/textgen"
)

const maxSummaryLen = 600

type summaryPayload struct {
	Summary string `json:"summary"`
}

func (e *Enricher) summarizeOne(ctx context.Context, ref models.MarketRef) error {
	text, err := e.generator.Generate(ctx, SummaryPrompt(ref.Question))
	if err != nil {
		return err
	}

	summary, err := parseSummary(text)
	if err != nil {
		return err
	}

	return e.store.StoreSummary(ctx, &models.Summary{MarketID: ref.ID, Summary: summary}, e.cfg.SummaryTTL)
}

// parseSummary accepts {"summary": "..."} or, failing that, plain prose.
func parseSummary(text string) (string, error) {
	var payload summaryPayload
	var summary string
	switch err := textgen.DecodeJSON(text, &payload); {
	case err == nil:
		summary = payload.Summary
	case errors.Is(err, textgen.ErrNoJSON):
		summary = textgen.StripCodeFences(text)
	default:
		return "", fmt.Errorf("decode summary: %w", err)
	}

	summary = strings.Join(strings.Fields(summary), " ")
	if summary == "" {
		return "", errors.New("empty summary")
	}
	if r := []rune(summary); len(r) > maxSummaryLen {
		summary = strings.TrimSpace(string(r[:maxSummaryLen-1])) + "…"
	}
	return summary, nil
}

// SummaryPrompt renders the summary prompt for a market question.
func SummaryPrompt(question string) string {
	var b strings.Builder
	b.WriteString("You explain prediction market questions to a general audience.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("In two or three sentences, say what real-world event the question is about, ")
	b.WriteString("what would make it resolve YES, and why it matters. Do not guess the outcome.\n\n")
	b.WriteString(`Respond with JSON only: {"summary": "<text>"}`)
	return b.String()
}
