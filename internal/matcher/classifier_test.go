package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/polymatch/internal/textgen"
)

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func sampleCandidates(n int) []Candidate {
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{
			TargetEventID:   fmt.Sprintf("E%d", i),
			Title:           fmt.Sprintf("Event %d", i),
			MatchedEntities: []string{"trump"},
		}
	}
	return out
}

func TestLLMClassifierParse(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantStatus Status
		want       Decision
	}{
		{
			name:       "plain json",
			text:       `{"eventIndex": 1, "confidence": 88, "reasoning": " same race ", "matchedConcepts": ["trump", " ", "2028"]}`,
			wantStatus: StatusOK,
			want:       Decision{EventIndex: 1, Confidence: 88, Reasoning: "same race", MatchedConcepts: []string{"trump", "2028"}},
		},
		{
			name:       "fenced json",
			text:       "```json\n{\"eventIndex\": -1, \"confidence\": 0, \"reasoning\": \"nothing\"}\n```",
			wantStatus: StatusOK,
			want:       Decision{EventIndex: -1, Confidence: 0, Reasoning: "nothing", MatchedConcepts: []string{}},
		},
		{
			name:       "fractional confidence is rounded",
			text:       `{"eventIndex": 0, "confidence": 72.6}`,
			wantStatus: StatusOK,
			want:       Decision{EventIndex: 0, Confidence: 73, MatchedConcepts: []string{}},
		},
		{name: "not json", text: "I think candidate 2 matches.", wantStatus: StatusMalformed},
		{name: "missing index", text: `{"confidence": 50}`, wantStatus: StatusMalformed},
		{name: "missing confidence", text: `{"eventIndex": 0}`, wantStatus: StatusMalformed},
		{name: "confidence out of range", text: `{"eventIndex": 0, "confidence": 150}`, wantStatus: StatusMalformed},
		{name: "index below -1", text: `{"eventIndex": -3, "confidence": 50}`, wantStatus: StatusMalformed},
		{name: "wrong type", text: `{"eventIndex": "zero", "confidence": 50}`, wantStatus: StatusMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLLMClassifier(&fakeGenerator{text: tt.text})
			got := c.Classify(context.Background(), "Will Trump win?", sampleCandidates(2))

			assert.Equal(t, tt.wantStatus, got.Status, got.Detail)
			if tt.wantStatus == StatusOK {
				assert.Equal(t, tt.want, got.Decision)
			} else {
				assert.NotEmpty(t, got.Detail)
			}
		})
	}
}

func TestLLMClassifierUnavailable(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	got := NewLLMClassifier(gen).Classify(context.Background(), "Will Trump win?", sampleCandidates(1))

	assert.Equal(t, StatusUnavailable, got.Status)
	assert.Contains(t, got.Detail, "connection refused")

	got = NewLLMClassifier(gen).Classify(context.Background(), "Will Trump win?", nil)
	assert.Equal(t, StatusUnavailable, got.Status)
	assert.Len(t, gen.prompts, 1, "no request for an empty candidate list")
}

func TestLLMClassifierMalformedBody(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: invalid character '<'", textgen.ErrMalformedResponse)}
	got := NewLLMClassifier(gen).Classify(context.Background(), "Will Trump win?", sampleCandidates(1))

	assert.Equal(t, StatusMalformed, got.Status)
	assert.Contains(t, got.Detail, "invalid character")
}

func TestLLMClassifierCapsCandidates(t *testing.T) {
	gen := &fakeGenerator{text: `{"eventIndex": -1, "confidence": 0}`}
	NewLLMClassifier(gen).Classify(context.Background(), "Will Trump win?", sampleCandidates(40))

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "[29] Event 29")
	assert.NotContains(t, gen.prompts[0], "[30]")
}

func TestBuildPrompt(t *testing.T) {
	cands := []Candidate{
		{Title: "Who will win the 2028 presidential election?", Subtitle: "Trump vs others", MatchedEntities: []string{"trump"}},
		{Title: "Trump approval rating"},
	}

	p := BuildPrompt("Will Donald Trump win the 2028 election?", cands)

	assert.Equal(t, p, BuildPrompt("Will Donald Trump win the 2028 election?", cands))
	assert.Contains(t, p, `"Will Donald Trump win the 2028 election?"`)
	assert.Contains(t, p, "[0] Who will win the 2028 presidential election? | Trump vs others (shared entities: trump)")
	assert.Contains(t, p, "[1] Trump approval rating\n")
	assert.Contains(t, p, "86-100 = near-identical")
	assert.Contains(t, p, "eventIndex -1")
	assert.True(t, strings.Index(p, "[0]") < strings.Index(p, "[1]"))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "unavailable", StatusUnavailable.String())
	assert.Equal(t, "malformed", StatusMalformed.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
