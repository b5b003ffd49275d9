package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rewired-gh/polymatch/internal/textgen"
)

// MaxClassifierCandidates bounds how many candidates are sent in one request.
const MaxClassifierCandidates = 30

// Status tells a successful classification apart from the two soft failures.
type Status int

const (
	StatusOK Status = iota
	// StatusUnavailable: transport failure, non-2xx or empty content.
	StatusUnavailable
	// StatusMalformed: the service answered but the answer could not be used,
	// including a 2xx body that is not a completion at all.
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnavailable:
		return "unavailable"
	case StatusMalformed:
		return "malformed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Decision is the classifier's pick among the candidates it was sent.
// EventIndex is -1 when nothing matches.
type Decision struct {
	EventIndex      int
	Confidence      int
	Reasoning       string
	MatchedConcepts []string
}

// Classification is the result of one classifier call. Decision is only
// meaningful when Status is StatusOK; Detail explains a failure.
type Classification struct {
	Status   Status
	Decision Decision
	Detail   string
}

// MatchClassifier picks the candidate that resolves on the same outcome as
// the question. Implementations never return an error; failures are reported
// through Classification.Status.
type MatchClassifier interface {
	Classify(ctx context.Context, question string, candidates []Candidate) Classification
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// decisionPayload is the wire shape. Pointers make missing fields detectable.
type decisionPayload struct {
	EventIndex      *int     `json:"eventIndex" validate:"required,min=-1"`
	Confidence      *float64 `json:"confidence" validate:"required,min=0,max=100"`
	Reasoning       string   `json:"reasoning"`
	MatchedConcepts []string `json:"matchedConcepts"`
}

// LLMClassifier asks a text-generation service to judge candidates.
type LLMClassifier struct {
	generator Generator
	validate  *validator.Validate
}

// NewLLMClassifier creates a classifier over generator.
func NewLLMClassifier(generator Generator) *LLMClassifier {
	return &LLMClassifier{
		generator: generator,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Classify sends at most MaxClassifierCandidates candidates.
func (c *LLMClassifier) Classify(ctx context.Context, question string, candidates []Candidate) Classification {
	if len(candidates) == 0 {
		return Classification{Status: StatusUnavailable, Detail: "no candidates to classify"}
	}
	if len(candidates) > MaxClassifierCandidates {
		candidates = candidates[:MaxClassifierCandidates]
	}

	text, err := c.generator.Generate(ctx, BuildPrompt(question, candidates))
	if errors.Is(err, textgen.ErrMalformedResponse) {
		return Classification{Status: StatusMalformed, Detail: err.Error()}
	}
	if err != nil {
		return Classification{Status: StatusUnavailable, Detail: err.Error()}
	}
	return c.parse(text)
}

func (c *LLMClassifier) parse(text string) Classification {
	var payload decisionPayload
	if err := textgen.DecodeJSON(text, &payload); err != nil {
		return Classification{Status: StatusMalformed, Detail: fmt.Sprintf("decode: %v", err)}
	}
	if err := c.validate.Struct(payload); err != nil {
		return Classification{Status: StatusMalformed, Detail: fmt.Sprintf("validate: %v", err)}
	}

	concepts := make([]string, 0, len(payload.MatchedConcepts))
	for _, concept := range payload.MatchedConcepts {
		if concept = strings.TrimSpace(concept); concept != "" {
			concepts = append(concepts, concept)
		}
	}

	return Classification{
		Status: StatusOK,
		Decision: Decision{
			EventIndex:      *payload.EventIndex,
			Confidence:      int(math.Round(*payload.Confidence)),
			Reasoning:       strings.TrimSpace(payload.Reasoning),
			MatchedConcepts: concepts,
		},
	}
}

// BuildPrompt renders the classification prompt. The output depends only on
// its arguments.
func BuildPrompt(question string, candidates []Candidate) string {
	var b strings.Builder

	b.WriteString("You compare prediction markets listed on two different exchanges.\n\n")
	b.WriteString("SOURCE MARKET:\n")
	fmt.Fprintf(&b, "%q\n\n", question)

	b.WriteString("CANDIDATE EVENTS:\n")
	for i, cand := range candidates {
		fmt.Fprintf(&b, "[%d] %s", i, cand.Title)
		if cand.Subtitle != "" {
			fmt.Fprintf(&b, " | %s", cand.Subtitle)
		}
		if len(cand.MatchedEntities) > 0 {
			fmt.Fprintf(&b, " (shared entities: %s)", strings.Join(cand.MatchedEntities, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Pick the candidate that would resolve YES or NO on the same real-world outcome
as the source market. Judge the resolution criteria: the subject, the event,
the threshold and the deadline must agree. Sharing names or keywords is not
enough. If no candidate qualifies, use eventIndex -1.

CONFIDENCE SCALE:
0 = no match
1-30 = weak, only loosely related
31-60 = related topic but a different outcome
61-85 = strong match with minor differences in wording or timing
86-100 = near-identical resolution criteria

Respond with a single JSON object and nothing else:
{"eventIndex": <candidate index or -1>, "confidence": <0-100>, "reasoning": "<one sentence>", "matchedConcepts": ["<concept>", ...]}
`)
	return b.String()
}
