package semantic

// Rules is the immutable keyword and adjacency configuration a Classifier is
// built from. Order fixes the tie-break: on equal keyword counts the context
// listed first wins.
type Rules struct {
	Order     []Context
	Keywords  map[Context][]string
	Adjacency map[Context][]Context
}

// DefaultRules returns a fresh copy of the built-in rules.
func DefaultRules() Rules {
	return Rules{
		Order:     append([]Context(nil), defaultOrder...),
		Keywords:  cloneKeywords(defaultKeywords),
		Adjacency: cloneAdjacency(defaultAdjacency),
	}
}

var defaultOrder = []Context{Leadership, Action, Price, Timing, Outcome, Comparison}

var defaultKeywords = map[Context][]string{
	Leadership: {
		"president", "election", "elected", "nominee", "nomination", "prime minister",
		"leader", "ceo", "chair", "speaker", "resign", "impeach", "cabinet", "appoint",
		"governor", "senate",
	},
	Action: {
		"sign", "ban", "announce", "launch", "invade", "meet", "visit", "pardon",
		"veto", "fire", "sue", "arrest", "release", "strike", "attack", "deport",
	},
	Price:      {"price", "above", "below", "reach", "$", "close at", "market cap", "trade at"},
	Timing:     {"before", "by end of", "when", "date", "until"},
	Outcome:    {"win", "lose", "winner", "champion", "victory", "defeat", "result", "margin", "majority", "seats"},
	Comparison: {"more than", "less than", " vs ", "versus", "compared", "outperform", "higher than", "lower than"},
}

// Adjacency is directional as written; Compatible checks both directions.
var defaultAdjacency = map[Context][]Context{
	Leadership: {Outcome, Timing},
	Action:     {Timing, Outcome},
	Price:      {Timing, Comparison},
	Outcome:    {Comparison},
}

func cloneKeywords(in map[Context][]string) map[Context][]string {
	out := make(map[Context][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func cloneAdjacency(in map[Context][]Context) map[Context][]Context {
	out := make(map[Context][]Context, len(in))
	for k, v := range in {
		out[k] = append([]Context(nil), v...)
	}
	return out
}
