package entity

// Rule lists the patterns that yield entities of one category.
type Rule struct {
	Category Category `json:"category"`
	Patterns []string `json:"patterns"`
}

// Vocabulary is the immutable configuration an Extractor is built from.
// Aliases map a normalized surface form to its canonical key.
type Vocabulary struct {
	Rules   []Rule            `json:"rules"`
	Aliases map[string]string `json:"aliases"`
}

// DefaultVocabulary returns a fresh copy of the built-in vocabulary, tuned for
// political, macro and crypto markets. Bare words like "election" and years are
// deliberately absent: they appear in almost every market and carry no identity.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Rules:   cloneRules(defaultRules),
		Aliases: cloneAliases(defaultAliases),
	}
}

var defaultRules = []Rule{
	{
		Category: People,
		Patterns: []string{
			`(?i)\b(?:donald\s+(?:j\.?\s+)?)?(trump)\b`,
			`(?i)\b(?:joe\s+)?(biden)\b`,
			`(?i)\b(kamala\s+harris|kamala|harris)\b`,
			`(?i)\b(?:j\.?\s?d\.?\s+)?(vance)\b`,
			`(?i)\b(?:elon\s+)?(musk)\b`,
			`(?i)\b(?:vladimir\s+)?(putin)\b`,
			`(?i)\b(?:volodymyr\s+)?(zelenskyy?|zelenskiy)\b`,
			`(?i)\b(xi\s+jinping|jinping)\b`,
			`(?i)\b(?:benjamin\s+|bibi\s+)?(netanyahu)\b`,
			`(?i)\b(?:gavin\s+)?(newsom)\b`,
			`(?i)\b(?:ron\s+)?(desantis)\b`,
			`(?i)\b(?:jerome\s+|jay\s+)?(powell)\b`,
			`(?i)\b(?:keir\s+)?(starmer)\b`,
			`(?i)\b(?:emmanuel\s+)?(macron)\b`,
			`(?i)\b(alexandria\s+ocasio-cortez|ocasio-cortez|aoc)\b`,
			`(?i)\b(?:sam\s+)?(altman)\b`,
		},
	},
	{
		Category: Orgs,
		Patterns: []string{
			`(?i)\b(federal\s+reserve|fomc|fed)\b`,
			`(?i)\b(european\s+central\s+bank|ecb)\b`,
			`(?i)\b(openai)\b`,
			`(?i)\b(spacex)\b`,
			`(?i)\b(tesla)\b`,
			`(?i)\b(nvidia)\b`,
			`(?i)\b(apple)\b`,
			`(?i)\b(google|alphabet)\b`,
			`(?i)\b(microsoft)\b`,
			`(?i)\b(nato)\b`,
			`(?i)\b(opec)\b`,
			`(?i)\b(united\s+nations)\b`,
			`(?i)\b(supreme\s+court|scotus)\b`,
			`(?i)\b(republicans?|gop)\b`,
			`(?i)\b(democrats?|democratic\s+party)\b`,
			`(?i)\b(congress)\b`,
			`(?i)\b(senate)\b`,
		},
	},
	{
		Category: Places,
		Patterns: []string{
			`(?i)\b(united\s+states|usa)\b`,
			`\b(US)\b`,
			`(?i)\b(united\s+kingdom|britain|uk)\b`,
			`(?i)\b(ukraine|russia|china|israel|gaza|iran|taiwan|canada|mexico|india|japan|germany|france|venezuela|north\s+korea)\b`,
			`(?i)\b(ukrainian|russian|chinese|israeli|iranian|canadian|mexican|venezuelan)\b`,
			`(?i)\b(new\s+york\s+city|new\s+york|nyc)\b`,
			`(?i)\b(california|texas|florida|pennsylvania)\b`,
		},
	},
	{
		Category: Topics,
		Patterns: []string{
			`(?i)\b(recession)\b`,
			`(?i)\b(inflation|cpi)\b`,
			`(?i)\b(interest\s+rates?|rate\s+cuts?|rate\s+hikes?)\b`,
			`(?i)\b((?:government\s+)?shutdown)\b`,
			`(?i)\b(tariffs?)\b`,
			`(?i)\b(bitcoin|btc)\b`,
			`(?i)\b(ethereum|eth)\b`,
			`(?i)\b(ceasefire|cease-fire|truce)\b`,
			`(?i)\b(impeach(?:ment|ed)?)\b`,
			`(?i)\b(gdp)\b`,
			`(?i)\b(unemployment|jobless)\b`,
			`(?i)\b(super\s+bowl)\b`,
			`(?i)\b(world\s+cup)\b`,
			`(?i)\b(oscars?|academy\s+awards?)\b`,
			`(?i)\b(nobel\s+peace\s+prize|nobel)\b`,
			`(?i)\b(artificial\s+intelligence)\b`,
		},
	},
}

var defaultAliases = map[string]string{
	// people
	"donald trump":             "trump",
	"donald j. trump":          "trump",
	"joe biden":                "biden",
	"kamala":                   "harris",
	"kamala harris":            "harris",
	"zelenskyy":                "zelensky",
	"zelenskiy":                "zelensky",
	"xi jinping":               "xi",
	"jinping":                  "xi",
	"alexandria ocasio-cortez": "aoc",
	"ocasio-cortez":            "aoc",

	// orgs
	"federal reserve":       "fed",
	"fomc":                  "fed",
	"european central bank": "ecb",
	"alphabet":              "google",
	"united nations":        "un",
	"scotus":                "supreme court",
	"republicans":           "republican",
	"gop":                   "republican",
	"democrats":             "democrat",
	"democratic party":      "democrat",

	// places
	"united states":  "us",
	"usa":            "us",
	"united kingdom": "uk",
	"britain":        "uk",
	"ukrainian":      "ukraine",
	"russian":        "russia",
	"chinese":        "china",
	"israeli":        "israel",
	"iranian":        "iran",
	"canadian":       "canada",
	"mexican":        "mexico",
	"venezuelan":     "venezuela",
	"new york city":  "new york",
	"nyc":            "new york",

	// topics
	"cpi":                     "inflation",
	"interest rate":           "rates",
	"interest rates":          "rates",
	"rate cut":                "rates",
	"rate cuts":               "rates",
	"rate hike":               "rates",
	"rate hikes":              "rates",
	"government shutdown":     "shutdown",
	"tariffs":                 "tariff",
	"btc":                     "bitcoin",
	"eth":                     "ethereum",
	"cease-fire":              "ceasefire",
	"truce":                   "ceasefire",
	"impeach":                 "impeachment",
	"impeached":               "impeachment",
	"jobless":                 "unemployment",
	"oscar":                   "oscars",
	"academy award":           "oscars",
	"academy awards":          "oscars",
	"nobel peace prize":       "nobel",
	"artificial intelligence": "ai",
}

func cloneRules(in []Rule) []Rule {
	out := make([]Rule, len(in))
	for i, r := range in {
		out[i] = Rule{Category: r.Category, Patterns: append([]string(nil), r.Patterns...)}
	}
	return out
}

func cloneAliases(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
