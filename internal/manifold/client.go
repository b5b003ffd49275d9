// Package manifold fetches open binary markets from the source venue and maps
// them onto models.SourceMarket.
package manifold

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/polymatch/internal/config"
	"github.com/rewired-gh/polymatch/internal/logger"
	"github.com/rewired-gh/polymatch/internal/models"
	"github.com/rewired-gh/polymatch/internal/venue"
)

// Market kinds accepted for matching.
const (
	OutcomeTypeBinary = "BINARY"
	MechanismCPMM     = "cpmm-1"
)

const siteURL = "https://manifold.markets"

// LiteMarket is a market as returned by GET /v0/markets.
type LiteMarket struct {
	ID              string   `json:"id"`
	CreatorUsername string   `json:"creatorUsername"`
	Question        string   `json:"question"`
	Slug            string   `json:"slug"`
	URL             string   `json:"url"`
	TextDescription string   `json:"textDescription"`
	Probability     *float64 `json:"probability"`
	Volume          float64  `json:"volume"`
	Volume24Hours   *float64 `json:"volume24Hours"`
	IsResolved      bool     `json:"isResolved"`
	CloseTime       int64    `json:"closeTime"` // Unix ms
	Mechanism       string   `json:"mechanism"`
	OutcomeType     string   `json:"outcomeType"`
	LastUpdatedTime int64    `json:"lastUpdatedTime"` // Unix ms
}

// Client provides access to the source venue API.
type Client struct {
	apiBaseURL string
	limit      int
	maxPages   int
	fetcher    *venue.Fetcher
}

// NewClient creates a new source venue client.
func NewClient(cfg config.ManifoldConfig) *Client {
	maxPages := cfg.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	return &Client{
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		limit:      cfg.Limit,
		maxPages:   maxPages,
		fetcher:    venue.NewFetcher(cfg.HTTPClientConfig),
	}
}

// FetchMarkets pages backwards through the market listing and returns the
// binary CPMM markets found within the page budget. Resolved markets are kept
// with IsResolved set so storage can retire them.
func (c *Client) FetchMarkets(ctx context.Context) ([]models.SourceMarket, error) {
	var markets []models.SourceMarket
	before := ""
	skipped, resolved := 0, 0

	for page := 0; page < c.maxPages; page++ {
		batch, err := c.fetchPage(ctx, before)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch markets page %d: %w", page+1, err)
		}

		for _, lm := range batch {
			if !accept(lm) {
				skipped++
				continue
			}
			if lm.IsResolved {
				resolved++
			}
			markets = append(markets, toSourceMarket(lm))
		}

		if len(batch) < c.limit {
			break
		}
		before = batch[len(batch)-1].ID
	}

	logger.Info("Fetched %d source markets (%d resolved, %d skipped as non-binary)", len(markets), resolved, skipped)
	return markets, nil
}

func (c *Client) fetchPage(ctx context.Context, before string) ([]LiteMarket, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.limit))
	if before != "" {
		q.Set("before", before)
	}

	var page []LiteMarket
	if err := c.fetcher.GetJSON(ctx, c.apiBaseURL+"/v0/markets?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return page, nil
}

func accept(lm LiteMarket) bool {
	return lm.OutcomeType == OutcomeTypeBinary &&
		lm.Mechanism == MechanismCPMM &&
		lm.ID != "" &&
		normalizeQuestion(lm.Question) != ""
}

func toSourceMarket(lm LiteMarket) models.SourceMarket {
	return models.SourceMarket{
		ID:          lm.ID,
		Question:    normalizeQuestion(lm.Question),
		Slug:        lm.Slug,
		URL:         marketURL(lm),
		Description: strings.TrimSpace(lm.TextDescription),
		Probability: normalizeProbability(lm.Probability),
		Volume:      max(lm.Volume, 0),
		Volume24h:   normalizeVolume24h(lm.Volume24Hours),
		IsResolved:  lm.IsResolved,
		CloseTime:   millis(lm.CloseTime),
		Mechanism:   lm.Mechanism,
		OutcomeType: lm.OutcomeType,
		UpdatedAt:   millis(lm.LastUpdatedTime),
	}
}

// normalizeQuestion trims the question and collapses internal whitespace.
func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// normalizeProbability clamps to [0, 1]; a missing probability is 0.
func normalizeProbability(p *float64) float64 {
	if p == nil {
		return 0
	}
	return min(max(*p, 0), 1)
}

// normalizeVolume24h returns the reported 24h volume, or 0 when absent or negative.
func normalizeVolume24h(v *float64) float64 {
	if v == nil {
		return 0
	}
	return max(*v, 0)
}

// marketURL prefers the API's url, then creator/slug, then the bare id.
func marketURL(lm LiteMarket) string {
	if lm.URL != "" {
		return lm.URL
	}
	if lm.CreatorUsername != "" && lm.Slug != "" {
		return fmt.Sprintf("%s/%s/%s", siteURL, lm.CreatorUsername, lm.Slug)
	}
	return fmt.Sprintf("%s/market/%s", siteURL, lm.ID)
}

func millis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
