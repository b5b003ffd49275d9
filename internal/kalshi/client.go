// Package kalshi fetches open events with their nested markets from the
// target venue and maps them onto models.TargetEvent.
package kalshi

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

// Event is an event as returned by GET /events?with_nested_markets=true.
type Event struct {
	EventTicker  string   `json:"event_ticker"`
	SeriesTicker string   `json:"series_ticker"`
	Title        string   `json:"title"`
	SubTitle     string   `json:"sub_title"`
	Category     string   `json:"category"`
	Markets      []Market `json:"markets"`
}

// Market is a nested market. Prices arrive either as integer cents or as
// decimal dollar strings, depending on API version.
type Market struct {
	Ticker           string  `json:"ticker"`
	EventTicker      string  `json:"event_ticker"`
	Title            string  `json:"title"`
	Subtitle         string  `json:"subtitle"`
	YesSubTitle      string  `json:"yes_sub_title"`
	Status           string  `json:"status"`
	YesBid           *int    `json:"yes_bid"`
	YesAsk           *int    `json:"yes_ask"`
	LastPrice        *int    `json:"last_price"`
	YesBidDollars    string  `json:"yes_bid_dollars"`
	YesAskDollars    string  `json:"yes_ask_dollars"`
	LastPriceDollars string  `json:"last_price_dollars"`
	Volume           float64 `json:"volume"`
	Volume24h        float64 `json:"volume_24h"`
	CloseTime        string  `json:"close_time"`
}

type eventsResponse struct {
	Events []Event `json:"events"`
	Cursor string  `json:"cursor"`
}

// Client provides access to the target venue API.
type Client struct {
	apiBaseURL string
	status     string
	pageLimit  int
	maxPages   int
	fetcher    *venue.Fetcher
}

// NewClient creates a new target venue client.
func NewClient(cfg config.KalshiConfig) *Client {
	maxPages := cfg.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	return &Client{
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		status:     cfg.Status,
		pageLimit:  cfg.PageLimit,
		maxPages:   maxPages,
		fetcher:    venue.NewFetcher(cfg.HTTPClientConfig),
	}
}

// FetchEvents follows the listing cursor for up to maxPages pages.
func (c *Client) FetchEvents(ctx context.Context) ([]models.TargetEvent, error) {
	var events []models.TargetEvent
	cursor := ""
	skipped := 0

	for page := 0; page < c.maxPages; page++ {
		resp, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch events page %d: %w", page+1, err)
		}

		for _, e := range resp.Events {
			te, ok := toTargetEvent(e)
			if !ok {
				skipped++
				continue
			}
			events = append(events, te)
		}

		if resp.Cursor == "" || len(resp.Events) == 0 {
			break
		}
		cursor = resp.Cursor
	}

	logger.Info("Fetched %d target events (%d skipped without ticker or title)", len(events), skipped)
	return events, nil
}

func (c *Client) fetchPage(ctx context.Context, cursor string) (*eventsResponse, error) {
	q := url.Values{}
	q.Set("with_nested_markets", "true")
	if c.status != "" {
		q.Set("status", c.status)
	}
	q.Set("limit", strconv.Itoa(c.pageLimit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var resp eventsResponse
	if err := c.fetcher.GetJSON(ctx, c.apiBaseURL+"/events?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func toTargetEvent(e Event) (models.TargetEvent, bool) {
	title := collapse(e.Title)
	if e.EventTicker == "" || title == "" {
		return models.TargetEvent{}, false
	}

	te := models.TargetEvent{
		ID:       e.EventTicker,
		SeriesID: e.SeriesTicker,
		Title:    title,
		Subtitle: eventSubtitle(e),
		Category: strings.TrimSpace(e.Category),
		Markets:  make([]models.TargetMarket, 0, len(e.Markets)),
	}
	for _, m := range e.Markets {
		if m.Ticker == "" {
			continue
		}
		te.Markets = append(te.Markets, models.TargetMarket{
			ID:        m.Ticker,
			EventID:   te.ID,
			Title:     marketTitle(m),
			Status:    strings.ToLower(m.Status),
			YesBid:    normalizePrice(m.YesBidDollars, m.YesBid),
			YesAsk:    normalizePrice(m.YesAskDollars, m.YesAsk),
			LastPrice: normalizePrice(m.LastPriceDollars, m.LastPrice),
			Volume:    max(m.Volume, 0),
			Volume24h: max(m.Volume24h, 0),
			CloseTime: parseTime(m.CloseTime),
		})
	}
	return te, true
}

// eventSubtitle is the event's sub_title. When that is empty and the event has
// exactly one market, the market's yes_sub_title stands in.
func eventSubtitle(e Event) string {
	if s := collapse(e.SubTitle); s != "" {
		return s
	}
	if len(e.Markets) == 1 {
		return collapse(e.Markets[0].YesSubTitle)
	}
	return ""
}

// marketTitle prefers title, then yes_sub_title, then subtitle.
func marketTitle(m Market) string {
	for _, s := range []string{m.Title, m.YesSubTitle, m.Subtitle} {
		if c := collapse(s); c != "" {
			return c
		}
	}
	return ""
}

// normalizePrice returns dollars in [0, 1]. A parseable dollar string wins
// over integer cents; with neither the price is 0.
func normalizePrice(dollars string, cents *int) float64 {
	if dollars != "" {
		if d, err := strconv.ParseFloat(dollars, 64); err == nil {
			return min(max(d, 0), 1)
		}
	}
	if cents != nil {
		return min(max(float64(*cents)/100, 0), 1)
	}
	return 0
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
