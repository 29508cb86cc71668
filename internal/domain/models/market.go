package models

import "time"

// AbsentReason classifies why a symbol has no usable record for a cycle.
type AbsentReason string

const (
	AbsentNone        AbsentReason = ""
	AbsentUnavailable AbsentReason = "unavailable" // network error or timeout after retries
	AbsentNotFound    AbsentReason = "not_found"   // unknown or delisted symbol
	AbsentMalformed   AbsentReason = "malformed"   // upstream payload did not parse
	AbsentDeadline    AbsentReason = "deadline"    // cycle soft deadline expired before settle
)

// Quote is one symbol's snapshot for a single refresh cycle.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector,omitempty"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	PreviousClose float64 `json:"previous_close"`
	Open          float64 `json:"open"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	Volume        int64   `json:"volume"`
	AvgVolume     int64   `json:"avg_volume"`
	VolumeRatio   float64 `json:"volume_ratio"`
	MarketCap     float64 `json:"market_cap"`

	// DailyCloses holds up to 7 trailing daily closes, oldest first.
	// Either empty (history fetch failed) or at least 2 entries.
	DailyCloses       []float64 `json:"daily_closes"`
	WeekChangePercent float64   `json:"week_change_percent"`

	// Pre/post market deltas apply to equities only; nil for always-open
	// instruments and outside the relevant session.
	PreMarketPrice   *float64 `json:"pre_market_price,omitempty"`
	PreMarketChange  *float64 `json:"pre_market_change,omitempty"`
	PostMarketPrice  *float64 `json:"post_market_price,omitempty"`
	PostMarketChange *float64 `json:"post_market_change,omitempty"`
}

// HasChange reports whether the percent change is backed by real data.
// A quote fetched without a previous close carries no ranking signal.
func (q *Quote) HasChange() bool {
	return q != nil && q.PreviousClose > 0
}

// SymbolResult is the tagged per-symbol outcome of one fetch cycle:
// either a present Quote or an explicit absence with a reason. Absence
// never degrades to a zero-valued Quote.
type SymbolResult struct {
	Quote  *Quote       `json:"quote,omitempty"`
	Absent AbsentReason `json:"absent,omitempty"`
}

// Present reports whether the result carries a usable quote.
func (r SymbolResult) Present() bool { return r.Quote != nil }

// IndexQuote is a benchmark index or futures contract level. The VIX level
// is a raw reading, not a tradable price; IsVolatility lets formatters
// avoid dollar-sign treatment.
type IndexQuote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	IsVolatility  bool      `json:"is_volatility,omitempty"`
	IsFutures     bool      `json:"is_futures,omitempty"`
	DailyCloses   []float64 `json:"daily_closes,omitempty"`
}

// SectorPerf aggregates the equities of one sector for a cycle.
type SectorPerf struct {
	Name          string   `json:"name"`
	ChangePercent float64  `json:"change_percent"` // arithmetic mean of constituents
	Count         int      `json:"count"`
	Symbols       []string `json:"symbols,omitempty"` // preview, capped
}

// Movers holds ranked gainers and losers. Gainers are sorted by percent
// change descending, losers ascending; both exclude absent records.
type Movers struct {
	Gainers []*Quote `json:"gainers"`
	Losers  []*Quote `json:"losers"`
}

// NewsItem is one headline, deduplicated by (Title, Source) within a snapshot.
type NewsItem struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Symbol      string    `json:"symbol,omitempty"` // watchlist symbol mentioned in the title
}

// EarningsEvent is an upcoming earnings report date for a watchlist equity.
type EarningsEvent struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Date   string `json:"date"` // YYYY-MM-DD
}

// DividendEvent is an upcoming ex-dividend date for a watchlist equity.
type DividendEvent struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	ExDate string  `json:"ex_date"` // YYYY-MM-DD
	Rate   float64 `json:"rate,omitempty"`
}

// Snapshot is the immutable bundle of everything one refresh cycle produced.
// Once committed it is never mutated; readers share the pointer.
type Snapshot struct {
	Quotes    map[string]SymbolResult `json:"quotes"`
	Indices   map[string]*IndexQuote  `json:"indices"`
	Sectors   []SectorPerf            `json:"sectors"`
	Movers    Movers                  `json:"movers"`
	News      []NewsItem              `json:"news"`
	Earnings  []EarningsEvent         `json:"earnings"`
	Dividends []DividendEvent         `json:"dividends"`

	RefreshedAt  time.Time `json:"refreshed_at"`
	FailureCount int       `json:"failure_count"` // symbols absent this cycle
}

// PresentQuotes returns the quotes that actually fetched, keyed by symbol.
func (s *Snapshot) PresentQuotes() map[string]*Quote {
	out := make(map[string]*Quote, len(s.Quotes))
	for sym, r := range s.Quotes {
		if r.Present() {
			out[sym] = r.Quote
		}
	}
	return out
}

// EarningsByDate groups earnings events by their date, preserving the
// per-date ordering of the deduplicated event list.
func (s *Snapshot) EarningsByDate() map[string][]EarningsEvent {
	out := make(map[string][]EarningsEvent)
	for _, e := range s.Earnings {
		out[e.Date] = append(out[e.Date], e)
	}
	return out
}

// Health is the readiness summary exposed to dashboard consumers.
type Health struct {
	CacheReady          bool     `json:"cache_ready"`
	AgeSeconds          *float64 `json:"age_seconds"` // nil until first commit
	PartialFailureCount int      `json:"partial_failure_count"`
	Refreshing          bool     `json:"refreshing"`
	Stale               bool     `json:"stale"`
}
