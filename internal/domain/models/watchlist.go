package models

// WatchlistStatus is the curation state of a tracked symbol. Only active
// statuses are fetched each cycle.
type WatchlistStatus string

const (
	StatusWatching WatchlistStatus = "Watching"
	StatusHolding  WatchlistStatus = "Holding"
	StatusExited   WatchlistStatus = "Exited"
)

// Active reports whether the status keeps a symbol in the refresh set.
func (s WatchlistStatus) Active() bool {
	return s == StatusWatching || s == StatusHolding
}

// WatchlistEntry is one operator-curated symbol with qualitative metadata.
// Entries are read-only inputs to the refresh cycle; the core never
// mutates them.
type WatchlistEntry struct {
	Symbol    string          `json:"symbol"`
	Company   string          `json:"company,omitempty"`
	Sector    string          `json:"sector,omitempty"`
	Sentiment string          `json:"sentiment,omitempty"`
	Thesis    string          `json:"thesis,omitempty"`
	Catalysts string          `json:"catalysts,omitempty"`
	Status    WatchlistStatus `json:"status"`
}

// Watchlist is an ordered set of entries as returned by the provider.
type Watchlist []WatchlistEntry

// Symbols returns the tickers in watchlist order.
func (w Watchlist) Symbols() []string {
	out := make([]string, 0, len(w))
	for _, e := range w {
		out = append(out, e.Symbol)
	}
	return out
}

// HasAlwaysOpen reports whether any entry trades around the clock, which
// keeps weekend refresh cycles alive.
func (w Watchlist) HasAlwaysOpen() bool {
	for _, e := range w {
		if Classify(e.Symbol) == KindAlwaysOpen {
			return true
		}
	}
	return false
}
