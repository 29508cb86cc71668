package usecase

import (
	"regexp"
	"sort"
	"strings"

	"StockWatch/internal/domain/models"
)

// Analytics derives sector performance, movers, deduplicated news, and
// calendar groupings from one cycle's merged quotes. All methods are pure
// and run on already-fetched data.
type Analytics struct{}

func NewAnalytics() *Analytics { return &Analytics{} }

// Sectors aggregates present quotes by sector. The sector mean is the plain
// arithmetic mean of constituent percent changes regardless of market cap.
// Quotes with no sector label or no real change signal are skipped.
func (a *Analytics) Sectors(quotes map[string]models.SymbolResult, maxPreview int) []models.SectorPerf {
	type acc struct {
		sum     float64
		symbols []string
	}
	groups := map[string]*acc{}

	for _, res := range quotes {
		q := res.Quote
		if q == nil || q.Sector == "" || !q.HasChange() {
			continue
		}
		g, ok := groups[q.Sector]
		if !ok {
			g = &acc{}
			groups[q.Sector] = g
		}
		g.sum += q.ChangePercent
		g.symbols = append(g.symbols, q.Symbol)
	}

	out := make([]models.SectorPerf, 0, len(groups))
	for name, g := range groups {
		sort.Strings(g.symbols)
		preview := g.symbols
		if maxPreview > 0 && len(preview) > maxPreview {
			preview = preview[:maxPreview]
		}
		out = append(out, models.SectorPerf{
			Name:          name,
			ChangePercent: g.sum / float64(len(g.symbols)),
			Count:         len(g.symbols),
			Symbols:       preview,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ChangePercent != out[j].ChangePercent {
			return out[i].ChangePercent > out[j].ChangePercent
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Movers ranks present quotes by percent change: the top n positive movers
// as gainers and the top n negative movers as losers. A flat quote appears
// in neither list, and absent symbols never appear at all.
func (a *Analytics) Movers(quotes map[string]models.SymbolResult, n int) models.Movers {
	ranked := make([]*models.Quote, 0, len(quotes))
	for _, res := range quotes {
		if res.Quote != nil && res.Quote.HasChange() {
			ranked = append(ranked, res.Quote)
		}
	}

	movers := models.Movers{Gainers: []*models.Quote{}, Losers: []*models.Quote{}}
	for _, q := range ranked {
		switch {
		case q.ChangePercent > 0:
			movers.Gainers = append(movers.Gainers, q)
		case q.ChangePercent < 0:
			movers.Losers = append(movers.Losers, q)
		}
	}

	sort.Slice(movers.Gainers, func(i, j int) bool {
		if movers.Gainers[i].ChangePercent != movers.Gainers[j].ChangePercent {
			return movers.Gainers[i].ChangePercent > movers.Gainers[j].ChangePercent
		}
		return movers.Gainers[i].Symbol < movers.Gainers[j].Symbol
	})
	sort.Slice(movers.Losers, func(i, j int) bool {
		if movers.Losers[i].ChangePercent != movers.Losers[j].ChangePercent {
			return movers.Losers[i].ChangePercent < movers.Losers[j].ChangePercent
		}
		return movers.Losers[i].Symbol < movers.Losers[j].Symbol
	})

	if n > 0 && len(movers.Gainers) > n {
		movers.Gainers = movers.Gainers[:n]
	}
	if n > 0 && len(movers.Losers) > n {
		movers.Losers = movers.Losers[:n]
	}
	return movers
}

var tickerPattern = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

// DedupNews removes duplicate headlines by (title, source), keeping the
// earliest-seen item, and tags untagged items with the first watchlist
// symbol mentioned in the title. Order of first appearance is preserved.
func (a *Analytics) DedupNews(items []models.NewsItem, watchlist []string) []models.NewsItem {
	known := make(map[string]bool, len(watchlist))
	for _, s := range watchlist {
		known[s] = true
	}

	type key struct{ title, source string }
	seen := map[key]bool{}
	out := make([]models.NewsItem, 0, len(items))

	for _, item := range items {
		k := key{strings.ToLower(item.Title), strings.ToLower(item.Source)}
		if seen[k] {
			continue
		}
		seen[k] = true

		if item.Symbol == "" {
			for _, m := range tickerPattern.FindAllString(item.Title, -1) {
				if known[m] {
					item.Symbol = m
					break
				}
			}
		}
		out = append(out, item)
	}
	return out
}

// EarningsCalendar drops duplicate (symbol, date) events and sorts by date
// then symbol.
func (a *Analytics) EarningsCalendar(events []models.EarningsEvent) []models.EarningsEvent {
	type key struct{ symbol, date string }
	seen := make(map[key]bool, len(events))
	out := make([]models.EarningsEvent, 0, len(events))
	for _, ev := range events {
		k := key{ev.Symbol, ev.Date}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// DividendCalendar sorts events by ex-date then symbol.
func (a *Analytics) DividendCalendar(events []models.DividendEvent) []models.DividendEvent {
	out := append([]models.DividendEvent(nil), events...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExDate != out[j].ExDate {
			return out[i].ExDate < out[j].ExDate
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
