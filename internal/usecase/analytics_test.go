package usecase

import (
	"testing"
	"time"

	"StockWatch/internal/domain/models"
)

func present(symbol, sector string, changePct float64) models.SymbolResult {
	return models.SymbolResult{Quote: &models.Quote{
		Symbol:        symbol,
		Sector:        sector,
		ChangePercent: changePct,
		PreviousClose: 100,
		Price:         100 + changePct,
	}}
}

func TestSectorsMeanAndOrdering(t *testing.T) {
	a := NewAnalytics()
	quotes := map[string]models.SymbolResult{
		"AAA": present("AAA", "Technology", 1.0),
		"BBB": present("BBB", "Technology", 3.0),
		"CCC": present("CCC", "Energy", 0.4),
		"DDD": {Absent: models.AbsentUnavailable},
	}

	sectors := a.Sectors(quotes, 5)
	if len(sectors) != 2 {
		t.Fatalf("expected 2 sectors, got %d", len(sectors))
	}
	if sectors[0].Name != "Technology" || sectors[0].ChangePercent != 2.0 {
		t.Fatalf("unexpected leader %+v", sectors[0])
	}
	if sectors[0].Count != 2 {
		t.Fatalf("expected count 2, got %d", sectors[0].Count)
	}
	if sectors[1].Name != "Energy" || sectors[1].ChangePercent != 0.4 {
		t.Fatalf("unexpected runner-up %+v", sectors[1])
	}
}

func TestSectorsTieBreaks(t *testing.T) {
	a := NewAnalytics()
	quotes := map[string]models.SymbolResult{
		"A1": present("A1", "Alpha", 1.0),
		"B1": present("B1", "Beta", 1.0),
		"B2": present("B2", "Beta", 1.0),
		"C1": present("C1", "Gamma", 1.0),
	}

	sectors := a.Sectors(quotes, 5)
	if len(sectors) != 3 {
		t.Fatalf("expected 3 sectors, got %d", len(sectors))
	}
	// equal means: larger sector first, then name ascending
	if sectors[0].Name != "Beta" {
		t.Fatalf("expected Beta first, got %s", sectors[0].Name)
	}
	if sectors[1].Name != "Alpha" || sectors[2].Name != "Gamma" {
		t.Fatalf("unexpected name ordering: %s, %s", sectors[1].Name, sectors[2].Name)
	}
}

func TestSectorsSkipsUnrankable(t *testing.T) {
	a := NewAnalytics()
	noClose := models.SymbolResult{Quote: &models.Quote{Symbol: "IPO", Sector: "Technology", ChangePercent: 5}}
	quotes := map[string]models.SymbolResult{
		"IPO": noClose,
		"AAA": present("AAA", "", 1.0),
	}
	if got := a.Sectors(quotes, 5); len(got) != 0 {
		t.Fatalf("expected no sectors, got %+v", got)
	}
}

func TestMoversRankingAndExclusion(t *testing.T) {
	a := NewAnalytics()
	quotes := map[string]models.SymbolResult{
		"UP1":  present("UP1", "", 4.0),
		"UP2":  present("UP2", "", 2.0),
		"FLAT": present("FLAT", "", 0.0),
		"DN1":  present("DN1", "", -1.0),
		"DN2":  present("DN2", "", -3.0),
		"GONE": {Absent: models.AbsentNotFound},
	}

	movers := a.Movers(quotes, 10)
	if len(movers.Gainers) != 2 || movers.Gainers[0].Symbol != "UP1" || movers.Gainers[1].Symbol != "UP2" {
		t.Fatalf("unexpected gainers %+v", movers.Gainers)
	}
	if len(movers.Losers) != 2 || movers.Losers[0].Symbol != "DN2" || movers.Losers[1].Symbol != "DN1" {
		t.Fatalf("unexpected losers %+v", movers.Losers)
	}
}

func TestMoversCap(t *testing.T) {
	a := NewAnalytics()
	quotes := map[string]models.SymbolResult{
		"A": present("A", "", 1.0),
		"B": present("B", "", 2.0),
		"C": present("C", "", 3.0),
	}
	movers := a.Movers(quotes, 2)
	if len(movers.Gainers) != 2 || movers.Gainers[0].Symbol != "C" {
		t.Fatalf("unexpected capped gainers %+v", movers.Gainers)
	}
	if len(movers.Losers) != 0 {
		t.Fatalf("expected empty losers, got %+v", movers.Losers)
	}
}

func TestDedupNewsKeepsEarliest(t *testing.T) {
	a := NewAnalytics()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := []models.NewsItem{
		{Title: "Chip stocks rally", Source: "Reuters", PublishedAt: base},
		{Title: "chip stocks rally", Source: "reuters", PublishedAt: base.Add(time.Hour)},
		{Title: "Chip stocks rally", Source: "Bloomberg", PublishedAt: base},
	}

	out := a.DedupNews(items, nil)
	if len(out) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out))
	}
	if !out[0].PublishedAt.Equal(base) {
		t.Fatalf("expected earliest kept, got %v", out[0].PublishedAt)
	}
}

func TestDedupNewsTagsWatchlistSymbol(t *testing.T) {
	a := NewAnalytics()
	items := []models.NewsItem{
		{Title: "NVDA beats expectations again", Source: "CNBC"},
		{Title: "Fed holds rates steady", Source: "WSJ"},
	}

	out := a.DedupNews(items, []string{"NVDA", "AAPL"})
	if out[0].Symbol != "NVDA" {
		t.Fatalf("expected NVDA tag, got %q", out[0].Symbol)
	}
	if out[1].Symbol != "" {
		t.Fatalf("expected no tag, got %q", out[1].Symbol)
	}
}

func TestCalendarOrdering(t *testing.T) {
	a := NewAnalytics()
	events := []models.EarningsEvent{
		{Symbol: "B", Date: "2025-07-01"},
		{Symbol: "A", Date: "2025-07-01"},
		{Symbol: "C", Date: "2025-06-15"},
		{Symbol: "B", Date: "2025-07-01"},
	}
	out := a.EarningsCalendar(events)
	if len(out) != 3 {
		t.Fatalf("expected duplicate event dropped, got %d", len(out))
	}
	if out[0].Symbol != "C" || out[1].Symbol != "A" || out[2].Symbol != "B" {
		t.Fatalf("unexpected order %+v", out)
	}
}
