package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"StockWatch/internal/domain/models"
	drepo "StockWatch/internal/domain/repository"
	svcache "StockWatch/internal/service/cache"
	"StockWatch/internal/service/ratelimit"
	applogger "StockWatch/pkg/logger"
)

type fakeMarket struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
	errs   map[string]error
	cals   map[string]*drepo.Calendar
	calls  map[string]int
}

func (f *fakeMarket) FetchQuote(_ context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[symbol]++
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, drepo.ErrNotFound
	}
	copied := *q
	return &copied, nil
}

func (f *fakeMarket) FetchHistory(_ context.Context, symbol string, _ int) ([]float64, error) {
	return []float64{100, 101, 102, 103, 105}, nil
}

func (f *fakeMarket) FetchCalendar(_ context.Context, symbol string) (*drepo.Calendar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cal, ok := f.cals[symbol]; ok {
		return cal, nil
	}
	return nil, drepo.ErrNotFound
}

// slowMarket blocks selected symbols until the cycle gives up on them.
type slowMarket struct {
	fakeMarket
	slow map[string]bool
}

func (s *slowMarket) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if s.slow[symbol] {
		<-ctx.Done()
		return nil, fmt.Errorf("quote %s: %w", symbol, drepo.ErrUnavailable)
	}
	return s.fakeMarket.FetchQuote(ctx, symbol)
}

type fakeWatchlist struct {
	list models.Watchlist
	err  error
}

func (f *fakeWatchlist) ListWatchlist(_ context.Context) (models.Watchlist, error) {
	return f.list, f.err
}

type fakeNews struct{}

func (fakeNews) MarketNews(_ context.Context, _ int) ([]models.NewsItem, error) {
	return []models.NewsItem{{Title: "Markets mixed", Source: "Wire"}}, nil
}

func (fakeNews) SymbolNews(_ context.Context, symbol string, _ int) ([]models.NewsItem, error) {
	return nil, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(_, _ string)             {}
func (nopMetrics) RecordError(_ string)                {}
func (nopMetrics) RecordLastPrice(_ string, _ float64) {}
func (nopMetrics) RecordCycleDuration(_ float64)       {}
func (nopMetrics) RecordSnapshotAge(_ float64)         {}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func quoteFixture(symbol string, changePct float64) *models.Quote {
	return &models.Quote{
		Symbol:        symbol,
		Name:          symbol + " Inc",
		Price:         100 + changePct,
		ChangePercent: changePct,
		PreviousClose: 100,
	}
}

func newTestRefresher(t *testing.T, market drepo.MarketData, wl drepo.WatchlistSource) (*Refresher, *svcache.SnapshotCache) {
	t.Helper()
	logger := testLogger(t)
	cache := svcache.NewSnapshot(5*time.Minute, logger)
	r := NewRefresher(
		market, wl, fakeNews{}, nil, nopMetrics{}, cache,
		ratelimit.NewPacer(1000, 100), NewAnalytics(), logger,
		RefresherConfig{
			Workers:       4,
			Retries:       1,
			RetryBackoff:  time.Millisecond,
			CallTimeout:   time.Second,
			CycleDeadline: 5 * time.Second,
			HistoryDays:   7,
			MoversTopN:    10,
			MarketNews:    10,
			SectorPreview: 5,
		})
	return r, cache
}

func TestRefreshPartialFailure(t *testing.T) {
	market := &fakeMarket{
		quotes: map[string]*models.Quote{
			"AAPL": quoteFixture("AAPL", 1.2),
			"MSFT": quoteFixture("MSFT", -0.5),
		},
		errs: map[string]error{"FAIL": drepo.ErrUnavailable},
	}
	for _, idx := range []string{"^GSPC", "^IXIC", "^DJI", "^VIX", "^RUT", "ES=F", "NQ=F", "YM=F", "RTY=F"} {
		market.quotes[idx] = quoteFixture(idx, 0.3)
	}
	wl := &fakeWatchlist{list: models.Watchlist{
		{Symbol: "AAPL", Sector: "Technology", Status: models.StatusWatching},
		{Symbol: "MSFT", Sector: "Technology", Status: models.StatusHolding},
		{Symbol: "FAIL", Status: models.StatusWatching},
	}}

	r, cache := newTestRefresher(t, market, wl)

	committed, err := r.Refresh(context.Background(), true)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !committed {
		t.Fatalf("expected commit")
	}

	snap, _, ok := cache.Current()
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if len(snap.Quotes) != 3 {
		t.Fatalf("expected 3 quote slots, got %d", len(snap.Quotes))
	}
	if !snap.Quotes["AAPL"].Present() || !snap.Quotes["MSFT"].Present() {
		t.Fatalf("expected AAPL and MSFT present")
	}
	res := snap.Quotes["FAIL"]
	if res.Present() || res.Absent != models.AbsentUnavailable {
		t.Fatalf("expected FAIL absent unavailable, got %+v", res)
	}
	if snap.FailureCount != 1 {
		t.Fatalf("expected failure count 1, got %d", snap.FailureCount)
	}
	if len(snap.Indices) != 9 {
		t.Fatalf("expected 9 index entries, got %d", len(snap.Indices))
	}
	if !snap.Indices["^VIX"].IsVolatility {
		t.Fatalf("expected VIX volatility flag")
	}
	if !snap.Indices["ES=F"].IsFutures {
		t.Fatalf("expected futures flag")
	}

	health := r.Health()
	if !health.CacheReady || health.AgeSeconds == nil {
		t.Fatalf("expected ready health, got %+v", health)
	}
	if health.PartialFailureCount != 1 {
		t.Fatalf("expected 1 partial failure, got %d", health.PartialFailureCount)
	}
}

func TestRefreshRetriesUnavailable(t *testing.T) {
	market := &fakeMarket{
		quotes: map[string]*models.Quote{},
		errs:   map[string]error{"AAPL": drepo.ErrUnavailable},
	}
	wl := &fakeWatchlist{list: models.Watchlist{{Symbol: "AAPL", Status: models.StatusWatching}}}

	r, _ := newTestRefresher(t, market, wl)
	if _, err := r.Refresh(context.Background(), true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := market.calls["AAPL"]; got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestRefreshNoRetryOnNotFound(t *testing.T) {
	market := &fakeMarket{
		quotes: map[string]*models.Quote{},
		errs:   map[string]error{"GONE": drepo.ErrNotFound},
	}
	wl := &fakeWatchlist{list: models.Watchlist{{Symbol: "GONE", Status: models.StatusWatching}}}

	r, cache := newTestRefresher(t, market, wl)
	if _, err := r.Refresh(context.Background(), true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := market.calls["GONE"]; got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
	snap, _, _ := cache.Current()
	if snap.Quotes["GONE"].Absent != models.AbsentNotFound {
		t.Fatalf("expected not_found, got %+v", snap.Quotes["GONE"])
	}

	// a second forced cycle remembers the miss and skips the fetch
	if _, err := r.Refresh(context.Background(), true); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if got := market.calls["GONE"]; got != 1 {
		t.Fatalf("expected not-found memory to suppress refetch, got %d calls", got)
	}
}

func TestRefreshSkipsWhenFresh(t *testing.T) {
	market := &fakeMarket{quotes: map[string]*models.Quote{"AAPL": quoteFixture("AAPL", 1)}}
	wl := &fakeWatchlist{list: models.Watchlist{{Symbol: "AAPL", Status: models.StatusWatching}}}

	r, _ := newTestRefresher(t, market, wl)
	if _, err := r.Refresh(context.Background(), true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := market.calls["AAPL"]

	committed, err := r.Refresh(context.Background(), false)
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if committed {
		t.Fatalf("expected skip while snapshot fresh")
	}
	if market.calls["AAPL"] != before {
		t.Fatalf("expected no upstream calls on skip")
	}
}

func TestRefreshCycleDeadline(t *testing.T) {
	market := &slowMarket{
		fakeMarket: fakeMarket{quotes: map[string]*models.Quote{
			"AAPL": quoteFixture("AAPL", 1),
			"SLOW": quoteFixture("SLOW", 2),
		}},
		slow: map[string]bool{"SLOW": true},
	}
	wl := &fakeWatchlist{list: models.Watchlist{
		{Symbol: "AAPL", Status: models.StatusWatching},
		{Symbol: "SLOW", Status: models.StatusWatching},
	}}

	logger := testLogger(t)
	cache := svcache.NewSnapshot(5*time.Minute, logger)
	r := NewRefresher(
		market, wl, fakeNews{}, nil, nopMetrics{}, cache,
		ratelimit.NewPacer(1000, 100), NewAnalytics(), logger,
		RefresherConfig{Workers: 4, RetryBackoff: time.Millisecond,
			CallTimeout: 5 * time.Second, CycleDeadline: 100 * time.Millisecond,
			HistoryDays: 7, MoversTopN: 10})

	committed, err := r.Refresh(context.Background(), true)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !committed {
		t.Fatalf("expected commit despite straggler")
	}
	snap, _, _ := cache.Current()
	if got := snap.Quotes["SLOW"].Absent; got != models.AbsentDeadline {
		t.Fatalf("expected straggler marked deadline, got %q", got)
	}
	if !snap.Quotes["AAPL"].Present() {
		t.Fatalf("expected fast symbol present")
	}
	if snap.FailureCount < 1 {
		t.Fatalf("expected straggler counted in failure count, got %d", snap.FailureCount)
	}
}

func TestCalendarWindows(t *testing.T) {
	now := time.Now()
	pastDividend := now.AddDate(0, 0, -100)
	nearEarnings := now.AddDate(0, 0, 5)
	farEarnings := now.AddDate(0, 0, 90)
	nearDividend := now.AddDate(0, 0, 10)

	market := &fakeMarket{
		quotes: map[string]*models.Quote{
			"AAPL": quoteFixture("AAPL", 1),
			"MSFT": quoteFixture("MSFT", 2),
		},
		cals: map[string]*drepo.Calendar{
			"AAPL": {NextEarnings: &nearEarnings, NextExDividend: &pastDividend},
			"MSFT": {NextEarnings: &farEarnings, NextExDividend: &nearDividend, DividendRate: 0.83},
		},
	}
	wl := &fakeWatchlist{list: models.Watchlist{
		{Symbol: "AAPL", Status: models.StatusWatching},
		{Symbol: "MSFT", Status: models.StatusWatching},
	}}

	r, cache := newTestRefresher(t, market, wl)
	if _, err := r.Refresh(context.Background(), true); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap, _, _ := cache.Current()
	if len(snap.Earnings) != 1 || snap.Earnings[0].Symbol != "AAPL" {
		t.Fatalf("expected only the earnings event inside the window, got %+v", snap.Earnings)
	}
	if len(snap.Dividends) != 1 || snap.Dividends[0].Symbol != "MSFT" {
		t.Fatalf("expected only the upcoming ex-dividend date, got %+v", snap.Dividends)
	}
}

func TestRefreshWeekendSkip(t *testing.T) {
	market := &fakeMarket{quotes: map[string]*models.Quote{"AAPL": quoteFixture("AAPL", 1)}}
	wl := &fakeWatchlist{list: models.Watchlist{{Symbol: "AAPL", Status: models.StatusWatching}}}

	logger := testLogger(t)
	cache := svcache.NewSnapshot(time.Millisecond, logger)
	r := NewRefresher(
		market, wl, fakeNews{}, nil, nopMetrics{}, cache,
		ratelimit.NewPacer(1000, 100), NewAnalytics(), logger,
		RefresherConfig{Workers: 2, Retries: 1, RetryBackoff: time.Millisecond,
			CallTimeout: time.Second, CycleDeadline: 5 * time.Second, HistoryDays: 7, MoversTopN: 10})
	r.now = func() time.Time { return time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC) } // a Saturday

	if _, err := r.Refresh(context.Background(), true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	before := market.calls["AAPL"]

	committed, err := r.Refresh(context.Background(), false)
	if err != nil {
		t.Fatalf("weekend refresh: %v", err)
	}
	if committed {
		t.Fatalf("expected weekend cycle to be skipped")
	}
	if market.calls["AAPL"] != before {
		t.Fatalf("expected no upstream calls on weekend skip")
	}

	// an always-open symbol keeps weekend cycles running
	market.quotes["BTC-USD"] = quoteFixture("BTC-USD", 2)
	wl.list = append(wl.list, models.WatchlistEntry{Symbol: "BTC-USD", Status: models.StatusWatching})
	committed, err = r.Refresh(context.Background(), false)
	if err != nil {
		t.Fatalf("crypto weekend refresh: %v", err)
	}
	if !committed {
		t.Fatalf("expected commit when watchlist has always-open symbols")
	}
}

func TestRefreshWatchlistErrorKeepsCacheEmpty(t *testing.T) {
	market := &fakeMarket{quotes: map[string]*models.Quote{}}
	wl := &fakeWatchlist{err: context.DeadlineExceeded}

	r, cache := newTestRefresher(t, market, wl)
	if _, err := r.Refresh(context.Background(), true); err == nil {
		t.Fatalf("expected error")
	}
	if cache.Ready() {
		t.Fatalf("expected cache to stay empty")
	}
	health := r.Health()
	if health.CacheReady || health.AgeSeconds != nil {
		t.Fatalf("expected not-ready health, got %+v", health)
	}
}

func TestQuoteMetadataMerged(t *testing.T) {
	market := &fakeMarket{quotes: map[string]*models.Quote{"AAPL": quoteFixture("AAPL", 1)}}
	wl := &fakeWatchlist{list: models.Watchlist{
		{Symbol: "AAPL", Company: "Apple", Sector: "Technology", Status: models.StatusHolding},
	}}

	r, cache := newTestRefresher(t, market, wl)
	if _, err := r.Refresh(context.Background(), true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	snap, _, _ := cache.Current()
	q := snap.Quotes["AAPL"].Quote
	if q.Sector != "Technology" || q.Name != "Apple" {
		t.Fatalf("expected metadata merged, got %+v", q)
	}
	if len(q.DailyCloses) != 5 {
		t.Fatalf("expected sparkline, got %v", q.DailyCloses)
	}
	if q.WeekChangePercent != 5 {
		t.Fatalf("expected 5%% week change, got %v", q.WeekChangePercent)
	}
}
