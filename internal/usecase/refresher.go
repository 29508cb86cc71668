package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"StockWatch/internal/domain/models"
	drepo "StockWatch/internal/domain/repository"
	svcache "StockWatch/internal/service/cache"
	"StockWatch/internal/service/ratelimit"
	applogger "StockWatch/pkg/logger"
	"StockWatch/pkg/util"
)

// indexSymbols are the benchmark levels fetched every cycle alongside the
// watchlist. VIX is flagged so presenters skip dollar formatting.
var indexSymbols = []struct {
	symbol       string
	name         string
	isVolatility bool
}{
	{"^GSPC", "S&P 500", false},
	{"^IXIC", "Nasdaq Composite", false},
	{"^DJI", "Dow Jones", false},
	{"^VIX", "VIX", true},
	{"^RUT", "Russell 2000", false},
}

// futuresSymbols are fetched outside regular sessions to keep the board
// moving when the cash market is closed.
var futuresSymbols = []struct {
	symbol string
	name   string
}{
	{"ES=F", "S&P 500 Futures"},
	{"NQ=F", "Nasdaq Futures"},
	{"YM=F", "Dow Futures"},
	{"RTY=F", "Russell 2000 Futures"},
}

// RefresherConfig carries the knobs of one refresh cycle.
type RefresherConfig struct {
	Workers       int
	Retries       int
	RetryBackoff  time.Duration
	CallTimeout   time.Duration
	CycleDeadline time.Duration
	HistoryDays   int
	MoversTopN    int
	NewsPerSymbol int
	MarketNews    int
	SectorPreview int
}

// Refresher drives the fetch cycle: resolve the watchlist, fan symbol
// fetches across a bounded worker pool, merge the results into an immutable
// snapshot, and commit it. Only one cycle runs at a time; an overlapping
// trigger coalesces into the running one.
type Refresher struct {
	market    drepo.MarketData
	watchlist drepo.WatchlistSource
	news      drepo.NewsSource
	publisher drepo.SnapshotPublisher
	metrics   drepo.Metrics
	cache     *svcache.SnapshotCache
	pacer     *ratelimit.Pacer
	analytics *Analytics
	logger    *applogger.Logger
	cfg       RefresherConfig

	running  atomic.Bool
	onCommit func(*models.Snapshot)
	now      func() time.Time

	// notFound remembers delisted or bogus symbols so they are not
	// refetched every cycle; entries expire to catch relistings.
	notFoundMu sync.Mutex
	notFound   map[string]time.Time
}

// NewRefresher wires the refresh cycle.
func NewRefresher(
	market drepo.MarketData,
	watchlist drepo.WatchlistSource,
	news drepo.NewsSource,
	publisher drepo.SnapshotPublisher,
	metrics drepo.Metrics,
	cache *svcache.SnapshotCache,
	pacer *ratelimit.Pacer,
	analytics *Analytics,
	logger *applogger.Logger,
	cfg RefresherConfig,
) *Refresher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Refresher{
		notFound:  map[string]time.Time{},
		now:       time.Now,
		market:    market,
		watchlist: watchlist,
		news:      news,
		publisher: publisher,
		metrics:   metrics,
		cache:     cache,
		pacer:     pacer,
		analytics: analytics,
		logger:    logger,
		cfg:       cfg,
	}
}

// OnCommit registers a callback invoked after each successful commit.
// Must be set before the first cycle starts.
func (r *Refresher) OnCommit(fn func(*models.Snapshot)) { r.onCommit = fn }

// Running reports whether a cycle is currently in flight.
func (r *Refresher) Running() bool { return r.running.Load() }

// Refresh runs one cycle. When force is false and the current snapshot is
// still within TTL, the cycle is skipped. Returns true when a new snapshot
// was committed.
func (r *Refresher) Refresh(ctx context.Context, force bool) (bool, error) {
	if !force && r.cache.Ready() && !r.cache.Stale() {
		return false, nil
	}
	if !r.running.CompareAndSwap(false, true) {
		// coalesce into the in-flight cycle
		return false, nil
	}
	defer r.running.Store(false)

	start := time.Now()
	r.pacer.Reset()

	cctx, cancel := context.WithTimeout(ctx, r.cfg.CycleDeadline)
	defer cancel()

	list, err := r.watchlist.ListWatchlist(cctx)
	if err != nil {
		r.metrics.RecordError("watchlist")
		return false, err
	}
	if !force && r.cache.Ready() && isWeekend(r.now()) && !list.HasAlwaysOpen() {
		// nothing trades on the weekend; the Friday snapshot stays current
		r.logger.Info("weekend cycle skipped")
		return false, nil
	}
	symbols := make([]string, 0, len(list)+len(indexSymbols)+len(futuresSymbols))
	symbols = append(symbols, list.Symbols()...)
	for _, idx := range indexSymbols {
		symbols = append(symbols, idx.symbol)
	}
	for _, fut := range futuresSymbols {
		symbols = append(symbols, fut.symbol)
	}

	results := r.fetchAll(cctx, symbols)

	snap := r.assemble(cctx, list, results)
	snap.RefreshedAt = time.Now().UTC()

	committed := r.cache.Commit(ctx, snap)
	elapsed := time.Since(start)
	r.metrics.RecordCycleDuration(elapsed.Seconds())

	r.logger.Info("refresh cycle finished",
		applogger.Int("symbols", len(symbols)),
		applogger.Int("failures", snap.FailureCount),
		applogger.Duration("elapsed", elapsed),
		applogger.Bool("committed", committed))

	if !committed {
		return false, nil
	}

	if r.publisher != nil {
		if err := r.publisher.PublishCommit(ctx, snap); err != nil {
			r.logger.Warn("snapshot event publish failed", applogger.Error(err))
		}
	}
	if r.onCommit != nil {
		r.onCommit(snap)
	}
	return true, nil
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// fetchResult pairs a symbol with its per-cycle outcome.
type fetchResult struct {
	symbol string
	result models.SymbolResult
}

func (r *Refresher) fetchAll(ctx context.Context, symbols []string) map[string]models.SymbolResult {
	jobs := make(chan string)
	out := make(chan fetchResult)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				out <- fetchResult{symbol: symbol, result: r.fetchOne(ctx, symbol)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, s := range symbols {
			select {
			case jobs <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make(map[string]models.SymbolResult, len(symbols))
	for res := range out {
		results[res.symbol] = res.result
	}
	// symbols never dispatched before the deadline settle as absent
	for _, s := range symbols {
		if _, ok := results[s]; !ok {
			results[s] = models.SymbolResult{Absent: models.AbsentDeadline}
		}
	}
	return results
}

const notFoundRecheck = time.Hour

// Calendar windows. Yahoo reports the most recent ex-dividend date even
// when it is in the past, so both lists are clipped to an upcoming range.
const (
	earningsWindowDays = 14
	dividendWindowDays = 30
)

func (r *Refresher) rememberNotFound(symbol string) {
	r.notFoundMu.Lock()
	r.notFound[symbol] = time.Now().Add(notFoundRecheck)
	r.notFoundMu.Unlock()
}

func (r *Refresher) knownNotFound(symbol string) bool {
	r.notFoundMu.Lock()
	defer r.notFoundMu.Unlock()
	until, ok := r.notFound[symbol]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(r.notFound, symbol)
		return false
	}
	return true
}

// fetchOne fetches a quote with retries, then best-effort history. A failed
// history fetch degrades the quote to no sparkline rather than absence.
func (r *Refresher) fetchOne(ctx context.Context, symbol string) models.SymbolResult {
	if r.knownNotFound(symbol) {
		return models.SymbolResult{Absent: models.AbsentNotFound}
	}

	var quote *models.Quote
	var lastErr error

	for attempt := 0; attempt <= r.cfg.Retries; attempt++ {
		if err := r.pacer.Wait(ctx); err != nil {
			return models.SymbolResult{Absent: models.AbsentDeadline}
		}

		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		q, err := r.market.FetchQuote(callCtx, symbol)
		cancel()

		if err == nil {
			quote = q
			break
		}
		lastErr = err
		r.metrics.RecordError(errorKind(err))

		switch {
		case errors.Is(err, drepo.ErrNotFound):
			r.rememberNotFound(symbol)
			return models.SymbolResult{Absent: models.AbsentNotFound}
		case errors.Is(err, drepo.ErrMalformed):
			// retrying will not help
			return models.SymbolResult{Absent: models.AbsentMalformed}
		case errors.Is(err, drepo.ErrRateLimited):
			r.pacer.SlowDown()
		}

		if ctx.Err() != nil {
			return models.SymbolResult{Absent: models.AbsentDeadline}
		}
		if attempt < r.cfg.Retries {
			backoff := r.cfg.RetryBackoff * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return models.SymbolResult{Absent: models.AbsentDeadline}
			case <-time.After(backoff):
			}
		}
	}

	if quote == nil {
		r.logger.Warn("symbol fetch failed",
			applogger.String("symbol", symbol),
			applogger.Error(lastErr))
		return models.SymbolResult{Absent: absentReason(lastErr)}
	}

	r.metrics.RecordFetch(models.Classify(symbol).String(), symbol)
	r.metrics.RecordLastPrice(symbol, quote.Price)

	r.attachHistory(ctx, quote)
	return models.SymbolResult{Quote: quote}
}

// attachHistory adds trailing daily closes and the week change. The
// sparkline is all-or-nothing: under two points carries no shape.
func (r *Refresher) attachHistory(ctx context.Context, quote *models.Quote) {
	if err := r.pacer.Wait(ctx); err != nil {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	closes, err := r.market.FetchHistory(callCtx, quote.Symbol, r.cfg.HistoryDays)
	cancel()
	if err != nil {
		r.metrics.RecordError("history")
		return
	}
	if len(closes) < 2 {
		return
	}
	quote.DailyCloses = closes
	if first := closes[0]; first > 0 {
		quote.WeekChangePercent = (closes[len(closes)-1] - first) / first * 100
	}
}

func (r *Refresher) assemble(ctx context.Context, list models.Watchlist, results map[string]models.SymbolResult) *models.Snapshot {
	snap := &models.Snapshot{
		Quotes:  make(map[string]models.SymbolResult, len(list)),
		Indices: make(map[string]*models.IndexQuote, len(indexSymbols)+len(futuresSymbols)),
	}

	for _, entry := range list {
		res, ok := results[entry.Symbol]
		if !ok {
			res = models.SymbolResult{Absent: models.AbsentDeadline}
		}
		if res.Quote != nil {
			res.Quote.Sector = entry.Sector
			if entry.Company != "" {
				res.Quote.Name = entry.Company
			}
		} else {
			snap.FailureCount++
		}
		snap.Quotes[entry.Symbol] = res
	}

	for _, idx := range indexSymbols {
		if res := results[idx.symbol]; res.Quote != nil {
			snap.Indices[idx.symbol] = &models.IndexQuote{
				Symbol:        idx.symbol,
				Name:          idx.name,
				Price:         res.Quote.Price,
				Change:        res.Quote.Change,
				ChangePercent: res.Quote.ChangePercent,
				IsVolatility:  idx.isVolatility,
				DailyCloses:   res.Quote.DailyCloses,
			}
		} else {
			snap.FailureCount++
		}
	}
	for _, fut := range futuresSymbols {
		if res := results[fut.symbol]; res.Quote != nil {
			snap.Indices[fut.symbol] = &models.IndexQuote{
				Symbol:        fut.symbol,
				Name:          fut.name,
				Price:         res.Quote.Price,
				Change:        res.Quote.Change,
				ChangePercent: res.Quote.ChangePercent,
				IsFutures:     true,
			}
		}
		// futures failures are not counted; they are an off-hours nicety
	}

	snap.Sectors = r.analytics.Sectors(snap.Quotes, r.cfg.SectorPreview)
	snap.Movers = r.analytics.Movers(snap.Quotes, r.cfg.MoversTopN)
	snap.News = r.collectNews(ctx, list)
	snap.Earnings, snap.Dividends = r.collectCalendar(ctx, list, results)
	return snap
}

// collectNews gathers market headlines plus per-symbol headlines for
// present watchlist equities, deduplicated. News failures never fail the
// cycle; a snapshot with no news is still a snapshot.
func (r *Refresher) collectNews(ctx context.Context, list models.Watchlist) []models.NewsItem {
	if r.news == nil {
		return nil
	}
	var all []models.NewsItem

	market, err := r.news.MarketNews(ctx, r.cfg.MarketNews)
	if err != nil {
		r.metrics.RecordError("news")
		r.logger.Warn("market news fetch failed", applogger.Error(err))
	} else {
		all = append(all, market...)
	}

	for _, entry := range list {
		if models.Classify(entry.Symbol) != models.KindEquity {
			continue
		}
		items, err := r.news.SymbolNews(ctx, entry.Symbol, r.cfg.NewsPerSymbol)
		if err != nil {
			r.metrics.RecordError("news")
			continue
		}
		all = append(all, items...)
	}

	return r.analytics.DedupNews(all, list.Symbols())
}

// collectCalendar fetches earnings and ex-dividend dates for present
// equities, keeping only events inside their upcoming window. Calendar
// misses are silently skipped.
func (r *Refresher) collectCalendar(ctx context.Context, list models.Watchlist, results map[string]models.SymbolResult) ([]models.EarningsEvent, []models.DividendEvent) {
	var earnings []models.EarningsEvent
	var dividends []models.DividendEvent

	today := util.DateKey(r.now())
	earningsCutoff := util.DateKey(r.now().AddDate(0, 0, earningsWindowDays))
	dividendCutoff := util.DateKey(r.now().AddDate(0, 0, dividendWindowDays))

	for _, entry := range list {
		if models.Classify(entry.Symbol) != models.KindEquity {
			continue
		}
		res, ok := results[entry.Symbol]
		if !ok || res.Quote == nil {
			continue
		}
		if err := r.pacer.Wait(ctx); err != nil {
			break
		}
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		cal, err := r.market.FetchCalendar(callCtx, entry.Symbol)
		cancel()
		if err != nil {
			continue
		}
		name := res.Quote.Name
		if cal.NextEarnings != nil {
			if date := util.DateKey(*cal.NextEarnings); date >= today && date <= earningsCutoff {
				earnings = append(earnings, models.EarningsEvent{
					Symbol: entry.Symbol,
					Name:   name,
					Date:   date,
				})
			}
		}
		if cal.NextExDividend != nil {
			if date := util.DateKey(*cal.NextExDividend); date >= today && date <= dividendCutoff {
				dividends = append(dividends, models.DividendEvent{
					Symbol: entry.Symbol,
					Name:   name,
					ExDate: date,
					Rate:   cal.DividendRate,
				})
			}
		}
	}

	return r.analytics.EarningsCalendar(earnings), r.analytics.DividendCalendar(dividends)
}

// Health reports the cache readiness used by the dashboard and probes.
func (r *Refresher) Health() models.Health {
	h := models.Health{Refreshing: r.running.Load()}
	snap, age, ok := r.cache.Current()
	if !ok {
		return h
	}
	h.CacheReady = true
	seconds := age.Seconds()
	h.AgeSeconds = &seconds
	h.PartialFailureCount = snap.FailureCount
	h.Stale = r.cache.Stale()
	return h
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, drepo.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, drepo.ErrNotFound):
		return "not_found"
	case errors.Is(err, drepo.ErrMalformed):
		return "malformed"
	default:
		return "unavailable"
	}
}

func absentReason(err error) models.AbsentReason {
	switch {
	case errors.Is(err, drepo.ErrNotFound):
		return models.AbsentNotFound
	case errors.Is(err, drepo.ErrMalformed):
		return models.AbsentMalformed
	default:
		return models.AbsentUnavailable
	}
}
