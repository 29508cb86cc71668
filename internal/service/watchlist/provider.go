package watchlist

import (
	"context"
	"fmt"
	"time"

	"StockWatch/internal/domain/models"
	drepo "StockWatch/internal/domain/repository"
	"StockWatch/pkg/cache"
	applogger "StockWatch/pkg/logger"
	"StockWatch/pkg/util"
)

const cacheKey = "watchlist:last_good"

// cachedList wraps a watchlist with its fetch time so staleness can be
// judged on read.
type cachedList struct {
	FetchedAt time.Time        `json:"fetched_at"`
	Entries   models.Watchlist `json:"entries"`
}

// Provider resolves the watchlist with a fallback chain: the live source
// first, then the last good copy if recent enough, then the static list
// from configuration. A refresh cycle never starts without some symbol set.
type Provider struct {
	source drepo.WatchlistSource
	cache  cache.Service
	maxAge time.Duration
	static models.Watchlist
	logger *applogger.Logger
}

// NewProvider creates the fallback chain. source may be nil when no Notion
// credentials are configured; the static list then serves every cycle.
func NewProvider(source drepo.WatchlistSource, c cache.Service, maxAge time.Duration, staticSymbols []string, sectors map[string]string, logger *applogger.Logger) *Provider {
	static := make(models.Watchlist, 0, len(staticSymbols))
	for _, s := range staticSymbols {
		sym := util.NormalizeSymbol(s)
		static = append(static, models.WatchlistEntry{
			Symbol: sym,
			Sector: sectors[sym],
			Status: models.StatusWatching,
		})
	}
	return &Provider{
		source: source,
		cache:  c,
		maxAge: maxAge,
		static: static,
		logger: logger,
	}
}

// ListWatchlist returns the active watchlist, falling back through the chain.
func (p *Provider) ListWatchlist(ctx context.Context) (models.Watchlist, error) {
	if p.source != nil {
		list, err := p.source.ListWatchlist(ctx)
		if err == nil {
			p.remember(ctx, list)
			return list, nil
		}
		p.logger.Warn("watchlist source failed, falling back",
			applogger.Error(err))

		if cached, ok := p.lastGood(ctx); ok {
			return cached, nil
		}
	}

	if len(p.static) > 0 {
		return p.static, nil
	}
	return nil, fmt.Errorf("watchlist: no source available")
}

func (p *Provider) remember(ctx context.Context, list models.Watchlist) {
	if p.cache == nil {
		return
	}
	err := p.cache.Set(ctx, cacheKey, cachedList{
		FetchedAt: time.Now().UTC(),
		Entries:   list,
	}, p.maxAge)
	if err != nil {
		p.logger.Warn("watchlist cache write failed", applogger.Error(err))
	}
}

func (p *Provider) lastGood(ctx context.Context) (models.Watchlist, bool) {
	if p.cache == nil {
		return nil, false
	}
	var stored cachedList
	if err := p.cache.Get(ctx, cacheKey, &stored); err != nil {
		return nil, false
	}
	if time.Since(stored.FetchedAt) > p.maxAge || len(stored.Entries) == 0 {
		return nil, false
	}
	p.logger.Info("using cached watchlist",
		applogger.Int("entries", len(stored.Entries)),
		applogger.Duration("age", time.Since(stored.FetchedAt)))
	return stored.Entries, true
}
