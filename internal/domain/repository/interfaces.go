package repository

import (
	"context"
	"time"

	"StockWatch/internal/domain/models"
)

// MarketData is the upstream per-symbol fetch surface. Each call is
// independently failable; errors are classified with the sentinels in
// errors.go so the scheduler can decide between retry, slow-down, and
// permanent absence.
type MarketData interface {
	// FetchQuote returns the current quote for one symbol. Pre/post-market
	// fields are only populated for equities.
	FetchQuote(ctx context.Context, symbol string) (*models.Quote, error)
	// FetchHistory returns up to days trailing daily closes, oldest first.
	FetchHistory(ctx context.Context, symbol string, days int) ([]float64, error)
	// FetchCalendar returns the next earnings and ex-dividend dates, either
	// of which may be nil when the upstream has no scheduled event.
	FetchCalendar(ctx context.Context, symbol string) (*Calendar, error)
}

// Calendar carries the per-symbol forward-looking dates.
type Calendar struct {
	NextEarnings   *time.Time
	NextExDividend *time.Time
	DividendRate   float64
}

// WatchlistSource returns the operator-curated symbol list with metadata,
// already filtered to actively tracked statuses.
type WatchlistSource interface {
	ListWatchlist(ctx context.Context) (models.Watchlist, error)
}

// NewsSource fetches headlines for the market and for individual symbols.
type NewsSource interface {
	MarketNews(ctx context.Context, limit int) ([]models.NewsItem, error)
	SymbolNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error)
}

// SnapshotPublisher notifies downstream consumers that a snapshot committed.
// Delivery is at-most-once; a lost event only delays the next report.
type SnapshotPublisher interface {
	PublishCommit(ctx context.Context, snap *models.Snapshot) error
	Close() error
}

// Metrics records operational counters for the fetch pipeline.
type Metrics interface {
	RecordFetch(kind, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordCycleDuration(seconds float64)
	RecordSnapshotAge(seconds float64)
}
