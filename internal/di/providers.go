package di

import (
	"fmt"
	"time"

	"StockWatch/internal/domain/repository"
	"StockWatch/internal/handler/api"
	internalrepo "StockWatch/internal/repository"
	svcache "StockWatch/internal/service/cache"
	"StockWatch/internal/service/news"
	"StockWatch/internal/service/ratelimit"
	"StockWatch/internal/service/watchlist"
	"StockWatch/internal/service/yahoo"
	"StockWatch/internal/usecase"
	pkgcache "StockWatch/pkg/cache"
	"StockWatch/pkg/config"
	xhttp "StockWatch/pkg/http"
	pkgkafka "StockWatch/pkg/kafka"
	applogger "StockWatch/pkg/logger"
	"StockWatch/pkg/metrics"
	"StockWatch/pkg/server"
)

// ProvideLogger creates the app logger, with Kafka log aggregation when a
// log topic is configured.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKVStore creates the shared key-value cache: Redis when enabled,
// in-process memory otherwise.
func ProvideKVStore(cfg *config.Config) (pkgcache.Service, error) {
	if cfg.Redis.Enabled {
		store, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Redis.Host),
			pkgcache.WithRedisPort(cfg.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return store, nil
	}
	return pkgcache.NewMemoryCache(), nil
}

// ProvideMarketData creates the upstream quote client.
func ProvideMarketData(cfg *config.Config) repository.MarketData {
	return yahoo.New(cfg.Upstream.BaseURL, cfg.Upstream.UserAgent, cfg.Upstream.CallTimeout)
}

// ProvideWatchlist builds the fallback chain: Notion, then the cached last
// good copy, then the static list.
func ProvideWatchlist(cfg *config.Config, store pkgcache.Service, logger *applogger.Logger) repository.WatchlistSource {
	var notion repository.WatchlistSource
	if cfg.Watchlist.NotionToken != "" && cfg.Watchlist.NotionDatabaseID != "" {
		notion = watchlist.NewNotion(cfg.Watchlist.NotionToken, cfg.Watchlist.NotionDatabaseID, cfg.Watchlist.RequestTimeout)
	}
	return watchlist.NewProvider(notion, store, cfg.Watchlist.FallbackMaxAge, cfg.Watchlist.Static, cfg.Watchlist.Sectors, logger)
}

// ProvideNews creates the RSS news source.
func ProvideNews(cfg *config.Config) repository.NewsSource {
	return news.NewRSS(cfg.News.Timeout)
}

// ProvideSnapshotCache creates the snapshot cache with a Redis mirror when
// a shared store is available.
func ProvideSnapshotCache(cfg *config.Config, store pkgcache.Service, m repository.Metrics, logger *applogger.Logger) *svcache.SnapshotCache {
	opts := []svcache.SnapshotOption{svcache.WithMetrics(m)}
	if cfg.Redis.Enabled {
		opts = append(opts, svcache.WithMirror(store, cfg.Refresh.SnapshotTTL))
	}
	return svcache.NewSnapshot(cfg.Refresh.SnapshotTTL, logger, opts...)
}

// ProvidePublisher creates the snapshot commit publisher, or nil without
// Kafka.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer, logger *applogger.Logger) repository.SnapshotPublisher {
	if producer == nil || cfg.Kafka.Topic == "" {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic, logger)
}

// ProvideRefresher wires the refresh cycle.
func ProvideRefresher(
	cfg *config.Config,
	market repository.MarketData,
	wl repository.WatchlistSource,
	ns repository.NewsSource,
	pub repository.SnapshotPublisher,
	m repository.Metrics,
	cache *svcache.SnapshotCache,
	logger *applogger.Logger,
) *usecase.Refresher {
	pacer := ratelimit.NewPacer(cfg.Refresh.PacePerSec, int(cfg.Refresh.PaceBurst))
	return usecase.NewRefresher(market, wl, ns, pub, m, cache, pacer, usecase.NewAnalytics(), logger, usecase.RefresherConfig{
		Workers:       cfg.Refresh.Workers,
		Retries:       cfg.Refresh.Retries,
		RetryBackoff:  cfg.Refresh.RetryBackoff,
		CallTimeout:   cfg.Upstream.CallTimeout,
		CycleDeadline: cfg.Refresh.CycleDeadline,
		HistoryDays:   cfg.Upstream.HistoryDays,
		MoversTopN:    cfg.Refresh.MoversTopN,
		NewsPerSymbol: cfg.News.MaxPerSymbol,
		MarketNews:    cfg.News.MarketLimit,
		SectorPreview: 5,
	})
}

// ProvideStream creates the WebSocket push handler.
func ProvideStream(logger *applogger.Logger) *api.StreamHandler {
	return api.NewStreamHandler(logger)
}

// ProvideHandler creates the dashboard HTTP handler.
func ProvideHandler(logger *applogger.Logger, refresher *usecase.Refresher, cache *svcache.SnapshotCache, stream *api.StreamHandler) xhttp.Handler {
	return api.NewDashboardEchoHandler(logger, refresher, cache, stream)
}

// ProvideApp assembles the application with its shutdown order.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	refresher *usecase.Refresher,
	cache *svcache.SnapshotCache,
	stream *api.StreamHandler,
	handler xhttp.Handler,
	pub repository.SnapshotPublisher,
	store pkgcache.Service,
) *server.App {
	var closers []server.Closer
	if pub != nil {
		closers = append(closers, pub)
	}
	closers = append(closers, store)
	return server.New(cfg, logger, refresher, cache, stream, handler, closers)
}
