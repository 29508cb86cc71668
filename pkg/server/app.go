package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockWatch/internal/handler/api"
	svcache "StockWatch/internal/service/cache"
	"StockWatch/internal/usecase"
	"StockWatch/pkg/config"
	xhttp "StockWatch/pkg/http"
	applogger "StockWatch/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Closer is anything holding resources released on shutdown.
type Closer interface {
	Close() error
}

// App encapsulates the entire application lifecycle: warm start, the
// scheduled refresh loop, the HTTP server, and graceful shutdown.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	refresher *usecase.Refresher
	cache     *svcache.SnapshotCache
	stream    *api.StreamHandler
	handler   xhttp.Handler
	closers   []Closer

	httpServer *xhttp.Server
	scheduler  *cron.Cron
}

// New creates the App.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	refresher *usecase.Refresher,
	cache *svcache.SnapshotCache,
	stream *api.StreamHandler,
	handler xhttp.Handler,
	closers []Closer,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		refresher: refresher,
		cache:     cache,
		stream:    stream,
		handler:   handler,
		closers:   closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.stream != nil {
		a.refresher.OnCommit(a.stream.Broadcast)
	}

	if a.cache.WarmStart(ctx) {
		a.logger.Info("serving mirrored snapshot until first refresh")
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	// first cycle runs immediately so the dashboard fills without waiting
	// for the schedule
	go func() {
		if _, err := a.refresher.Refresh(ctx, true); err != nil {
			a.logger.Error("initial refresh failed", applogger.Error(err))
		}
	}()

	go a.ageLoop(ctx)

	a.scheduler = cron.New()
	if _, err := a.scheduler.AddFunc(a.cfg.Refresh.Cron, func() {
		if _, err := a.refresher.Refresh(ctx, false); err != nil {
			a.logger.Error("scheduled refresh failed", applogger.Error(err))
		}
	}); err != nil {
		a.logger.Error("invalid refresh schedule, falling back to interval",
			applogger.String("cron", a.cfg.Refresh.Cron),
			applogger.Error(err))
		go a.intervalLoop(ctx)
	} else {
		a.scheduler.Start()
		a.logger.Info("refresh schedule armed",
			applogger.String("cron", a.cfg.Refresh.Cron))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// ageLoop keeps the snapshot age gauge honest between commits.
func (a *App) ageLoop(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.cache.ReportAge()
		}
	}
}

// intervalLoop is the fallback cadence when no valid cron expression is
// configured: refresh whenever the snapshot TTL lapses.
func (a *App) intervalLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Refresh.SnapshotTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.refresher.Refresh(ctx, false); err != nil {
				a.logger.Error("scheduled refresh failed", applogger.Error(err))
			}
		}
	}
}

func (a *App) shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		cronCtx := a.scheduler.Stop()
		select {
		case <-cronCtx.Done():
		case <-time.After(5 * time.Second):
			a.logger.Warn("refresh job still running at shutdown")
		}
	}

	if a.stream != nil {
		a.stream.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
