package api

import (
	"context"

	models "StockWatch/internal/domain/models"
	svcache "StockWatch/internal/service/cache"
	"StockWatch/internal/usecase"
	xhttp "StockWatch/pkg/http"
	xlogger "StockWatch/pkg/logger"
	"StockWatch/pkg/util"

	"github.com/labstack/echo/v4"
)

// DashboardEchoHandler serves the aggregated market snapshot over HTTP.
// Every read endpoint answers from the committed snapshot; nothing here
// touches upstream providers.
type DashboardEchoHandler struct {
	logger    *xlogger.Logger
	refresher *usecase.Refresher
	cache     *svcache.SnapshotCache
	stream    *StreamHandler
}

func NewDashboardEchoHandler(logger *xlogger.Logger, refresher *usecase.Refresher, cache *svcache.SnapshotCache, stream *StreamHandler) *DashboardEchoHandler {
	return &DashboardEchoHandler{logger: logger, refresher: refresher, cache: cache, stream: stream}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/quotes", h.Quotes)
	g.GET("/quote", h.Quote)
	g.GET("/indices", h.Indices)
	g.GET("/sectors", h.Sectors)
	g.GET("/movers", h.Movers)
	g.GET("/news", h.News)
	g.GET("/earnings", h.Earnings)
	g.GET("/dividends", h.Dividends)
	g.GET("/all", h.All)
	g.GET("/health", h.Health)
	g.POST("/refresh", h.Refresh)
	if h.stream != nil {
		e.GET("/ws", h.stream.Serve)
	}
}

// stillLoading answers 202 while the first cycle is in flight, so clients
// can tell "no data yet" apart from "the market is just quiet".
func stillLoading(c echo.Context) error {
	return xhttp.AcceptedResponse(c, map[string]interface{}{
		"loading": true,
		"message": "initial refresh in progress",
	})
}

func (h *DashboardEchoHandler) Quotes(c echo.Context) error {
	snap, age, ok := h.cache.Current()
	if !ok {
		return stillLoading(c)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"quotes":      snap.Quotes,
		"age_seconds": age.Seconds(),
	})
}

func (h *DashboardEchoHandler) Quote(c echo.Context) error {
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, _, ok := h.cache.Current()
	if !ok {
		return stillLoading(c)
	}

	symbol := util.NormalizeSymbol(req.Symbol)
	if res, ok := snap.Quotes[symbol]; ok {
		return xhttp.SuccessResponse(c, res)
	}
	if idx, ok := snap.Indices[symbol]; ok {
		return xhttp.SuccessResponse(c, idx)
	}
	return xhttp.NotFoundResponse(c, xhttp.NotFoundErrorf("symbol %s not tracked", symbol))
}

func (h *DashboardEchoHandler) Indices(c echo.Context) error {
	snap, _, ok := h.cache.Current()
	if !ok {
		return stillLoading(c)
	}
	return xhttp.SuccessResponse(c, snap.Indices)
}

func (h *DashboardEchoHandler) Sectors(c echo.Context) error {
	snap, _, ok := h.cache.Current()
	if !ok {
		return stillLoading(c)
	}
	return xhttp.SuccessResponse(c, snap.Sectors)
}

func (h *DashboardEchoHandler) Movers(c echo.Context) error {
	req := &models.MoversRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, _, ok := h.cache.Current()
	if !ok {
		return stillLoading(c)
	}

	movers := snap.Movers
	if req.N < len(movers.Gainers) {
		movers.Gainers = movers.Gainers[:req.N]
	}
	if req.N < len(movers.Losers) {
		movers.Losers = movers.Losers[:req.N]
	}
	return xhttp.SuccessResponse(c, movers)
}

func (h *DashboardEchoHandler) News(c echo.Context) error {
	req := &models.NewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, _, ok := h.cache.Current()
	if !ok {
		return stillLoading(c)
	}

	items := snap.News
	if req.Symbol != "" {
		symbol := util.NormalizeSymbol(req.Symbol)
		filtered := make([]models.NewsItem, 0, len(items))
		for _, item := range items {
			if item.Symbol == symbol {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	if len(items) > req.Limit {
		items = items[:req.Limit]
	}
	return xhttp.SuccessResponse(c, items)
}

func (h *DashboardEchoHandler) Earnings(c echo.Context) error {
	snap, _, ok := h.cache.Current()
	if !ok {
		return stillLoading(c)
	}
	return xhttp.SuccessResponse(c, snap.EarningsByDate())
}

func (h *DashboardEchoHandler) Dividends(c echo.Context) error {
	snap, _, ok := h.cache.Current()
	if !ok {
		return stillLoading(c)
	}
	return xhttp.SuccessResponse(c, snap.Dividends)
}

func (h *DashboardEchoHandler) All(c echo.Context) error {
	snap, age, ok := h.cache.Current()
	if !ok {
		return stillLoading(c)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"snapshot":    snap,
		"age_seconds": age.Seconds(),
		"stale":       h.cache.Stale(),
	})
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.refresher.Health())
}

// Refresh triggers a cycle in the background. A cycle already in flight
// absorbs the trigger.
func (h *DashboardEchoHandler) Refresh(c echo.Context) error {
	if h.refresher.Running() {
		return xhttp.AcceptedResponse(c, map[string]interface{}{
			"refreshing": true,
		})
	}
	// detach from the request lifetime; the trigger returns immediately
	ctx := context.WithoutCancel(c.Request().Context())
	go func() {
		if _, err := h.refresher.Refresh(ctx, true); err != nil {
			h.logger.Error("manual refresh failed", xlogger.Error(err))
		}
	}()
	return xhttp.AcceptedResponse(c, map[string]interface{}{
		"refreshing": true,
		"triggered":  true,
	})
}
