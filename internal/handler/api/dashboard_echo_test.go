package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"StockWatch/internal/domain/models"
	drepo "StockWatch/internal/domain/repository"
	svcache "StockWatch/internal/service/cache"
	"StockWatch/internal/service/ratelimit"
	"StockWatch/internal/usecase"
	applogger "StockWatch/pkg/logger"
)

type stubMarket struct{}

func (stubMarket) FetchQuote(_ context.Context, _ string) (*models.Quote, error) {
	return nil, drepo.ErrNotFound
}

func (stubMarket) FetchHistory(_ context.Context, _ string, _ int) ([]float64, error) {
	return nil, drepo.ErrNotFound
}

func (stubMarket) FetchCalendar(_ context.Context, _ string) (*drepo.Calendar, error) {
	return nil, drepo.ErrNotFound
}

type stubWatchlist struct{}

func (stubWatchlist) ListWatchlist(_ context.Context) (models.Watchlist, error) {
	return models.Watchlist{{Symbol: "AAPL", Status: models.StatusWatching}}, nil
}

type stubNews struct{}

func (stubNews) MarketNews(_ context.Context, _ int) ([]models.NewsItem, error) { return nil, nil }
func (stubNews) SymbolNews(_ context.Context, _ string, _ int) ([]models.NewsItem, error) {
	return nil, nil
}

type stubMetrics struct{}

func (stubMetrics) RecordFetch(_, _ string)             {}
func (stubMetrics) RecordError(_ string)                {}
func (stubMetrics) RecordLastPrice(_ string, _ float64) {}
func (stubMetrics) RecordCycleDuration(_ float64)       {}
func (stubMetrics) RecordSnapshotAge(_ float64)         {}

func newTestServer(t *testing.T) (*echo.Echo, *svcache.SnapshotCache) {
	t.Helper()
	logger, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cache := svcache.NewSnapshot(5*time.Minute, logger)
	refresher := usecase.NewRefresher(
		stubMarket{}, stubWatchlist{}, stubNews{}, nil, stubMetrics{}, cache,
		ratelimit.NewPacer(1000, 100), usecase.NewAnalytics(), logger,
		usecase.RefresherConfig{Workers: 1, CallTimeout: time.Second, CycleDeadline: time.Second})

	e := echo.New()
	NewDashboardEchoHandler(logger, refresher, cache, nil).RegisterRoutes(e)
	return e, cache
}

func doRequest(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Status int                    `json:"status"`
		Data   map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func commitFixture(t *testing.T, cache *svcache.SnapshotCache) {
	t.Helper()
	snap := &models.Snapshot{
		RefreshedAt: time.Now().UTC(),
		Quotes: map[string]models.SymbolResult{
			"AAPL": {Quote: &models.Quote{Symbol: "AAPL", Name: "Apple", Price: 230, ChangePercent: 1.2, PreviousClose: 227}},
			"MSFT": {Absent: models.AbsentUnavailable},
		},
		Indices: map[string]*models.IndexQuote{
			"^GSPC": {Symbol: "^GSPC", Name: "S&P 500", Price: 6400},
		},
		FailureCount: 1,
	}
	if !cache.Commit(context.Background(), snap) {
		t.Fatalf("fixture snapshot not committed")
	}
}

func TestReadEndpointsBeforeFirstCommit(t *testing.T) {
	e, _ := newTestServer(t)

	for _, target := range []string{"/api/quotes", "/api/indices", "/api/sectors", "/api/all"} {
		rec := doRequest(e, http.MethodGet, target)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("%s: expected 202 while cache empty, got %d", target, rec.Code)
		}
		data := decodeEnvelope(t, rec)
		if data["loading"] != true {
			t.Fatalf("%s: expected loading flag, got %v", target, data)
		}
	}

	rec := doRequest(e, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	data := decodeEnvelope(t, rec)
	if data["cache_ready"] != false {
		t.Fatalf("expected cache_ready false, got %v", data)
	}
	if _, ok := data["age_seconds"]; ok && data["age_seconds"] != nil {
		t.Fatalf("expected null age before first commit, got %v", data["age_seconds"])
	}
}

func TestQuoteLookup(t *testing.T) {
	e, cache := newTestServer(t)
	commitFixture(t, cache)

	rec := doRequest(e, http.MethodGet, "/api/quote?symbol=aapl")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	data := decodeEnvelope(t, rec)
	quote, ok := data["quote"].(map[string]interface{})
	if !ok || quote["symbol"] != "AAPL" {
		t.Fatalf("unexpected quote payload %v", data)
	}

	rec = doRequest(e, http.MethodGet, "/api/quote?symbol=^GSPC")
	if rec.Code != http.StatusOK {
		t.Fatalf("index lookup: expected 200, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/quote?symbol=ZZZZ")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for untracked symbol, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodGet, "/api/quote")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing symbol, got %d", rec.Code)
	}
}

func TestHealthAfterCommit(t *testing.T) {
	e, cache := newTestServer(t)
	commitFixture(t, cache)

	rec := doRequest(e, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeEnvelope(t, rec)
	if data["cache_ready"] != true {
		t.Fatalf("expected cache_ready true, got %v", data)
	}
	if data["partial_failure_count"] != float64(1) {
		t.Fatalf("expected one partial failure, got %v", data["partial_failure_count"])
	}
	if data["age_seconds"] == nil {
		t.Fatalf("expected age after commit")
	}
}

func TestForceRefreshAccepted(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/api/refresh")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	data := decodeEnvelope(t, rec)
	if data["refreshing"] != true {
		t.Fatalf("expected refreshing flag, got %v", data)
	}
}
