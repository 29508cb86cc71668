package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StockWatch/internal/domain/models"
	drepo "StockWatch/internal/domain/repository"
	xhttp "StockWatch/pkg/http"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client implements MarketData backed by the Yahoo Finance JSON API.
type Client struct {
	http *xhttp.Client
}

// New creates a Yahoo MarketData client.
func New(baseURL, userAgent string, timeout time.Duration) drepo.MarketData {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http: xhttp.NewClient(
			xhttp.WithBaseURL(baseURL),
			xhttp.WithTimeout(timeout),
			xhttp.WithUserAgent(userAgent),
			xhttp.WithHeader("Accept", "application/json"),
		),
	}
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []quotePayload `json:"result"`
		Error  *apiError      `json:"error"`
	} `json:"quoteResponse"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type quotePayload struct {
	Symbol                   string   `json:"symbol"`
	ShortName                string   `json:"shortName"`
	LongName                 string   `json:"longName"`
	RegularMarketPrice       float64  `json:"regularMarketPrice"`
	RegularMarketChange      float64  `json:"regularMarketChange"`
	RegularMarketChangePct   float64  `json:"regularMarketChangePercent"`
	RegularMarketPrevClose   float64  `json:"regularMarketPreviousClose"`
	RegularMarketOpen        float64  `json:"regularMarketOpen"`
	RegularMarketDayHigh     float64  `json:"regularMarketDayHigh"`
	RegularMarketDayLow      float64  `json:"regularMarketDayLow"`
	RegularMarketVolume      int64    `json:"regularMarketVolume"`
	AverageDailyVolume3Month int64    `json:"averageDailyVolume3Month"`
	MarketCap                float64  `json:"marketCap"`
	PreMarketPrice           *float64 `json:"preMarketPrice"`
	PreMarketChangePct       *float64 `json:"preMarketChangePercent"`
	PostMarketPrice          *float64 `json:"postMarketPrice"`
	PostMarketChangePct      *float64 `json:"postMarketChangePercent"`
}

// FetchQuote fetches the current quote for one symbol.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	q := url.Values{}
	q.Set("symbols", symbol)

	resp, err := c.http.Get(ctx, "/v7/finance/quote", q)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, drepo.ErrUnavailable)
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}

	var payload quoteResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, drepo.ErrMalformed)
	}
	if payload.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("quote %s: %s: %w", symbol, payload.QuoteResponse.Error.Code, drepo.ErrUnavailable)
	}
	if len(payload.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("quote %s: %w", symbol, drepo.ErrNotFound)
	}

	p := payload.QuoteResponse.Result[0]
	if p.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("quote %s: no price: %w", symbol, drepo.ErrMalformed)
	}

	name := p.ShortName
	if name == "" {
		name = p.LongName
	}
	if name == "" {
		name = symbol
	}

	quote := &models.Quote{
		Symbol:        strings.ToUpper(symbol),
		Name:          name,
		Price:         p.RegularMarketPrice,
		Change:        p.RegularMarketChange,
		ChangePercent: p.RegularMarketChangePct,
		PreviousClose: p.RegularMarketPrevClose,
		Open:          p.RegularMarketOpen,
		DayHigh:       p.RegularMarketDayHigh,
		DayLow:        p.RegularMarketDayLow,
		Volume:        p.RegularMarketVolume,
		AvgVolume:     p.AverageDailyVolume3Month,
		MarketCap:     p.MarketCap,
	}
	if quote.AvgVolume > 0 {
		quote.VolumeRatio = float64(quote.Volume) / float64(quote.AvgVolume)
	}

	// Extended-hours deltas only matter for regular-session instruments.
	if models.Classify(symbol) == models.KindEquity {
		quote.PreMarketPrice = p.PreMarketPrice
		quote.PreMarketChange = p.PreMarketChangePct
		quote.PostMarketPrice = p.PostMarketPrice
		quote.PostMarketChange = p.PostMarketChangePct
	}

	return quote, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

// FetchHistory fetches up to days trailing daily closes, oldest first.
// Trading-day gaps mean fewer entries than calendar days is normal.
func (c *Client) FetchHistory(ctx context.Context, symbol string, days int) ([]float64, error) {
	q := url.Values{}
	q.Set("range", fmt.Sprintf("%dd", days))
	q.Set("interval", "1d")

	resp, err := c.http.Get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, drepo.ErrUnavailable)
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}

	var payload chartResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, drepo.ErrMalformed)
	}
	if payload.Chart.Error != nil || len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("history %s: %w", symbol, drepo.ErrNotFound)
	}
	quotes := payload.Chart.Result[0].Indicators.Quote
	if len(quotes) == 0 {
		return nil, fmt.Errorf("history %s: %w", symbol, drepo.ErrMalformed)
	}

	closes := make([]float64, 0, len(quotes[0].Close))
	for _, v := range quotes[0].Close {
		if v != nil {
			closes = append(closes, *v)
		}
	}
	return closes, nil
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			CalendarEvents struct {
				Earnings struct {
					EarningsDate []struct {
						Raw int64 `json:"raw"`
					} `json:"earningsDate"`
				} `json:"earnings"`
				ExDividendDate *struct {
					Raw int64 `json:"raw"`
				} `json:"exDividendDate"`
			} `json:"calendarEvents"`
			SummaryDetail struct {
				DividendRate *struct {
					Raw float64 `json:"raw"`
				} `json:"dividendRate"`
			} `json:"summaryDetail"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

// FetchCalendar fetches upcoming earnings and dividend dates for a symbol.
func (c *Client) FetchCalendar(ctx context.Context, symbol string) (*drepo.Calendar, error) {
	q := url.Values{}
	q.Set("modules", "calendarEvents,summaryDetail")

	resp, err := c.http.Get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), q)
	if err != nil {
		return nil, fmt.Errorf("calendar %s: %w", symbol, drepo.ErrUnavailable)
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("calendar %s: %w", symbol, err)
	}

	var payload summaryResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, fmt.Errorf("calendar %s: %w", symbol, drepo.ErrMalformed)
	}
	if payload.QuoteSummary.Error != nil || len(payload.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("calendar %s: %w", symbol, drepo.ErrNotFound)
	}

	r := payload.QuoteSummary.Result[0]
	cal := &drepo.Calendar{}
	if dates := r.CalendarEvents.Earnings.EarningsDate; len(dates) > 0 && dates[0].Raw > 0 {
		t := time.Unix(dates[0].Raw, 0).UTC()
		cal.NextEarnings = &t
	}
	if ex := r.CalendarEvents.ExDividendDate; ex != nil && ex.Raw > 0 {
		t := time.Unix(ex.Raw, 0).UTC()
		cal.NextExDividend = &t
	}
	if rate := r.SummaryDetail.DividendRate; rate != nil {
		cal.DividendRate = rate.Raw
	}
	return cal, nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return drepo.ErrRateLimited
	case code == http.StatusNotFound:
		return drepo.ErrNotFound
	case code >= 500:
		return drepo.ErrUnavailable
	default:
		return fmt.Errorf("status %d: %w", code, drepo.ErrUnavailable)
	}
}
