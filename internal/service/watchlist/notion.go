package watchlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StockWatch/internal/domain/models"
	xhttp "StockWatch/pkg/http"
	"StockWatch/pkg/util"
)

const (
	notionBaseURL = "https://api.notion.com"
	notionVersion = "2022-06-28"
)

// NotionClient reads the watchlist from a Notion database.
type NotionClient struct {
	http       *xhttp.Client
	databaseID string
}

// NewNotion creates a Notion watchlist source.
func NewNotion(token, databaseID string, timeout time.Duration) *NotionClient {
	return &NotionClient{
		http: xhttp.NewClient(
			xhttp.WithBaseURL(notionBaseURL),
			xhttp.WithTimeout(timeout),
			xhttp.WithHeader("Authorization", "Bearer "+token),
			xhttp.WithHeader("Notion-Version", notionVersion),
		),
		databaseID: databaseID,
	}
}

type notionQuery struct {
	Filter      map[string]interface{} `json:"filter,omitempty"`
	StartCursor string                 `json:"start_cursor,omitempty"`
	PageSize    int                    `json:"page_size,omitempty"`
}

type notionQueryResponse struct {
	Results    []notionPage `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor"`
}

type notionPage struct {
	Properties map[string]notionProperty `json:"properties"`
}

type notionProperty struct {
	Type     string       `json:"type"`
	Title    []notionText `json:"title"`
	RichText []notionText `json:"rich_text"`
	Select   *notionName  `json:"select"`
	Status   *notionName  `json:"status"`
	MultiSel []notionName `json:"multi_select"`
}

type notionText struct {
	PlainText string `json:"plain_text"`
}

type notionName struct {
	Name string `json:"name"`
}

func (p notionProperty) text() string {
	parts := p.Title
	if len(parts) == 0 {
		parts = p.RichText
	}
	out := ""
	for _, t := range parts {
		out += t.PlainText
	}
	return out
}

func (p notionProperty) selected() string {
	if p.Select != nil {
		return p.Select.Name
	}
	if p.Status != nil {
		return p.Status.Name
	}
	return ""
}

// ListWatchlist queries the database for entries whose status is active.
// Pagination follows next_cursor until exhausted.
func (c *NotionClient) ListWatchlist(ctx context.Context) (models.Watchlist, error) {
	var list models.Watchlist

	query := notionQuery{
		PageSize: 100,
		Filter: map[string]interface{}{
			"or": []map[string]interface{}{
				{"property": "Status", "select": map[string]string{"equals": string(models.StatusWatching)}},
				{"property": "Status", "select": map[string]string{"equals": string(models.StatusHolding)}},
			},
		},
	}

	for {
		resp, err := c.http.PostJSON(ctx, "/v1/databases/"+c.databaseID+"/query", query)
		if err != nil {
			return nil, fmt.Errorf("notion query: %w", err)
		}
		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("notion query: status %d", resp.StatusCode)
		}

		var page notionQueryResponse
		if err := resp.DecodeJSON(&page); err != nil {
			return nil, fmt.Errorf("notion query: %w", err)
		}

		for _, row := range page.Results {
			entry := parseEntry(row)
			if entry.Symbol == "" || !entry.Status.Active() {
				continue
			}
			list = append(list, entry)
		}

		if !page.HasMore || page.NextCursor == "" {
			break
		}
		query.StartCursor = page.NextCursor
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("notion query: empty watchlist")
	}
	return list, nil
}

func parseEntry(row notionPage) models.WatchlistEntry {
	entry := models.WatchlistEntry{}
	for key, prop := range row.Properties {
		switch key {
		case "Symbol", "Ticker":
			entry.Symbol = util.NormalizeSymbol(prop.text())
		case "Company", "Name":
			entry.Company = prop.text()
		case "Sector":
			entry.Sector = prop.selected()
		case "Sentiment":
			entry.Sentiment = prop.selected()
		case "Thesis":
			entry.Thesis = prop.text()
		case "Catalysts":
			names := make([]string, 0, len(prop.MultiSel))
			for _, m := range prop.MultiSel {
				names = append(names, m.Name)
			}
			entry.Catalysts = strings.Join(names, ", ")
			if entry.Catalysts == "" {
				entry.Catalysts = prop.text()
			}
		case "Status":
			entry.Status = models.WatchlistStatus(prop.selected())
		}
	}
	return entry
}
