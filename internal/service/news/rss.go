package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"StockWatch/internal/domain/models"
	"StockWatch/pkg/util"
)

const (
	defaultSymbolFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"
	defaultMarketFeedURL = "https://news.google.com/rss/search"
)

// RSSClient implements NewsSource over public RSS feeds.
type RSSClient struct {
	http       *http.Client
	symbolFeed string
	marketFeed string
}

// NewRSS creates an RSS news client.
func NewRSS(timeout time.Duration) *RSSClient {
	return &RSSClient{
		http:       &http.Client{Timeout: timeout},
		symbolFeed: defaultSymbolFeedURL,
		marketFeed: defaultMarketFeedURL,
	}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Source  struct {
		Name string `xml:",chardata"`
	} `xml:"source"`
}

// SymbolNews fetches headlines for one symbol, newest first, capped at limit.
func (c *RSSClient) SymbolNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	q := url.Values{}
	q.Set("s", symbol)
	q.Set("region", "US")
	q.Set("lang", "en-US")

	items, err := c.fetch(ctx, c.symbolFeed+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("symbol news %s: %w", symbol, err)
	}
	for i := range items {
		items[i].Symbol = symbol
		if items[i].Source == "" {
			items[i].Source = "Yahoo Finance"
		}
	}
	return capItems(items, limit), nil
}

// MarketNews fetches broad market headlines, newest first, capped at limit.
func (c *RSSClient) MarketNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	q := url.Values{}
	q.Set("q", "stock market")
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")

	items, err := c.fetch(ctx, c.marketFeed+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("market news: %w", err)
	}
	return capItems(items, limit), nil
}

func (c *RSSClient) fetch(ctx context.Context, feedURL string) ([]models.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]models.NewsItem, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		title := cleanTitle(it.Title)
		if title == "" {
			continue
		}
		published, _ := util.ParsePubDate(it.PubDate)
		items = append(items, models.NewsItem{
			Title:       title,
			Source:      strings.TrimSpace(it.Source.Name),
			URL:         strings.TrimSpace(it.Link),
			PublishedAt: published,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	return items, nil
}

// Google News suffixes titles with " - Publisher"; keep just the headline.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		title = title[:idx]
	}
	return strings.TrimSpace(title)
}

func capItems(items []models.NewsItem, limit int) []models.NewsItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
