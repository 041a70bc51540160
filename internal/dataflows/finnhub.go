package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tradecouncil/tradecouncil/config"
)

// FinnhubClient fetches company news from the Finnhub REST API.
type FinnhubClient struct {
	client *resty.Client
	cache  *CacheManager
	apiKey string
}

func NewFinnhubClient(cfg config.Config) *FinnhubClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "finnhub")
	cache := NewCacheManager(cacheDir, 6*time.Hour, cfg.CacheEnabled)

	client := resty.New()
	client.SetBaseURL("https://finnhub.io/api/v1")
	client.SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		cache:  cache,
		apiKey: cfg.FinnhubAPIKey,
	}
}

// FinnhubNews is one article from the company-news endpoint.
type FinnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// NewsDocument renders the news analyst's input: company news from the week
// leading up to the trade date.
func (fc *FinnhubClient) NewsDocument(ctx context.Context, symbol, tradeDate string) (string, error) {
	if fc.apiKey == "" {
		return "", fmt.Errorf("%w: Finnhub API key not configured", ErrDataUnavailable)
	}

	to, err := ParseTradeDate(tradeDate)
	if err != nil {
		return "", err
	}
	from := to.AddDate(0, 0, -7)

	articles, err := fc.companyNews(ctx, symbol, from, to)
	if err != nil {
		return "", err
	}
	if len(articles) == 0 {
		return "", fmt.Errorf("%w: no news for %s between %s and %s", ErrDataUnavailable,
			symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Company news for %s (week ending %s)\n\n", symbol, tradeDate)
	for _, a := range articles {
		published := time.Unix(a.DateTime, 0).Format("2006-01-02")
		fmt.Fprintf(&sb, "## %s (%s, %s)\n\n%s\n\n", a.Headline, a.Source, published, a.Summary)
	}
	return sb.String(), nil
}

func (fc *FinnhubClient) companyNews(ctx context.Context, symbol string, from, to time.Time) ([]FinnhubNews, error) {
	cacheKey := map[string]string{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}

	var cached []FinnhubNews
	if fc.cache.Get("finnhub", "company_news", cacheKey, &cached) {
		return cached, nil
	}

	var articles []FinnhubNews
	resp, err := fc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
			"token":  fc.apiKey,
		}).
		SetResult(&articles).
		Get("/company-news")
	if err != nil {
		return nil, fmt.Errorf("%w: fetch Finnhub news: %v", ErrDataUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: Finnhub returned HTTP %d", ErrDataUnavailable, resp.StatusCode())
	}

	// Cap the prompt payload; Finnhub can return hundreds of articles.
	if len(articles) > 25 {
		articles = articles[:25]
	}

	fc.cache.Set("finnhub", "company_news", cacheKey, articles)
	return articles, nil
}
