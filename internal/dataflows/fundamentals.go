package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/tradecouncil/tradecouncil/config"
)

// FundamentalsClient scrapes the Finviz snapshot table for a symbol's key
// fundamental metrics.
type FundamentalsClient struct {
	client *resty.Client
	cache  *CacheManager
}

func NewFundamentalsClient(cfg config.Config) *FundamentalsClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "fundamentals")
	cache := NewCacheManager(cacheDir, 24*time.Hour, cfg.CacheEnabled)

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; TradeCouncil/1.0)")

	return &FundamentalsClient{
		client: client,
		cache:  cache,
	}
}

// FundamentalsDocument renders the fundamentals analyst's input: a
// label/value listing of the snapshot metrics.
func (fd *FundamentalsClient) FundamentalsDocument(ctx context.Context, symbol string) (string, error) {
	metrics, err := fd.snapshot(ctx, symbol)
	if err != nil {
		return "", err
	}
	if len(metrics) == 0 {
		return "", fmt.Errorf("%w: no fundamental metrics for %s", ErrDataUnavailable, symbol)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Fundamental snapshot for %s\n\n", symbol)
	for _, m := range metrics {
		fmt.Fprintf(&sb, "- %s: %s\n", m[0], m[1])
	}
	return sb.String(), nil
}

// snapshot returns ordered [label, value] pairs from the snapshot table.
func (fd *FundamentalsClient) snapshot(ctx context.Context, symbol string) ([][2]string, error) {
	var cached [][2]string
	if fd.cache.Get("finviz", "snapshot", symbol, &cached) {
		return cached, nil
	}

	resp, err := fd.client.R().
		SetContext(ctx).
		SetQueryParam("t", symbol).
		Get("https://finviz.com/quote.ashx")
	if err != nil {
		return nil, fmt.Errorf("%w: fetch fundamentals: %v", ErrDataUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: fundamentals source returned HTTP %d", ErrDataUnavailable, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("%w: parse fundamentals page: %v", ErrDataUnavailable, err)
	}

	var metrics [][2]string
	doc.Find("table.snapshot-table2 tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		// Snapshot rows alternate label and value cells.
		for i := 0; i+1 < cells.Length(); i += 2 {
			label := strings.TrimSpace(cells.Eq(i).Text())
			value := strings.TrimSpace(cells.Eq(i + 1).Text())
			if label != "" && value != "" && value != "-" {
				metrics = append(metrics, [2]string{label, value})
			}
		}
	})

	fd.cache.Set("finviz", "snapshot", symbol, metrics)
	return metrics, nil
}
