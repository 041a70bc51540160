package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/tradecouncil/tradecouncil/config"
)

// Candle is one daily price bar.
type Candle struct {
	Date     time.Time       `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	AdjClose decimal.Decimal `json:"adj_close"`
	Volume   int64           `json:"volume"`
}

// YahooClient fetches quotes and daily candles from Yahoo Finance.
type YahooClient struct {
	cache        *CacheManager
	lookbackDays int
}

func NewYahooClient(cfg config.Config) *YahooClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "yahoo")
	return &YahooClient{
		cache:        NewCacheManager(cacheDir, 24*time.Hour, cfg.CacheEnabled),
		lookbackDays: 30,
	}
}

// MarketDocument renders the market analyst's input: the trailing price
// window ending at the trade date, as a markdown table plus summary stats.
func (yc *YahooClient) MarketDocument(ctx context.Context, symbol, tradeDate string) (string, error) {
	end, err := ParseTradeDate(tradeDate)
	if err != nil {
		return "", err
	}
	start := end.AddDate(0, 0, -yc.lookbackDays)

	candles, err := yc.historical(ctx, symbol, start, end)
	if err != nil {
		return "", err
	}
	if len(candles) == 0 {
		return "", fmt.Errorf("%w: no price history for %s up to %s", ErrDataUnavailable, symbol, tradeDate)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Price history for %s (%s to %s)\n\n", symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	sb.WriteString("| Date | Open | High | Low | Close | Volume |\n")
	sb.WriteString("|------|------|------|-----|-------|--------|\n")
	for _, c := range candles {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %d |\n",
			c.Date.Format("2006-01-02"), c.Open.StringFixed(2), c.High.StringFixed(2),
			c.Low.StringFixed(2), c.Close.StringFixed(2), c.Volume)
	}

	first, last := candles[0], candles[len(candles)-1]
	if !first.Close.IsZero() {
		change := last.Close.Sub(first.Close).Div(first.Close).Mul(decimal.NewFromInt(100))
		fmt.Fprintf(&sb, "\nPeriod change: %s%%. Latest close: %s.\n", change.StringFixed(2), last.Close.StringFixed(2))
	}
	return sb.String(), nil
}

// Quote returns the latest quote; used by the CLI summary, not the pipeline.
func (yc *YahooClient) Quote(symbol string) (*Candle, error) {
	var cached Candle
	if yc.cache.Get("yahoo", "quote", symbol, &cached) {
		return &cached, nil
	}

	q, err := quote.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: quote for %s: %v", ErrDataUnavailable, symbol, err)
	}

	result := &Candle{
		Date:     time.Now(),
		Open:     decimal.NewFromFloat(q.RegularMarketOpen),
		High:     decimal.NewFromFloat(q.RegularMarketDayHigh),
		Low:      decimal.NewFromFloat(q.RegularMarketDayLow),
		Close:    decimal.NewFromFloat(q.RegularMarketPrice),
		AdjClose: decimal.NewFromFloat(q.RegularMarketPrice),
		Volume:   int64(q.RegularMarketVolume),
	}
	yc.cache.Set("yahoo", "quote", symbol, result)
	return result, nil
}

func (yc *YahooClient) historical(ctx context.Context, symbol string, start, end time.Time) ([]Candle, error) {
	cacheKey := map[string]string{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}

	var cached []Candle
	if yc.cache.Get("yahoo", "historical", cacheKey, &cached) {
		return cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	var result []Candle
	for iter.Next() {
		bar := iter.Bar()
		result = append(result, Candle{
			Date:     time.Unix(int64(bar.Timestamp), 0),
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			AdjClose: bar.AdjClose,
			Volume:   int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: price history for %s: %v", ErrDataUnavailable, symbol, err)
	}

	yc.cache.Set("yahoo", "historical", cacheKey, result)
	return result, nil
}
