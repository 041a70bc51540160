// Package dataflows implements the data feed capability: retrieval of the
// analyst input documents (price action, news, fundamentals, social chatter)
// for a symbol and date. The orchestration core consumes only the rendered
// text documents, never raw financial data.
package dataflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tradecouncil/tradecouncil/config"
)

// Kind selects which analyst input document to fetch.
type Kind int

const (
	KindMarket Kind = iota
	KindNews
	KindFundamentals
	KindSocial
)

func (k Kind) String() string {
	switch k {
	case KindMarket:
		return "market"
	case KindNews:
		return "news"
	case KindFundamentals:
		return "fundamentals"
	case KindSocial:
		return "social"
	default:
		return "unknown"
	}
}

// ErrDataUnavailable marks a feed that cannot supply a document. The caller
// degrades the affected analyst instead of failing the session.
var ErrDataUnavailable = errors.New("data unavailable")

// Document is a pre-rendered analyst input.
type Document struct {
	Kind      Kind      `json:"kind"`
	Symbol    string    `json:"symbol"`
	TradeDate string    `json:"trade_date"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// DataFeed is the uniform retrieval capability the analyst stage depends on.
type DataFeed interface {
	Fetch(ctx context.Context, symbol, tradeDate string, kind Kind) (*Document, error)
}

// CompositeFeed routes each document kind to its upstream client.
type CompositeFeed struct {
	yahoo        *YahooClient
	finnhub      *FinnhubClient
	reddit       *RedditClient
	fundamentals *FundamentalsClient
}

func NewCompositeFeed(cfg config.Config) *CompositeFeed {
	return &CompositeFeed{
		yahoo:        NewYahooClient(cfg),
		finnhub:      NewFinnhubClient(cfg),
		reddit:       NewRedditClient(cfg),
		fundamentals: NewFundamentalsClient(cfg),
	}
}

func (f *CompositeFeed) Fetch(ctx context.Context, symbol, tradeDate string, kind Kind) (*Document, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	symbol = NormalizeSymbol(symbol)

	var (
		text string
		err  error
	)
	switch kind {
	case KindMarket:
		text, err = f.yahoo.MarketDocument(ctx, symbol, tradeDate)
	case KindNews:
		text, err = f.finnhub.NewsDocument(ctx, symbol, tradeDate)
	case KindFundamentals:
		text, err = f.fundamentals.FundamentalsDocument(ctx, symbol)
	case KindSocial:
		text, err = f.reddit.SocialDocument(ctx, symbol)
	default:
		return nil, fmt.Errorf("%w: unknown document kind %d", ErrDataUnavailable, kind)
	}
	if err != nil {
		if errors.Is(err, ErrDataUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty %s document for %s", ErrDataUnavailable, kind, symbol)
	}

	return &Document{
		Kind:      kind,
		Symbol:    symbol,
		TradeDate: tradeDate,
		Text:      text,
		FetchedAt: time.Now(),
	}, nil
}
