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

// RedditClient pulls ticker discussion from public subreddit JSON listings.
type RedditClient struct {
	client     *resty.Client
	cache      *CacheManager
	subreddits []string
}

func NewRedditClient(cfg config.Config) *RedditClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "reddit")
	cache := NewCacheManager(cacheDir, 1*time.Hour, cfg.CacheEnabled)

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", cfg.RedditUserAgent)

	return &RedditClient{
		client:     client,
		cache:      cache,
		subreddits: []string{"wallstreetbets", "stocks", "investing"},
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Stickied    bool    `json:"stickied"`
}

// SocialDocument renders the social analyst's input: recent ticker mentions
// across the tracked subreddits, ranked by score.
func (rc *RedditClient) SocialDocument(ctx context.Context, symbol string) (string, error) {
	var posts []redditPost
	for _, sub := range rc.subreddits {
		found, err := rc.search(ctx, sub, symbol)
		if err != nil {
			// A single subreddit failing is tolerable; the document just
			// thins out.
			continue
		}
		posts = append(posts, found...)
	}
	if len(posts) == 0 {
		return "", fmt.Errorf("%w: no social posts mentioning %s", ErrDataUnavailable, symbol)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Social sentiment posts mentioning %s\n\n", symbol)
	for _, p := range posts {
		created := time.Unix(int64(p.CreatedUTC), 0).Format("2006-01-02")
		fmt.Fprintf(&sb, "## r/%s | score %d | %d comments | %s\n\n%s\n\n",
			p.Subreddit, p.Score, p.NumComments, created, p.Title)
		if body := strings.TrimSpace(p.Selftext); body != "" {
			if len(body) > 500 {
				body = body[:500] + "..."
			}
			sb.WriteString(body + "\n\n")
		}
	}
	return sb.String(), nil
}

func (rc *RedditClient) search(ctx context.Context, subreddit, symbol string) ([]redditPost, error) {
	cacheKey := fmt.Sprintf("%s_%s", subreddit, symbol)
	var cached []redditPost
	if rc.cache.Get("reddit", "search", cacheKey, &cached) {
		return cached, nil
	}

	var listing redditListing
	resp, err := rc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":           symbol,
			"restrict_sr": "1",
			"sort":        "top",
			"t":           "week",
			"limit":       "10",
		}).
		SetResult(&listing).
		Get(fmt.Sprintf("https://www.reddit.com/r/%s/search.json", subreddit))
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", subreddit, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("r/%s returned HTTP %d", subreddit, resp.StatusCode())
	}

	var posts []redditPost
	for _, child := range listing.Data.Children {
		if child.Data.Stickied {
			continue
		}
		posts = append(posts, child.Data)
	}

	rc.cache.Set("reddit", "search", cacheKey, posts)
	return posts, nil
}
