package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/mathieupelo/sentiment-reddit/internal/collector/config"
	"github.com/mathieupelo/sentiment-reddit/internal/collector/dto"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
)

// RedditSearchRepository fetches posts from the Reddit JSON search API.
type RedditSearchRepository interface {
	Search(ctx context.Context, subreddit, query string) ([]dto.RedditPostData, error)
}

// NewRedditSearchRepository creates a new RedditSearchRepository. All
// requests share one limiter so the collector stays inside Reddit's
// unauthenticated rate budget.
func NewRedditSearchRepository(cfg *config.Config, log *logger.Logger) RedditSearchRepository {
	return &redditSearchRepository{
		cfg:    cfg,
		logger: log,
		client: &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(
			rate.Every(time.Minute/time.Duration(cfg.Reddit.RequestsPerMinute)), 1),
	}
}

type redditSearchRepository struct {
	cfg     *config.Config
	logger  *logger.Logger
	client  *http.Client
	limiter *rate.Limiter
}

// Search runs a restricted subreddit search sorted by newest first.
func (r *redditSearchRepository) Search(ctx context.Context, subreddit, query string) ([]dto.RedditPostData, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	params.Set("sort", "new")
	params.Set("t", r.cfg.Reddit.TimeFilter)
	params.Set("limit", strconv.Itoa(r.cfg.Reddit.SearchLimit))

	searchURL := fmt.Sprintf("%s/r/%s/search.json?%s", r.cfg.Reddit.BaseURL, subreddit, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.Reddit.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call reddit search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit search returned status %d: %s", resp.StatusCode, string(body))
	}

	var listing dto.RedditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	posts := make([]dto.RedditPostData, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" || child.Data.ID == "" {
			continue
		}
		posts = append(posts, child.Data)
	}
	return posts, nil
}
