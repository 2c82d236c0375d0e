package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/mathieupelo/sentiment-reddit/internal/collector/config"
	"github.com/mathieupelo/sentiment-reddit/internal/collector/dto"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
)

// RedditFeedRepository fetches recent posts from a subreddit Atom feed.
// Feeds carry no score or comment counts, so those fields come back zero
// and rely on the engagement floor downstream.
type RedditFeedRepository interface {
	FetchNew(ctx context.Context, subreddit string) ([]dto.RedditPostData, error)
}

// NewRedditFeedRepository creates a new RedditFeedRepository.
func NewRedditFeedRepository(cfg *config.Config, log *logger.Logger) RedditFeedRepository {
	parser := gofeed.NewParser()
	parser.UserAgent = cfg.Reddit.UserAgent
	return &redditFeedRepository{
		cfg:    cfg,
		logger: log,
		parser: parser,
	}
}

type redditFeedRepository struct {
	cfg    *config.Config
	logger *logger.Logger
	parser *gofeed.Parser
}

// FetchNew parses the subreddit's "new" feed and maps entries to posts.
func (r *redditFeedRepository) FetchNew(ctx context.Context, subreddit string) ([]dto.RedditPostData, error) {
	feedURL := fmt.Sprintf("%s/r/%s/new.rss", r.cfg.Feed.BaseURL, subreddit)

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subreddit feed: %w", err)
	}

	posts := make([]dto.RedditPostData, 0, len(feed.Items))
	for _, item := range feed.Items {
		id := redditIDFromGUID(item.GUID)
		if id == "" {
			r.logger.Warn("Skipping feed entry without post ID",
				logger.StringField("subreddit", subreddit),
				logger.StringField("guid", item.GUID),
			)
			continue
		}

		post := dto.RedditPostData{
			ID:        id,
			Title:     strings.TrimSpace(item.Title),
			SelfText:  stripHTML(item.Content),
			Subreddit: subreddit,
			Permalink: item.Link,
		}
		if len(item.Authors) > 0 {
			post.Author = strings.TrimPrefix(item.Authors[0].Name, "/u/")
		}
		if item.PublishedParsed != nil {
			post.CreatedUTC = float64(item.PublishedParsed.Unix())
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// redditIDFromGUID extracts the base36 post ID from a fullname like
// "t3_1abcde".
func redditIDFromGUID(guid string) string {
	guid = strings.TrimSpace(guid)
	if idx := strings.LastIndex(guid, "t3_"); idx >= 0 {
		return guid[idx+len("t3_"):]
	}
	return ""
}

// stripHTML reduces a feed entry body to plain text.
func stripHTML(content string) string {
	if content == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(doc.Text())
}
