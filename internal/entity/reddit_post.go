package entity

import (
	"strings"
	"time"
)

// RedditPost represents one stored social-media submission relevant to a
// ticker. Posts are append-only: created_at is set at ingestion and never
// mutated afterwards.
type RedditPost struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RedditID       string    `gorm:"uniqueIndex;not null" json:"reddit_id"`
	Title          string    `gorm:"not null" json:"title"`
	Content        string    `json:"content"`
	Author         string    `json:"author"`
	Subreddit      string    `json:"subreddit"`
	Score          int       `json:"score"`
	NumComments    int       `json:"num_comments"`
	CreatedAt      time.Time `gorm:"not null;index:idx_reddit_posts_ticker_created" json:"created_at"`
	Ticker         string    `gorm:"not null;index:idx_reddit_posts_ticker_created" json:"ticker"`
	KeywordMatched string    `json:"keyword_matched"`
	CollectedAt    time.Time `gorm:"autoCreateTime" json:"collected_at"`
}

// TableName specifies the table name for the RedditPost model.
func (RedditPost) TableName() string {
	return "reddit_posts"
}

// Text returns the classifier input: title and body concatenated.
func (p *RedditPost) Text() string {
	return strings.TrimSpace(p.Title + " " + p.Content)
}
