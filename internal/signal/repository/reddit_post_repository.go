package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mathieupelo/sentiment-reddit/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RedditPostRepository defines the interface for the read-only post corpus
// plus the collector's write path.
type RedditPostRepository interface {
	// FindForWindow returns posts matching any of the search terms with
	// created_at in the half-open interval [windowStart, windowEnd).
	FindForWindow(ctx context.Context, searchTerms []string, windowStart, windowEnd time.Time) ([]entity.RedditPost, error)
	CreateIgnoreConflict(ctx context.Context, posts []entity.RedditPost) (int64, error)
	CountByTicker(ctx context.Context, ticker string) (int64, error)
}

// NewRedditPostRepository creates a new instance of RedditPostRepository.
func NewRedditPostRepository(db *gorm.DB) RedditPostRepository {
	return &redditPostRepository{
		db: db,
	}
}

type redditPostRepository struct {
	db *gorm.DB
}

func (r *redditPostRepository) FindForWindow(ctx context.Context, searchTerms []string, windowStart, windowEnd time.Time) ([]entity.RedditPost, error) {
	if !windowStart.Before(windowEnd) || len(searchTerms) == 0 {
		return nil, nil
	}

	var (
		conds  []string
		params []interface{}
	)
	for _, term := range searchTerms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		conds = append(conds, "(LOWER(ticker) = ? OR title ILIKE ? OR content ILIKE ?)")
		pattern := "%" + escapeLikeTerm(term) + "%"
		params = append(params, strings.ToLower(term), pattern, pattern)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	var posts []entity.RedditPost
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", windowStart, windowEnd).
		Where(strings.Join(conds, " OR "), params...).
		Order("created_at ASC, reddit_id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts for window: %w", err)
	}

	return posts, nil
}

var likeTermEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLikeTerm escapes LIKE metacharacters so a search term only ever
// matches literally inside a pattern.
func escapeLikeTerm(term string) string {
	return likeTermEscaper.Replace(term)
}

// CreateIgnoreConflict batch-inserts posts, skipping reddit_ids already
// stored. Returns the number of rows actually inserted.
func (r *redditPostRepository) CreateIgnoreConflict(ctx context.Context, posts []entity.RedditPost) (int64, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reddit_id"}},
		DoNothing: true,
	}).Create(&posts)
	if tx.Error != nil {
		return 0, fmt.Errorf("failed to insert posts: %w", tx.Error)
	}

	return tx.RowsAffected, nil
}

func (r *redditPostRepository) CountByTicker(ctx context.Context, ticker string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.RedditPost{}).
		Where("ticker = ?", ticker).
		Count(&count).Error
	return count, err
}
