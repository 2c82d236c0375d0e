package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mathieupelo/sentiment-reddit/internal/entity"
)

// RedditPostStoreRepository persists collected posts. The unique
// reddit_id index is the last line of dedup defense: inserts that collide
// with an existing post are silently dropped.
type RedditPostStoreRepository interface {
	SaveBatch(ctx context.Context, posts []entity.RedditPost) (int64, error)
	GetActiveTickers(ctx context.Context) ([]entity.Ticker, error)
}

// NewRedditPostStoreRepository creates a new RedditPostStoreRepository.
func NewRedditPostStoreRepository(db *gorm.DB) RedditPostStoreRepository {
	return &redditPostStoreRepository{db: db}
}

type redditPostStoreRepository struct {
	db *gorm.DB
}

// SaveBatch inserts the posts, ignoring reddit_id conflicts, and returns
// the number of rows actually written.
func (r *redditPostStoreRepository) SaveBatch(ctx context.Context, posts []entity.RedditPost) (int64, error) {
	if len(posts) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reddit_id"}},
			DoNothing: true,
		}).
		Create(&posts)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to save posts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *redditPostStoreRepository) GetActiveTickers(ctx context.Context) ([]entity.Ticker, error) {
	var tickers []entity.Ticker
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("symbol ASC").
		Find(&tickers).Error; err != nil {
		return nil, fmt.Errorf("failed to get active tickers: %w", err)
	}
	return tickers, nil
}
