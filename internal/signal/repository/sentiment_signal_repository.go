package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mathieupelo/sentiment-reddit/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SentimentSignalRepository defines the interface for persisting and
// querying sentiment signals.
type SentimentSignalRepository interface {
	// Upsert inserts the signal or, when a record with the same
	// (asof_date, ticker, signal_name) key exists, supersedes it.
	Upsert(ctx context.Context, signal *entity.SentimentSignal) error
	FindByRange(ctx context.Context, tickers []string, startDate, endDate time.Time) ([]entity.SentimentSignal, error)
}

// NewSentimentSignalRepository creates a new instance of SentimentSignalRepository.
func NewSentimentSignalRepository(db *gorm.DB) SentimentSignalRepository {
	return &sentimentSignalRepository{
		db: db,
	}
}

type sentimentSignalRepository struct {
	db *gorm.DB
}

func (r *sentimentSignalRepository) Upsert(ctx context.Context, signal *entity.SentimentSignal) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "asof_date"}, {Name: "ticker"}, {Name: "signal_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value", "confidence", "posts_analyzed", "calculation_method",
			"search_terms", "metadata", "updated_at",
		}),
	}).Create(signal).Error
	if err != nil {
		return fmt.Errorf("failed to upsert sentiment signal: %w", err)
	}
	return nil
}

func (r *sentimentSignalRepository) FindByRange(ctx context.Context, tickers []string, startDate, endDate time.Time) ([]entity.SentimentSignal, error) {
	query := r.db.WithContext(ctx).
		Where("asof_date >= ? AND asof_date <= ?", startDate, endDate)
	if len(tickers) > 0 {
		query = query.Where("ticker IN ?", tickers)
	}

	var signals []entity.SentimentSignal
	if err := query.Order("asof_date ASC, ticker ASC").Find(&signals).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch sentiment signals: %w", err)
	}
	return signals, nil
}
