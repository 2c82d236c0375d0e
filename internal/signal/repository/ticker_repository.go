package repository

import (
	"context"

	"github.com/mathieupelo/sentiment-reddit/internal/entity"

	"gorm.io/gorm"
)

// TickerRepository defines the interface for ticker profiles.
type TickerRepository interface {
	GetActive(ctx context.Context) ([]entity.Ticker, error)
	GetBySymbols(ctx context.Context, symbols []string) ([]entity.Ticker, error)
}

// NewTickerRepository creates a new instance of TickerRepository.
func NewTickerRepository(db *gorm.DB) TickerRepository {
	return &tickerRepository{db: db}
}

type tickerRepository struct {
	db *gorm.DB
}

func (r *tickerRepository) GetActive(ctx context.Context) ([]entity.Ticker, error) {
	var tickers []entity.Ticker
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("symbol ASC").Find(&tickers).Error; err != nil {
		return nil, err
	}
	return tickers, nil
}

func (r *tickerRepository) GetBySymbols(ctx context.Context, symbols []string) ([]entity.Ticker, error) {
	var tickers []entity.Ticker
	if err := r.db.WithContext(ctx).Where("symbol IN ?", symbols).Order("symbol ASC").Find(&tickers).Error; err != nil {
		return nil, err
	}
	return tickers, nil
}
