package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// CalculationMethodFallbackNoData tags signals emitted when no eligible
// posts existed for the pair.
const CalculationMethodFallbackNoData = "fallback_no_data"

// SentimentSignal is one point-in-time sentiment record, keyed by
// (asof_date, ticker, signal_name). Re-running a sweep upserts on that key;
// a record is never updated in place by the aggregator itself.
type SentimentSignal struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	AsofDate          time.Time      `gorm:"type:date;not null;uniqueIndex:idx_sentiment_signals_key" json:"asof_date"`
	Ticker            string         `gorm:"not null;uniqueIndex:idx_sentiment_signals_key" json:"ticker"`
	SignalName        string         `gorm:"not null;uniqueIndex:idx_sentiment_signals_key" json:"signal_name"`
	Value             float64        `gorm:"not null" json:"value"`
	Confidence        float64        `gorm:"not null" json:"confidence"`
	PostsAnalyzed     int            `gorm:"not null" json:"posts_analyzed"`
	CalculationMethod string         `gorm:"not null" json:"calculation_method"`
	SearchTerms       pq.StringArray `gorm:"type:text[]" json:"search_terms"`
	Metadata          datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the SentimentSignal model.
func (SentimentSignal) TableName() string {
	return "sentiment_signals"
}

// HasData reports whether any post contributed to this signal.
func (s *SentimentSignal) HasData() bool {
	return s.PostsAnalyzed > 0
}
