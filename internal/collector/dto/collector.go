package dto

import "time"

// CollectionSummary reports the outcome of one collection pass.
type CollectionSummary struct {
	Tickers    int           `json:"tickers"`
	Subreddits int           `json:"subreddits"`
	Fetched    int           `json:"fetched"`
	Inserted   int64         `json:"inserted"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"duration"`
}
