package dto

import (
	"time"
)

// TextSentiment is the result of classifying one piece of post text.
// Score is in [-1, 1]; Method identifies the classifier that produced it.
type TextSentiment struct {
	Score  float64 `json:"score"`
	Method string  `json:"method"`
}

// SweepRequest describes one batch sweep over the date × ticker grid.
// Tickers is optional; when empty, all active tickers are swept.
type SweepRequest struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Tickers   []string  `json:"tickers,omitempty"`
}

// SweepSummary reports the outcome of a completed sweep.
type SweepSummary struct {
	StartDate       time.Time     `json:"start_date"`
	EndDate         time.Time     `json:"end_date"`
	Tickers         int           `json:"tickers"`
	TotalSignals    int           `json:"total_signals"`
	SignalsWithData int           `json:"signals_with_data"`
	FallbackSignals int           `json:"fallback_signals"`
	PostsAnalyzed   int           `json:"posts_analyzed"`
	Duration        time.Duration `json:"duration"`
}

// SignalResponse is the HTTP representation of one sentiment signal.
type SignalResponse struct {
	AsofDate          string   `json:"asof_date"`
	Ticker            string   `json:"ticker"`
	SignalName        string   `json:"signal_name"`
	Value             float64  `json:"value"`
	Confidence        float64  `json:"confidence"`
	PostsAnalyzed     int      `json:"posts_analyzed"`
	CalculationMethod string   `json:"calculation_method"`
	SearchTerms       []string `json:"search_terms"`
}

// TickerResponse is the HTTP representation of one ticker profile.
type TickerResponse struct {
	Symbol  string   `json:"symbol"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Active  bool     `json:"active"`
}

// ErrorResponse is the HTTP error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
