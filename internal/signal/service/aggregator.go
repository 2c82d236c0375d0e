package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mathieupelo/sentiment-reddit/internal/entity"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/repository"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
	"github.com/mathieupelo/sentiment-reddit/pkg/utils"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// SignalAggregator computes one point-in-time sentiment signal per
// (asof date, ticker) pair. It is stateless between calls; over an
// unchanged corpus, identical inputs produce identical records.
type SignalAggregator interface {
	ComputeRecord(ctx context.Context, asofDate time.Time, ticker entity.Ticker) (*entity.SentimentSignal, error)
}

// NewSignalAggregator creates a new SignalAggregator.
func NewSignalAggregator(
	postRepo repository.RedditPostRepository,
	classifier repository.ClassifierRepository,
	log *logger.Logger,
	signalName string,
	lookbackDays int,
	confidenceCeilingPosts int,
) SignalAggregator {
	return &signalAggregator{
		postRepo:               postRepo,
		classifier:             classifier,
		logger:                 log,
		signalName:             signalName,
		lookbackDays:           lookbackDays,
		confidenceCeilingPosts: confidenceCeilingPosts,
	}
}

type signalAggregator struct {
	postRepo               repository.RedditPostRepository
	classifier             repository.ClassifierRepository
	logger                 *logger.Logger
	signalName             string
	lookbackDays           int
	confidenceCeilingPosts int
}

// ResolveWindow computes the half-open interval [asof − lookbackDays, asof)
// of eligible post timestamps. The interval never includes the as-of date
// itself: that is the no-look-ahead guarantee. A non-positive lookback
// yields an empty window (ok == false), never an error.
func ResolveWindow(asofDate time.Time, lookbackDays int) (start, end time.Time, ok bool) {
	end = utils.DateOnly(asofDate)
	if lookbackDays <= 0 {
		return end, end, false
	}
	start = end.AddDate(0, 0, -lookbackDays)
	return start, end, true
}

// ComputeRecord produces the sentiment signal for one (asof date, ticker)
// pair. A missing or sparse corpus degrades to the fallback record; only a
// corpus-access failure is returned as an error, because "unknown" must
// not masquerade as "confirmed empty".
func (a *signalAggregator) ComputeRecord(ctx context.Context, asofDate time.Time, ticker entity.Ticker) (*entity.SentimentSignal, error) {
	asof := utils.DateOnly(asofDate)
	searchTerms := ticker.SearchTerms()

	windowStart, windowEnd, ok := ResolveWindow(asof, a.lookbackDays)
	if !ok {
		return a.fallbackRecord(asof, ticker.Symbol, searchTerms), nil
	}

	posts, err := a.postRepo.FindForWindow(ctx, searchTerms, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts for %s as of %s: %w", ticker.Symbol, asof.Format(time.DateOnly), err)
	}

	var (
		weightedSum  float64
		totalWeight  float64
		contributing int
	)
	for i := range posts {
		post := &posts[i]

		// Eligibility is re-checked here rather than trusted to the
		// corpus query: a contribution from the as-of date or beyond
		// would leak future information into the backtest.
		created := utils.DateOnly(post.CreatedAt)
		if !created.Before(windowEnd) || created.Before(windowStart) {
			continue
		}

		sentiment, err := a.classifier.Classify(ctx, post.Text())
		if err != nil {
			a.logger.Warn("Classifier failed for post, skipping",
				logger.ErrorField(err),
				logger.StringField("reddit_id", post.RedditID),
			)
			continue
		}
		if sentiment == nil {
			continue
		}

		weight := engagementWeight(post) * recencyWeight(created, asof)
		weightedSum += sentiment.Score * weight
		totalWeight += weight
		contributing++
	}

	if contributing == 0 {
		return a.fallbackRecord(asof, ticker.Symbol, searchTerms), nil
	}

	value := clamp(weightedSum/totalWeight, -1.0, 1.0)

	return &entity.SentimentSignal{
		AsofDate:          asof,
		Ticker:            ticker.Symbol,
		SignalName:        a.signalName,
		Value:             value,
		Confidence:        a.confidence(contributing),
		PostsAnalyzed:     contributing,
		CalculationMethod: a.classifier.Name(),
		SearchTerms:       pq.StringArray(searchTerms),
		Metadata:          a.metadata(true),
	}, nil
}

// fallbackRecord is the deliberate zero-signal output for pairs with no
// eligible data. Backtests need a complete, gap-free series, so sparse
// coverage is degradation, not an error.
func (a *signalAggregator) fallbackRecord(asof time.Time, symbol string, searchTerms []string) *entity.SentimentSignal {
	return &entity.SentimentSignal{
		AsofDate:          asof,
		Ticker:            symbol,
		SignalName:        a.signalName,
		Value:             0.0,
		Confidence:        0.0,
		PostsAnalyzed:     0,
		CalculationMethod: entity.CalculationMethodFallbackNoData,
		SearchTerms:       pq.StringArray(searchTerms),
		Metadata:          a.metadata(false),
	}
}

// confidence saturates at 1.0 once the contributing-post count reaches the
// configured ceiling, so sparse-but-nonzero data yields a low-but-nonzero
// confidence instead of an all-or-nothing signal.
func (a *signalAggregator) confidence(postsAnalyzed int) float64 {
	if a.confidenceCeilingPosts <= 0 {
		return 1.0
	}
	c := float64(postsAnalyzed) / float64(a.confidenceCeilingPosts)
	if c > 1.0 {
		return 1.0
	}
	return c
}

func (a *signalAggregator) metadata(hasData bool) datatypes.JSON {
	raw, _ := json.Marshal(map[string]interface{}{
		"data_source":   "reddit_postgres",
		"lookback_days": a.lookbackDays,
		"has_data":      hasData,
	})
	return datatypes.JSON(raw)
}

// engagementWeight grows with votes and comments, with comments counted
// double. Floored at 1 so zero- or negative-score posts still carry a
// positive weight and the weighted average never divides by zero.
func engagementWeight(post *entity.RedditPost) float64 {
	score := post.Score
	if score < 0 {
		score = 0
	}
	w := float64(score + 2*post.NumComments)
	if w < 1.0 {
		return 1.0
	}
	return w
}

// recencyWeight decays hyperbolically with the age of the post relative to
// the as-of date. Eligible posts are at least one day old, so the most
// recent eligible post gets the highest weight and every eligible post a
// strictly positive one.
func recencyWeight(created, asof time.Time) float64 {
	days := utils.DaysBetween(created, asof)
	if days < 0 {
		days = 0
	}
	return 1.0 / (1.0 + float64(days))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
