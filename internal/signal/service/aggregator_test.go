package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieupelo/sentiment-reddit/internal/entity"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/dto"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
)

type fakePostRepo struct {
	posts []entity.RedditPost
	err   error

	gotTerms []string
	gotStart time.Time
	gotEnd   time.Time
}

func (f *fakePostRepo) FindForWindow(_ context.Context, searchTerms []string, windowStart, windowEnd time.Time) ([]entity.RedditPost, error) {
	f.gotTerms = searchTerms
	f.gotStart = windowStart
	f.gotEnd = windowEnd
	return f.posts, f.err
}

func (f *fakePostRepo) CreateIgnoreConflict(_ context.Context, posts []entity.RedditPost) (int64, error) {
	return int64(len(posts)), nil
}

func (f *fakePostRepo) CountByTicker(_ context.Context, _ string) (int64, error) {
	return int64(len(f.posts)), nil
}

type fakeClassifier struct {
	name     string
	scores   map[string]float64
	failing  map[string]bool
	silent   map[string]bool
}

func (f *fakeClassifier) Name() string { return f.name }

func (f *fakeClassifier) Classify(_ context.Context, text string) (*dto.TextSentiment, error) {
	if f.failing[text] {
		return nil, errors.New("classifier unavailable")
	}
	if f.silent[text] {
		return nil, nil
	}
	score, ok := f.scores[text]
	if !ok {
		return nil, nil
	}
	return &dto.TextSentiment{Score: score, Method: f.name}, nil
}

func newTestPost(id, title string, daysBeforeAsof int, asof time.Time, score, comments int) entity.RedditPost {
	return entity.RedditPost{
		RedditID:    id,
		Title:       title,
		Score:       score,
		NumComments: comments,
		CreatedAt:   asof.AddDate(0, 0, -daysBeforeAsof),
		Ticker:      "EA",
	}
}

func eaTicker() entity.Ticker {
	return entity.Ticker{Symbol: "EA", Name: "Electronic Arts", Aliases: []string{"electronic arts"}}
}

func TestResolveWindow(t *testing.T) {
	asof := time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)

	t.Run("half open interval ending at asof", func(t *testing.T) {
		start, end, ok := ResolveWindow(asof, 30)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, 5, 16, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("zero lookback yields empty window", func(t *testing.T) {
		start, end, ok := ResolveWindow(asof, 0)
		require.False(t, ok)
		assert.Equal(t, start, end)
	})

	t.Run("negative lookback yields empty window", func(t *testing.T) {
		_, _, ok := ResolveWindow(asof, -7)
		assert.False(t, ok)
	})
}

func TestSignalAggregator_ComputeRecord(t *testing.T) {
	asof := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("weights polarity by engagement and recency", func(t *testing.T) {
		// Engagement weights 10 and 5; the third post sits outside the
		// 30-day window and never contributes.
		posts := []entity.RedditPost{
			newTestPost("p1", "bullish on ea", 5, asof, 4, 3),
			newTestPost("p2", "ea servers down again", 10, asof, 1, 2),
			newTestPost("p3", "ea acquisition rumor", 40, asof, 100, 50),
		}
		classifier := &fakeClassifier{
			name: "lexicon",
			scores: map[string]float64{
				"bullish on ea":         0.5,
				"ea servers down again": -0.2,
				"ea acquisition rumor":  0.9,
			},
		}
		repo := &fakePostRepo{posts: posts}
		agg := NewSignalAggregator(repo, classifier, logger.NewNop(), "SENTIMENT_RDDT", 30, 20)

		signal, err := agg.ComputeRecord(ctx, asof, eaTicker())
		require.NoError(t, err)

		// w1 = 10 * 1/6, w2 = 5 * 1/11
		// value = (0.5*w1 - 0.2*w2) / (w1 + w2) = 0.35
		assert.InDelta(t, 0.35, signal.Value, 1e-9)
		assert.Equal(t, 2, signal.PostsAnalyzed)
		assert.InDelta(t, 0.1, signal.Confidence, 1e-9)
		assert.Equal(t, "SENTIMENT_RDDT", signal.SignalName)
		assert.Equal(t, "lexicon", signal.CalculationMethod)
		assert.Equal(t, []string{"ea", "electronic arts"}, []string(signal.SearchTerms))
	})

	t.Run("never reads posts on or after the asof date", func(t *testing.T) {
		posts := []entity.RedditPost{
			newTestPost("p1", "old post", 3, asof, 0, 0),
			newTestPost("p2", "same day post", 0, asof, 50, 20),
			{RedditID: "p3", Title: "future post", CreatedAt: asof.AddDate(0, 0, 2), Ticker: "EA"},
		}
		classifier := &fakeClassifier{
			name: "lexicon",
			scores: map[string]float64{
				"old post":      0.4,
				"same day post": 1.0,
				"future post":   1.0,
			},
		}
		repo := &fakePostRepo{posts: posts}
		agg := NewSignalAggregator(repo, classifier, logger.NewNop(), "SENTIMENT_RDDT", 30, 20)

		signal, err := agg.ComputeRecord(ctx, asof, eaTicker())
		require.NoError(t, err)
		assert.Equal(t, 1, signal.PostsAnalyzed)
		assert.InDelta(t, 0.4, signal.Value, 1e-9)
	})

	t.Run("window start is inclusive and one day beyond is excluded", func(t *testing.T) {
		posts := []entity.RedditPost{
			newTestPost("p1", "boundary post", 30, asof, 0, 0),
			newTestPost("p2", "expired post", 31, asof, 0, 0),
		}
		classifier := &fakeClassifier{
			name: "lexicon",
			scores: map[string]float64{
				"boundary post": 0.6,
				"expired post":  -1.0,
			},
		}
		repo := &fakePostRepo{posts: posts}
		agg := NewSignalAggregator(repo, classifier, logger.NewNop(), "SENTIMENT_RDDT", 30, 20)

		signal, err := agg.ComputeRecord(ctx, asof, eaTicker())
		require.NoError(t, err)
		assert.Equal(t, 1, signal.PostsAnalyzed)
		assert.InDelta(t, 0.6, signal.Value, 1e-9)
	})

	t.Run("empty corpus degrades to fallback record", func(t *testing.T) {
		repo := &fakePostRepo{}
		agg := NewSignalAggregator(repo, &fakeClassifier{name: "lexicon"}, logger.NewNop(), "SENTIMENT_RDDT", 30, 20)

		ticker := entity.Ticker{Symbol: "OTGLF", Name: "CD Projekt", Aliases: []string{"cd projekt"}}
		signal, err := agg.ComputeRecord(ctx, asof, ticker)
		require.NoError(t, err)
		assert.Zero(t, signal.Value)
		assert.Zero(t, signal.Confidence)
		assert.Zero(t, signal.PostsAnalyzed)
		assert.Equal(t, entity.CalculationMethodFallbackNoData, signal.CalculationMethod)
		assert.Equal(t, "OTGLF", signal.Ticker)
	})

	t.Run("zero lookback emits fallback without touching the corpus", func(t *testing.T) {
		repo := &fakePostRepo{err: errors.New("must not be called")}
		agg := NewSignalAggregator(repo, &fakeClassifier{name: "lexicon"}, logger.NewNop(), "SENTIMENT_RDDT", 0, 20)

		signal, err := agg.ComputeRecord(ctx, asof, eaTicker())
		require.NoError(t, err)
		assert.Equal(t, entity.CalculationMethodFallbackNoData, signal.CalculationMethod)
	})

	t.Run("classifier failure drops only the failing post", func(t *testing.T) {
		posts := []entity.RedditPost{
			newTestPost("p1", "good post", 2, asof, 0, 0),
			newTestPost("p2", "broken post", 3, asof, 0, 0),
		}
		classifier := &fakeClassifier{
			name:    "gemini_financial",
			scores:  map[string]float64{"good post": 0.7},
			failing: map[string]bool{"broken post": true},
		}
		repo := &fakePostRepo{posts: posts}
		agg := NewSignalAggregator(repo, classifier, logger.NewNop(), "SENTIMENT_RDDT", 30, 20)

		signal, err := agg.ComputeRecord(ctx, asof, eaTicker())
		require.NoError(t, err)
		assert.Equal(t, 1, signal.PostsAnalyzed)
		assert.InDelta(t, 0.7, signal.Value, 1e-9)
	})

	t.Run("all posts silent degrades to fallback", func(t *testing.T) {
		posts := []entity.RedditPost{
			newTestPost("p1", "unscorable", 2, asof, 0, 0),
		}
		classifier := &fakeClassifier{
			name:   "lexicon",
			silent: map[string]bool{"unscorable": true},
		}
		repo := &fakePostRepo{posts: posts}
		agg := NewSignalAggregator(repo, classifier, logger.NewNop(), "SENTIMENT_RDDT", 30, 20)

		signal, err := agg.ComputeRecord(ctx, asof, eaTicker())
		require.NoError(t, err)
		assert.Equal(t, entity.CalculationMethodFallbackNoData, signal.CalculationMethod)
	})

	t.Run("corpus access failure propagates as error", func(t *testing.T) {
		repo := &fakePostRepo{err: errors.New("connection refused")}
		agg := NewSignalAggregator(repo, &fakeClassifier{name: "lexicon"}, logger.NewNop(), "SENTIMENT_RDDT", 30, 20)

		signal, err := agg.ComputeRecord(ctx, asof, eaTicker())
		require.Error(t, err)
		assert.Nil(t, signal)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("value stays within bounds for extreme scores", func(t *testing.T) {
		posts := []entity.RedditPost{
			newTestPost("p1", "hyped", 1, asof, 10000, 5000),
		}
		classifier := &fakeClassifier{
			name:   "lexicon",
			scores: map[string]float64{"hyped": 3.5},
		}
		repo := &fakePostRepo{posts: posts}
		agg := NewSignalAggregator(repo, classifier, logger.NewNop(), "SENTIMENT_RDDT", 30, 20)

		signal, err := agg.ComputeRecord(ctx, asof, eaTicker())
		require.NoError(t, err)
		assert.Equal(t, 1.0, signal.Value)
	})

	t.Run("identical inputs produce identical records", func(t *testing.T) {
		posts := []entity.RedditPost{
			newTestPost("p1", "bullish on ea", 5, asof, 4, 3),
			newTestPost("p2", "ea servers down again", 10, asof, 1, 2),
		}
		classifier := &fakeClassifier{
			name: "lexicon",
			scores: map[string]float64{
				"bullish on ea":         0.5,
				"ea servers down again": -0.2,
			},
		}
		repo := &fakePostRepo{posts: posts}
		agg := NewSignalAggregator(repo, classifier, logger.NewNop(), "SENTIMENT_RDDT", 30, 20)

		first, err := agg.ComputeRecord(ctx, asof, eaTicker())
		require.NoError(t, err)
		second, err := agg.ComputeRecord(ctx, asof, eaTicker())
		require.NoError(t, err)
		assert.Equal(t, first.Value, second.Value)
		assert.Equal(t, first.Confidence, second.Confidence)
		assert.Equal(t, first.PostsAnalyzed, second.PostsAnalyzed)
	})

	t.Run("confidence grows with volume and saturates at the ceiling", func(t *testing.T) {
		classifier := &fakeClassifier{name: "lexicon", scores: map[string]float64{}}
		previous := 0.0
		for _, count := range []int{1, 5, 10, 19, 20, 25} {
			posts := make([]entity.RedditPost, 0, count)
			for i := 0; i < count; i++ {
				title := fmt.Sprintf("post %d", i)
				classifier.scores[title] = 0.1
				posts = append(posts, newTestPost(fmt.Sprintf("p%d", i), title, 1+i%20, asof, 0, 0))
			}
			repo := &fakePostRepo{posts: posts}
			agg := NewSignalAggregator(repo, classifier, logger.NewNop(), "SENTIMENT_RDDT", 30, 20)

			signal, err := agg.ComputeRecord(ctx, asof, eaTicker())
			require.NoError(t, err)
			assert.GreaterOrEqual(t, signal.Confidence, previous)
			if count >= 20 {
				assert.Equal(t, 1.0, signal.Confidence)
			}
			previous = signal.Confidence
		}
	})

	t.Run("queries the corpus with the resolved window", func(t *testing.T) {
		repo := &fakePostRepo{}
		agg := NewSignalAggregator(repo, &fakeClassifier{name: "lexicon"}, logger.NewNop(), "SENTIMENT_RDDT", 30, 20)

		_, err := agg.ComputeRecord(ctx, asof, eaTicker())
		require.NoError(t, err)
		assert.Equal(t, asof.AddDate(0, 0, -30), repo.gotStart)
		assert.Equal(t, asof, repo.gotEnd)
		assert.Equal(t, []string{"ea", "electronic arts"}, repo.gotTerms)
	})
}
