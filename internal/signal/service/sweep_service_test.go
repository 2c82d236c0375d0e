package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieupelo/sentiment-reddit/internal/entity"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/config"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/dto"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
)

type fakeAggregator struct {
	err      error
	failPair string

	mu    sync.Mutex
	calls []string
}

func (f *fakeAggregator) ComputeRecord(_ context.Context, asofDate time.Time, ticker entity.Ticker) (*entity.SentimentSignal, error) {
	pair := fmt.Sprintf("%s/%s", asofDate.Format(time.DateOnly), ticker.Symbol)
	f.mu.Lock()
	f.calls = append(f.calls, pair)
	f.mu.Unlock()

	if f.err != nil && (f.failPair == "" || f.failPair == pair) {
		return nil, f.err
	}

	// EA gets a data-bearing record, every other ticker falls back.
	if ticker.Symbol == "EA" {
		return &entity.SentimentSignal{
			AsofDate:          asofDate,
			Ticker:            ticker.Symbol,
			SignalName:        "SENTIMENT_RDDT",
			Value:             0.25,
			Confidence:        0.1,
			PostsAnalyzed:     2,
			CalculationMethod: "lexicon",
		}, nil
	}
	return &entity.SentimentSignal{
		AsofDate:          asofDate,
		Ticker:            ticker.Symbol,
		SignalName:        "SENTIMENT_RDDT",
		CalculationMethod: entity.CalculationMethodFallbackNoData,
	}, nil
}

type fakeTickerRepo struct {
	tickers []entity.Ticker
	err     error
}

func (f *fakeTickerRepo) GetActive(_ context.Context) ([]entity.Ticker, error) {
	return f.tickers, f.err
}

func (f *fakeTickerRepo) GetBySymbols(_ context.Context, symbols []string) ([]entity.Ticker, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []entity.Ticker
	for _, t := range f.tickers {
		for _, s := range symbols {
			if t.Symbol == s {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

type fakeSignalRepo struct {
	upsertErr error

	mu      sync.Mutex
	signals []entity.SentimentSignal
}

func (f *fakeSignalRepo) Upsert(_ context.Context, signal *entity.SentimentSignal) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	f.signals = append(f.signals, *signal)
	f.mu.Unlock()
	return nil
}

func (f *fakeSignalRepo) FindByRange(_ context.Context, tickers []string, startDate, endDate time.Time) ([]entity.SentimentSignal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.SentimentSignal(nil), f.signals...), nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) SendMessage(text string) error {
	f.mu.Lock()
	f.messages = append(f.messages, text)
	f.mu.Unlock()
	return nil
}

func sweepConfig() *config.Config {
	return &config.Config{
		Signal: config.Signal{
			Name:                   "SENTIMENT_RDDT",
			LookbackDays:           30,
			ConfidenceCeilingPosts: 20,
			MaxConcurrentPairs:     2,
		},
	}
}

func sweepTickers() []entity.Ticker {
	return []entity.Ticker{
		{Symbol: "EA", Name: "Electronic Arts"},
		{Symbol: "OTGLF", Name: "CD Projekt"},
	}
}

func TestSweepService_Run(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)

	t.Run("produces one record per date ticker pair", func(t *testing.T) {
		signalRepo := &fakeSignalRepo{}
		notifier := &fakeNotifier{}
		svc := NewSweepService(sweepConfig(), logger.NewNop(), &fakeAggregator{},
			&fakeTickerRepo{tickers: sweepTickers()}, signalRepo, notifier)

		summary, err := svc.Run(ctx, &dto.SweepRequest{StartDate: start, EndDate: end})
		require.NoError(t, err)

		assert.Equal(t, 6, summary.TotalSignals)
		assert.Equal(t, 3, summary.SignalsWithData)
		assert.Equal(t, 3, summary.FallbackSignals)
		assert.Equal(t, 6, summary.PostsAnalyzed)
		assert.Len(t, signalRepo.signals, 6)
		require.Len(t, notifier.messages, 1)
		assert.Contains(t, notifier.messages[0], "2025-06-10")
	})

	t.Run("restricts the grid to requested tickers", func(t *testing.T) {
		signalRepo := &fakeSignalRepo{}
		svc := NewSweepService(sweepConfig(), logger.NewNop(), &fakeAggregator{},
			&fakeTickerRepo{tickers: sweepTickers()}, signalRepo, nil)

		summary, err := svc.Run(ctx, &dto.SweepRequest{StartDate: start, EndDate: end, Tickers: []string{"EA"}})
		require.NoError(t, err)
		assert.Equal(t, 3, summary.TotalSignals)
		for _, sig := range signalRepo.signals {
			assert.Equal(t, "EA", sig.Ticker)
		}
	})

	t.Run("rejects unknown tickers before any output", func(t *testing.T) {
		signalRepo := &fakeSignalRepo{}
		svc := NewSweepService(sweepConfig(), logger.NewNop(), &fakeAggregator{},
			&fakeTickerRepo{tickers: sweepTickers()}, signalRepo, nil)

		_, err := svc.Run(ctx, &dto.SweepRequest{StartDate: start, EndDate: end, Tickers: []string{"ZZZZ"}})
		require.Error(t, err)
		assert.Empty(t, signalRepo.signals)
	})

	t.Run("rejects negative lookback before any output", func(t *testing.T) {
		cfg := sweepConfig()
		cfg.Signal.LookbackDays = -5
		signalRepo := &fakeSignalRepo{}
		svc := NewSweepService(cfg, logger.NewNop(), &fakeAggregator{},
			&fakeTickerRepo{tickers: sweepTickers()}, signalRepo, nil)

		_, err := svc.Run(ctx, &dto.SweepRequest{StartDate: start, EndDate: end})
		require.Error(t, err)
		assert.ErrorContains(t, err, "lookback_days")
		assert.Empty(t, signalRepo.signals)
	})

	t.Run("rejects non-positive confidence ceiling", func(t *testing.T) {
		cfg := sweepConfig()
		cfg.Signal.ConfidenceCeilingPosts = 0
		svc := NewSweepService(cfg, logger.NewNop(), &fakeAggregator{},
			&fakeTickerRepo{tickers: sweepTickers()}, &fakeSignalRepo{}, nil)

		_, err := svc.Run(ctx, &dto.SweepRequest{StartDate: start, EndDate: end})
		require.Error(t, err)
		assert.ErrorContains(t, err, "confidence_ceiling_posts")
	})

	t.Run("rejects inverted date range", func(t *testing.T) {
		svc := NewSweepService(sweepConfig(), logger.NewNop(), &fakeAggregator{},
			&fakeTickerRepo{tickers: sweepTickers()}, &fakeSignalRepo{}, nil)

		_, err := svc.Run(ctx, &dto.SweepRequest{StartDate: end, EndDate: start})
		require.Error(t, err)
	})

	t.Run("aborts on corpus failure", func(t *testing.T) {
		agg := &fakeAggregator{err: errors.New("db gone"), failPair: "2025-06-10/EA"}
		svc := NewSweepService(sweepConfig(), logger.NewNop(), agg,
			&fakeTickerRepo{tickers: sweepTickers()}, &fakeSignalRepo{}, nil)

		_, err := svc.Run(ctx, &dto.SweepRequest{StartDate: start, EndDate: end})
		require.Error(t, err)
		assert.ErrorContains(t, err, "sweep aborted")
	})

	t.Run("canceled context aborts instead of reporting completion", func(t *testing.T) {
		canceled, cancel := context.WithCancel(context.Background())
		cancel()

		signalRepo := &fakeSignalRepo{}
		notifier := &fakeNotifier{}
		svc := NewSweepService(sweepConfig(), logger.NewNop(), &fakeAggregator{},
			&fakeTickerRepo{tickers: sweepTickers()}, signalRepo, notifier)

		summary, err := svc.Run(canceled, &dto.SweepRequest{StartDate: start, EndDate: end})
		require.Error(t, err)
		assert.ErrorContains(t, err, "sweep aborted")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, summary)
		assert.Empty(t, notifier.messages)
	})

	t.Run("single day range sweeps once per ticker", func(t *testing.T) {
		signalRepo := &fakeSignalRepo{}
		svc := NewSweepService(sweepConfig(), logger.NewNop(), &fakeAggregator{},
			&fakeTickerRepo{tickers: sweepTickers()}, signalRepo, nil)

		summary, err := svc.Run(ctx, &dto.SweepRequest{StartDate: start, EndDate: start})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.TotalSignals)
	})
}
