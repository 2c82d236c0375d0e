package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mathieupelo/sentiment-reddit/internal/entity"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/config"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/dto"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/repository"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
	"github.com/mathieupelo/sentiment-reddit/pkg/telegram"
	"github.com/mathieupelo/sentiment-reddit/pkg/utils"
)

// SweepService runs the batch sweep over the date × ticker grid, producing
// exactly one sentiment signal per pair.
type SweepService interface {
	Run(ctx context.Context, req *dto.SweepRequest) (*dto.SweepSummary, error)
}

// NewSweepService creates a new SweepService. The notifier may be nil, in
// which case no sweep summary notification is sent.
func NewSweepService(
	cfg *config.Config,
	log *logger.Logger,
	aggregator SignalAggregator,
	tickerRepo repository.TickerRepository,
	signalRepo repository.SentimentSignalRepository,
	notifier telegram.Notifier,
) SweepService {
	return &sweepService{
		cfg:        cfg,
		logger:     log,
		aggregator: aggregator,
		tickerRepo: tickerRepo,
		signalRepo: signalRepo,
		notifier:   notifier,
	}
}

type sweepService struct {
	cfg        *config.Config
	logger     *logger.Logger
	aggregator SignalAggregator
	tickerRepo repository.TickerRepository
	signalRepo repository.SentimentSignalRepository
	notifier   telegram.Notifier
}

// Run validates the sweep configuration, then walks the grid oldest date
// first. Validation failures abort before any record is produced. Pairs
// are independent and restartable: records written before a mid-sweep
// failure stay valid and a re-run simply supersedes them.
func (s *sweepService) Run(ctx context.Context, req *dto.SweepRequest) (*dto.SweepSummary, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	tickers, err := s.resolveTickers(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers to sweep")
	}

	dates := utils.DateRange(req.StartDate, req.EndDate)

	s.logger.Info("Starting sentiment sweep",
		logger.StringField("start_date", utils.DateOnly(req.StartDate).Format(time.DateOnly)),
		logger.StringField("end_date", utils.DateOnly(req.EndDate).Format(time.DateOnly)),
		logger.IntField("dates", len(dates)),
		logger.IntField("tickers", len(tickers)),
		logger.IntField("lookback_days", s.cfg.Signal.LookbackDays),
	)

	startedAt := time.Now()

	maxConcurrent := s.cfg.Signal.MaxConcurrentPairs
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		sweepErr  error
		summary   = dto.SweepSummary{
			StartDate: utils.DateOnly(req.StartDate),
			EndDate:   utils.DateOnly(req.EndDate),
			Tickers:   len(tickers),
		}
		semaphore = make(chan struct{}, maxConcurrent)
	)

	fail := func(err error) {
		mu.Lock()
		if sweepErr == nil {
			sweepErr = err
			cancel()
		}
		mu.Unlock()
	}

	for _, date := range dates {
		for _, ticker := range tickers {
			if !utils.ShouldContinue(sweepCtx, s.logger) {
				break
			}

			date, ticker := date, ticker
			wg.Add(1)
			utils.GoSafe(func() {
				defer wg.Done()
				semaphore <- struct{}{}
				defer func() { <-semaphore }()

				signal, err := s.aggregator.ComputeRecord(sweepCtx, date, ticker)
				if err != nil {
					fail(err)
					return
				}

				if err := s.signalRepo.Upsert(sweepCtx, signal); err != nil {
					fail(err)
					return
				}

				mu.Lock()
				summary.TotalSignals++
				if signal.HasData() {
					summary.SignalsWithData++
					summary.PostsAnalyzed += signal.PostsAnalyzed
				} else {
					summary.FallbackSignals++
				}
				mu.Unlock()
			})
		}
	}

	wg.Wait()

	if sweepErr != nil {
		return nil, fmt.Errorf("sweep aborted: %w", sweepErr)
	}

	// A canceled parent context drains the grid loop without producing a
	// pair error. That sweep is truncated, not complete.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sweep aborted: %w", err)
	}

	summary.Duration = time.Since(startedAt)

	s.logger.Info("Sentiment sweep completed",
		logger.IntField("total_signals", summary.TotalSignals),
		logger.IntField("signals_with_data", summary.SignalsWithData),
		logger.IntField("fallback_signals", summary.FallbackSignals),
		logger.Field("duration", summary.Duration),
	)

	s.notify(&summary)

	return &summary, nil
}

// validate rejects malformed sweep parameters before any output is
// emitted. A zero lookback is legal (every pair degrades to the fallback
// record); a negative one is a configuration mistake.
func (s *sweepService) validate(req *dto.SweepRequest) error {
	if s.cfg.Signal.LookbackDays < 0 {
		return fmt.Errorf("lookback_days must not be negative, got %d", s.cfg.Signal.LookbackDays)
	}
	if s.cfg.Signal.ConfidenceCeilingPosts <= 0 {
		return fmt.Errorf("confidence_ceiling_posts must be positive, got %d", s.cfg.Signal.ConfidenceCeilingPosts)
	}
	if s.cfg.Signal.Name == "" {
		return fmt.Errorf("signal name must not be empty")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return fmt.Errorf("sweep start and end dates are required")
	}
	if utils.DateOnly(req.EndDate).Before(utils.DateOnly(req.StartDate)) {
		return fmt.Errorf("sweep end date %s is before start date %s",
			req.EndDate.Format(time.DateOnly), req.StartDate.Format(time.DateOnly))
	}
	return nil
}

func (s *sweepService) resolveTickers(ctx context.Context, req *dto.SweepRequest) ([]entity.Ticker, error) {
	if len(req.Tickers) > 0 {
		tickers, err := s.tickerRepo.GetBySymbols(ctx, req.Tickers)
		if err != nil {
			return nil, fmt.Errorf("failed to load tickers: %w", err)
		}
		if len(tickers) != len(req.Tickers) {
			return nil, fmt.Errorf("unknown tickers requested: got %d of %d", len(tickers), len(req.Tickers))
		}
		return tickers, nil
	}

	tickers, err := s.tickerRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active tickers: %w", err)
	}
	return tickers, nil
}

func (s *sweepService) notify(summary *dto.SweepSummary) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendMessage(telegram.FormatSweepSummary(
		summary.StartDate, summary.EndDate,
		summary.Tickers, summary.TotalSignals, summary.SignalsWithData, summary.FallbackSignals,
		summary.Duration,
	)); err != nil {
		s.logger.Warn("Failed to send sweep summary notification", logger.ErrorField(err))
	}
}
