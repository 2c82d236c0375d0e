package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mathieupelo/sentiment-reddit/internal/signal/dto"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/repository"
	"github.com/mathieupelo/sentiment-reddit/pkg/utils"
)

// QueryService serves read access to stored signals and ticker profiles.
type QueryService interface {
	GetSignals(ctx context.Context, startDate, endDate time.Time, ticker string) ([]dto.SignalResponse, error)
	GetTickers(ctx context.Context) ([]dto.TickerResponse, error)
}

func NewQueryService(signalRepo repository.SentimentSignalRepository, tickerRepo repository.TickerRepository) QueryService {
	return &queryService{
		signalRepo: signalRepo,
		tickerRepo: tickerRepo,
	}
}

type queryService struct {
	signalRepo repository.SentimentSignalRepository
	tickerRepo repository.TickerRepository
}

func (s *queryService) GetSignals(ctx context.Context, startDate, endDate time.Time, ticker string) ([]dto.SignalResponse, error) {
	if utils.DateOnly(endDate).Before(utils.DateOnly(startDate)) {
		return nil, fmt.Errorf("end date %s is before start date %s",
			endDate.Format(time.DateOnly), startDate.Format(time.DateOnly))
	}

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	var tickers []string
	if ticker != "" {
		tickers = []string{ticker}
	}

	signals, err := s.signalRepo.FindByRange(ctx, tickers, utils.DateOnly(startDate), utils.DateOnly(endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to load signals: %w", err)
	}

	responses := make([]dto.SignalResponse, 0, len(signals))
	for _, sig := range signals {
		responses = append(responses, dto.SignalResponse{
			AsofDate:          sig.AsofDate.Format(time.DateOnly),
			Ticker:            sig.Ticker,
			SignalName:        sig.SignalName,
			Value:             sig.Value,
			Confidence:        sig.Confidence,
			PostsAnalyzed:     sig.PostsAnalyzed,
			CalculationMethod: sig.CalculationMethod,
			SearchTerms:       sig.SearchTerms,
		})
	}
	return responses, nil
}

func (s *queryService) GetTickers(ctx context.Context) ([]dto.TickerResponse, error) {
	tickers, err := s.tickerRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickers: %w", err)
	}

	responses := make([]dto.TickerResponse, 0, len(tickers))
	for _, t := range tickers {
		responses = append(responses, dto.TickerResponse{
			Symbol:  t.Symbol,
			Name:    t.Name,
			Aliases: t.Aliases,
			Active:  t.Active,
		})
	}
	return responses, nil
}
