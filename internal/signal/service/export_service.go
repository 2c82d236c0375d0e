package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mathieupelo/sentiment-reddit/internal/signal/config"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/repository"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
	"github.com/mathieupelo/sentiment-reddit/pkg/utils"
)

var exportHeader = []string{
	"asof_date",
	"ticker",
	"signal_name",
	"value",
	"confidence",
	"posts_analyzed",
	"calculation_method",
	"search_terms",
}

// ExportService writes stored sentiment signals to CSV for downstream
// backtesting pipelines.
type ExportService interface {
	ExportCSV(ctx context.Context, startDate, endDate time.Time) (string, error)
	WriteCSV(ctx context.Context, startDate, endDate time.Time, w io.Writer) (int, error)
}

func NewExportService(cfg *config.Config, log *logger.Logger, signalRepo repository.SentimentSignalRepository) ExportService {
	return &exportService{
		cfg:        cfg,
		logger:     log,
		signalRepo: signalRepo,
	}
}

type exportService struct {
	cfg        *config.Config
	logger     *logger.Logger
	signalRepo repository.SentimentSignalRepository
}

// ExportCSV writes all signals in the given range to a file under the
// configured output directory and returns its path.
func (s *exportService) ExportCSV(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(s.cfg.Export.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name := fmt.Sprintf("signals_%s_%s.csv",
		utils.DateOnly(startDate).Format(time.DateOnly),
		utils.DateOnly(endDate).Format(time.DateOnly))
	path := filepath.Join(s.cfg.Export.OutputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	rows, err := s.WriteCSV(ctx, startDate, endDate, f)
	if err != nil {
		return "", err
	}

	s.logger.Info("Exported sentiment signals",
		logger.StringField("path", path),
		logger.IntField("rows", rows),
	)
	return path, nil
}

// WriteCSV streams the range to w and returns the number of data rows.
// Rows come out ordered by asof_date then ticker.
func (s *exportService) WriteCSV(ctx context.Context, startDate, endDate time.Time, w io.Writer) (int, error) {
	if utils.DateOnly(endDate).Before(utils.DateOnly(startDate)) {
		return 0, fmt.Errorf("export end date %s is before start date %s",
			endDate.Format(time.DateOnly), startDate.Format(time.DateOnly))
	}

	signals, err := s.signalRepo.FindByRange(ctx, nil, utils.DateOnly(startDate), utils.DateOnly(endDate))
	if err != nil {
		return 0, fmt.Errorf("failed to load signals for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("failed to write export header: %w", err)
	}

	for _, sig := range signals {
		record := []string{
			sig.AsofDate.Format(time.DateOnly),
			sig.Ticker,
			sig.SignalName,
			strconv.FormatFloat(sig.Value, 'f', 6, 64),
			strconv.FormatFloat(sig.Confidence, 'f', 4, 64),
			strconv.Itoa(sig.PostsAnalyzed),
			sig.CalculationMethod,
			strings.Join(sig.SearchTerms, "|"),
		}
		if err := cw.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write export row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}
	return len(signals), nil
}
