package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mathieupelo/sentiment-reddit/internal/signal/config"
	delivery "github.com/mathieupelo/sentiment-reddit/internal/signal/delivery/http"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/dto"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/repository"
	"github.com/mathieupelo/sentiment-reddit/internal/signal/service"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
	"github.com/mathieupelo/sentiment-reddit/pkg/postgres"
	"github.com/mathieupelo/sentiment-reddit/pkg/redis"
	"github.com/mathieupelo/sentiment-reddit/pkg/telegram"
	"github.com/mathieupelo/sentiment-reddit/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var (
	configPath string
	startDate  string
	endDate    string
	tickers    string
)

type app struct {
	cfg         *config.Config
	logger      *logger.Logger
	db          *postgres.DB
	redisClient *redis.Client
}

// bootstrap loads config and opens shared connections. Redis is optional:
// a connection failure only disables the classifier cache.
func bootstrap() *app {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Warn("Redis unavailable, classifier cache disabled", logger.ErrorField(err))
		redisClient = nil
	}

	return &app{cfg: cfg, logger: appLogger, db: db, redisClient: redisClient}
}

func (a *app) close() {
	if sqlDB, err := a.db.DB.DB(); err == nil {
		sqlDB.Close()
	}
	if a.redisClient != nil {
		a.redisClient.Close()
	}
	_ = a.logger.Sync()
}

// newClassifier builds the configured classifier, wrapped in the score
// cache when enabled.
func (a *app) newClassifier(ctx context.Context) repository.ClassifierRepository {
	var classifier repository.ClassifierRepository
	switch a.cfg.AI.Provider {
	case "gemini":
		genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: a.cfg.Gemini.APIKey,
		})
		if err != nil {
			a.logger.Fatal("Failed to initialize Gemini client", logger.ErrorField(err))
		}
		classifier, err = repository.NewGeminiClassifierRepository(a.cfg, a.logger, genAiClient)
		if err != nil {
			a.logger.Fatal("Failed to initialize Gemini classifier", logger.ErrorField(err))
		}
	case "lexicon":
		classifier = repository.NewLexiconClassifierRepository()
	default:
		a.logger.Fatal("Invalid AI provider specified in config",
			logger.StringField("provider", a.cfg.AI.Provider))
	}

	if a.cfg.ClassifierCache.Enabled {
		cached, err := repository.NewCachedClassifierRepository(classifier, a.redisClient, a.cfg.ClassifierCache, a.logger)
		if err != nil {
			a.logger.Fatal("Failed to initialize classifier cache", logger.ErrorField(err))
		}
		classifier = cached
	}
	return classifier
}

func (a *app) newNotifier() telegram.Notifier {
	if !a.cfg.Telegram.Enabled {
		return nil
	}
	notifier, err := telegram.NewClient(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID)
	if err != nil {
		a.logger.Warn("Failed to initialize Telegram notifier", logger.ErrorField(err))
		return nil
	}
	return notifier
}

func parseDateFlags() (start, end time.Time, err error) {
	start, err = utils.ParseDate(startDate)
	if err != nil {
		return start, end, fmt.Errorf("invalid --start-date: %w", err)
	}
	end, err = utils.ParseDate(endDate)
	if err != nil {
		return start, end, fmt.Errorf("invalid --end-date: %w", err)
	}
	return start, end, nil
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Compute sentiment signals for a date range",
	Run:   runSweep,
}

func runSweep(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := bootstrap()
	defer a.close()

	start, end, err := parseDateFlags()
	if err != nil {
		a.logger.Fatal("Invalid sweep dates", logger.ErrorField(err))
	}

	postRepo := repository.NewRedditPostRepository(a.db.DB)
	signalRepo := repository.NewSentimentSignalRepository(a.db.DB)
	tickerRepo := repository.NewTickerRepository(a.db.DB)
	classifier := a.newClassifier(ctx)

	aggregator := service.NewSignalAggregator(
		postRepo, classifier, a.logger,
		a.cfg.Signal.Name, a.cfg.Signal.LookbackDays, a.cfg.Signal.ConfidenceCeilingPosts,
	)
	sweepSvc := service.NewSweepService(a.cfg, a.logger, aggregator, tickerRepo, signalRepo, a.newNotifier())

	req := &dto.SweepRequest{StartDate: start, EndDate: end}
	if tickers != "" {
		for _, symbol := range strings.Split(tickers, ",") {
			if symbol = strings.ToUpper(strings.TrimSpace(symbol)); symbol != "" {
				req.Tickers = append(req.Tickers, symbol)
			}
		}
	}

	if _, err := sweepSvc.Run(ctx, req); err != nil {
		a.logger.Fatal("Sweep failed", logger.ErrorField(err))
	}
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored signals to CSV",
	Run:   runExport,
}

func runExport(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := bootstrap()
	defer a.close()

	start, end, err := parseDateFlags()
	if err != nil {
		a.logger.Fatal("Invalid export dates", logger.ErrorField(err))
	}

	signalRepo := repository.NewSentimentSignalRepository(a.db.DB)
	exportSvc := service.NewExportService(a.cfg, a.logger, signalRepo)

	path, err := exportSvc.ExportCSV(ctx, start, end)
	if err != nil {
		a.logger.Fatal("Export failed", logger.ErrorField(err))
	}
	fmt.Println(path)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the signal read API",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := bootstrap()
	defer a.close()

	signalRepo := repository.NewSentimentSignalRepository(a.db.DB)
	tickerRepo := repository.NewTickerRepository(a.db.DB)
	querySvc := service.NewQueryService(signalRepo, tickerRepo)

	e := echo.New()
	e.HideBanner = true

	signalHandler := delivery.NewSignalHandler(querySvc, a.logger)
	apiV1 := e.Group("/api/v1")
	signalHandler.RegisterRoutes(apiV1)
	e.GET("/health", delivery.Health)

	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.API.Port)
		a.logger.Info("HTTP server starting", logger.StringField("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	<-ctx.Done()

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		a.logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}
}

func main() {
	rootCmd := &cobra.Command{Use: "signal-service"}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-signal.yaml", "Path to the configuration file")

	sweepCmd.Flags().StringVar(&startDate, "start-date", "", "First as-of date (YYYY-MM-DD)")
	sweepCmd.Flags().StringVar(&endDate, "end-date", "", "Last as-of date (YYYY-MM-DD)")
	sweepCmd.Flags().StringVar(&tickers, "tickers", "", "Comma-separated ticker symbols (default: all active)")

	exportCmd.Flags().StringVar(&startDate, "start-date", "", "First as-of date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&endDate, "end-date", "", "Last as-of date (YYYY-MM-DD)")

	rootCmd.AddCommand(sweepCmd, exportCmd, serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing signal-service CLI: %s\n", err)
		os.Exit(1)
	}
}
