package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mathieupelo/sentiment-reddit/internal/collector/config"
	"github.com/mathieupelo/sentiment-reddit/internal/collector/repository"
	"github.com/mathieupelo/sentiment-reddit/internal/collector/service"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
	"github.com/mathieupelo/sentiment-reddit/pkg/postgres"
	"github.com/mathieupelo/sentiment-reddit/pkg/redis"

	"github.com/spf13/cobra"
)

var (
	configPath string
	runOnce    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the Reddit post collector",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Collector Service", logger.StringField("name", cfg.App.Name))

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
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
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
		appLogger.Warn("Redis unavailable, seen cache disabled", logger.ErrorField(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	searchRepo := repository.NewRedditSearchRepository(cfg, appLogger)
	feedRepo := repository.NewRedditFeedRepository(cfg, appLogger)
	storeRepo := repository.NewRedditPostStoreRepository(db.DB)

	collectorSvc := service.NewCollectorService(cfg, appLogger, searchRepo, feedRepo, storeRepo, redisClient)

	if runOnce {
		if _, err := collectorSvc.RunOnce(ctx); err != nil {
			appLogger.Fatal("Collection pass failed", logger.ErrorField(err))
		}
		return
	}

	if err := collectorSvc.Start(ctx); err != nil {
		appLogger.Fatal("Collector failed", logger.ErrorField(err))
	}
}

func main() {
	rootCmd := &cobra.Command{Use: "collector-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-collector.yaml", "Path to the configuration file")
	serveCmd.Flags().BoolVar(&runOnce, "once", false, "Run a single collection pass and exit")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing collector-service CLI: %s\n", err)
		os.Exit(1)
	}
}
