package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/analysis"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/analysis/losstime"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/api"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/cache"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/config"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/database"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/handler"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/ingest"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/logging"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/middleware"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/repository"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/schedule"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/service"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/sink"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	// 加载配置
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	sched, loc, err := checkAnalysisConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.DBPath}, logger); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()
	db := database.GetDB()

	var reportCache *cache.ReportCache
	if cfg.RedisAddr != "" {
		reportCache, err = cache.Dial(ctx, cfg.RedisAddr, cfg.CacheTTL, logger)
		if err != nil {
			logger.Warn("report cache disabled", "error", err)
		} else {
			defer reportCache.Close()
		}
	}

	var sinks sink.Multi
	if len(cfg.KafkaBrokers) > 0 {
		sinks = append(sinks, sink.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, logger))
		logger.Info("publishing intervals to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	var out sink.Sink
	if len(sinks) > 0 {
		out = sinks
		defer sinks.Close()
	}

	eventRepo := repository.NewEventRepository(db, loc)
	exclude := ingest.NewExclusions(cfg.ExcludePersons)
	deps := analysis.Deps{
		DB:       db,
		Config:   cfg,
		Schedule: sched,
		Sink:     out,
		Cache:    reportCache,
		Logger:   logger,
	}

	eventService := service.NewEventService(eventRepo, ingest.NewReader(loc, exclude), logger)
	intervalService := service.NewIntervalService(repository.NewIntervalRepository(db, loc))
	statsService := service.NewStatsService(repository.NewStatsRepository(db), reportCache)
	taskService := service.NewAnalysisTaskService(repository.NewAnalysisTaskRepository(db), eventRepo, deps, logger)

	if cfg.MQTTBroker != "" {
		listener := ingest.NewMQTTListener(cfg.MQTTBroker, cfg.MQTTTopic, eventRepo, loc, exclude, logger)
		if err := listener.Start(ctx); err != nil {
			logger.Warn("badge stream disabled", "error", err)
		} else {
			defer listener.Stop()
		}
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	defer limiter.Stop()

	// 初始化路由
	router := api.SetupRouter(cfg, api.Handlers{
		Events:    handler.NewEventHandler(eventService),
		Intervals: handler.NewIntervalHandler(intervalService),
		Stats:     handler.NewStatsHandler(statsService),
		Schedule:  handler.NewScheduleHandler(sched),
		Tasks:     handler.NewAnalysisTaskHandler(taskService),
	}, limiter, logger)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Port, "timezone", loc.String(), "skills", analysis.Skills())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := taskService.Shutdown(shutdownCtx); err != nil {
		logger.Error("analysis tasks did not stop in time", "error", err)
	}
	return nil
}

// checkAnalysisConfig loads the schedule, builds an engine from the configured
// options and resolves the time zone, so a bad setting stops startup.
func checkAnalysisConfig(cfg *config.Config) (*schedule.Schedule, *time.Location, error) {
	sched, err := loadSchedule(cfg.SchedulePath)
	if err != nil {
		return nil, nil, err
	}
	if _, err := losstime.NewEngine(sched, losstime.OptionsFromConfig(cfg)); err != nil {
		return nil, nil, fmt.Errorf("invalid analysis options: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	return sched, loc, nil
}

// loadSchedule reads the schedule file when one is configured, otherwise the
// built-in table is used.
func loadSchedule(path string) (*schedule.Schedule, error) {
	if path == "" {
		s := schedule.Default()
		return s, schedule.Validate(s)
	}
	return schedule.Load(path)
}
