package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/noah-isme/gymkhana-api/api/swagger"
	"github.com/noah-isme/gymkhana-api/internal/handler"
	"github.com/noah-isme/gymkhana-api/internal/repository"
	"github.com/noah-isme/gymkhana-api/internal/service"
	"github.com/noah-isme/gymkhana-api/pkg/cache"
	"github.com/noah-isme/gymkhana-api/pkg/config"
	"github.com/noah-isme/gymkhana-api/pkg/database"
	"github.com/noah-isme/gymkhana-api/pkg/export"
	"github.com/noah-isme/gymkhana-api/pkg/jobs"
	"github.com/noah-isme/gymkhana-api/pkg/logger"
	"github.com/noah-isme/gymkhana-api/pkg/storage"
)

// @title Gymkhana Event Approval API
// @version 0.1.0
// @description Annual activity calendar, proposal, expense and amendment workflows
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
	}

	calendarRepo := repository.NewCalendarRepository(db)
	eventRepo := repository.NewEventRepository(db)
	proposalRepo := repository.NewProposalRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	amendmentRepo := repository.NewAmendmentRepository(db)
	logRepo := repository.NewApprovalLogRepository(db)

	calendarSvc := service.NewCalendarService(calendarRepo, eventRepo, logRepo, logr,
		service.WithCalendarMetrics(metrics),
		service.WithCalendarCache(cacheSvc),
	)
	proposalSvc := service.NewProposalService(proposalRepo, eventRepo, logRepo, logr,
		service.WithProposalMetrics(metrics),
		service.WithPendingWindowDays(cfg.Workflow.PendingProposalWindowDays),
	)
	expenseSvc := service.NewExpenseService(expenseRepo, eventRepo, proposalRepo, logr)
	amendmentSvc := service.NewAmendmentService(amendmentRepo, eventRepo, calendarRepo, logRepo, logr,
		service.WithAmendmentMetrics(metrics),
	)

	handlers := handler.Handlers{
		Calendars:  handler.NewCalendarHandler(calendarSvc),
		Proposals:  handler.NewProposalHandler(proposalSvc),
		Expenses:   handler.NewExpenseHandler(expenseSvc),
		Amendments: handler.NewAmendmentHandler(amendmentSvc),
		Metrics:    handler.NewMetricsHandler(metrics),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reports.Enabled {
		reportRepo := repository.NewReportRepository(db)
		exportDir, err := storage.NewExportDir(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewDownloadSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exporter := service.NewExportService(calendarRepo, logRepo, exportDir, signer,
			service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
			logr, export.NewCSVExporter(), export.NewPDFExporter())
		worker := service.NewReportWorker(reportRepo, exporter, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		reportSvc := service.NewReportService(reportRepo, calendarRepo, queue, exporter, logr,
			service.ReportServiceConfig{
				ResultTTL:       cfg.Reports.SignedURLTTL,
				CleanupInterval: cfg.Reports.CleanupInterval,
				MaxRetries:      cfg.Reports.WorkerRetries,
			})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
		handlers.Reports = handler.NewReportHandler(reportSvc)
	}

	router := handler.NewRouter(cfg, logr, metrics, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
