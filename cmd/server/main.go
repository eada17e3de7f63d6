package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shuizhiqing/examtrainer/internal/account"
	"github.com/shuizhiqing/examtrainer/internal/api"
	"github.com/shuizhiqing/examtrainer/internal/bank"
	"github.com/shuizhiqing/examtrainer/internal/config"
	"github.com/shuizhiqing/examtrainer/internal/logger"
	"github.com/shuizhiqing/examtrainer/internal/progress"
	"github.com/shuizhiqing/examtrainer/internal/storage"
	"github.com/shuizhiqing/examtrainer/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("ExamTrainer Server Starting")
	log.Info("===========================================")
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("store_path=%s", cfg.StorePath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("mirror_enabled=%t", cfg.MirrorEnabled)
	log.Debug("mirror_base_url=%s", cfg.MirrorBaseURL)
	log.Debug("mirror_worker_count=%d", cfg.MirrorWorkerCount)
	log.Debug("mirror_queue_size=%d", cfg.MirrorQueueSize)
	log.Debug("auto_save_seconds=%d", cfg.AutoSaveSeconds)
	log.Debug("trial_question_count=%d", cfg.TrialQuestionCount)
	log.Debug("trial_time_seconds=%d", cfg.TrialTimeSeconds)

	// Open local store
	store, err := storage.Open(cfg.StorePath)
	if err != nil {
		log.Error("failed to open store: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing store")
		store.Close()
	}()

	// Optional remote mirror
	var mirror storage.RemoteMirror
	if cfg.MirrorEnabled && cfg.MirrorBaseURL != "" {
		log.Info("remote mirror enabled: %s", cfg.MirrorBaseURL)
		mirror = storage.NewHTTPMirror(cfg.MirrorBaseURL)
	} else {
		mirror = storage.NullMirror{}
	}

	mirrorPool := worker.NewPool(cfg.MirrorWorkerCount, cfg.MirrorQueueSize)
	gateway := storage.NewGateway(store, mirror, mirrorPool)

	// Load the question catalog from the store
	catalog := bank.New()
	questions, err := gateway.Questions(context.Background())
	if err != nil {
		log.Error("failed to load question catalog: %v", err)
		os.Exit(1)
	}
	catalog.ReplaceAll(questions)
	log.Info("question catalog loaded: %d questions", catalog.Count())

	progressManager := progress.NewManager(gateway, catalog)
	accounts := account.NewService(gateway)

	// Trial identities never survive a restart; drop their leftovers.
	if err := progressManager.ClearTrialProgress(context.Background()); err != nil {
		log.Warn("failed to purge trial progress: %v", err)
	}

	srv := api.NewServer(catalog, gateway, progressManager, accounts)
	srv.TrialQuestionCount = cfg.TrialQuestionCount
	srv.TrialTimeSeconds = cfg.TrialTimeSeconds

	ctx, cancel := context.WithCancel(context.Background())
	mirrorPool.Start(ctx)
	srv.StartAutoSave(ctx, time.Duration(cfg.AutoSaveSeconds)*time.Second)

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("stopping worker pool")
	cancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Debug("stopping mirror pool")
	mirrorPool.Stop()

	log.Info("===========================================")
	log.Info("ExamTrainer Server Stopped")
	log.Info("===========================================")
}
