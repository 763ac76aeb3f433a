package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"stellarlend/config"
	"stellarlend/core/state"
	"stellarlend/crypto"
	"stellarlend/native/amm"
	"stellarlend/native/lending"
	"stellarlend/observability/logging"
	lendingdconfig "stellarlend/services/lendingd/config"
	"stellarlend/services/lendingd/server"
	"stellarlend/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/lendingd/config.yaml", "path to lendingd config")
	flag.Parse()

	cfg, err := lendingdconfig.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	env := cfg.Environment
	if env == "" {
		env = strings.TrimSpace(os.Getenv("STELLARLEND_ENV"))
	}
	logger := logging.Setup("lendingd", env, logging.ParseLevel(cfg.LogLevel))

	params, err := config.Load(cfg.ParamsPath)
	if err != nil {
		log.Fatalf("load protocol params: %v", err)
	}

	admin, err := crypto.DecodeAddress(cfg.AdminAddress)
	if err != nil {
		log.Fatalf("parse admin address: %v", err)
	}

	var db storage.Database
	if cfg.DataDir == "" {
		logger.Warn("no data_dir configured, state is in-memory only")
		db = storage.NewMemDB()
	} else {
		leveldb, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
		if err != nil {
			log.Fatalf("open state database: %v", err)
		}
		db = leveldb
	}
	defer db.Close()

	store := state.NewStore(db)

	engine := lending.NewEngine(lending.RiskParameters{
		CloseFactorBps: params.Lending.CloseFactorBps,
	})
	engine.SetState(store)
	if err := engine.Initialize(admin); err != nil && !errors.Is(err, lending.ErrAlreadyInitialised) {
		log.Fatalf("initialise lending engine: %v", err)
	}

	swaps := amm.NewRouter(store)
	err = swaps.InitializeSettings(admin, amm.Settings{
		DefaultSlippageBps: params.Swap.DefaultSlippageBps,
		MaxSlippageBps:     params.Swap.MaxSlippageBps,
		SwapEnabled:        params.Swap.SwapEnabled,
		LiquidityEnabled:   params.Swap.LiquidityEnabled,
		AutoSwapThreshold:  params.Swap.AutoSwapThreshold,
	})
	if err != nil && !errors.Is(err, amm.ErrSettingsExist) {
		log.Fatalf("initialise swap settings: %v", err)
	}

	srv := server.New(server.Options{
		Engine:    engine,
		Swaps:     swaps,
		Admin:     admin,
		Logger:    logger,
		APITokens: cfg.Auth.APITokens,
		RateLimit: cfg.RateLimit.RequestsPerSecond,
		RateBurst: cfg.RateLimit.Burst,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("lendingd listening", "address", cfg.ListenAddress)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			_ = httpServer.Close()
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}
}
