package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openoutcry/botrunner/internal/config"
	"github.com/openoutcry/botrunner/internal/domain"
	"github.com/openoutcry/botrunner/internal/exchange"
	"github.com/openoutcry/botrunner/internal/gateway"
	"github.com/openoutcry/botrunner/internal/runtime"
	"github.com/openoutcry/botrunner/internal/strategy"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Exchange with risk limits from config.
	exch := exchange.New(exchange.Limits{
		Instruments:   cfg.Instruments,
		MaxOpenOrders: cfg.MaxOpenOrders,
		PositionLimit: cfg.PositionLimit,
		PnLLimit:      cfg.PnLLimit,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
	}, logger)

	// Runtime and the bot roster.
	rt := runtime.New(exch, runtime.NewAllocator(cfg.Seed), logger)
	exch.Subscribe(rt)

	quoter := strategy.NewQuoter(0, 20, 10*time.Millisecond)
	quoter.SnapshotPath = cfg.SnapshotPath
	taker := strategy.NewTaker(0, 4, cfg.Seed)

	bots := []struct {
		id  domain.TraderID
		bot runtime.Strategy
	}{
		{1, quoter},
		{2, taker},
	}
	for _, b := range bots {
		exch.RegisterTrader(b.id)
		rt.Register(b.id, b.bot)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)

	// Gateway.
	srv := gateway.New(exch, rt, logger)
	addr := fmt.Sprintf(":%d", cfg.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("gateway starting", slog.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("gateway error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop the gateway, then drain the bot workers.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway shutdown error", slog.String("error", err.Error()))
	}
	rt.Close()
	rt.Wait()
	cancel()

	logger.Info("stopped")
}
