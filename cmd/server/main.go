// Package main provides the entry point for the breakout trading engine:
// wires the venue client, feature trackers, scanner, signal generator,
// risk manager, position manager and the top-level orchestra (C11)
// behind the control-plane HTTP server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/il101/breakout-engine/internal/api"
	"github.com/il101/breakout-engine/internal/config"
	"github.com/il101/breakout-engine/internal/diagnostics"
	"github.com/il101/breakout-engine/internal/features/activity"
	"github.com/il101/breakout-engine/internal/features/density"
	"github.com/il101/breakout-engine/internal/features/levels"
	"github.com/il101/breakout-engine/internal/features/orderbook"
	"github.com/il101/breakout-engine/internal/features/trades"
	"github.com/il101/breakout-engine/internal/feed"
	"github.com/il101/breakout-engine/internal/orchestrator"
	"github.com/il101/breakout-engine/internal/positions"
	"github.com/il101/breakout-engine/internal/risk"
	"github.com/il101/breakout-engine/internal/scanner"
	"github.com/il101/breakout-engine/internal/signals"
	"github.com/il101/breakout-engine/internal/venue"
	"github.com/il101/breakout-engine/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	host := flag.String("host", "0.0.0.0", "Control-plane HTTP host")
	port := flag.Int("port", 8090, "Control-plane HTTP port")
	presetPath := flag.String("preset", "./presets/default.json", "Path to the preset bundle")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	paperTrading := flag.Bool("paper", true, "Enable paper trading mode")
	diagPath := flag.String("diagnostics", "./data/diagnostics.jsonl", "Diagnostics JSONL sink path")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	preset, err := config.Load(*presetPath)
	if err != nil {
		logger.Fatal("failed to load preset", zap.Error(err))
	}

	logger.Info("starting breakout engine",
		zap.String("preset", preset.Name),
		zap.String("host", *host),
		zap.Int("port", *port),
		zap.Bool("paperTrading", *paperTrading),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	diag, err := diagnostics.NewFileSink(logger, *diagPath, 256)
	if err != nil {
		logger.Fatal("failed to open diagnostics sink", zap.Error(err))
	}

	venueCfg := venue.DefaultConfig()
	venueCfg.APIKey = os.Getenv("BREAKOUT_API_KEY")
	venueCfg.APISecret = os.Getenv("BREAKOUT_API_SECRET")

	live := venue.NewPerpFuturesClient(logger, venueCfg)
	var client venue.Client = live
	if *paperTrading {
		client = venue.NewPaperClient(logger, venueCfg, live)
	}

	if err := client.Start(ctx); err != nil {
		logger.Fatal("failed to start venue client", zap.Error(err))
	}

	tradeAgg := trades.New(logger)
	book := orderbook.New(logger)
	act := activity.New(logger, activity.DefaultConfig())
	dens := density.New(logger, density.DefaultConfig())

	for _, symbol := range preset.TargetMarkets {
		symbol := symbol
		if err := client.SubscribeTrades(symbol, func(sym string, t types.Trade) {
			m := tradeAgg.OnTrade(sym, t)
			act.Update(sym, m)
		}); err != nil {
			logger.Warn("subscribe trades failed", zap.String("symbol", symbol), zap.Error(err))
		}
		if err := client.SubscribeBook(symbol, func(sym string, msg venue.BookMessage) {
			if err := book.ApplyMessage(sym, msg); err != nil {
				logger.Warn("order book message rejected", zap.String("symbol", sym), zap.Error(err))
				return
			}
			if snap, ok := book.GetSnapshot(sym); ok {
				for _, evt := range dens.DetectDensities(sym, snap) {
					logger.Debug("density event",
						zap.String("symbol", sym), zap.String("type", string(evt.Type)),
						zap.String("price", evt.Level.Price.String()))
				}
			}
		}); err != nil {
			logger.Warn("subscribe book failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	feedCfg := feed.DefaultConfig(preset.TargetMarkets)
	universe := feed.New(logger, feedCfg, client, tradeAgg, book)

	scan := scanner.New(logger, preset.ScannerConfig, preset.LiquidityFilters, preset.VolatilityFilters,
		preset.Risk.CorrelationLimit, levels.DefaultConfig(), scanner.DefaultMemoryProbe(2<<30))

	sigGen := signals.New(logger, diag, book, act, signals.NewBreakoutHistory(7*24*time.Hour))

	startEquity, err := client.FetchBalance(ctx)
	if err != nil {
		logger.Warn("initial balance fetch failed, starting from zero equity", zap.Error(err))
		startEquity = decimal.Zero
	}
	corrProvider := risk.NewBTCProxyCorrelation(map[string]decimal.Decimal{})
	riskMgr := risk.New(logger, preset.Risk, book, corrProvider, startEquity)

	posMgr := positions.New(logger, preset.PositionConfig, nil)

	orchCfg := orchestrator.DefaultConfig()
	orch := orchestrator.New(logger, orchCfg, *preset, universe, scan, sigGen, riskMgr, posMgr, dens, client, diag, prometheus.DefaultRegisterer)

	server := api.NewServer(logger, api.Config{
		Host:         *host,
		Port:         *port,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}, orch)

	go orch.Run(ctx)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("control-plane server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received")

	cancel()
	orch.Submit(orchestrator.Command{Type: orchestrator.CommandStop})

	if err := client.Stop(); err != nil {
		logger.Error("error stopping venue client", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", zap.Error(err))
	}

	if err := diag.Close(); err != nil {
		logger.Error("error closing diagnostics sink", zap.Error(err))
	}

	logger.Info("server stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
