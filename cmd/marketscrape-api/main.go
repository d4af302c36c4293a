package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketscrape/internal/browser"
	"marketscrape/internal/cache"
	"marketscrape/internal/config"
	"marketscrape/internal/engine"
	server "marketscrape/internal/http"
	"marketscrape/internal/ready"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Server.LogLevel),
	}))

	for _, finding := range cfg.Validate() {
		if cfg.Server.StrictValidation {
			log.Fatalf("config validation failed: %s", finding)
		}
		logger.Warn("config validation", "finding", finding)
	}

	mgr := browser.NewManager(browser.Options{
		Bin:       cfg.Scraper.BrowserBin,
		NoSandbox: cfg.Scraper.NoSandbox,
	}, logger)

	store, err := newStore(cfg, logger)
	if err != nil {
		log.Fatalf("cache init failed: %v", err)
	}

	eng := engine.New(cfg, logger, engine.RodBrowser{Manager: mgr}, store)

	prober := ready.NewProber(cfg.ReadyCheck, eng, logger)
	probeCtx, probeCancel := context.WithCancel(context.Background())
	go prober.Run(probeCtx)

	s := server.NewServer(cfg, eng, prober, logger)

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-done
		logger.Info("shutting down", "signal", sig.String())
		probeCancel()
		if err := s.Shutdown(); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("starting server", "host", cfg.Server.Host, "port", cfg.Server.Port)
	if err := s.Listen(); err != nil {
		log.Fatalf("server failed: %v", err)
	}

	// Drain queued scrapes before killing the browser.
	eng.Close()
	mgr.Stop()
	logger.Info("shutdown complete")
}

func newStore(cfg *config.Config, logger *slog.Logger) (cache.Store, error) {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	if cfg.Cache.RedisURL != "" {
		logger.Info("using redis cache", "url", cfg.Cache.RedisURL)
		return cache.NewRedis(cfg.Cache.RedisURL, ttl)
	}
	return cache.NewMemory(ttl, cfg.Cache.MaxItems), nil
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
