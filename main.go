package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopsmart/pkg/affiliate"
	"shopsmart/pkg/assistant"
	"shopsmart/pkg/cache"
	"shopsmart/pkg/config"
	"shopsmart/pkg/logger"
	"shopsmart/pkg/resolver"
	"shopsmart/pkg/scrapers"
	"shopsmart/pkg/scrapers/browser"
	"shopsmart/pkg/scrapers/jsonld"
	"shopsmart/pkg/session"
	"shopsmart/pkg/state"
	"shopsmart/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	productCache, err := cache.New(cfg.CacheDBPath, cfg.CacheTTL)
	if err != nil {
		log.Error("failed to initialize cache", "path", cfg.CacheDBPath, "error", err)
		os.Exit(1)
	}
	defer productCache.Close()

	if n, err := productCache.Purge(); err != nil {
		log.Warn("cache purge failed", "error", err)
	} else if n > 0 {
		log.Info("purged expired cache entries", "count", n)
	}
	log.Info("cache initialized", "path", cfg.CacheDBPath, "ttl", cfg.CacheTTL)

	stateStore, err := store.NewSQLite(cfg.StateDBPath)
	if err != nil {
		log.Error("failed to open state store", "path", cfg.StateDBPath, "error", err)
		os.Exit(1)
	}
	defer stateStore.Close()

	app, err := state.Load(stateStore, state.WithLogger(log))
	if err != nil {
		log.Error("failed to load state", "error", err)
		os.Exit(1)
	}

	if cfg.OpenAI.APIKey == "" {
		log.Warn("OPENAI_API_KEY is not set; only preloaded products will resolve")
	}
	ai := assistant.NewOpenAI(assistant.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		VisionModel: cfg.OpenAI.VisionModel,
	})
	links := affiliate.New(cfg.AmazonTag, cfg.FlipkartID, cfg.AggregatorPrefix)

	res := resolver.New(ai, links,
		resolver.WithCache(productCache),
		resolver.WithLogger(log),
	)
	verifier := scrapers.NewVerifier(
		scrapers.Chain{jsonld.NewScraper(), browser.NewScraper()},
		cfg.VerifyConcurrency,
		log,
	)

	sessionOpts := []session.Option{session.WithLogger(log)}
	if cfg.VerifyOffers {
		sessionOpts = append(sessionOpts, session.WithVerifier(verifier))
	}
	sessions := session.New(res, app, sessionOpts...)
	defer sessions.Close()

	srv := &server{
		resolver:        res,
		sessions:        sessions,
		state:           app,
		verifier:        verifier,
		verifyOnResolve: cfg.VerifyOffers,
		logger:          log,
	}

	addr := cfg.Addr()
	if ip := GetOutboundIP(); ip != nil {
		log.Info("local network URL", "url", fmt.Sprintf("http://%s:%s", ip, cfg.Port))
	}
	log.Info("API docs", "url", fmt.Sprintf("http://localhost:%s/", cfg.Port))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server listening", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	logger.Flush()
	log.Info("server stopped")
}

func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}
