package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paybridge/internal/config"
	httpx "paybridge/internal/http"
	"paybridge/internal/orchestrator"
	"paybridge/internal/provider"
	"paybridge/internal/provider/base"
	"paybridge/internal/provider/card"
	"paybridge/internal/provider/nativewallet"
	"paybridge/internal/provider/redirectwallet"
	"paybridge/internal/provider/threedsecure"
	"paybridge/internal/store/pending"
	"paybridge/internal/store/postgres"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pending-flow store (redis survives our restarts; that is the point)
	rdb := pending.MustOpenRedis(ctx, cfg.Store.RedisAddr)
	defer rdb.Close()
	store := pending.NewRedis(rdb, cfg.Store.KeyPrefix)

	// Flow history is optional: no DSN, no audit trail
	var history *postgres.HistoryRepo
	var recorder orchestrator.Recorder
	if cfg.DB.DSN != "" {
		pool := postgres.MustOpen(ctx, cfg.DB.DSN)
		defer pool.Close()
		history = postgres.NewHistoryRepo(pool)
		if err := history.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("flow history schema init failed")
		}
		recorder = history
	}

	// Provider adapters
	registry := provider.NewRegistry()
	registry.Register(card.New(base.NewClient("card", cfg.Gateway.CardURL, cfg.Gateway.TimeoutSec)))
	registry.Register(redirectwallet.New(base.NewClient("redirect_wallet", cfg.Gateway.RedirectWalletURL, cfg.Gateway.TimeoutSec)))
	registry.Register(threedsecure.New(base.NewClient("three_d_secure", cfg.Gateway.ThreeDSecureURL, cfg.Gateway.TimeoutSec)))
	registry.Register(nativewallet.New(base.NewClient("native_wallet", cfg.Gateway.NativeWalletURL, cfg.Gateway.TimeoutSec)))

	orch := orchestrator.New(registry, store, recorder, orchestrator.Config{
		CancelGraceWindow: cfg.Flow.CancelGraceWindow,
	})

	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:       cfg,
		Orchestrator: orch,
		History:      history,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Msgf("PayBridge API listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	log.Info().Msg("server stopped")
}
