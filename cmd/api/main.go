package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Overland-East-Bay/family-health/internal/adapters/httpapi"
	memidempotency "github.com/Overland-East-Bay/family-health/internal/adapters/memory/idempotency"
	"github.com/Overland-East-Bay/family-health/internal/adapters/snapshot"
	"github.com/Overland-East-Bay/family-health/internal/app/members"
	platformclock "github.com/Overland-East-Bay/family-health/internal/platform/clock"
	"github.com/Overland-East-Bay/family-health/internal/platform/config"
	"github.com/Overland-East-Bay/family-health/internal/platform/logger"
	"github.com/Overland-East-Bay/family-health/internal/platform/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer cleanup()

	clk := platformclock.NewSystemClock()
	memberSvc := members.NewService(snapshot.NewRepo(store), clk)
	if err := memberSvc.Load(ctx); err != nil {
		log.Fatalf("load members: %v", err)
	}

	api := httpapi.NewServer(memberSvc, memidempotency.NewStore(), clk)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(api),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr, "backend", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
