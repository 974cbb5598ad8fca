package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"mercato/internal/cdc"
	cdchandler "mercato/internal/cdc/handler"
	contracthandler "mercato/internal/contract/handler"
	contractmetrics "mercato/internal/contract/metrics"
	contractservice "mercato/internal/contract/service"
	"mercato/internal/ledger"
	"mercato/internal/platform/config"
	"mercato/internal/platform/httpserver"
	"mercato/internal/platform/logger"
	platformmetrics "mercato/internal/platform/metrics"
	platformredis "mercato/internal/platform/redis"
	rosterhandler "mercato/internal/roster/handler"
	rostermetrics "mercato/internal/roster/metrics"
	rosterservice "mercato/internal/roster/service"
	transferhandler "mercato/internal/transfer/handler"
	transfermetrics "mercato/internal/transfer/metrics"
	transferservice "mercato/internal/transfer/service"
	httptransport "mercato/internal/transport/http"
	"mercato/internal/valuation"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("store initialization failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis initialization failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	engine := valuation.New()
	budgets := ledger.New(st.clubs, ledger.WithLogger(log))

	contractSvc, err := contractservice.New(st.contracts, st.players, st.clubs, st.tx, engine,
		contractservice.WithLogger(log),
		contractservice.WithMetrics(contractmetrics.New()),
	)
	if err != nil {
		log.Error("contract service wiring failed", "error", err)
		os.Exit(1)
	}
	transferSvc, err := transferservice.New(st.transfers, st.players, st.clubs, contractSvc, budgets, engine, st.tx,
		transferservice.WithLogger(log),
		transferservice.WithMetrics(transfermetrics.New()),
	)
	if err != nil {
		log.Error("transfer service wiring failed", "error", err)
		os.Exit(1)
	}
	rosterSvc, err := rosterservice.New(st.players, st.clubs, st.contracts, st.transfers, engine,
		rosterservice.WithLogger(log),
		rosterservice.WithMetrics(rostermetrics.New()),
	)
	if err != nil {
		log.Error("roster service wiring failed", "error", err)
		os.Exit(1)
	}

	busOpts := []cdc.Option{
		cdc.WithSource(st.source),
		cdc.WithLogger(log),
		cdc.WithMetrics(cdc.NewMetrics()),
	}
	if cfg.CDCCapacity > 0 {
		busOpts = append(busOpts, cdc.WithCapacity(cfg.CDCCapacity))
	}
	if sink := cdc.NewRedisSink(redisClient); sink != nil {
		busOpts = append(busOpts, cdc.WithSink(sink))
	}
	bus := cdc.New(busOpts...)
	if err := bus.Start(ctx); err != nil {
		log.Error("change capture bus failed to start", "error", err)
		os.Exit(1)
	}
	defer bus.Stop()

	router := httptransport.NewRouter(log, platformmetrics.New(), st.health,
		rosterhandler.New(rosterSvc, log),
		contracthandler.New(contractSvc, log),
		transferhandler.New(transferSvc, log),
		cdchandler.New(bus, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting mercato", "addr", cfg.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
