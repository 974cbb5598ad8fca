package main

import (
	"context"
	"fmt"
	"log/slog"

	contractservice "mercato/internal/contract/service"
	"mercato/internal/platform/config"
	"mercato/internal/store/feed"
	"mercato/internal/store/memory"
	"mercato/internal/store/postgres"
	transferservice "mercato/internal/transfer/service"
)

// stores groups the per-entity store implementations behind the service
// interfaces so the rest of main does not care which backend is active.
type stores struct {
	players   contractservice.PlayerStore
	clubs     contractservice.ClubStore
	contracts contractservice.ContractStore
	transfers transferservice.TransferStore
	tx        contractservice.StoreTx
	source    feed.Source
	health    func() error
	close     func()
}

// openStores builds the configured backend. The memory backend is the default
// and needs no external services; postgres also starts the change log poller
// that feeds the capture bus.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case "memory":
		db := memory.NewDB(memory.WithLogger(log))
		return &stores{
			players:   memory.NewPlayerStore(db),
			clubs:     memory.NewClubStore(db),
			contracts: memory.NewContractStore(db),
			transfers: memory.NewTransferStore(db),
			tx:        db,
			source:    db,
			health:    func() error { return nil },
			close:     db.Close,
		}, nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("MERCATO_POSTGRES_DSN is required for the postgres store")
		}
		db, err := postgres.Open(cfg.PostgresDSN,
			postgres.WithLogger(log),
			postgres.WithPollInterval(cfg.FeedPollInterval),
		)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		db.StartFeed(ctx, 0)
		return &stores{
			players:   postgres.NewPlayerStore(db),
			clubs:     postgres.NewClubStore(db),
			contracts: postgres.NewContractStore(db),
			transfers: postgres.NewTransferStore(db),
			tx:        db,
			source:    db,
			health:    db.SQL().Ping,
			close:     func() { _ = db.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
