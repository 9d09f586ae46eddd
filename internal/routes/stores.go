package routes

import (
	"context"
	"fmt"

	"github.com/shifa-care/shifa_wallet/internal/config"
	"github.com/shifa-care/shifa_wallet/internal/ledger"
	"github.com/shifa-care/shifa_wallet/internal/rating"
	"github.com/shifa-care/shifa_wallet/internal/recharge"
	"github.com/shifa-care/shifa_wallet/internal/wallet"
)

type stores struct {
	ledger    ledger.Store
	wallets   wallet.Repository
	recharges recharge.Repository
	ratings   rating.Store
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// buildStores selects the persistence backend named by STORE_BACKEND.
func buildStores(ctx context.Context, d Deps) (stores, error) {
	switch d.Cfg.Backend {
	case config.BackendPostgres:
		if d.DB == nil {
			return stores{}, fmt.Errorf("postgres backend selected without a database pool")
		}
		return stores{
			ledger:    ledger.NewPostgresStore(d.DB),
			wallets:   wallet.NewPostgresRepository(d.DB),
			recharges: recharge.NewPostgresRepository(d.DB),
			ratings:   rating.NewPostgresStore(d.DB),
		}, nil

	case config.BackendMongo:
		if d.Mongo == nil {
			return stores{}, fmt.Errorf("mongo backend selected without a client")
		}
		db := d.Mongo.Database(d.Cfg.MongoDatabase)
		ledgerStore := ledger.NewMongoStore(d.Mongo, db)
		walletRepo := wallet.NewMongoRepository(db)
		rechargeRepo := recharge.NewMongoRepository(db)
		for _, ix := range []indexer{ledgerStore, walletRepo, rechargeRepo} {
			if err := ix.EnsureIndexes(ctx); err != nil {
				return stores{}, err
			}
		}
		return stores{
			ledger:    ledgerStore,
			wallets:   walletRepo,
			recharges: rechargeRepo,
			ratings:   rating.NewMongoStore(db),
		}, nil

	case config.BackendMemory, "":
		return stores{
			ledger:    ledger.NewInMemory(),
			wallets:   wallet.NewMemoryRepository(),
			recharges: recharge.NewMemoryRepository(),
			ratings:   rating.NewMemoryStore(),
		}, nil
	}
	return stores{}, fmt.Errorf("unknown store backend %q", d.Cfg.Backend)
}
