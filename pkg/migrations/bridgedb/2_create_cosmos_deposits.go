package bridgedb

import (
	"context"
	"log"

	mghelper "github.com/chainsafe/xchain-bridge-operator/pkg/pgutil/migrations"
	"github.com/chainsafe/xchain-bridge-operator/pkg/store/dao"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating cosmos_deposits table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.CosmosDepositDao{}); err != nil {
			return err
		}
		if _, err := db.NewCreateIndex().
			Model(&dao.CosmosDepositDao{}).
			Index("idx_cosmos_deposits_tx_nonce").
			Column("tx_hash", "nonce").
			Unique().
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.CosmosDepositDao{}, "status", "dest_chain_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping cosmos_deposits table...")
		return mghelper.DropTables(ctx, db, &dao.CosmosDepositDao{})
	})
}
