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
		log.Println("creating evm_deposits table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.EVMDepositDao{}); err != nil {
			return err
		}
		if _, err := db.NewCreateIndex().
			Model(&dao.EVMDepositDao{}).
			Index("idx_evm_deposits_chain_tx_log").
			Column("chain_id", "tx_hash", "log_index").
			Unique().
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.EVMDepositDao{}, "status", "dest_chain_key")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping evm_deposits table...")
		return mghelper.DropTables(ctx, db, &dao.EVMDepositDao{})
	})
}
