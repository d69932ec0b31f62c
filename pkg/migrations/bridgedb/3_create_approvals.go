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
		log.Println("creating approvals table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.ApprovalDao{}); err != nil {
			return err
		}
		if _, err := db.NewCreateIndex().
			Model(&dao.ApprovalDao{}).
			Index("idx_approvals_src_nonce_dest").
			Column("src_chain_key", "nonce", "dest_chain_id").
			Unique().
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.ApprovalDao{}, "status", "retry_after")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping approvals table...")
		return mghelper.DropTables(ctx, db, &dao.ApprovalDao{})
	})
}
