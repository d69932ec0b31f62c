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
		log.Println("creating releases table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.ReleaseDao{}); err != nil {
			return err
		}
		if _, err := db.NewCreateIndex().
			Model(&dao.ReleaseDao{}).
			Index("idx_releases_src_nonce_dest").
			Column("src_chain_key", "nonce", "dest_chain_id").
			Unique().
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.ReleaseDao{}, "status", "retry_after")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping releases table...")
		return mghelper.DropTables(ctx, db, &dao.ReleaseDao{})
	})
}
