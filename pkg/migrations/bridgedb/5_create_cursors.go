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
		log.Println("creating cursors table...")
		return mghelper.CreateSchema(ctx, db, &dao.CursorDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping cursors table...")
		return mghelper.DropTables(ctx, db, &dao.CursorDao{})
	})
}
