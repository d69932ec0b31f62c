package bridgedb_test

import (
	"context"
	"testing"

	"github.com/chainsafe/xchain-bridge-operator/pkg/migrations/bridgedb"
	"github.com/chainsafe/xchain-bridge-operator/pkg/pgutil"

	"github.com/uptrace/bun/migrate"
)

func TestBridgeDBMigrations_Apply(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, bridgedb.Migrations)

	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if group.IsZero() {
		t.Error("expected migrations to run, but none were applied")
	}

	expectedTables := []string{
		"evm_deposits",
		"cosmos_deposits",
		"approvals",
		"releases",
		"cursors",
		"bun_migrations",
	}
	for _, table := range expectedTables {
		pgutil.AssertTableExists(t, db, table)
	}

	pgutil.AssertIndexExists(t, db, "idx_evm_deposits_chain_tx_log")
	pgutil.AssertIndexExists(t, db, "idx_cosmos_deposits_tx_nonce")
	pgutil.AssertIndexExists(t, db, "idx_approvals_src_nonce_dest")
	pgutil.AssertIndexExists(t, db, "idx_releases_src_nonce_dest")
}

func TestBridgeDBMigrations_Idempotency(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, bridgedb.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate() failed: %v", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate() failed: %v", err)
	}
	if !group.IsZero() {
		t.Error("expected no new migrations on second run")
	}

	pgutil.AssertTableExists(t, db, "approvals")
}

func TestBridgeDBMigrations_Rollback(t *testing.T) {
	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, bridgedb.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	pgutil.AssertTableExists(t, db, "cursors")

	group, err := migrator.Rollback(ctx)
	if err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}
	if group.IsZero() {
		t.Error("expected rollback to process a migration")
	}

	pgutil.AssertTableNotExists(t, db, "cursors")
	pgutil.AssertTableNotExists(t, db, "releases")
	pgutil.AssertTableNotExists(t, db, "approvals")
	pgutil.AssertTableNotExists(t, db, "cosmos_deposits")
	pgutil.AssertTableNotExists(t, db, "evm_deposits")
}
