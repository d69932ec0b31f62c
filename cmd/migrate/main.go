package main

import (
	"flag"
	"log"

	"github.com/chainsafe/xchain-bridge-operator/pkg/config"
	"github.com/chainsafe/xchain-bridge-operator/pkg/migrations/bridgedb"
	"github.com/chainsafe/xchain-bridge-operator/pkg/pgutil"
	mghelper "github.com/chainsafe/xchain-bridge-operator/pkg/pgutil/migrations"

	"github.com/uptrace/bun/migrate"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	log.Printf("Running migrations for bridge database (%s)...\n", cfg.Database.Name)

	migrator := migrate.NewMigrator(db, bridgedb.Migrations)

	if err := mghelper.RunMigrations(migrator, flag.Args()...); err != nil {
		mghelper.Exitf(err.Error())
	}
}
