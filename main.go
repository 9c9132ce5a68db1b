package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/config"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/database"
	"github.com/Teeratat-Kraikuan/dfir-automation-analysis/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		driver     = flag.String("driver", "", "database driver: sqlite or postgres (overrides config)")
		dsn        = flag.String("dsn", "", "database file path or connection string (overrides config)")
		evidenceID = flag.String("evidence", "", "evidence unit UUID (generated when omitted)")
		dir        = flag.String("dir", "", "directory of parsed artifact CSVs to ingest")
		create     = flag.Bool("create", false, "create the database schema before ingesting")
	)
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: dfir-ingest -dir <artifact-dir> [-config file] [-driver sqlite|postgres] [-dsn path] [-evidence uuid] [-create]")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *driver != "" {
		cfg.Database.Driver = *driver
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	log, err := logging.InitZap(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	evidence := uuid.New()
	if *evidenceID != "" {
		evidence, err = uuid.Parse(*evidenceID)
		if err != nil {
			log.Error("invalid evidence UUID", zap.String("value", *evidenceID), zap.Error(err))
			os.Exit(1)
		}
	}

	var store database.Store
	if *create {
		store, err = database.CreateStore(cfg.Database.Driver, cfg.Database.DSN)
	} else {
		store, err = database.OpenStore(cfg.Database.Driver, cfg.Database.DSN)
	}
	if err != nil {
		log.Error("opening record store", zap.Error(err))
		os.Exit(1)
	}

	app := NewApp(cfg, store, log)
	defer app.Close()

	report, err := app.IngestParsedDir(context.Background(), evidence, *dir)
	if err != nil {
		log.Error("ingestion failed", zap.Error(err))
		os.Exit(1)
	}

	fields := []zap.Field{zap.String("evidence", report.EvidenceID.String())}
	for k, v := range report.Summary {
		fields = append(fields, zap.Any(k, v))
	}
	log.Info("ingestion complete", fields...)

	for _, e := range report.Errors {
		log.Warn("partial failure", zap.String("detail", e))
	}
}
