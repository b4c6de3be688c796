package main

import (
	"context"
	"flag"
	"os"
	"time"

	"google.golang.org/api/option"

	"github.com/dvloznov/voice-budget/internal/config"
	infraBQ "github.com/dvloznov/voice-budget/internal/infra/bigquery"
	"github.com/dvloznov/voice-budget/internal/logger"
)

// migrate creates the BigQuery dataset and extraction run table named in the
// configuration. Existing objects are left untouched.
func main() {
	var (
		location = flag.String("location", "EU", "BigQuery dataset location")
		list     = flag.Bool("list", false, "list tables in the dataset after migrating")
	)
	flag.Parse()

	log := logger.NewWithOptions(logger.Options{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if !cfg.BigQuery.Enabled() {
		log.Fatal().Msg("bigquery.project_id is required (set BIGQUERY_PROJECT_ID)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var opts []option.ClientOption
	if cfg.BigQuery.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.BigQuery.CredentialsFile))
	}

	repo, err := infraBQ.NewRunRepository(ctx, infraBQ.TableRef{
		ProjectID: cfg.BigQuery.ProjectID,
		DatasetID: cfg.BigQuery.Dataset,
		TableID:   cfg.BigQuery.Table,
	}, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer repo.Close()

	log = logger.WithFields(log, map[string]interface{}{
		"project": cfg.BigQuery.ProjectID,
		"dataset": cfg.BigQuery.Dataset,
		"table":   cfg.BigQuery.Table,
	})

	if err := repo.EnsureDataset(ctx, *location); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure dataset")
	}
	if err := repo.EnsureTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure extraction run table")
	}
	log.Info().Msg("Extraction run table is ready")

	if *list {
		tables, err := repo.ListTables(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list tables")
		}
		for _, t := range tables {
			log.Info().Str("table_id", t).Msg("Table")
		}
	}
}
