// Command ingest runs one ingestion from the command line and prints its
// report as JSON.
//
// Usage:
//
//	go run ./cmd/ingest -kind rain -path /data/storage/rain/2024-05.nc
//	go run ./cmd/ingest -kind risk -path risk.dbf -force-province "Chiang Mai"
//	go run ./cmd/ingest -kind incident -path stats.xlsx -dry-run
//	go run ./cmd/ingest -kind reference
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/files"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/memory"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/postgres"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/config"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/ingest"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/observability"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	kind := flag.String("kind", "", "upload kind: rain, risk, incident or reference")
	path := flag.String("path", "", "source file; for reference, the boundary file (defaults to BOUNDARY_PATH)")
	filename := flag.String("filename", "", "original upload filename recorded in the upload log")
	forceProvince := flag.String("force-province", "", "attribute every row to this province")
	dryRun := flag.Bool("dry-run", false, "parse, join and resolve without writing")
	removeAfter := flag.Bool("remove-after", false, "delete the source file after a successful ingestion")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	job := domain.Job{
		ID:            uuid.NewString(),
		Kind:          domain.UploadKind(*kind),
		Path:          *path,
		Filename:      *filename,
		ForceProvince: *forceProvince,
		RemoveAfter:   *removeAfter,
	}
	if !job.Kind.Valid() || (job.Path == "" && job.Kind != domain.KindReference) {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	report, err := run(ctx, cfg, job, *dryRun, logger)
	stop()
	if report.Kind != "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	if err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, job domain.Job, dryRun bool, logger *slog.Logger) (domain.IngestReport, error) {
	opts := cfg.IngestOptions()
	opts.DryRun = dryRun

	stores, closeStores, err := openStores(ctx, cfg, dryRun, logger)
	if err != nil {
		return domain.IngestReport{}, err
	}
	defer closeStores()

	svc := ingest.New(opts, files.Sources(cfg.RiskDBFEncoding, logger), stores, observability.NewMetrics(), logger)
	return svc.Handle(ctx, job)
}

// openStores connects to Postgres, or for a dry run builds an in-memory
// store seeded with the database's reference tables when one is configured.
func openStores(ctx context.Context, cfg *config.Config, dryRun bool, logger *slog.Logger) (ingest.Stores, func(), error) {
	var pg *postgres.Store
	closeFn := func() {}
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return ingest.Stores{}, nil, err
		}
		pg = postgres.New(db)
		closeFn = func() { _ = pg.Close() }
	}

	if !dryRun {
		if pg == nil {
			return ingest.Stores{}, nil, errors.New("DATABASE_URL is required unless -dry-run is set")
		}
		if err := pg.Migrate(ctx); err != nil {
			closeFn()
			return ingest.Stores{}, nil, err
		}
		return pg.IngestStores(nil), closeFn, nil
	}

	mem := memory.New()
	if pg != nil {
		provinces, err := pg.Provinces(ctx)
		if err != nil {
			closeFn()
			return ingest.Stores{}, nil, err
		}
		districts, err := pg.Districts(ctx)
		if err != nil {
			closeFn()
			return ingest.Stores{}, nil, err
		}
		mem.Seed(provinces, districts)
		logger.Info("dry run seeded from database", "provinces", len(provinces), "districts", len(districts))
	} else {
		logger.Warn("dry run without DATABASE_URL, names resolve against empty reference tables")
	}
	return ingest.Stores{
		Reference:       mem,
		ReferenceWriter: mem,
		Uploads:         mem,
		Rain:            mem.Rain,
		Risk:            mem.Risk,
		Incidents:       mem.Incidents,
	}, closeFn, nil
}
