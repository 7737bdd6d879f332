package main

import (
	"flag"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/abelzeko/stream-report/internal/config"
	"github.com/abelzeko/stream-report/internal/entities"
	"github.com/abelzeko/stream-report/internal/integration"
	"github.com/abelzeko/stream-report/internal/logging"
	"github.com/abelzeko/stream-report/internal/repository"
	"github.com/abelzeko/stream-report/internal/usecases"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: ingest [-config file.yaml] [export.csv|.xlsx|.html]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if flag.NArg() > 0 {
		cfg.Source.Path = flag.Arg(0)
	}

	closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer closer.Close()

	log.Println("Starting stream data ingest...")
	run, err := ingest(cfg)
	if err != nil {
		log.Fatalf("Ingest failed: %v", err)
	}

	log.WithFields(log.Fields{
		"run":        run.ID,
		"site":       run.SiteName,
		"rows":       run.Stats.Rows,
		"incomplete": run.Stats.Incomplete,
		"bad_dates":  run.Stats.BadDates,
		"impaired":   run.Impaired(),
	}).Info("Ingest complete")
}

// ingest stores the cleaned export in the snapshot database and returns the
// run as read back from it. Without a configured path the default database is used.
func ingest(cfg *config.Config) (*entities.ReportRun, error) {
	cutoff, err := cfg.CutoffDate()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	repo, err := repository.NewSQLiteMeasurementRepository(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	loader := integration.NewSourceLoader(cfg.Source.SkipRows, cfg.Source.Sheet, cfg.IntermediatePath())
	useCase := usecases.NewReportUseCase(loader, usecases.ReportOptions{
		OutputDir: cfg.Report.OutputDir,
		Cutoff:    cutoff,
		Policy:    policy,
		Labels:    cfg.Labels(""),
	}).WithRepository(repo)

	saved, err := useCase.IngestDataset(cfg.Source.Path)
	if err != nil {
		return nil, err
	}

	stored, err := repo.GetRun(saved.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("run %s was not recorded", saved.ID)
	}
	stored.Measurements, err = repo.GetMeasurementsBySite(stored.SiteID)
	if err != nil {
		return nil, err
	}
	if stored.Grid, err = repo.GetMonthlyGrid(stored.SiteID); err != nil {
		return nil, err
	}
	return stored, nil
}
