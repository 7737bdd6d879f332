package main

import (
	"flag"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/abelzeko/stream-report/internal/api"
	"github.com/abelzeko/stream-report/internal/config"
	"github.com/abelzeko/stream-report/internal/integration"
	"github.com/abelzeko/stream-report/internal/logging"
	"github.com/abelzeko/stream-report/internal/quality"
	"github.com/abelzeko/stream-report/internal/repository"
	"github.com/abelzeko/stream-report/internal/usecases"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: report [-config file.yaml] [export.csv|.xlsx|.html]\n")
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

	log.Println("Starting stream report...")
	result, err := run(cfg)
	if err != nil {
		log.Fatalf("Report failed: %v", err)
	}

	log.Printf("Overview written to %s and %s", result.OverviewImage, result.Workbook)
	for _, c := range result.Impairments {
		log.Printf("Impaired: %s %s (%g)", c.Parameter, c.Month, c.Value)
	}
}

// run generates one report as configured
func run(cfg *config.Config) (*usecases.ReportResult, error) {
	cutoff, err := cfg.CutoffDate()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	rules := quality.DefaultRules()

	loader := integration.NewSourceLoader(cfg.Source.SkipRows, cfg.Source.Sheet, cfg.IntermediatePath())
	useCase := usecases.NewReportUseCase(loader, usecases.ReportOptions{
		OutputDir: cfg.Report.OutputDir,
		Cutoff:    cutoff,
		Policy:    policy,
		Rules:     rules,
		Labels:    cfg.Labels(""),
	})

	if cfg.StorageEnabled() {
		repo, err := repository.NewSQLiteMeasurementRepository(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize repository: %w", err)
		}
		defer repo.Close()
		useCase.WithRepository(repo)
	}

	if cfg.TelegramEnabled() {
		notifier, err := api.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, rules)
		if err != nil {
			log.Warnf("Telegram alerts disabled: %v", err)
		} else {
			useCase.WithNotifier(notifier)
		}
	}

	return useCase.GenerateReport(cfg.Source.Path)
}
