// Package usecases contains the application's business logic
package usecases

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/abelzeko/stream-report/internal/dataset"
	"github.com/abelzeko/stream-report/internal/entities"
	"github.com/abelzeko/stream-report/internal/quality"
	"github.com/abelzeko/stream-report/internal/render"
	"github.com/abelzeko/stream-report/internal/repository"
)

// SourceLoader reads an export into a cleaned, unjoined dataset
type SourceLoader interface {
	Load(path string) (*entities.Dataset, error)
}

// Notifier delivers impairment alerts
type Notifier interface {
	NotifyImpairments(labels render.Labels, grid entities.MonthlyGrid) error
}

// ReportOptions scopes and labels a report
type ReportOptions struct {
	OutputDir string
	Cutoff    time.Time
	Policy    quality.Policy
	Rules     quality.Rules
	Labels    render.Labels // an empty SiteName is taken from the data
}

// ReportResult describes the artifacts of one run
type ReportResult struct {
	RunID         string
	SiteID        string
	Labels        render.Labels
	Stats         entities.LoadStats
	Records       int // joined records
	ScopedRecords int // records on or after the cutoff
	Grid          entities.MonthlyGrid
	Impairments   []entities.MonthlyCell
	Charts        []string
	OverviewImage string
	Workbook      string
}

// ReportUseCase runs the load, join, aggregate and render pipeline
type ReportUseCase struct {
	loader   SourceLoader
	repo     repository.MeasurementRepository
	notifier Notifier
	opts     ReportOptions
	now      func() time.Time
}

// NewReportUseCase creates a report use case. Storage and alerts are off until
// WithRepository and WithNotifier are called.
func NewReportUseCase(loader SourceLoader, opts ReportOptions) *ReportUseCase {
	if opts.Rules == nil {
		opts.Rules = quality.DefaultRules()
	}
	if opts.Cutoff.IsZero() {
		opts.Cutoff = dataset.DefaultCutoff
	}
	if opts.Policy == "" {
		opts.Policy = quality.PolicyFirst
	}
	if opts.Labels.ReportYear == 0 {
		opts.Labels.ReportYear = opts.Cutoff.Year()
	}
	return &ReportUseCase{
		loader: loader,
		opts:   opts,
		now:    time.Now,
	}
}

// WithRepository persists every generated report into repo
func (uc *ReportUseCase) WithRepository(repo repository.MeasurementRepository) *ReportUseCase {
	uc.repo = repo
	return uc
}

// WithNotifier sends impairment alerts through n
func (uc *ReportUseCase) WithNotifier(n Notifier) *ReportUseCase {
	uc.notifier = n
	return uc
}

// LoadDataset loads the export at path and joins the E. coli series onto the measurements
func (uc *ReportUseCase) LoadDataset(path string) (*entities.Dataset, error) {
	ds, err := uc.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	ds.Measurements = dataset.Join(ds.Measurements, ds.Ecoli)
	return ds, nil
}

// BuildOverview scopes the joined measurements to the cutoff and aggregates them by month
func (uc *ReportUseCase) BuildOverview(ds *entities.Dataset) entities.MonthlyGrid {
	scoped := dataset.FilterFrom(ds.Measurements, uc.opts.Cutoff)
	return quality.NewAggregator(uc.opts.Rules, uc.opts.Policy).Aggregate(scoped)
}

// IngestDataset loads, joins and aggregates the export at path and stores the
// result in the repository without rendering anything
func (uc *ReportUseCase) IngestDataset(path string) (*entities.ReportRun, error) {
	if uc.repo == nil {
		return nil, errors.New("ingest requires a repository")
	}

	ds, err := uc.LoadDataset(path)
	if err != nil {
		return nil, err
	}

	siteName := uc.opts.Labels.SiteName
	if siteName == "" {
		siteName = ds.SiteName()
	}
	run := uc.newRun(uuid.NewString(), ds, siteName, uc.BuildOverview(ds))
	if err := uc.repo.SaveReport(run); err != nil {
		return nil, fmt.Errorf("failed to save dataset: %w", err)
	}
	return run, nil
}

func (uc *ReportUseCase) newRun(id string, ds *entities.Dataset, siteName string, grid entities.MonthlyGrid) *entities.ReportRun {
	return &entities.ReportRun{
		ID:           id,
		SiteID:       ds.SiteID(),
		SiteName:     siteName,
		Source:       ds.Source,
		Policy:       string(uc.opts.Policy),
		Cutoff:       uc.opts.Cutoff,
		GeneratedAt:  uc.now(),
		Stats:        ds.Stats,
		Measurements: ds.Measurements,
		Grid:         grid,
	}
}

// GenerateReport runs the whole pipeline for the export at path.
// Nothing is rendered when loading fails. Alert failures are logged only.
func (uc *ReportUseCase) GenerateReport(path string) (*ReportResult, error) {
	runID := uuid.NewString()
	logger := log.WithField("run", runID)
	logger.Printf("Starting report for %s", path)

	ds, err := uc.LoadDataset(path)
	if err != nil {
		return nil, err
	}

	grid := uc.BuildOverview(ds)
	labels := uc.opts.Labels
	if labels.SiteName == "" {
		labels.SiteName = ds.SiteName()
	}

	result := &ReportResult{
		RunID:         runID,
		SiteID:        ds.SiteID(),
		Labels:        labels,
		Stats:         ds.Stats,
		Records:       len(ds.Measurements),
		ScopedRecords: len(dataset.FilterFrom(ds.Measurements, uc.opts.Cutoff)),
		Grid:          grid,
		Impairments:   grid.Impairments(),
	}

	renderer := render.NewRenderer(uc.opts.OutputDir, labels, uc.opts.Rules)
	if result.Charts, err = renderer.RenderCharts(ds); err != nil {
		return nil, fmt.Errorf("failed to render charts: %w", err)
	}
	if result.OverviewImage, err = renderer.RenderOverview(grid); err != nil {
		return nil, fmt.Errorf("failed to render overview: %w", err)
	}
	if result.Workbook, err = renderer.RenderWorkbook(grid, ds.Measurements); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	if uc.repo != nil {
		if err := uc.repo.SaveReport(uc.newRun(runID, ds, labels.SiteName, grid)); err != nil {
			return nil, fmt.Errorf("failed to save report: %w", err)
		}
	}

	if uc.notifier != nil && len(result.Impairments) > 0 {
		if err := uc.notifier.NotifyImpairments(labels, grid); err != nil {
			logger.Warnf("Failed to send impairment alert: %v", err)
		}
	}

	logger.WithFields(log.Fields{
		"site":        labels.SiteName,
		"records":     result.Records,
		"scoped":      result.ScopedRecords,
		"impairments": len(result.Impairments),
		"charts":      len(result.Charts),
	}).Info("Report generated")
	return result, nil
}
