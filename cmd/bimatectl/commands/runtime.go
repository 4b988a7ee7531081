package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	reportapp "github.com/bimate/backend/internal/application/report"
	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/infrastructure/charting"
	"github.com/bimate/backend/internal/infrastructure/config"
	"github.com/bimate/backend/internal/infrastructure/document"
	"github.com/bimate/backend/internal/infrastructure/logger"
	"github.com/bimate/backend/internal/infrastructure/persistence"
	"github.com/bimate/backend/internal/infrastructure/printing"
	"github.com/bimate/backend/internal/infrastructure/scheduler"
	"github.com/bimate/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

const artifactFilePerm = 0o640

// ErrStorageDisabled is returned by archive commands when storage.enabled is false.
var ErrStorageDisabled = errors.New("artifact storage is disabled (set storage.enabled)")

// runtime holds what a command needs; closers run in reverse order.
type runtime struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *persistence.Database
	closers []func()
}

func newRuntime(verbose bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
		Service:    "bimatectl",
	})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	rt := &runtime{cfg: cfg, log: log}
	rt.onClose(func() { _ = log.Sync() })
	return rt, nil
}

func (rt *runtime) onClose(fn func()) {
	rt.closers = append(rt.closers, fn)
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func (rt *runtime) database() (*persistence.Database, error) {
	if rt.db != nil {
		return rt.db, nil
	}
	db, err := persistence.NewDatabase(&rt.cfg.Database, rt.log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	rt.db = db
	rt.onClose(func() { _ = db.Close() })
	return db, nil
}

// producer wires the artifact pipeline the bot uses, without the archive.
func (rt *runtime) producer() (*reportapp.Producer, error) {
	db, err := rt.database()
	if err != nil {
		return nil, err
	}
	gateway := persistence.NewSalesGateway(db.DB)

	chrome := printing.NewChromedpRenderer(printing.ConfigFromChrome(&rt.cfg.Chrome, rt.log))
	rt.onClose(func() { _ = chrome.Close() })

	chartOpts := charting.DefaultOptions()
	chartOpts.AssetsHost = rt.cfg.Chrome.AssetsHost

	charts := reportapp.NewChartService(gateway, charting.NewRenderer(chrome, chartOpts, rt.log), rt.log)
	dashboard := reportapp.NewDashboardService(gateway, chrome, chartOpts, rt.log)
	narrative := reportapp.NewNarrativeService(gateway, document.NewDocxBuilder(), reportapp.NarrativeConfig{
		CompanyLines: rt.cfg.Report.CompanyLines,
		Responsible:  rt.cfg.Report.Responsible,
		ExportXLSX:   rt.cfg.Report.ExportXLSX,
	}, rt.log)

	return reportapp.NewProducer(charts, dashboard, narrative, rt.log), nil
}

func (rt *runtime) overview() (*reportapp.SalesOverviewService, error) {
	db, err := rt.database()
	if err != nil {
		return nil, err
	}
	repo := persistence.NewGormSalesOverviewRepository(db.DB)
	return reportapp.NewSalesOverviewService(repo, rt.cfg.Web.MaxRangeDays, rt.cfg.App.Location(), rt.log), nil
}

func (rt *runtime) archive() (*storage.S3ArtifactArchive, error) {
	if !rt.cfg.Storage.Enabled {
		return nil, ErrStorageDisabled
	}
	return storage.NewS3ArtifactArchive(&rt.cfg.Storage,
		storage.WithLogger(rt.log),
		storage.WithPresignExpiration(rt.cfg.Storage.PresignExpires),
	)
}

// parseRange reads --from/--to. Both empty yields fallback; one of them alone is an error.
func parseRange(from, to string, fallback period.Range) (period.Range, error) {
	if from == "" && to == "" {
		return fallback, nil
	}
	if from == "" || to == "" {
		return period.Range{}, errors.New("--from and --to must be given together")
	}
	start, err := time.Parse(period.DateLayout, from)
	if err != nil {
		return period.Range{}, fmt.Errorf("invalid --from %q: expected YYYY-MM-DD", from)
	}
	end, err := time.Parse(period.DateLayout, to)
	if err != nil {
		return period.Range{}, fmt.Errorf("invalid --to %q: expected YYYY-MM-DD", to)
	}
	r := period.NewRange(start, end)
	if r.Start.After(r.End) {
		return period.Range{}, fmt.Errorf("--from %s is after --to %s", from, to)
	}
	return r, nil
}

// lastWeek is the default period of charts, dashboards and weekly reports.
func lastWeek(now time.Time) period.Range {
	return scheduler.PreviousWeek(now)
}

// lastMonth is the previous calendar month.
func lastMonth(now time.Time) period.Range {
	first := period.Date(now.Year(), now.Month(), 1).AddDate(0, -1, 0)
	return period.Range{Start: first, End: first.AddDate(0, 1, -1)}
}

// writeArtifact stores the artifact and its attachments under dir and returns the paths.
func writeArtifact(dir string, artifact *report.Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	files := append([]*report.Artifact{artifact}, artifact.Attachments...)
	paths := make([]string, 0, len(files))
	for _, a := range files {
		path := filepath.Join(dir, filepath.Base(a.Filename))
		if err := os.WriteFile(path, a.Data, artifactFilePerm); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
