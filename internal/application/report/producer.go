package report

import (
	"context"
	"fmt"
	"time"

	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Archive keeps a copy of every delivered artifact
type Archive interface {
	Store(ctx context.Context, artifact *report.Artifact) (string, error)
}

// Recorder receives production metrics
type Recorder interface {
	RecordArtifact(kind string, elapsed time.Duration, err error)
	RecordArchiveFailure()
}

// Producer turns an ArtifactRequest into an artifact by dispatching on its kind
type Producer struct {
	charts    *ChartService
	dashboard *DashboardService
	narrative *NarrativeService
	archive   Archive
	recorder  Recorder
	logger    *zap.Logger
}

// ProducerOption configures optional Producer collaborators
type ProducerOption func(*Producer)

// WithArchive stores produced artifacts. Archive failures never fail delivery.
func WithArchive(a Archive) ProducerOption {
	return func(p *Producer) { p.archive = a }
}

// WithRecorder records production counts and latency.
func WithRecorder(r Recorder) ProducerOption {
	return func(p *Producer) { p.recorder = r }
}

// NewProducer creates a new Producer
func NewProducer(charts *ChartService, dashboard *DashboardService, narrative *NarrativeService, logger *zap.Logger, opts ...ProducerOption) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Producer{charts: charts, dashboard: dashboard, narrative: narrative, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Produce builds the requested artifact.
func (p *Producer) Produce(ctx context.Context, req report.ArtifactRequest) (*report.Artifact, error) {
	started := time.Now()
	artifact, err := p.produce(ctx, req)
	if p.recorder != nil {
		p.recorder.RecordArtifact(string(req.Kind), time.Since(started), err)
	}
	if err != nil {
		return nil, err
	}

	if req.Caption != "" {
		artifact.Caption = req.Caption
	}
	if req.Filename != "" {
		artifact.Filename = req.Filename
	}

	contextLogger(ctx, p.logger).Info("artifact produced",
		zap.String("artifact", artifact.Filename),
		zap.String("kind", string(req.Kind)),
		zap.String("period", req.Period.String()),
		zap.Duration("elapsed", time.Since(started)))

	p.store(ctx, artifact)
	return artifact, nil
}

func (p *Producer) produce(ctx context.Context, req report.ArtifactRequest) (*report.Artifact, error) {
	switch req.Kind {
	case report.KindChart:
		return p.charts.Produce(ctx, req.Subtype, req.Period)
	case report.KindDashboard:
		return p.dashboard.Produce(ctx, req.Period)
	case report.KindWeeklyReport:
		return p.narrative.Produce(ctx, report.Weekly, req.Period)
	case report.KindMonthlyReport:
		return p.narrative.Produce(ctx, report.Monthly, req.Period)
	}
	return nil, fmt.Errorf("%w: unknown artifact kind %q", shared.ErrInvalidInput, req.Kind)
}

func (p *Producer) store(ctx context.Context, artifact *report.Artifact) {
	if p.archive == nil {
		return
	}
	for _, a := range append([]*report.Artifact{artifact}, artifact.Attachments...) {
		key, err := p.archive.Store(ctx, a)
		if err != nil {
			if p.recorder != nil {
				p.recorder.RecordArchiveFailure()
			}
			contextLogger(ctx, p.logger).Warn("artifact archive failed",
				zap.String("artifact", a.Filename), zap.Error(err))
			continue
		}
		contextLogger(ctx, p.logger).Debug("artifact archived",
			zap.String("artifact", a.Filename), zap.String("key", key))
	}
}
