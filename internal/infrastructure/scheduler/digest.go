package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/bimate/backend/internal/domain/report"
	"go.uber.org/zap"
)

const digestCaption = "Еженедельный отчет за %s"

// ArtifactProducer builds report artifacts
type ArtifactProducer interface {
	Produce(ctx context.Context, req report.ArtifactRequest) (*report.Artifact, error)
}

// ArtifactSender delivers an artifact to a chat
type ArtifactSender interface {
	SendArtifact(ctx context.Context, chatID int64, artifact *report.Artifact) error
}

// DigestRecorder counts digest runs by outcome
type DigestRecorder interface {
	RecordDigest(err error)
}

// DigestExecutor produces the weekly report once and sends it to every chat
type DigestExecutor struct {
	producer ArtifactProducer
	sender   ArtifactSender
	chatIDs  []int64
	recorder DigestRecorder
	logger   *zap.Logger
}

// NewDigestExecutor creates a new DigestExecutor. recorder may be nil.
func NewDigestExecutor(producer ArtifactProducer, sender ArtifactSender, chatIDs []int64, recorder DigestRecorder, logger *zap.Logger) *DigestExecutor {
	return &DigestExecutor{
		producer: producer,
		sender:   sender,
		chatIDs:  chatIDs,
		recorder: recorder,
		logger:   logger,
	}
}

// Execute implements JobExecutor. A failing chat does not stop delivery to
// the others and the joined error makes the job retry for it alone.
func (e *DigestExecutor) Execute(ctx context.Context, job *Job) (err error) {
	defer func() {
		if e.recorder != nil {
			e.recorder.RecordDigest(err)
		}
	}()

	if len(e.chatIDs) == 0 {
		return ErrNoRecipients
	}

	artifact, err := e.producer.Produce(ctx, report.ArtifactRequest{
		Kind:    report.KindWeeklyReport,
		Period:  job.Week,
		Caption: fmt.Sprintf(digestCaption, job.Week.Human()),
	})
	if err != nil {
		return fmt.Errorf("produce digest: %w", err)
	}

	var errs []error
	for _, chatID := range e.chatIDs {
		if job.Delivered[chatID] {
			continue
		}
		if err := e.sender.SendArtifact(ctx, chatID, artifact); err != nil {
			e.logger.Warn("Digest delivery failed", zap.Int64("chat_id", chatID), zap.Error(err))
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		job.Delivered[chatID] = true
	}
	return errors.Join(errs...)
}
