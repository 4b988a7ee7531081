package report

import "github.com/bimate/backend/internal/domain/period"

// ArtifactKind is the kind of output a navigation flow produces
type ArtifactKind string

const (
	KindChart         ArtifactKind = "chart"
	KindDashboard     ArtifactKind = "dashboard"
	KindWeeklyReport  ArtifactKind = "weekly_report"
	KindMonthlyReport ArtifactKind = "monthly_report"
)

// Content types of produced artifacts
const (
	ContentTypePNG  = "image/png"
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ArtifactRequest names what to produce and for which period.
// Subtype is the chart query for charts. Caption overrides the default caption.
type ArtifactRequest struct {
	Kind    ArtifactKind
	Subtype QueryName
	Period  period.Range
	Caption string
	// Filename overrides the default file name.
	Filename string
}

// Artifact is a produced output ready for delivery
type Artifact struct {
	Kind        ArtifactKind
	Filename    string
	ContentType string
	Caption     string
	Data        []byte
	// Attachments are companion files delivered after the main artifact.
	Attachments []*Artifact
}

// IsPhoto reports whether the artifact is delivered as an inline image.
func (a *Artifact) IsPhoto() bool {
	return a.ContentType == ContentTypePNG
}
