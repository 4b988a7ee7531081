// Package printing turns HTML into PDF documents and PNG images with headless Chrome.
package printing

import (
	"context"
	"time"

	"github.com/bimate/backend/internal/domain/shared"
)

// Orientation of the printed page
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Margins in millimeters
type Margins struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// DefaultMargins returns the margins used for dashboards
func DefaultMargins() Margins {
	return Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}
}

// A4 paper in millimeters
const (
	a4WidthMM  = 210
	a4HeightMM = 297
)

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	// HTML content to render
	HTML        string
	Orientation Orientation
	Margins     Margins
	// Title for the PDF document metadata
	Title string
	// WaitSelector delays printing until the element is visible, e.g. the last chart canvas
	WaitSelector string
	// Timeout overrides the default rendering timeout
	Timeout time.Duration
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	PDFData        []byte
	PageCount      int
	RenderDuration time.Duration
}

// ScreenshotRequest captures one element of an HTML page as PNG
type ScreenshotRequest struct {
	HTML string
	// Selector of the element to capture; empty captures the full page
	Selector string
	Width    int
	Height   int
	Timeout  time.Duration
}

// PDFRenderer renders HTML to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// Screenshotter renders HTML to a PNG image
type Screenshotter interface {
	Screenshot(ctx context.Context, req *ScreenshotRequest) ([]byte, error)
}

// RenderError represents an error during rendering. It matches shared.ErrRenderFailed.
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() []error {
	if e.Cause == nil {
		return []error{shared.ErrRenderFailed}
	}
	return []error{shared.ErrRenderFailed, e.Cause}
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
