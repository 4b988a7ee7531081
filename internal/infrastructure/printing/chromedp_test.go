package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bimate/backend/internal/domain/shared"
	"github.com/bimate/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewChromedpRenderer_Defaults(t *testing.T) {
	r := NewChromedpRenderer(&ChromedpConfig{RemoteURL: "ws://127.0.0.1:9222"})
	defer r.Close()

	assert.Equal(t, defaultChromeTimeout, r.config.DefaultTimeout)
	assert.Equal(t, defaultScale, r.config.Scale)
	assert.Equal(t, defaultViewportW, r.config.ViewportWidth)
	assert.Equal(t, defaultViewportH, r.config.ViewportHeight)
	assert.NotNil(t, r.logger)
}

func TestConfigFromChrome(t *testing.T) {
	cfg := ConfigFromChrome(&config.ChromeConfig{
		RemoteURL:      "ws://chrome:9222",
		Headless:       true,
		NoSandbox:      true,
		Timeout:        45 * time.Second,
		ViewportWidth:  1600,
		ViewportHeight: 900,
	}, zap.NewNop())

	assert.Equal(t, "ws://chrome:9222", cfg.RemoteURL)
	assert.Equal(t, 45*time.Second, cfg.DefaultTimeout)
	assert.True(t, cfg.NoSandbox)
	assert.Equal(t, 1600, cfg.ViewportWidth)
}

func TestBuildPrintParams(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{Scale: 1.0}}

	t.Run("portrait A4", func(t *testing.T) {
		params := r.buildPrintParams(&RenderRequest{HTML: "<p>x</p>", Margins: DefaultMargins()})
		assert.InDelta(t, mmToInches(210), params.paperWidth, 0.01)
		assert.InDelta(t, mmToInches(297), params.paperHeight, 0.01)
		assert.InDelta(t, mmToInches(10), params.marginTop, 0.001)
		assert.False(t, params.landscape)
		assert.True(t, params.printBackground)
	})

	t.Run("landscape", func(t *testing.T) {
		params := r.buildPrintParams(&RenderRequest{HTML: "<p>x</p>", Orientation: Landscape})
		assert.True(t, params.landscape)
		assert.Zero(t, params.marginLeft)
	})
}

func TestRender_InvalidInput(t *testing.T) {
	r := NewChromedpRenderer(&ChromedpConfig{RemoteURL: "ws://127.0.0.1:9222"})
	defer r.Close()

	tests := []struct {
		name string
		req  *RenderRequest
	}{
		{"nil request", nil},
		{"empty HTML", &RenderRequest{}},
		{"whitespace HTML", &RenderRequest{HTML: "  \n\t "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(context.Background(), tt.req)
			require.Error(t, err)

			var renderErr *RenderError
			require.True(t, errors.As(err, &renderErr))
			assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)
			assert.True(t, errors.Is(err, shared.ErrRenderFailed))
		})
	}

	_, err := r.Screenshot(context.Background(), &ScreenshotRequest{})
	assert.True(t, errors.Is(err, shared.ErrRenderFailed))
}

func TestBuildCompleteHTML(t *testing.T) {
	t.Run("wraps fragments", func(t *testing.T) {
		html := buildCompleteHTML("<h1>Дашборд</h1>", "Дашборд")
		assert.Contains(t, html, `<meta charset="UTF-8">`)
		assert.Contains(t, html, "<title>Дашборд</title>")
		assert.Contains(t, html, "<body><h1>Дашборд</h1></body>")
	})

	t.Run("keeps full documents", func(t *testing.T) {
		doc := "<!DOCTYPE html><html><body>chart</body></html>"
		assert.Equal(t, doc, buildCompleteHTML(doc, "ignored"))
	})
}

func TestRenderError(t *testing.T) {
	cause := errors.New("websocket closed")
	err := NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", cause)

	assert.Equal(t, "chromedp execution failed: websocket closed", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, shared.ErrRenderFailed))
	assert.Equal(t, "generated PDF is empty", NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil).Error())
}

func TestEstimatePageCount(t *testing.T) {
	assert.Equal(t, 1, estimatePageCount([]byte("%PDF-1.4")))
	assert.Equal(t, 2, estimatePageCount([]byte("/Type /Pages /Type /Page /Type /Page")))
}
