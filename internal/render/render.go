// Package render turns invoice HTML into PDF bytes by delegating to an
// external rendering service.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nusacloud/billing-api/internal/config"
)

// ErrUnavailable reports that no renderer endpoint is configured.
var ErrUnavailable = errors.New("pdf renderer not configured")

// Renderer converts an HTML document into a PDF.
type Renderer interface {
	RenderPDF(ctx context.Context, html []byte) ([]byte, error)
}

// HTTPRenderer posts HTML to a rendering service and reads back the PDF.
type HTTPRenderer struct {
	url    string
	client *http.Client
}

func NewHTTPRenderer(cfg config.RendererConfig) *HTTPRenderer {
	return &HTTPRenderer{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (r *HTTPRenderer) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	if r.url == "" {
		return nil, ErrUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "text/html; charset=utf-8")
	req.Header.Set("Accept", "application/pdf")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call renderer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("renderer returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rendered pdf: %w", err)
	}
	return pdf, nil
}
