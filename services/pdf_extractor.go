package services

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"eduvisor-backend/internal/apperr"
	"eduvisor-backend/internal/config"
	"eduvisor-backend/internal/logger"
	"eduvisor-backend/internal/telemetry"
)

// PageText is the text content of a single PDF page.
type PageText struct {
	Page int
	Text string
}

// PDFExtractor extracts per-page text from slide deck PDFs.
type PDFExtractor struct {
	config  *config.Config
	metrics *telemetry.Metrics
}

// NewPDFExtractor creates a new PDF extractor.
func NewPDFExtractor(cfg *config.Config, metrics *telemetry.Metrics) *PDFExtractor {
	return &PDFExtractor{
		config:  cfg,
		metrics: metrics,
	}
}

// ExtractPages reads the PDF and returns the plain text of each page in
// order. Pages that fail to decode are skipped with a warning rather than
// aborting the whole document; pages with no text at all are returned with
// an empty string so downstream page numbering stays aligned with the
// source material.
func (e *PDFExtractor) ExtractPages(ctx context.Context, content []byte) ([]PageText, error) {
	start := time.Now()

	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return nil, apperr.New(apperr.KindValidation, "context deadline exceeded before extraction")
		}
	}

	if e.config.MaxFileSize > 0 && int64(len(content)) > e.config.MaxFileSize {
		return nil, apperr.New(apperr.KindValidation, "pdf too large for in-memory extraction")
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		e.recordProcessing(start, "error")
		return nil, apperr.Wrap(apperr.KindValidation, "failed to create PDF reader", err)
	}

	total := reader.NumPage()
	pages := make([]PageText, 0, total)

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, PageText{Page: i})
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract text from page", "page", i, "error", err)
			pages = append(pages, PageText{Page: i})
			continue
		}

		pages = append(pages, PageText{Page: i, Text: strings.TrimSpace(text)})
	}

	e.recordProcessing(start, "success")
	return pages, nil
}

func (e *PDFExtractor) recordProcessing(start time.Time, status string) {
	if e.metrics != nil {
		e.metrics.RecordPDFProcessing(time.Since(start).Seconds(), status)
	}
}
