package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"propertycare-backend/internal/shared/telemetry"
)

// Source reports which path produced the text.
type Source string

const (
	SourceNone   Source = ""
	SourceNative Source = "text"
	SourceOCR    Source = "ocr"
)

// Result is the raw text of a document and where it came from.
type Result struct {
	Text   string
	Source Source
}

// OCR renders PDF pages and recognizes text in images.
type OCR interface {
	// RenderFirstPage writes page one of pdfPath as an image inside outDir and returns its path.
	RenderFirstPage(ctx context.Context, pdfPath, outDir string) (string, error)
	RecognizeImage(ctx context.Context, imagePath string) (string, error)
}

// Backend turns a stored file into raw text. It never returns errors: any
// failure is logged and degrades to empty text.
type Backend struct {
	ocr     OCR
	readPDF func(path string) (string, error)
	tempDir string
}

// NewBackend constructs a Backend. A nil ocr disables the OCR fallback.
func NewBackend(ocr OCR) *Backend {
	return &Backend{ocr: ocr, readPDF: readPDFText}
}

// ExtractText returns the document's text, or "" when nothing could be read.
func (b *Backend) ExtractText(ctx context.Context, path, mimeType string) string {
	return b.Extract(ctx, path, mimeType).Text
}

// Extract is ExtractText plus the path that produced the text.
func (b *Backend) Extract(ctx context.Context, path, mimeType string) Result {
	switch kind := classify(mimeType); kind {
	case kindPDF:
		return b.extractPDF(ctx, path)
	case kindImage:
		// Direct image uploads are stored without OCR.
		return Result{}
	default:
		telemetry.Info("extract.unsupported_mime", map[string]any{"mime_type": mimeType})
		return Result{}
	}
}

func (b *Backend) extractPDF(ctx context.Context, path string) Result {
	text, err := b.readPDF(path)
	if err != nil {
		telemetry.Info("extract.pdf_text_failed", map[string]any{"path": path, "error": err})
	}
	if strings.TrimSpace(text) != "" {
		return Result{Text: text, Source: SourceNative}
	}

	if b.ocr == nil {
		return Result{}
	}
	text, err = b.ocrFirstPage(ctx, path)
	if err != nil {
		telemetry.Warn("extract.ocr_failed", map[string]any{"path": path, "error": err})
		return Result{}
	}
	if strings.TrimSpace(text) == "" {
		return Result{}
	}
	return Result{Text: text, Source: SourceOCR}
}

// ocrFirstPage renders into a private temp dir that is removed on every path.
func (b *Backend) ocrFirstPage(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp(b.tempDir, "receipt-ocr-*")
	if err != nil {
		return "", fmt.Errorf("mkdir temp: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			telemetry.Warn("extract.temp_cleanup_failed", map[string]any{"dir": dir, "error": err})
		}
	}()

	start := time.Now()
	img, err := b.ocr.RenderFirstPage(ctx, path, dir)
	if err != nil {
		return "", fmt.Errorf("render first page: %w", err)
	}
	text, err := b.ocr.RecognizeImage(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognize image: %w", err)
	}
	telemetry.Info("extract.ocr_complete", map[string]any{
		"path":        path,
		"chars":       len(text),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return text, nil
}

// readPDFText reads the embedded text layer. The pdf package panics on some
// malformed inputs, so panics are converted to errors.
func readPDFText(path string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type docKind int

const (
	kindOther docKind = iota
	kindPDF
	kindImage
)

func classify(mimeType string) docKind {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch {
	case clean == "application/pdf", clean == "application/x-pdf", clean == "application/acrobat":
		return kindPDF
	case strings.HasPrefix(clean, "image/"):
		return kindImage
	default:
		return kindOther
	}
}
