package receipts

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"propertycare-backend/internal/extract"
	"propertycare-backend/internal/shared/metrics"
	"propertycare-backend/internal/shared/telemetry"
)

const textSampleRunes = 500

// Fields is the normalized output of receipt extraction.
type Fields struct {
	Vendor          *string    `json:"vendor"`
	Amount          *float64   `json:"amount"`
	Date            *time.Time `json:"date"`
	Category        string     `json:"category"`
	TitleSuggestion *string    `json:"titleSuggestion"`
	TextSample      string     `json:"textSample"`
}

// Input identifies the file to extract from.
type Input struct {
	FilePath     string
	MimeType     string
	OriginalName string
}

// TextBackend produces raw text for a file. It must not fail.
type TextBackend interface {
	Extract(ctx context.Context, path, mimeType string) extract.Result
}

// Extractor runs text extraction, parsing and normalization. Concurrent
// extractions are bounded because OCR shells out to CPU-heavy tools.
type Extractor struct {
	backend TextBackend
	sem     *semaphore.Weighted
}

// NewExtractor constructs an Extractor allowing maxConcurrent extractions at once.
func NewExtractor(backend TextBackend, maxConcurrent int64) *Extractor {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Extractor{backend: backend, sem: semaphore.NewWeighted(maxConcurrent)}
}

// Extract never fails: any problem yields empty fields with the default category.
func (e *Extractor) Extract(ctx context.Context, in Input) Fields {
	waitStart := time.Now()
	if err := e.sem.Acquire(ctx, 1); err != nil {
		telemetry.Warn("receipt.extract_slot_unavailable", map[string]any{"file": in.OriginalName, "error": err})
		metrics.IncExtraction(metrics.ResultFailed)
		return FieldsFromText("", in.OriginalName)
	}
	defer e.sem.Release(1)
	metrics.ObserveExtractionWaitMs(float64(time.Since(waitStart).Microseconds()) / 1000.0)

	start := time.Now()
	res := e.run(ctx, in)
	metrics.ObserveExtractionDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)

	fields := FieldsFromText(res.Text, in.OriginalName)
	telemetry.Info("receipt.extracted", map[string]any{
		"file":       in.OriginalName,
		"mime_type":  in.MimeType,
		"source":     string(res.Source),
		"chars":      len(res.Text),
		"has_vendor": fields.Vendor != nil,
		"has_amount": fields.Amount != nil,
		"has_date":   fields.Date != nil,
	})
	return fields
}

func (e *Extractor) run(ctx context.Context, in Input) (res extract.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("receipt.extract_panic", map[string]any{"file": in.OriginalName, "error": fmt.Sprint(rec)})
			metrics.IncExtraction(metrics.ResultFailed)
			res = extract.Result{}
		}
	}()
	if e.backend == nil {
		metrics.IncExtraction(metrics.ResultEmpty)
		return extract.Result{}
	}
	res = e.backend.Extract(ctx, in.FilePath, in.MimeType)
	switch res.Source {
	case extract.SourceNative:
		metrics.IncExtraction(metrics.ResultText)
	case extract.SourceOCR:
		metrics.IncExtraction(metrics.ResultOCR)
	default:
		metrics.IncExtraction(metrics.ResultEmpty)
	}
	return res
}

// FieldsFromText parses and normalizes raw receipt text.
func FieldsFromText(text, originalName string) Fields {
	amount := ParseAmount(text)
	date := ParseDate(text)
	vendor := NormalizeVendor(GuessVendor(text), originalName)
	category := NormalizeCategory(GuessCategory(text))

	titleVendor := vendor
	if titleVendor == nil {
		titleVendor = FilenameLabel(originalName)
	}

	return Fields{
		Vendor:          vendor,
		Amount:          amount,
		Date:            date,
		Category:        category,
		TitleSuggestion: BuildTitle(category, titleVendor, amount),
		TextSample:      sample(text, textSampleRunes),
	}
}

func sample(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}
