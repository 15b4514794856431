package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	var buf bytes.Buffer
	writeHistogram(&buf, "x_ms", "help", h.Snapshot())
	out := buf.String()

	for _, want := range []string{
		`x_ms_bucket{le="10"} 1`,
		`x_ms_bucket{le="100"} 2`,
		`x_ms_bucket{le="+Inf"} 3`,
		`x_ms_sum 555`,
		`x_ms_count 3`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
}

func TestRenderIncludesExtractionResults(t *testing.T) {
	before := extractionsByResult.Snapshot()[ResultOCR]
	IncExtraction(ResultOCR)
	IncExtraction(ResultOCR)
	IncReceiptUploaded()

	if got := extractionsByResult.Snapshot()[ResultOCR]; got != before+2 {
		t.Fatalf("expected ocr counter %d, got %d", before+2, got)
	}
	out := Render()
	for _, want := range []string{`receipt_extractions_total{result="ocr"}`, "receipts_uploaded_total", "receipt_extraction_duration_ms_count"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
}
