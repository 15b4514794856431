package receipts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"propertycare-backend/internal/extract"
	"propertycare-backend/internal/extract/pdftest"
)

type stubBackend struct {
	result extract.Result
	panics bool
}

func (s stubBackend) Extract(ctx context.Context, path, mimeType string) extract.Result {
	if s.panics {
		panic("boom")
	}
	return s.result
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func assertEmpty(t *testing.T, got Fields) {
	t.Helper()
	if got.Vendor != nil || got.Amount != nil || got.Date != nil || got.TitleSuggestion != nil {
		t.Fatalf("expected null fields, got %+v", got)
	}
	if got.Category != DefaultCategory || got.TextSample != "" {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestExtractorNativePDFScenario(t *testing.T) {
	path := writeFile(t, "rona.pdf", pdftest.Build("RONA", "123 Main St", "Total: $45.67", "2024-06-01"))
	ex := NewExtractor(extract.NewBackend(nil), 2)

	got := ex.Extract(context.Background(), Input{FilePath: path, MimeType: "application/pdf", OriginalName: "rona.pdf"})

	if got.Vendor == nil || *got.Vendor != "Rona" {
		t.Fatalf("vendor = %v", got.Vendor)
	}
	if got.Amount == nil || *got.Amount != 45.67 {
		t.Fatalf("amount = %v", got.Amount)
	}
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if got.Date == nil || !got.Date.Equal(want) {
		t.Fatalf("date = %v", got.Date)
	}
	if got.Category != "General" {
		t.Fatalf("category = %q", got.Category)
	}
	if got.TitleSuggestion == nil || *got.TitleSuggestion != "Rona • $45.67" {
		t.Fatalf("title = %v", got.TitleSuggestion)
	}
	if !strings.Contains(got.TextSample, "RONA") {
		t.Fatalf("sample = %q", got.TextSample)
	}
}

func TestExtractorCorruptPDFNeverFails(t *testing.T) {
	ex := NewExtractor(extract.NewBackend(nil), 1)
	for name, data := range map[string][]byte{
		"empty":   {},
		"corrupt": []byte("%PDF-1.4 this is not really a pdf"),
	} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, "receipt.pdf", data)
			got := ex.Extract(context.Background(), Input{FilePath: path, MimeType: "application/pdf", OriginalName: "receipt.pdf"})
			assertEmpty(t, got)
		})
	}
}

func TestExtractorMissingFile(t *testing.T) {
	ex := NewExtractor(extract.NewBackend(nil), 1)
	got := ex.Extract(context.Background(), Input{FilePath: filepath.Join(t.TempDir(), "gone.pdf"), MimeType: "application/pdf", OriginalName: "receipt.pdf"})
	assertEmpty(t, got)
}

func TestExtractorRecoversBackendPanic(t *testing.T) {
	ex := NewExtractor(stubBackend{panics: true}, 1)
	got := ex.Extract(context.Background(), Input{OriginalName: "receipt.pdf"})
	assertEmpty(t, got)
}

func TestExtractorTitleFallsBackToFilename(t *testing.T) {
	ex := NewExtractor(stubBackend{result: extract.Result{Text: "INVOICE\n$80.00\n", Source: extract.SourceOCR}}, 1)
	got := ex.Extract(context.Background(), Input{OriginalName: "hydro_bill_march.pdf"})
	if got.Vendor != nil {
		t.Fatalf("vendor = %q", *got.Vendor)
	}
	if got.TitleSuggestion == nil || *got.TitleSuggestion != "Hydro Bill March • $80.00" {
		t.Fatalf("title = %v", got.TitleSuggestion)
	}
}

func TestExtractorCanceledWhileWaiting(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{})
	ex := NewExtractor(blockingBackend{started: started, release: block}, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ex.Extract(context.Background(), Input{OriginalName: "first.pdf"})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := ex.Extract(ctx, Input{OriginalName: "receipt.pdf"})
	assertEmpty(t, got)

	close(block)
	wg.Wait()
}

type blockingBackend struct {
	started chan struct{}
	release chan struct{}
}

func (b blockingBackend) Extract(ctx context.Context, path, mimeType string) extract.Result {
	close(b.started)
	<-b.release
	return extract.Result{}
}

type countingBackend struct {
	active  atomic.Int64
	maxSeen atomic.Int64
}

func (c *countingBackend) Extract(ctx context.Context, path, mimeType string) extract.Result {
	n := c.active.Add(1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	c.active.Add(-1)
	return extract.Result{Text: "Vendor Name\n$1.00", Source: extract.SourceNative}
}

func TestExtractorBoundsConcurrency(t *testing.T) {
	backend := &countingBackend{}
	ex := NewExtractor(backend, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ex.Extract(context.Background(), Input{OriginalName: "x.pdf"})
		}()
	}
	wg.Wait()
	if got := backend.maxSeen.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent extractions, saw %d", got)
	}
}

func TestFieldsFromTextSampleTruncatesRunes(t *testing.T) {
	text := strings.Repeat("é", 600)
	got := FieldsFromText(text, "x.pdf")
	if n := len([]rune(got.TextSample)); n != textSampleRunes {
		t.Fatalf("expected %d runes, got %d", textSampleRunes, n)
	}
}
