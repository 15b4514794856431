package main

// Extract receipt fields from local files:
//   go run ./cmd/receiptscan -ocr receipt1.pdf receipt2.pdf

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"propertycare-backend/internal/bootstrap"
	"propertycare-backend/internal/receipts"
	"propertycare-backend/internal/shared/config"
	"propertycare-backend/internal/shared/telemetry"
)

type scanResult struct {
	File   string          `json:"file"`
	Mime   string          `json:"mimeType"`
	Fields receipts.Fields `json:"fields"`
}

// fieldExtractor is satisfied by *receipts.Extractor.
type fieldExtractor interface {
	Extract(ctx context.Context, in receipts.Input) receipts.Fields
}

func main() {
	cfg := config.Load()
	flag.BoolVar(&cfg.OCREnabled, "ocr", cfg.OCREnabled, "fall back to OCR when a PDF has no text layer")
	flag.StringVar(&cfg.PdftoppmPath, "pdftoppm", cfg.PdftoppmPath, "path to pdftoppm")
	flag.StringVar(&cfg.TesseractPath, "tesseract", cfg.TesseractPath, "path to tesseract")
	flag.StringVar(&cfg.OCRLang, "lang", cfg.OCRLang, "tesseract language")
	flag.IntVar(&cfg.OCRDPI, "dpi", cfg.OCRDPI, "render resolution for OCR")
	flag.DurationVar(&cfg.OCRTimeout, "timeout", cfg.OCRTimeout, "per-tool OCR timeout")
	flag.Int64Var(&cfg.ExtractConcurrency, "concurrency", cfg.ExtractConcurrency, "files extracted at once")
	flag.Parse()

	telemetry.Init(telemetry.Options{Level: "warn"})
	defer telemetry.Sync()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: receiptscan [flags] file...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := scan(ctx, bootstrap.BuildExtractor(cfg), flag.Args(), int(cfg.ExtractConcurrency))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := writeJSON(os.Stdout, results); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func scan(ctx context.Context, ex fieldExtractor, paths []string, limit int) ([]scanResult, error) {
	results := make([]scanResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for i, path := range paths {
		g.Go(func() error {
			mimeType, err := detectMime(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = scanResult{
				File: path,
				Mime: mimeType,
				Fields: ex.Extract(ctx, receipts.Input{
					FilePath:     path,
					MimeType:     mimeType,
					OriginalName: filepath.Base(path),
				}),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func detectMime(path string) (string, error) {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt, nil
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sniff [512]byte
	n, err := io.ReadFull(f, sniff[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	mt, _, err := mime.ParseMediaType(http.DetectContentType(sniff[:n]))
	if err != nil {
		return "application/octet-stream", nil
	}
	return mt, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
