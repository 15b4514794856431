package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ToolConfig locates the OCR command-line tools.
type ToolConfig struct {
	Pdftoppm  string
	Tesseract string
	Lang      string
	DPI       int
	Timeout   time.Duration
}

// ExecOCR implements OCR with poppler's pdftoppm and tesseract.
type ExecOCR struct {
	cfg    ToolConfig
	runner Runner
}

// NewExecOCR fills config defaults. A nil runner uses ExecRunner.
func NewExecOCR(cfg ToolConfig, runner Runner) *ExecOCR {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &ExecOCR{cfg: cfg, runner: runner}
}

// RenderFirstPage runs `pdftoppm -f 1 -l 1 -r DPI -png -singlefile in outDir/page`.
func (o *ExecOCR) RenderFirstPage(ctx context.Context, pdfPath, outDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	prefix := filepath.Join(outDir, "page")
	_, errb, err := o.runner.Run(ctx, o.cfg.Pdftoppm,
		"-f", "1", "-l", "1",
		"-r", strconv.Itoa(o.cfg.DPI),
		"-png", "-singlefile",
		pdfPath, prefix,
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("pdftoppm timed out after %s", o.cfg.Timeout)
		}
		return "", fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(truncate(string(errb), 512)))
	}

	img := prefix + ".png"
	if _, err := os.Stat(img); err != nil {
		return "", fmt.Errorf("pdftoppm produced no image: %w", err)
	}
	return img, nil
}

// RecognizeImage runs `tesseract img stdout -l LANG` and returns its output.
func (o *ExecOCR) RecognizeImage(ctx context.Context, imagePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	out, errb, err := o.runner.Run(ctx, o.cfg.Tesseract, imagePath, "stdout", "-l", o.cfg.Lang)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("tesseract timed out after %s", o.cfg.Timeout)
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(truncate(string(errb), 512)))
	}
	return string(out), nil
}

var _ OCR = (*ExecOCR)(nil)
