package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// DefaultDPI is the raster resolution used for scanned PDF pages.
const DefaultDPI = 300

// Tesseract recognizes images and scanned PDFs with the tesseract and
// pdftoppm command line tools.
type Tesseract struct {
	cfg    common.OCRConfig
	dpi    int
	runner Runner
	logger *slog.Logger
}

// TesseractOption configures a Tesseract.
type TesseractOption func(*Tesseract)

// WithRunner replaces the command runner.
func WithRunner(r Runner) TesseractOption {
	return func(t *Tesseract) { t.runner = r }
}

// WithDPI sets the raster resolution for PDF pages.
func WithDPI(dpi int) TesseractOption {
	return func(t *Tesseract) {
		if dpi > 0 {
			t.dpi = dpi
		}
	}
}

// NewTesseract creates a Tesseract recognizer.
func NewTesseract(cfg common.OCRConfig, logger *slog.Logger, opts ...TesseractOption) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	t := &Tesseract{
		cfg:    cfg,
		dpi:    DefaultDPI,
		runner: ExecRunner{Logger: logger},
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Recognize returns the text tesseract reads from an image. ext is the source
// file extension and decides HEIC conversion.
func (t *Tesseract) Recognize(ctx context.Context, image []byte, ext string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", common.ErrOCR)
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	dir, err := os.MkdirTemp("", "invoice-ocr-*")
	if err != nil {
		return "", fmt.Errorf("%w: temp dir: %w", common.ErrOCR, err)
	}
	defer os.RemoveAll(dir)

	ext = constants.NormalizeExt(ext)
	if ext == "" {
		ext = "img"
	}
	in := filepath.Join(dir, "input."+ext)
	if err := os.WriteFile(in, image, 0o600); err != nil {
		return "", fmt.Errorf("%w: write image: %w", common.ErrOCR, err)
	}

	path, err := t.prepare(ctx, in, ext, dir)
	if err != nil {
		return "", err
	}

	text, err := t.tesseract(ctx, path)
	if err != nil {
		return "", err
	}
	t.logger.Info("ocr.image.ok",
		"ext", ext,
		"chars", len(text),
		"confidence", heuristicConfidence(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// RecognizePDF rasterizes the first maxPages pages of a PDF and recognizes
// each page in order.
func (t *Tesseract) RecognizePDF(ctx context.Context, data []byte, maxPages int) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty pdf", common.ErrOCR)
	}
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	dir, err := os.MkdirTemp("", "invoice-ocr-pdf-*")
	if err != nil {
		return "", fmt.Errorf("%w: temp dir: %w", common.ErrOCR, err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", fmt.Errorf("%w: write pdf: %w", common.ErrOCR, err)
	}

	prefix := filepath.Join(dir, "page")
	args := []string{"-r", strconv.Itoa(t.dpi), "-png"}
	if maxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(maxPages))
	}
	args = append(args, in, prefix)
	if _, errb, err := t.runner.Run(ctx, t.cfg.Pdftoppm, args...); err != nil {
		return "", fmt.Errorf("%w: pdftoppm: %w (%s)", common.ErrOCR, err, clip(string(errb), 512))
	}

	pages, _ := filepath.Glob(prefix + "-*.png")
	if len(pages) == 0 {
		return "", fmt.Errorf("%w: pdftoppm produced no pages", common.ErrOCR)
	}
	sortPages(pages)

	var parts []string
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrOCR, err)
		}
		path, err := t.prepare(ctx, page, "png", dir)
		if err != nil {
			return "", err
		}
		text, err := t.tesseract(ctx, path)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	out := strings.Join(parts, "\n\n")
	t.logger.Info("ocr.pdf.ok",
		"pages", len(pages),
		"chars", len(out),
		"confidence", heuristicConfidence(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// prepare converts HEIC input and applies preprocessing when enabled.
// Preprocessing failures fall back to the unprocessed image.
func (t *Tesseract) prepare(ctx context.Context, path, ext, dir string) (string, error) {
	if constants.IsHEICExt(ext) {
		converted, err := convertHEICtoPNG(ctx, t.runner, t.cfg.HeicConverter, path, dir)
		if err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrOCR, err)
		}
		path = converted
	}
	if !t.cfg.Preprocess {
		return path, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read image: %w", common.ErrOCR, err)
	}
	processed, err := Preprocess(raw, t.cfg.MaxImagePixels)
	if err != nil {
		t.logger.Debug("ocr.preprocess.skipped", "path", filepath.Base(path), "error", err)
		return path, nil
	}
	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".prep.png"
	if err := os.WriteFile(out, processed, 0o600); err != nil {
		return "", fmt.Errorf("%w: write preprocessed image: %w", common.ErrOCR, err)
	}
	return out, nil
}

func (t *Tesseract) tesseract(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", t.cfg.TesseractLang, "--psm", strconv.Itoa(t.cfg.PSM)}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("%w: tesseract: %w (%s)", common.ErrOCR, err, clip(string(errb), 512))
	}
	return cleanOCRText(string(out)), nil
}

func (t *Tesseract) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, t.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

var reFormFeed = regexp.MustCompile(`[\f\v]+`)

// cleanOCRText drops form feeds and trailing blanks tesseract emits.
func cleanOCRText(s string) string {
	s = reFormFeed.ReplaceAllString(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var rePageNum = regexp.MustCompile(`-(\d+)\.png$`)

// sortPages orders pdftoppm outputs by page number; zero padding varies with
// page count so lexical order is not enough.
func sortPages(pages []string) {
	num := func(p string) int {
		m := rePageNum.FindStringSubmatch(p)
		if m == nil {
			return 0
		}
		n, _ := strconv.Atoi(m[1])
		return n
	}
	sort.SliceStable(pages, func(i, j int) bool { return num(pages[i]) < num(pages[j]) })
}
