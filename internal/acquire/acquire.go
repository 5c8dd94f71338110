// Package acquire turns an uploaded file into raw text. It never fails: when
// a format cannot be read the original filename becomes the text.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdftext"
)

const (
	// DefaultMaxPages bounds how many leading PDF pages are read.
	DefaultMaxPages = 3
	// ScannedPDFMinChars is the number of letters or digits below which a PDF
	// text layer is treated as a scan.
	ScannedPDFMinChars = 20
)

// PDFTextLayer reads the embedded text of a PDF.
type PDFTextLayer interface {
	ExtractPages(ctx context.Context, data []byte, maxPages int) ([]pdftext.Page, error)
}

// Recognizer returns best-effort text for an image. ext is the source
// extension without the dot.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, ext string) (string, error)
}

// PDFRecognizer is implemented by recognizers that can OCR scanned PDFs.
type PDFRecognizer interface {
	RecognizePDF(ctx context.Context, data []byte, maxPages int) (string, error)
}

// Result is the acquired text and how it was obtained. Err holds the failure
// that caused a filename fallback, if any.
type Result struct {
	Text     string
	Format   string
	Method   string
	Pages    int
	Warnings []string
	Err      error
}

// Acquirer dispatches on the input format.
type Acquirer struct {
	pdf      PDFTextLayer
	ocr      Recognizer
	maxPages int
	logger   *slog.Logger
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithPDFTextLayer sets the PDF text-layer reader.
func WithPDFTextLayer(p PDFTextLayer) Option {
	return func(a *Acquirer) { a.pdf = p }
}

// WithRecognizer sets the OCR backend. Without one images fall back to the
// filename.
func WithRecognizer(r Recognizer) Option {
	return func(a *Acquirer) { a.ocr = r }
}

// WithMaxPages bounds the PDF pages read.
func WithMaxPages(n int) Option {
	return func(a *Acquirer) {
		if n > 0 {
			a.maxPages = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Acquirer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Acquirer reading PDFs with pdftext.Reader unless overridden.
func New(opts ...Option) *Acquirer {
	a := &Acquirer{
		maxPages: DefaultMaxPages,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.pdf == nil {
		a.pdf = pdftext.NewReader(a.logger)
	}
	return a
}

// Acquire returns the text of in. It does not return an error; failures are
// logged and reported in Result.Err with the filename as text.
func (a *Acquirer) Acquire(ctx context.Context, in entity.ExtractionInput) (res Result) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, a.logger)
	res.Format = constants.DetectFormat(in.MIMEType, in.OriginalFilename, in.Bytes)

	defer func() {
		if rec := recover(); rec != nil {
			res = a.fallback(logger, in, res, fmt.Errorf("%w: panic: %v", common.ErrAcquisition, rec))
		}
		logger.Info("acquire.done",
			"filename", in.OriginalFilename,
			"format", res.Format,
			"method", res.Method,
			"chars", len(res.Text),
			"warnings", len(res.Warnings),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}()

	if len(in.Bytes) == 0 {
		return a.fallback(logger, in, res, fmt.Errorf("%w: empty buffer", common.ErrAcquisition))
	}

	var (
		text string
		err  error
	)
	switch res.Format {
	case constants.PDF:
		text, err = a.fromPDF(ctx, logger, in, &res)
	case constants.IMAGE:
		res.Method = constants.MethodImageOCR
		text, err = a.fromImage(ctx, in)
	case constants.HTML:
		res.Method = constants.MethodHTML
		text, err = htmlText(in.Bytes)
	default:
		res.Method = constants.MethodPlain
		text, err = decodeText(in.Bytes)
	}
	if err != nil {
		return a.fallback(logger, in, res, err)
	}
	if strings.TrimSpace(text) == "" {
		return a.fallback(logger, in, res, fmt.Errorf("%w: no text recovered", common.ErrAcquisition))
	}
	res.Text = text
	return res
}

func (a *Acquirer) fromPDF(ctx context.Context, logger *slog.Logger, in entity.ExtractionInput, res *Result) (string, error) {
	res.Method = constants.MethodPDFText
	pages, err := a.pdf.ExtractPages(ctx, in.Bytes, a.maxPages)
	if err != nil {
		err = fmt.Errorf("%w: pdf text layer: %w", common.ErrAcquisition, err)
		if text, ok := a.ocrPDF(ctx, logger, in, res); ok {
			res.Warnings = append(res.Warnings, err.Error())
			return text, nil
		}
		return "", err
	}
	res.Pages = len(pages)
	text := joinPages(pages)
	if significantChars(text) >= ScannedPDFMinChars {
		return text, nil
	}

	res.Warnings = append(res.Warnings, "pdf text layer nearly empty")
	if ocrText, ok := a.ocrPDF(ctx, logger, in, res); ok {
		return ocrText, nil
	}
	return text, nil
}

// ocrPDF OCRs a scanned PDF when the recognizer supports it.
func (a *Acquirer) ocrPDF(ctx context.Context, logger *slog.Logger, in entity.ExtractionInput, res *Result) (string, bool) {
	pr, ok := a.ocr.(PDFRecognizer)
	if !ok {
		return "", false
	}
	text, err := pr.RecognizePDF(ctx, in.Bytes, a.maxPages)
	if err != nil {
		logger.Warn("acquire.pdf_ocr.failed", "stage", "acquire", "filename", in.OriginalFilename, "reason", err.Error())
		res.Warnings = append(res.Warnings, err.Error())
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	res.Method = constants.MethodPDFOCR
	return text, true
}

func (a *Acquirer) fromImage(ctx context.Context, in entity.ExtractionInput) (string, error) {
	if a.ocr == nil {
		return "", fmt.Errorf("%w: no OCR backend configured", common.ErrAcquisition)
	}
	text, err := a.ocr.Recognize(ctx, in.Bytes, imageExt(in))
	if err != nil {
		if !errors.Is(err, common.ErrOCR) {
			err = fmt.Errorf("%w: %w", common.ErrOCR, err)
		}
		return "", err
	}
	return text, nil
}

func (a *Acquirer) fallback(logger *slog.Logger, in entity.ExtractionInput, res Result, err error) Result {
	logger.Warn("acquire.fallback",
		"stage", "acquire",
		"filename", in.OriginalFilename,
		"format", res.Format,
		"method", res.Method,
		"reason", err.Error(),
	)
	res.Text = in.OriginalFilename
	res.Method = constants.MethodFilename
	res.Err = common.StageError("acquire", common.ErrAcquisition, err)
	return res
}

// imageExt prefers the filename extension and falls back to sniffing.
func imageExt(in entity.ExtractionInput) string {
	if ext := constants.NormalizeExt(filepath.Ext(in.OriginalFilename)); constants.MapExtToFormat(ext) == constants.IMAGE {
		return ext
	}
	return constants.NormalizeExt(mimetype.Detect(in.Bytes).Extension())
}

func significantChars(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
