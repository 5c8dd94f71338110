package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledongthuc/pdf"
)

// Glyph is one positioned text run from a page's content stream.
type Glyph struct {
	Text     string
	X        float64
	Y        float64
	W        float64
	FontSize float64
}

// Page is the text layer of one page. Plain is the library's own rendering,
// kept as a fallback when Glyphs is empty.
type Page struct {
	Number int
	Plain  string
	Glyphs []Glyph
}

// Reader extracts text layers with github.com/ledongthuc/pdf.
type Reader struct {
	logger *slog.Logger
}

// NewReader returns a Reader.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// ExtractPages returns the text layer of at most maxPages leading pages.
// Malformed documents return an error; the library's panics are recovered.
func (r *Reader) ExtractPages(ctx context.Context, data []byte, maxPages int) (pages []Page, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("pdf text layer panic: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF reader: %w", err)
	}

	total := reader.NumPage()
	n := total
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		page, perr := readPage(i, p)
		if perr != nil {
			r.logger.Warn("pdftext.page.failed", "page", i, "error", perr)
			continue
		}
		pages = append(pages, page)
	}

	r.logger.Debug("pdftext.extract.ok",
		"pages_total", total,
		"pages_read", len(pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

func readPage(num int, p pdf.Page) (out Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d panic: %v", num, rec)
		}
	}()

	out = Page{Number: num}
	for _, t := range p.Content().Text {
		if t.S == "" {
			continue
		}
		out.Glyphs = append(out.Glyphs, Glyph{
			Text:     t.S,
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
			FontSize: t.FontSize,
		})
	}
	if plain, err := p.GetPlainText(nil); err == nil {
		out.Plain = plain
	}
	return out, nil
}
