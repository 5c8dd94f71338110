package acquire

import (
	"math"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/pdftext"
)

const (
	lineShiftRatio = 0.5
	minLineShift   = 2.0
	wordGapRatio   = 0.15
	minWordGap     = 1.0
	defaultFont    = 10.0
)

// Reconstruct rebuilds line and word breaks from positioned glyphs. A vertical
// move larger than half the font size starts a new line; a horizontal gap wider
// than a fraction of the font size inserts a space.
func Reconstruct(glyphs []pdftext.Glyph) string {
	var b strings.Builder
	var prev *pdftext.Glyph
	for i := range glyphs {
		g := &glyphs[i]
		if prev != nil {
			fs := g.FontSize
			if fs <= 0 {
				fs = prev.FontSize
			}
			if fs <= 0 {
				fs = defaultFont
			}
			dy := math.Abs(g.Y - prev.Y)
			switch {
			case dy > math.Max(fs*lineShiftRatio, minLineShift):
				b.WriteByte('\n')
			case g.X-(prev.X+prev.W) > math.Max(fs*wordGapRatio, minWordGap):
				if !endsWithSpace(prev.Text) && !startsWithSpace(g.Text) {
					b.WriteByte(' ')
				}
			}
		}
		b.WriteString(g.Text)
		prev = g
	}
	return b.String()
}

// pageText renders one page, preferring positioned glyphs.
func pageText(p pdftext.Page) string {
	if len(p.Glyphs) > 0 {
		return Reconstruct(p.Glyphs)
	}
	return p.Plain
}

// joinPages concatenates page texts with a blank-line separator.
func joinPages(pages []pdftext.Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if t := strings.TrimSpace(pageText(p)); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

func endsWithSpace(s string) bool {
	return s != "" && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t')
}

func startsWithSpace(s string) bool {
	return s != "" && (s[0] == ' ' || s[0] == '\t')
}
