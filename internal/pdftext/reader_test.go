package pdftext

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/pdftext/pdftest"
)

func TestExtractPages(t *testing.T) {
	data := pdftest.Build("Invoice Number: INV-42", "Total: 10.00")

	pages, err := NewReader(nil).ExtractPages(context.Background(), data, 3)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	require.NotEmpty(t, pages[0].Glyphs)

	var b strings.Builder
	for _, g := range pages[0].Glyphs {
		b.WriteString(g.Text)
	}
	assert.Contains(t, b.String(), "INV-42")

	// Lines are drawn top to bottom, so the first glyph sits higher than the last.
	first, last := pages[0].Glyphs[0], pages[0].Glyphs[len(pages[0].Glyphs)-1]
	assert.Greater(t, first.Y, last.Y)
}

func TestExtractPagesRejectsGarbage(t *testing.T) {
	_, err := NewReader(nil).ExtractPages(context.Background(), []byte("definitely not a pdf"), 3)
	assert.Error(t, err)
}

func TestExtractPagesHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReader(nil).ExtractPages(ctx, pdftest.Build("x"), 3)
	assert.ErrorIs(t, err, context.Canceled)
}
