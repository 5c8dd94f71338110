package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFormat(t *testing.T) {
	pngHeader := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	tests := []struct {
		name     string
		mime     string
		filename string
		data     []byte
		want     string
	}{
		{"declared pdf", "application/pdf", "x.bin", nil, PDF},
		{"declared image with params", "image/jpeg; q=0.9", "", nil, IMAGE},
		{"declared html", "text/html; charset=utf-8", "", nil, HTML},
		{"declared text", "text/plain", "x.pdf", nil, TEXT},
		{"octet stream uses extension", "application/octet-stream", "scan.HEIC", nil, IMAGE},
		{"no mime uses extension", "", "bill.htm", nil, HTML},
		{"sniffed pdf", "", "upload", []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj"), PDF},
		{"sniffed png", "application/octet-stream", "upload", pngHeader, IMAGE},
		{"unknown defaults to text", "", "notes", nil, TEXT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.mime, tt.filename, tt.data))
		})
	}
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, "pdf", NormalizeExt(" .PDF"))
	assert.Equal(t, IMAGE, MapExtToFormat(".Tiff"))
	assert.Empty(t, MapExtToFormat("docx"))
	assert.True(t, IsHEICExt("HEIF"))
	assert.False(t, IsHEICExt("png"))
}

func TestCurrencyCodes(t *testing.T) {
	assert.True(t, IsCurrencyCode("eur"))
	assert.True(t, IsCurrencyCode(" INR "))
	assert.False(t, IsCurrencyCode("US"))
	assert.False(t, IsCurrencyCode("XYZ"))
}

func TestCategories(t *testing.T) {
	all := AsStringSlice()
	assert.Contains(t, all, string(CloudServices))
	assert.Contains(t, all, string(Other))
	assert.Len(t, all, 11)
}

func TestCanonicalizeCategory(t *testing.T) {
	got, ok := Canonicalize(" Hosting ")
	assert.True(t, ok)
	assert.Equal(t, CloudServices, got)

	got, ok = Canonicalize("professional services")
	assert.True(t, ok)
	assert.Equal(t, ProfessionalServices, got)

	got, ok = Canonicalize("")
	assert.False(t, ok)
	assert.Equal(t, Other, got)
}
