package constants

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Source formats understood by text acquisition.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	HTML  = "HTML"
	TEXT  = "TEXT"
)

// FileTypes holds every format DetectFormat can return.
var FileTypes = []string{PDF, IMAGE, HTML, TEXT}

// AllowedExtensions holds the default extensions picked up by directory scans and the inbox watcher.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
	"heic": {},
	"heif": {},
	"txt":  {},
	"html": {},
	"htm":  {},
}

var extFormats = map[string]string{
	"pdf":  PDF,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"png":  IMAGE,
	"gif":  IMAGE,
	"bmp":  IMAGE,
	"tif":  IMAGE,
	"tiff": IMAGE,
	"webp": IMAGE,
	"heic": IMAGE,
	"heif": IMAGE,
	"html": HTML,
	"htm":  HTML,
	"txt":  TEXT,
	"text": TEXT,
	"csv":  TEXT,
	"eml":  TEXT,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns the format for an extension, or "" when unknown.
func MapExtToFormat(ext string) string {
	return extFormats[NormalizeExt(ext)]
}

// IsHEICExt reports whether ext names a HEIC/HEIF container.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif", "heics", "heifs":
		return true
	}
	return false
}

// MapMIMEToFormat returns the format for a declared MIME type, or "" when the
// type is missing or too generic to decide.
func MapMIMEToFormat(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case mt == "", mt == "application/octet-stream", mt == "binary/octet-stream":
		return ""
	case mt == "application/pdf", mt == "application/x-pdf":
		return PDF
	case strings.HasPrefix(mt, "image/"):
		return IMAGE
	case mt == "text/html", mt == "application/xhtml+xml":
		return HTML
	case strings.HasPrefix(mt, "text/"):
		return TEXT
	}
	return ""
}

// DetectFormat picks a format from the declared MIME type, then the filename
// extension, then by sniffing the content. Anything unrecognised is TEXT.
func DetectFormat(mimeType, filename string, data []byte) string {
	if f := MapMIMEToFormat(mimeType); f != "" {
		return f
	}
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		if f := MapExtToFormat(filename[i+1:]); f != "" {
			return f
		}
	}
	if len(data) > 0 {
		if f := MapMIMEToFormat(mimetype.Detect(data).String()); f != "" {
			return f
		}
	}
	return TEXT
}
