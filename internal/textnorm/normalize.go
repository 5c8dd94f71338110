package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fallback is the text used when neither content nor a filename is available.
const Fallback = "document"

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reHSpace     = regexp.MustCompile(`[\t\f\v \x{00A0}\x{2000}-\x{200A}\x{202F}\x{205F}\x{3000}]+`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[_\-=]{3,}$`)
	reZeroWidth  = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}]`)
)

// Normalize canonicalizes raw acquired text and appends filename as the final
// line. Line breaks are preserved; horizontal whitespace runs become one space
// and at most one blank line separates blocks. The result is never empty.
func Normalize(raw, filename string) string {
	s := Clean(raw)
	name := strings.TrimSpace(Clean(filename))

	if name != "" && lastLine(s) != name {
		if s == "" {
			s = name
		} else {
			s = s + "\n" + name
		}
	}
	if s == "" {
		return Fallback
	}
	return s
}

// Clean applies the whitespace rules of Normalize without the filename line.
func Clean(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFKC.String(s)
	s = reZeroWidth.ReplaceAllString(s, "")
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reHSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.Trim(s, "\n")
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
