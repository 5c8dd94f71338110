package acquire

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var reHTMLSpace = regexp.MustCompile(`\s+`)

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tbody": true,
	"thead": true, "tfoot": true, "tr": true, "ul": true,
}

// htmlText flattens an HTML document: block elements end lines, table cells
// are separated by spaces, scripts and styles are dropped.
func htmlText(data []byte) (string, error) {
	decoded, err := decodeText(data)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(decoded)))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, template, head").Remove()

	var b strings.Builder
	for _, n := range doc.Selection.Nodes {
		walkHTML(&b, n)
	}
	return b.String(), nil
}

func walkHTML(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(reHTMLSpace.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		switch {
		case n.Data == "td" || n.Data == "th":
			b.WriteByte(' ')
		case blockElements[n.Data]:
			b.WriteByte('\n')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(b, c)
	}
	if n.Type == html.ElementNode && blockElements[n.Data] && n.Data != "br" {
		b.WriteByte('\n')
	}
}
