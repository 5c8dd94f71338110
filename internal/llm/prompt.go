package llm

import (
	"strings"
	"unicode/utf8"
)

// DefaultExcerptChars bounds how much document text is sent to the model.
const DefaultExcerptChars = 3000

// BuildSystemPrompt composes the extraction instructions.
func BuildSystemPrompt(categories []string) string {
	var catLine string
	if len(categories) > 0 {
		catLine = "For 'category' choose exactly one of: " + strings.Join(categories, ", ") + ". If none fits, omit it."
	} else {
		catLine = "For 'category' use a short label such as 'Cloud Services' or omit it."
	}

	parts := []string{
		"You extract fields from invoices. Return ONLY one JSON object, no prose and no code fences.",
		"Keys: invoice_number, amount, currency, provider, billing_date, due_date, category.",
		"'invoice_number' is the document identifier printed on the invoice, never a date, amount or currency code.",
		"'amount' is the final total payable as a plain decimal string with a dot separator and no symbols, e.g. \"1234.56\".",
		"'currency' is the 3-letter ISO 4217 code shown on the invoice.",
		"'provider' is the company that issued the invoice.",
		"Dates must be YYYY-MM-DD. 'billing_date' is the issue date; 'due_date' is the payment deadline.",
		catLine,
		"Never output null. If a field is not present, omit it.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the filename hint and the head of the document text.
func BuildUserPrompt(text, filename string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultExcerptChars
	}
	var b strings.Builder
	if f := strings.TrimSpace(filename); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("\nInvoice text:\n")
	excerpt, truncated := headRunes(strings.TrimSpace(text), maxChars)
	b.WriteString(excerpt)
	if truncated {
		b.WriteString("\n…(truncated)")
	}
	return b.String()
}

// headRunes returns at most n runes from the start of s.
func headRunes(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
