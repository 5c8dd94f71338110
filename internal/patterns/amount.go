package patterns

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

const (
	amountNumber = `-?\s?(?:\d{1,3}(?:[,.']\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)`
	// amountGap allows "Total (incl. VAT): USD $" between a label and the number.
	amountGap    = `\s*(?:\([^)\n]{1,20}\))?\s*[:=]?\s*(?:[A-Z]{3}\s*)?[$€£¥₹]?\s*`
	currencies   = `USD|EUR|GBP|INR|CAD|AUD|JPY|CHF|SGD|NZD`
)

// AmountRules is ordered from most to least label-specific.
var AmountRules = []Rule{
	{
		Name:       "amount-due-label",
		Pattern:    regexp.MustCompile(`(?i)\b(?:amount\s+due|balance\s+due|total\s+due|grand\s+total|amount\s+payable|total\s+payable|total\s+amount\s+due|total\s+to\s+pay)\b` + amountGap + `(?P<v>` + amountNumber + `)`),
		Confidence: 95,
	},
	{
		Name:       "total-label",
		Pattern:    regexp.MustCompile(`(?i)\btotal\b(?:\s+(?:amount|charges|price|cost|paid))?` + amountGap + `(?P<v>` + amountNumber + `)`),
		Confidence: 85,
	},
	{
		Name:       "amount-label",
		Pattern:    regexp.MustCompile(`(?i)\b(?:amount|payment|paid|charged?|price|sum)\b` + amountGap + `(?P<v>` + amountNumber + `)`),
		Confidence: 70,
	},
	{
		Name:       "currency-symbol",
		Pattern:    regexp.MustCompile(`[$€£¥₹]\s*(?P<v>` + amountNumber + `)`),
		Confidence: 60,
	},
	{
		Name:       "currency-code-before",
		Pattern:    regexp.MustCompile(`\b(?:` + currencies + `)\s*(?P<v>` + amountNumber + `)`),
		Confidence: 55,
	},
	{
		Name:       "currency-code-after",
		Pattern:    regexp.MustCompile(`(?P<v>` + amountNumber + `)\s*(?:` + currencies + `)\b`),
		Confidence: 55,
	},
	{
		Name:       "subtotal-label",
		Pattern:    regexp.MustCompile(`(?i)\bsub-?\s?total\b` + amountGap + `(?P<v>` + amountNumber + `)`),
		Confidence: 50,
	},
	{
		Name:       "bare-decimal",
		Pattern:    regexp.MustCompile(`\b(?P<v>\d{1,3}(?:,\d{3})+\.\d{2}|\d+\.\d{2})\b`),
		Confidence: 20,
	},
}

var (
	plausibleLow  = decimal.NewFromInt(1)
	plausibleHigh = decimal.NewFromInt(100_000)
	veryLarge     = decimal.NewFromInt(1_000_000)

	reDateTail    = regexp.MustCompile(`^[./\-]\d`)
	reDateHead    = regexp.MustCompile(`\d[./\-]$`)
	reMinusHead   = regexp.MustCompile(`-\s?[$€£¥₹]?\s?$`)
	reTwoDecimals = regexp.MustCompile(`[.,]\d{2}$`)

	// "1.234" is a decimal or a thousands group depending on the currency.
	reDotThousands = regexp.MustCompile(`^-?\s?\d{1,3}\.\d{3}$`)
)

// euroWindow is how many bytes around an amount are searched for a euro sign.
const euroWindow = 12

func nearEuro(text string, start, end int) bool {
	window := text[max(0, start-euroWindow):min(len(text), end+euroWindow)]
	return strings.Contains(window, "€") || strings.Contains(strings.ToUpper(window), "EUR")
}

// ParseAmount parses a money string with either "." or "," as the decimal
// separator and ",", ".", "'" or a space as the thousands separator.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', '₹', ' ', '\'':
			return -1
		}
		return r
	}, s)

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	return decimal.NewFromString(s)
}

func (e *Extractor) amountField() Field[decimal.Decimal] {
	return Field[decimal.Decimal]{
		Name:  FieldAmount,
		Rules: AmountRules,
		Refine: func(text string, c Candidate[string]) (Candidate[decimal.Decimal], *common.ValidationError) {
			if reDateTail.MatchString(text[c.End:]) || reDateHead.MatchString(text[:c.Start]) {
				return Candidate[decimal.Decimal]{}, reject(FieldAmount, c.Value, "part of a date")
			}
			if reMinusHead.MatchString(text[:c.Start]) {
				return Candidate[decimal.Decimal]{}, reject(FieldAmount, c.Value, "negative amount")
			}
			raw := c.Value
			ambiguous := reDotThousands.MatchString(strings.TrimSpace(raw))
			if ambiguous && nearEuro(text, c.Start, c.End) {
				raw = strings.Replace(raw, ".", "", 1)
				ambiguous = false
			}
			d, err := ParseAmount(raw)
			if err != nil {
				return Candidate[decimal.Decimal]{}, reject(FieldAmount, c.Value, "not a number")
			}
			d, verr := ValidateAmount(d)
			if verr != nil {
				return Candidate[decimal.Decimal]{}, verr
			}

			confidence := c.Confidence
			if d.GreaterThanOrEqual(plausibleLow) && d.LessThanOrEqual(plausibleHigh) {
				confidence += 10
			}
			if reTwoDecimals.MatchString(strings.TrimSpace(c.Value)) {
				confidence += 5
			}
			if d.GreaterThan(veryLarge) {
				confidence -= 20
			}
			if ambiguous {
				confidence -= 15
			}
			return withValue(c, d, confidence), nil
		},
		Key: func(d decimal.Decimal) string { return d.StringFixed(2) },
	}
}

// Amount returns the best amount candidate in text.
func (e *Extractor) Amount(text string) (Candidate[decimal.Decimal], bool) {
	return Best(e.logger, text, e.amountField())
}
