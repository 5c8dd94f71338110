package patterns

import (
	"regexp"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

const invoiceToken = `[A-Za-z0-9][A-Za-z0-9\-_/.]{1,49}`

// labeledConfidence is the lowest rule confidence that counts as label-directed.
const labeledConfidence = 70

// InvoiceNumberRules is ordered from most to least label-specific.
var InvoiceNumberRules = []Rule{
	{
		Name:       "invoice-number-label",
		Pattern:    regexp.MustCompile(`(?i)\binvoice\s*(?:number|num|no\.?|nr\.?|#|id)\s*[:#.]?\s*(?P<v>` + invoiceToken + `)`),
		Confidence: 90,
	},
	{
		Name:       "invoice-label",
		Pattern:    regexp.MustCompile(`(?i)\binvoice\s*[:#]\s*(?P<v>` + invoiceToken + `)`),
		Confidence: 80,
	},
	{
		Name:       "document-number-label",
		Pattern:    regexp.MustCompile(`(?i)\b(?:bill|receipt|reference|ref|order|document|statement|transaction)\s*(?:number|num|no\.?|#|id)?\s*[:#]\s*(?P<v>` + invoiceToken + `)`),
		Confidence: 70,
	},
	{
		Name:       "prefixed-token",
		Pattern:    regexp.MustCompile(`(?i)\b(?P<v>(?:INV|BILL|REC)[-_/#]?[A-Z0-9][A-Z0-9\-_/]{1,40})`),
		Confidence: 60,
	},
	{
		Name:       "alphanumeric-token",
		Pattern:    regexp.MustCompile(`\b(?P<v>[A-Z]{2,6}[-_]?\d[A-Z0-9\-]{2,30})\b`),
		Confidence: 40,
	},
	{
		Name:       "long-digit-run",
		Pattern:    regexp.MustCompile(`\b(?P<v>\d{6,20})\b`),
		Confidence: 20,
	},
}

func (e *Extractor) invoiceNumberField() Field[string] {
	return Field[string]{
		Name:  FieldInvoiceNumber,
		Rules: InvoiceNumberRules,
		Refine: func(_ string, c Candidate[string]) (Candidate[string], *common.ValidationError) {
			minDigits := longDigitRun
			if c.Confidence >= labeledConfidence {
				minDigits = LabeledDigitRun
			}
			v, verr := ValidateInvoiceNumber(c.Value, minDigits)
			if verr != nil {
				return Candidate[string]{}, verr
			}
			return withValue(c, v, c.Confidence), nil
		},
		Key: func(v string) string { return v },
	}
}

// InvoiceNumber returns the best invoice number candidate in text.
func (e *Extractor) InvoiceNumber(text string) (Candidate[string], bool) {
	return Best(e.logger, text, e.invoiceNumberField())
}

func withValue[T any](c Candidate[string], v T, confidence int) Candidate[T] {
	return Candidate[T]{
		Value:      v,
		Confidence: confidence,
		Source:     c.Source,
		Start:      c.Start,
		End:        c.End,
	}
}
