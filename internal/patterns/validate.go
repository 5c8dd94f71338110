package patterns

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/dates"
)

// Field names used in logs and validation errors.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldAmount        = "amount"
	FieldProvider      = "provider"
	FieldBillingDate   = "billing_date"
	FieldDueDate       = "due_date"
	FieldCategory      = "category"
)

var (
	// MaxAmount is the exclusive upper bound for an invoice amount.
	MaxAmount = decimal.NewFromInt(1_000_000_000)

	reISOShape   = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	reBareAmount = regexp.MustCompile(`^[$€£¥₹]?\s*\d{1,3}(?:[,.]\d{3})*(?:[.,]\d{1,2})?$|^[$€£¥₹]?\s*\d+[.,]\d{1,2}$`)
	reHasDigit   = regexp.MustCompile(`\d`)
	rePureDigits = regexp.MustCompile(`^\d+$`)
	reCodeAmount = regexp.MustCompile(`^([A-Za-z]{3})[\s\-]?\d[\d.,]*$|^\d[\d.,]*[\s\-]?([A-Za-z]{3})$`)
	reMonthYear  = regexp.MustCompile(`(?i)^(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?[\s\-/]?(?:(?:19|20)\d{2}|\d{2})$`)
)

// LabeledDigitRun is how many digits a pure-digit invoice number needs when
// it was found next to a label or proposed by the model. Unlabeled runs need
// longDigitRun.
const LabeledDigitRun = 4

const (
	minInvoiceNumberLen = 3
	maxInvoiceNumberLen = 50
	longDigitRun        = 8

	minProviderLen = 2
	maxProviderLen = 100
	minCategoryLen = 2
	maxCategoryLen = 50
)

// ValidateInvoiceNumber trims raw and checks it is a plausible invoice number:
// bounded length, at least one digit, and not itself a date, a currency code
// or an amount. Pure-digit values need at least minDigits digits.
func ValidateInvoiceNumber(raw string, minDigits int) (string, *common.ValidationError) {
	v := strings.Trim(strings.TrimSpace(raw), ".,:;-_/#")

	if constants.IsCurrencyCode(v) {
		return "", reject(FieldInvoiceNumber, v, "is a currency code")
	}
	if verr := common.NewValidator().
		Field(FieldInvoiceNumber, v,
			common.Required,
			common.LengthBetween(minInvoiceNumberLen, maxInvoiceNumberLen),
			common.Matches(reHasDigit, "contains no digit"),
		).
		First(); verr != nil {
		return "", verr
	}
	switch {
	case isCodeAmount(v):
		return "", reject(FieldInvoiceNumber, v, "is a currency amount")
	case reMonthYear.MatchString(v):
		return "", reject(FieldInvoiceNumber, v, "is a month and year")
	case reISOShape.MatchString(v):
		return "", reject(FieldInvoiceNumber, v, "is an ISO date")
	case isDate(v):
		return "", reject(FieldInvoiceNumber, v, "is a date")
	case reBareAmount.MatchString(v) && !rePureDigits.MatchString(v):
		return "", reject(FieldInvoiceNumber, v, "is an amount")
	case rePureDigits.MatchString(v) && len(v) < minDigits:
		return "", reject(FieldInvoiceNumber, v, "pure-digit value is too short")
	}
	return v, nil
}

// isCodeAmount reports whether v is an amount glued to a currency code, as in
// "INR1500" or "99.00 EUR".
func isCodeAmount(v string) bool {
	m := reCodeAmount.FindStringSubmatch(v)
	if m == nil {
		return false
	}
	return constants.IsCurrencyCode(m[1] + m[2])
}

func isDate(v string) bool {
	if _, ok := dates.NewResolver(dates.DayFirst).Normalize(v); ok {
		return true
	}
	_, ok := dates.NewResolver(dates.MonthFirst).Normalize(v)
	return ok
}

// ValidateAmount rounds d to two decimals and checks 0 < d < MaxAmount.
func ValidateAmount(d decimal.Decimal) (decimal.Decimal, *common.ValidationError) {
	rounded := d.Round(2)
	if verr := common.NewValidator().
		Field(FieldAmount, rounded, common.DecimalBetween(decimal.Zero, MaxAmount)).
		First(); verr != nil {
		return decimal.Decimal{}, verr
	}
	return rounded, nil
}

// ValidateDate normalizes raw with r and checks the year range.
func ValidateDate(r dates.Resolver, field, raw string) (string, *common.ValidationError) {
	iso, ok := r.Normalize(raw)
	if !ok {
		return "", reject(field, raw, "not a valid date")
	}
	if verr := common.NewValidator().
		Field(field, iso, common.YearBetween(dates.MinYear, dates.MaxYear)).
		First(); verr != nil {
		return "", verr
	}
	return iso, nil
}

// ValidateProvider trims raw and checks its length.
func ValidateProvider(raw string) (string, *common.ValidationError) {
	v := strings.Trim(strings.TrimSpace(raw), ".,:;-")
	if verr := common.NewValidator().
		Field(FieldProvider, v, common.Required, common.LengthBetween(minProviderLen, maxProviderLen)).
		First(); verr != nil {
		return "", verr
	}
	return v, nil
}

// ValidateCategory maps raw onto a known category when possible, otherwise
// keeps it when its length is acceptable.
func ValidateCategory(raw string) (string, *common.ValidationError) {
	v := strings.TrimSpace(raw)
	if cat, ok := constants.Canonicalize(v); ok {
		return string(cat), nil
	}
	if verr := common.NewValidator().
		Field(FieldCategory, v, common.Required, common.LengthBetween(minCategoryLen, maxCategoryLen)).
		First(); verr != nil {
		return "", verr
	}
	return v, nil
}
