package patterns

import (
	"regexp"
	"strconv"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/dates"
)

const dateTail = `\b\s*[:\-]?\s*(?P<v>[^\n]{4,40})`

// BillingDateRules find dates that follow an issue-date label.
var BillingDateRules = []Rule{
	{
		Name:       "billing-date-label",
		Pattern:    regexp.MustCompile(`(?i)\b(?:invoice\s+date|billing\s+date|bill\s+date|issue\s+date|date\s+of\s+issue|date\s+issued|issued(?:\s+on)?|statement\s+date|invoice\s+issued)` + dateTail),
		Confidence: 95,
	},
	{
		Name:       "date-label",
		Pattern:    regexp.MustCompile(`(?im)^\s*date\s*[:\-]?\s*(?P<v>\d[^\n]{3,39}|[A-Za-z]{3,9}\.?\s+\d[^\n]{2,36})`),
		Confidence: 80,
	},
}

// DueDateRules find dates that follow a payment-deadline label.
var DueDateRules = []Rule{
	{
		Name:       "due-date-label",
		Pattern:    regexp.MustCompile(`(?i)\b(?:due\s+date|payment\s+due(?:\s+date)?|pay\s+by|due\s+(?:on|by)|payable\s+by|date\s+due|please\s+pay\s+by)` + dateTail),
		Confidence: 95,
	},
}

var reNetTerms = regexp.MustCompile(`(?i)\bnet\s*(\d{1,3})\b|\bdue\s+(?:with)?in\s+(\d{1,3})\s+days\b|\bpayable\s+within\s+(\d{1,3})\s+days\b`)

const (
	genericDateConfidence = 30
	termsDateConfidence   = 40
)

// dateField scores dates after labels. Dates inside a claimed span belong to
// another field and are rejected.
func (e *Extractor) dateField(name string, rules []Rule, claimed []Candidate[string]) Field[string] {
	return Field[string]{
		Name:  name,
		Rules: rules,
		Refine: func(_ string, c Candidate[string]) (Candidate[string], *common.ValidationError) {
			m, ok := e.dates.First(c.Value)
			if !ok {
				return Candidate[string]{}, reject(name, c.Value, "no valid date after label")
			}
			if overlaps(c.Start+m.Start, c.Start+m.End, claimed) {
				return Candidate[string]{}, reject(name, c.Value, "date belongs to a due-date label")
			}
			iso, verr := ValidateDate(e.dates, name, m.Raw)
			if verr != nil {
				return Candidate[string]{}, verr
			}
			return withValue(c, iso, c.Confidence), nil
		},
		Key: func(v string) string { return v },
	}
}

// BillingDate returns the issue date: a labeled date when one exists,
// otherwise the earliest date not claimed by a due-date label.
func (e *Extractor) BillingDate(text string) (Candidate[string], bool) {
	claimed := Collect(text, DueDateRules)
	if c, ok := Best(e.logger, text, e.dateField(FieldBillingDate, BillingDateRules, claimed)); ok {
		return c, true
	}

	for _, m := range e.dates.FindAll(text) {
		if overlaps(m.Start, m.End, claimed) {
			continue
		}
		return Candidate[string]{Value: m.ISO, Confidence: genericDateConfidence, Source: "first-date", Start: m.Start, End: m.End}, true
	}
	return Candidate[string]{}, false
}

// DueDate returns the payment deadline. Without a labeled date, "Net 30"
// style terms are applied to billingDate when it is known.
func (e *Extractor) DueDate(text, billingDate string) (Candidate[string], bool) {
	if c, ok := Best(e.logger, text, e.dateField(FieldDueDate, DueDateRules, nil)); ok {
		return c, true
	}
	if billingDate == "" {
		return Candidate[string]{}, false
	}

	loc := reNetTerms.FindStringSubmatchIndex(text)
	if loc == nil {
		return Candidate[string]{}, false
	}
	days := -1
	for g := 1; g < len(loc)/2; g++ {
		if loc[2*g] >= 0 {
			days, _ = strconv.Atoi(text[loc[2*g]:loc[2*g+1]])
			break
		}
	}
	if days < 0 {
		return Candidate[string]{}, false
	}
	iso, ok := dates.AddDays(billingDate, days)
	if !ok {
		return Candidate[string]{}, false
	}
	return Candidate[string]{Value: iso, Confidence: termsDateConfidence, Source: "payment-terms", Start: loc[0], End: loc[1]}, true
}

func overlaps(start, end int, cs []Candidate[string]) bool {
	for _, c := range cs {
		if start < c.End && c.Start < end {
			return true
		}
	}
	return false
}
