package dates

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Order is the component order assumed for ambiguous numeric dates.
type Order int

const (
	// DayFirst reads 03/04/2024 as 3 April.
	DayFirst Order = iota
	// MonthFirst reads 03/04/2024 as March 4.
	MonthFirst
)

const (
	MinYear = 2000
	MaxYear = 2100
	// TwoDigitPivot expands yy < pivot to 20yy, otherwise 19yy.
	TwoDigitPivot = 50
	ISOLayout     = "2006-01-02"
)

// ParseOrder maps "DMY"/"MDY" to an Order. Anything else is DayFirst.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), "MDY") {
		return MonthFirst
	}
	return DayFirst
}

func (o Order) String() string {
	if o == MonthFirst {
		return "MDY"
	}
	return "DMY"
}

const monthNames = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

var (
	reISO        = regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})(?:T[0-9:.]+(?:Z|[+-]\d{2}:?\d{2})?)?\b`)
	reNumeric    = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})\b`)
	reMonthFirst = regexp.MustCompile(`(?i)\b(` + monthNames + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	reDayFirst   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?[\s\-]+(?:of\s+)?(` + monthNames + `)\.?[\s\-,]+(\d{4}|\d{2})\b`)
)

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// Resolver turns raw date strings into YYYY-MM-DD.
type Resolver struct {
	Order Order
}

// NewResolver returns a Resolver using order for ambiguous numeric dates.
func NewResolver(order Order) Resolver {
	return Resolver{Order: order}
}

// Match is one date found in a larger text.
type Match struct {
	Raw   string
	ISO   string
	Start int
	End   int
}

// NormalizeDate resolves raw with the default day-first order.
func NormalizeDate(raw string) (string, bool) {
	return Resolver{}.Normalize(raw)
}

// Normalize resolves raw, which must consist of a single date, into
// YYYY-MM-DD. It reports false for anything unparseable, invalid on the
// calendar, or outside [MinYear, MaxYear].
func (r Resolver) Normalize(raw string) (string, bool) {
	s := strings.Trim(strings.TrimSpace(raw), ".,;")
	if s == "" {
		return "", false
	}
	for _, m := range r.FindAll(s) {
		if m.Start == 0 && m.End == len(s) {
			return m.ISO, true
		}
	}
	return "", false
}

// First returns the earliest valid date anywhere in text.
func (r Resolver) First(text string) (Match, bool) {
	ms := r.FindAll(text)
	if len(ms) == 0 {
		return Match{}, false
	}
	return ms[0], true
}

// FindAll returns every valid, non-overlapping date in text ordered by position.
func (r Resolver) FindAll(text string) []Match {
	var out []Match
	collect := func(re *regexp.Regexp, resolve func(groups []string) (string, bool)) {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			groups := make([]string, 0, len(idx)/2)
			for i := 0; i < len(idx); i += 2 {
				if idx[i] < 0 {
					groups = append(groups, "")
					continue
				}
				groups = append(groups, text[idx[i]:idx[i+1]])
			}
			if iso, ok := resolve(groups); ok {
				out = append(out, Match{Raw: groups[0], ISO: iso, Start: idx[0], End: idx[1]})
			}
		}
	}

	collect(reISO, func(g []string) (string, bool) {
		return build(atoi(g[1]), atoi(g[2]), atoi(g[3]))
	})
	collect(reNumeric, func(g []string) (string, bool) {
		return r.resolveNumeric(atoi(g[1]), atoi(g[2]), expandYear(g[3]))
	})
	collect(reMonthFirst, func(g []string) (string, bool) {
		return build(atoi(g[3]), int(lookupMonth(g[1])), atoi(g[2]))
	})
	collect(reDayFirst, func(g []string) (string, bool) {
		return build(expandYear(g[3]), int(lookupMonth(g[2])), atoi(g[1]))
	})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End > out[j].End
	})
	kept := out[:0]
	lastEnd := -1
	for _, m := range out {
		if m.Start < lastEnd {
			continue
		}
		kept = append(kept, m)
		lastEnd = m.End
	}
	return kept
}

// resolveNumeric interprets an A/B/Y triple. A first component above 12 can
// only be a day; a second component above 12 can only be a day. Otherwise the
// configured order wins, with the other order tried when it yields no date.
func (r Resolver) resolveNumeric(a, b, year int) (string, bool) {
	switch {
	case a > 12:
		return build(year, b, a)
	case b > 12:
		return build(year, a, b)
	}
	if r.Order == MonthFirst {
		if iso, ok := build(year, a, b); ok {
			return iso, true
		}
		return build(year, b, a)
	}
	if iso, ok := build(year, b, a); ok {
		return iso, true
	}
	return build(year, a, b)
}

// Valid reports whether iso is a YYYY-MM-DD calendar date in range.
func Valid(iso string) bool {
	t, err := time.Parse(ISOLayout, iso)
	if err != nil {
		return false
	}
	return t.Year() >= MinYear && t.Year() <= MaxYear
}

// AddDays returns iso shifted by n days.
func AddDays(iso string, n int) (string, bool) {
	t, err := time.Parse(ISOLayout, iso)
	if err != nil {
		return "", false
	}
	out := t.AddDate(0, 0, n).Format(ISOLayout)
	return out, Valid(out)
}

func build(year, month, day int) (string, bool) {
	if year < MinYear || year > MaxYear || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

func expandYear(s string) int {
	y := atoi(s)
	if len(s) == 2 {
		if y < TwoDigitPivot {
			return 2000 + y
		}
		return 1900 + y
	}
	return y
}

func lookupMonth(name string) time.Month {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0
	}
	return monthIndex[name[:3]]
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
