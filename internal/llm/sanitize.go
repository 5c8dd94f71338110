package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"strings"
)

var (
	reFence   = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	reDecimal = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

	errNoJSONObject = errors.New("no JSON object in model output")
)

// placeholders the model sometimes emits instead of omitting a key
var placeholders = map[string]struct{}{
	"": {}, "null": {}, "none": {}, "n/a": {}, "na": {}, "unknown": {}, "not found": {}, "-": {},
}

// ExtractJSONObject returns the first top-level JSON object in content,
// tolerating code fences and surrounding prose.
func ExtractJSONObject(content string) ([]byte, error) {
	s := strings.TrimSpace(content)
	if m := reFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return nil, errNoJSONObject
	}

	depth, inString, escaped := 0, false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return []byte(s[start : i+1]), nil
			}
		}
	}
	return nil, errNoJSONObject
}

// NormalizeAndSanitizeJSON
// - Renames known synonyms (invoice_no -> invoice_number, total -> amount)
// - Drops null, empty and placeholder values
// - Coerces numbers to strings and cleans money strings
// - Removes unknown keys
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to the schema
	renamed("invoice_no", "invoice_number")
	renamed("invoice_id", "invoice_number")
	renamed("invoiceNumber", "invoice_number")
	renamed("number", "invoice_number")
	renamed("total", "amount")
	renamed("total_amount", "amount")
	renamed("amount_due", "amount")
	renamed("currency_code", "currency")
	renamed("vendor", "provider")
	renamed("vendor_name", "provider")
	renamed("supplier", "provider")
	renamed("merchant_name", "provider")
	renamed("invoice_date", "billing_date")
	renamed("issue_date", "billing_date")
	renamed("date", "billing_date")
	renamed("billingDate", "billing_date")
	renamed("payment_due", "due_date")
	renamed("dueDate", "due_date")

	// 2) stringify and drop placeholders
	for k, v := range maps.Clone(m) {
		switch t := v.(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool, []any, map[string]any:
			delete(m, k)
			dropped = append(dropped, k+"(type)")
		case string:
			s := strings.TrimSpace(t)
			if _, ok := placeholders[strings.ToLower(s)]; ok {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
				continue
			}
			m[k] = s
		}
	}

	// 3) money: strip symbols and thousands separators, drop if still not a number
	if s, ok := m["amount"].(string); ok {
		clean := cleanMoney(s)
		if reDecimal.MatchString(clean) {
			m["amount"] = clean
		} else {
			delete(m, "amount")
			dropped = append(dropped, "amount(format)")
		}
	}
	if s, ok := m["currency"].(string); ok {
		m["currency"] = strings.ToUpper(s)
	}

	// 4) remove unknown keys
	allowed := map[string]struct{}{
		"invoice_number": {}, "amount": {}, "currency": {}, "provider": {},
		"billing_date": {}, "due_date": {}, "category": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Debug("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func cleanMoney(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', '₹', ',', ' ':
			return -1
		}
		return r
	}, s)
	for _, code := range []string{"USD", "EUR", "GBP", "INR", "CAD", "AUD"} {
		s = strings.TrimSuffix(strings.TrimPrefix(s, code), code)
	}
	return s
}
