package ocr

import "regexp"

// ocrSignals are invoice artifacts whose presence suggests the recognizer
// read real text rather than noise.
var ocrSignals = []struct {
	re     *regexp.Regexp
	weight float32
}{
	{regexp.MustCompile(`\b\d{1,4}[/.\-]\d{1,2}[/.\-]\d{2,4}\b`), 0.2},
	{regexp.MustCompile(`(?i)\b(?:usd|eur|gbp|cad|aud|inr|jpy)\b|[$£€₹¥]`), 0.15},
	{regexp.MustCompile(`\b\d{1,3}(?:[,.]\d{3})*[.,]\d{2}\b`), 0.15},
	{regexp.MustCompile(`(?i)\b(?:invoice|total|amount|due|bill(?:ing)?|subtotal|vat|tax)\b`), 0.2},
}

// heuristicConfidence scores recognized text in [0.2, 1]. It is logged next
// to OCR output and never used to discard text.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2)
	for _, s := range ocrSignals {
		if s.re.MatchString(txt) {
			score += s.weight
		}
	}
	if len(txt) > 120 {
		score += 0.1
	}
	return min(score, 1)
}
