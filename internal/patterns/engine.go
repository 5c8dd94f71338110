package patterns

import (
	"log/slog"
	"regexp"
	"sort"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Rule pairs a pattern with the base confidence of anything it matches.
// When the pattern has a group named "v" only that group is the value,
// otherwise the first group, otherwise the whole match.
type Rule struct {
	Name       string
	Pattern    *regexp.Regexp
	Confidence int
}

// Candidate is a provisional value for one field.
type Candidate[T any] struct {
	Value      T
	Confidence int
	Source     string
	Start      int
	End        int
}

// Field describes how one field is scored: the rule table, a refinement step
// that converts or rejects raw matches, and a key used for deduplication.
type Field[T any] struct {
	Name   string
	Rules  []Rule
	Refine func(text string, c Candidate[string]) (Candidate[T], *common.ValidationError)
	Key    func(T) string
}

// Collect scans text with every rule and returns all matches.
func Collect(text string, rules []Rule) []Candidate[string] {
	var out []Candidate[string]
	for _, rule := range rules {
		group := rule.Pattern.SubexpIndex("v")
		if group < 0 && rule.Pattern.NumSubexp() > 0 {
			group = 1
		}
		if group < 0 {
			group = 0
		}
		for _, idx := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := idx[2*group], idx[2*group+1]
			if start < 0 {
				continue
			}
			out = append(out, Candidate[string]{
				Value:      text[start:end],
				Confidence: rule.Confidence,
				Source:     rule.Name,
				Start:      start,
				End:        end,
			})
		}
	}
	return out
}

// Score runs the full cascade for f over text: collect, refine, dedupe and rank.
// The returned slice is ordered best first; ties keep document order.
func Score[T any](logger *slog.Logger, text string, f Field[T]) []Candidate[T] {
	raw := Collect(text, f.Rules)

	best := make(map[string]int)
	var kept []Candidate[T]
	for _, c := range raw {
		refined, verr := f.Refine(text, c)
		if verr != nil {
			logRejected(logger, f.Name, c, verr.Message)
			continue
		}
		key := f.Key(refined.Value)
		if i, ok := best[key]; ok {
			if refined.Confidence > kept[i].Confidence ||
				(refined.Confidence == kept[i].Confidence && refined.Start < kept[i].Start) {
				kept[i] = refined
			}
			continue
		}
		best[key] = len(kept)
		kept = append(kept, refined)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Confidence != kept[j].Confidence {
			return kept[i].Confidence > kept[j].Confidence
		}
		return kept[i].Start < kept[j].Start
	})
	return kept
}

// Best returns the winning candidate for f, if any survived.
func Best[T any](logger *slog.Logger, text string, f Field[T]) (Candidate[T], bool) {
	ranked := Score(logger, text, f)
	if len(ranked) == 0 {
		var zero Candidate[T]
		return zero, false
	}
	return ranked[0], true
}

func logRejected(logger *slog.Logger, field string, c Candidate[string], reason string) {
	if logger == nil {
		return
	}
	logger.Debug("patterns.candidate.rejected",
		"stage", "patterns",
		"field", field,
		"value", c.Value,
		"rule", c.Source,
		"reason", reason,
	)
}

func reject(field, value, message string) *common.ValidationError {
	return &common.ValidationError{Field: field, Value: value, Message: message}
}
