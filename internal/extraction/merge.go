package extraction

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/patterns"
)

// Origin says where a resolved field value came from.
type Origin int

const (
	Unset Origin = iota
	FromPattern
	FromModel
)

func (o Origin) source() entity.FieldSource {
	switch o {
	case FromPattern:
		return entity.SourcePattern
	case FromModel:
		return entity.SourceModel
	}
	return ""
}

// Resolved is the outcome for one field.
type Resolved[T any] struct {
	Value      T
	Origin     Origin
	Confidence int
}

func fromPattern[T any](c *patterns.Candidate[T]) Resolved[T] {
	if c == nil {
		return Resolved[T]{}
	}
	return Resolved[T]{Value: c.Value, Origin: FromPattern, Confidence: c.Confidence}
}

func fromModel[T any](v T) Resolved[T] {
	return Resolved[T]{Value: v, Origin: FromModel}
}

// pick prefers a valid model value over the pattern candidate.
func pick[T any](model, pattern Resolved[T]) Resolved[T] {
	if model.Origin == FromModel {
		return model
	}
	return pattern
}

// merged is the per-field resolution of one run.
type merged struct {
	InvoiceNumber Resolved[string]
	Amount        Resolved[decimal.Decimal]
	Provider      Resolved[string]
	BillingDate   Resolved[string]
	DueDate       Resolved[string]
	Category      Resolved[string]
}

func (m merged) fields() entity.ExtractedInvoiceFields {
	out := entity.ExtractedInvoiceFields{
		InvoiceNumber: m.InvoiceNumber.Value,
		Currency:      constants.SupportedCurrency,
		Provider:      m.Provider.Value,
		BillingDate:   m.BillingDate.Value,
		DueDate:       m.DueDate.Value,
		Category:      m.Category.Value,
	}
	if m.Amount.Origin != Unset {
		amt := m.Amount.Value
		out.Amount = &amt
	}
	return out
}

func (m merged) sources() map[string]entity.FieldSource {
	out := make(map[string]entity.FieldSource)
	add := func(name string, o Origin) {
		if o != Unset {
			out[name] = o.source()
		}
	}
	add(patterns.FieldInvoiceNumber, m.InvoiceNumber.Origin)
	add(patterns.FieldAmount, m.Amount.Origin)
	add(patterns.FieldProvider, m.Provider.Origin)
	add(patterns.FieldBillingDate, m.BillingDate.Origin)
	add(patterns.FieldDueDate, m.DueDate.Origin)
	add(patterns.FieldCategory, m.Category.Origin)
	return out
}

// fromPatterns resolves every field from the deterministic extractors only.
func fromPatterns(r patterns.Result) merged {
	return merged{
		InvoiceNumber: fromPattern(r.InvoiceNumber),
		Amount:        fromPattern(r.Amount),
		Provider:      fromPattern(r.Provider),
		BillingDate:   fromPattern(r.BillingDate),
		DueDate:       fromPattern(r.DueDate),
		Category:      fromPattern(r.Category),
	}
}

// merger validates model values with the same rules the pattern extractors
// use and resolves each field independently.
type merger struct {
	px     *patterns.Extractor
	logger *slog.Logger
}

func (mg merger) merge(text, filename string, mf llm.ModelFields) merged {
	base := mg.px.All(text, filename)

	var m merged
	m.InvoiceNumber = pick(mg.invoiceNumber(mf.InvoiceNumber), fromPattern(base.InvoiceNumber))
	m.Amount = pick(mg.amount(mf.Amount), fromPattern(base.Amount))
	m.Provider = pick(mg.provider(mf.Provider), fromPattern(base.Provider))
	m.BillingDate = pick(mg.date(patterns.FieldBillingDate, mf.BillingDate), fromPattern(base.BillingDate))

	// Due date terms and category depend on the merged billing date and provider.
	m.DueDate = mg.date(patterns.FieldDueDate, mf.DueDate)
	if m.DueDate.Origin == Unset {
		if c, ok := mg.px.DueDate(text, m.BillingDate.Value); ok {
			m.DueDate = fromPattern(&c)
		}
	}
	m.Category = mg.category(mf.Category)
	if m.Category.Origin == Unset {
		if c, ok := mg.px.Category(text, m.Provider.Value); ok {
			m.Category = fromPattern(&c)
		}
	}

	mg.currency(mf.Currency)
	return m
}

// currency only logs: output currency is always constants.SupportedCurrency.
func (mg merger) currency(raw string) {
	if raw == "" {
		return
	}
	code := strings.ToUpper(strings.TrimSpace(raw))
	if verr := common.NewValidator().Field("currency", code, common.CurrencyCode).First(); verr != nil {
		mg.rejected(verr)
		return
	}
	if code != constants.SupportedCurrency {
		mg.logger.Debug("extraction.currency.ignored", "stage", "merge", "value", code)
	}
}

func (mg merger) invoiceNumber(raw string) Resolved[string] {
	if raw == "" {
		return Resolved[string]{}
	}
	v, verr := patterns.ValidateInvoiceNumber(raw, patterns.LabeledDigitRun)
	if verr != nil {
		mg.rejected(verr)
		return Resolved[string]{}
	}
	return fromModel(v)
}

func (mg merger) amount(raw string) Resolved[decimal.Decimal] {
	if raw == "" {
		return Resolved[decimal.Decimal]{}
	}
	d, err := patterns.ParseAmount(raw)
	if err != nil {
		mg.rejected(&common.ValidationError{Field: patterns.FieldAmount, Value: raw, Message: "not a number"})
		return Resolved[decimal.Decimal]{}
	}
	d, verr := patterns.ValidateAmount(d)
	if verr != nil {
		verr.Value = raw
		mg.rejected(verr)
		return Resolved[decimal.Decimal]{}
	}
	return fromModel(d)
}

// provider canonicalizes known names through the provider table.
func (mg merger) provider(raw string) Resolved[string] {
	if raw == "" {
		return Resolved[string]{}
	}
	v, verr := patterns.ValidateProvider(raw)
	if verr != nil {
		mg.rejected(verr)
		return Resolved[string]{}
	}
	if p, ok := mg.px.Providers().Lookup(v); ok {
		v = p.Name
	}
	return fromModel(v)
}

func (mg merger) date(field, raw string) Resolved[string] {
	if raw == "" {
		return Resolved[string]{}
	}
	iso, verr := patterns.ValidateDate(mg.px.Dates(), field, raw)
	if verr != nil {
		mg.rejected(verr)
		return Resolved[string]{}
	}
	return fromModel(iso)
}

func (mg merger) category(raw string) Resolved[string] {
	if raw == "" {
		return Resolved[string]{}
	}
	v, verr := patterns.ValidateCategory(raw)
	if verr != nil {
		mg.rejected(verr)
		return Resolved[string]{}
	}
	return fromModel(v)
}

func (mg merger) rejected(verr *common.ValidationError) {
	mg.logger.Info("extraction.model_value.rejected",
		"stage", "merge",
		"field", verr.Field,
		"value", verr.Value,
		"reason", verr.Message,
	)
}
