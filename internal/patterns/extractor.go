package patterns

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/internal/dates"
)

// Extractor runs the deterministic rule tables. It holds no per-call state and
// is safe for concurrent use.
type Extractor struct {
	logger    *slog.Logger
	dates     dates.Resolver
	providers *ProviderTable
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for rejection diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDateOrder sets how ambiguous numeric dates are read.
func WithDateOrder(o dates.Order) Option {
	return func(e *Extractor) { e.dates = dates.NewResolver(o) }
}

// WithProviders replaces the provider table.
func WithProviders(t *ProviderTable) Option {
	return func(e *Extractor) {
		if t != nil {
			e.providers = t
		}
	}
}

// New builds an Extractor with the built-in provider table and day-first dates.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		logger:    slog.Default(),
		dates:     dates.NewResolver(dates.DayFirst),
		providers: DefaultProviders(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dates returns the resolver used for date fields.
func (e *Extractor) Dates() dates.Resolver { return e.dates }

// Providers returns the provider table.
func (e *Extractor) Providers() *ProviderTable { return e.providers }

// Result holds the winning candidate per field; nil means nothing survived.
type Result struct {
	InvoiceNumber *Candidate[string]
	Amount        *Candidate[decimal.Decimal]
	Provider      *Candidate[string]
	BillingDate   *Candidate[string]
	DueDate       *Candidate[string]
	Category      *Candidate[string]
}

// All runs every extractor over text. Category and due-date terms use the
// provider and billing date found here.
func (e *Extractor) All(text, filename string) Result {
	var r Result
	if c, ok := e.InvoiceNumber(text); ok {
		r.InvoiceNumber = &c
	}
	if c, ok := e.Amount(text); ok {
		r.Amount = &c
	}
	if c, ok := e.Provider(text, filename); ok {
		r.Provider = &c
	}
	if c, ok := e.BillingDate(text); ok {
		r.BillingDate = &c
	}

	billing, provider := "", ""
	if r.BillingDate != nil {
		billing = r.BillingDate.Value
	}
	if r.Provider != nil {
		provider = r.Provider.Value
	}
	if c, ok := e.DueDate(text, billing); ok {
		r.DueDate = &c
	}
	if c, ok := e.Category(text, provider); ok {
		r.Category = &c
	}
	return r
}
