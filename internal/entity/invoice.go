package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtractionInput is one uploaded file. It is never mutated by the engine.
type ExtractionInput struct {
	Bytes            []byte
	MIMEType         string
	OriginalFilename string
}

// ExtractedInvoiceFields is the engine's only output. Empty strings and a nil
// Amount mean the field could not be recovered.
type ExtractedInvoiceFields struct {
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      string           `json:"currency"`
	Provider      string           `json:"provider,omitempty"`
	BillingDate   string           `json:"billing_date,omitempty"` // YYYY-MM-DD
	DueDate       string           `json:"due_date,omitempty"`     // YYYY-MM-DD
	Category      string           `json:"category,omitempty"`
}

// FieldSource records where a merged field value came from.
type FieldSource string

const (
	SourcePattern FieldSource = "pattern"
	SourceModel   FieldSource = "model"
)

// ExtractionRun is the persisted record of one extraction, kept for tuning
// the pattern tables against real traffic.
type ExtractionRun struct {
	ID            string                 `json:"id"`
	Filename      string                 `json:"filename"`
	MIMEType      string                 `json:"mime_type"`
	ContentSHA256 string                 `json:"content_sha256"`
	Method        string                 `json:"method"`
	ModelUsed     bool                   `json:"model_used"`
	ModelError    string                 `json:"model_error,omitempty"`
	States        []string               `json:"states"`
	Fields        ExtractedInvoiceFields `json:"fields"`
	Sources       map[string]FieldSource `json:"sources,omitempty"`
	DurationMS    int64                  `json:"duration_ms"`
	CreatedAt     time.Time              `json:"created_at"`
}
