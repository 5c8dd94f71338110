package llm

import "context"

// Prompt is one structured-output request.
type Prompt struct {
	System string
	User   string
}

// Completer is the external completion service. Implementations return the
// raw message content, which is expected to hold a single JSON object.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// ModelFields is the model's guess for every field at once. Values are raw
// strings; nothing here is trusted until the merge step validates it.
type ModelFields struct {
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	Provider      string `json:"provider,omitempty"`
	BillingDate   string `json:"billing_date,omitempty"` // YYYY-MM-DD requested
	DueDate       string `json:"due_date,omitempty"`     // YYYY-MM-DD requested
	Category      string `json:"category,omitempty"`
}

// Empty reports whether the model returned no usable field.
func (f ModelFields) Empty() bool {
	return f.InvoiceNumber == "" && f.Amount == "" && f.Provider == "" &&
		f.BillingDate == "" && f.DueDate == "" && f.Category == ""
}

// FieldExtractor is what the extraction engine depends on.
type FieldExtractor interface {
	ExtractWithModel(ctx context.Context, text, filename string) (ModelFields, []byte, error)
}
