package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns the JSON-Schema the model payload must match.
// Every field is optional; per-field plausibility is checked after the merge,
// so only shape is enforced here.
func BuildInvoiceJSONSchema() map[string]any {
	str := func(maxLen int) map[string]any {
		return map[string]any{"type": "string", "minLength": 1, "maxLength": maxLen}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"invoice_number": str(200),
			"amount":         map[string]any{"type": "string", "pattern": `^-?\d+(\.\d+)?$`},
			"currency":       str(10),
			"provider":       str(300),
			"billing_date":   str(64),
			"due_date":       str(64),
			"category":       str(100),
		},
	}
}

var (
	invoiceSchemaOnce sync.Once
	invoiceSchema     *jsonschema.Schema
	invoiceSchemaErr  error
)

func compiledInvoiceSchema() (*jsonschema.Schema, error) {
	invoiceSchemaOnce.Do(func() {
		invoiceSchema, invoiceSchemaErr = compileSchema(BuildInvoiceJSONSchema())
	})
	return invoiceSchema, invoiceSchemaErr
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateJSONAgainstSchema validates data against the invoice schema.
func ValidateJSONAgainstSchema(data []byte) error {
	schema, err := compiledInvoiceSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
