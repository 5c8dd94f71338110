package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 20 * time.Second

// Extractor turns a Completer into a FieldExtractor: it builds the prompt,
// bounds the call, and cleans and validates what comes back.
type Extractor struct {
	completer  Completer
	logger     *slog.Logger
	timeout    time.Duration
	maxChars   int
	categories []string
}

// ExtractorConfig configures NewExtractor. Zero values pick defaults.
type ExtractorConfig struct {
	Timeout    time.Duration
	MaxChars   int
	Categories []string
}

// NewExtractor wraps completer.
func NewExtractor(completer Completer, cfg ExtractorConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultExcerptChars
	}
	return &Extractor{
		completer:  completer,
		logger:     logger,
		timeout:    cfg.Timeout,
		maxChars:   cfg.MaxChars,
		categories: cfg.Categories,
	}
}

// ExtractWithModel asks the model for every field. Any failure is returned as
// an error wrapping common.ErrExternalService together with whatever raw
// payload was received.
func (e *Extractor) ExtractWithModel(ctx context.Context, text, filename string) (ModelFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	log := common.LoggerFromContext(ctx, e.logger).With("req_id", rid)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	log.Info("llm.extract.start",
		"text_len", len(text),
		"filename", filename,
		"timeout_ms", e.timeout.Milliseconds(),
	)

	prompt := Prompt{
		System: BuildSystemPrompt(e.categories),
		User:   BuildUserPrompt(text, filename, e.maxChars),
	}
	content, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		event := "llm.extract.completion_failed"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			event = "llm.extract.timeout"
		}
		log.Warn(event, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return ModelFields{}, nil, fmt.Errorf("%w: completion: %w", common.ErrExternalService, err)
	}

	raw, err := ExtractJSONObject(content)
	if err != nil {
		log.Warn("llm.extract.no_json", "content_len", len(content), "elapsed_ms", time.Since(start).Milliseconds())
		return ModelFields{}, []byte(content), fmt.Errorf("%w: %w", common.ErrExternalService, err)
	}

	cleaned, dropped, err := NormalizeAndSanitizeJSON(raw, log)
	if err != nil {
		log.Warn("llm.extract.sanitize_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return ModelFields{}, raw, fmt.Errorf("%w: %w", common.ErrExternalService, err)
	}

	if err := ValidateJSONAgainstSchema(cleaned); err != nil {
		log.Warn("llm.extract.schema_validation_failed",
			"error", err, "content", string(cleaned), "elapsed_ms", time.Since(start).Milliseconds())
		return ModelFields{}, cleaned, fmt.Errorf("%w: schema validation failed: %w", common.ErrExternalService, err)
	}

	var out ModelFields
	if err := json.Unmarshal(cleaned, &out); err != nil {
		log.Warn("llm.extract.unmarshal_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return ModelFields{}, cleaned, fmt.Errorf("%w: unmarshal fields: %w", common.ErrExternalService, err)
	}

	log.Info("llm.extract.ok",
		"invoice_number", out.InvoiceNumber,
		"amount", out.Amount,
		"provider", out.Provider,
		"billing_date", out.BillingDate,
		"due_date", out.DueDate,
		"category", out.Category,
		"dropped", len(dropped),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}
