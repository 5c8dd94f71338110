// Package extraction runs the invoice field pipeline:
// START → ACQUIRED → NORMALIZED → {AI_ATTEMPTED | SKIPPED_AI} → MERGED → DONE.
// Every stage has a fallback, so a run always ends in DONE with a
// best-effort result.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/acquire"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/patterns"
	"github.com/joseph-ayodele/invoice-extractor/internal/textnorm"
)

// DefaultMinModelTextLength is the normalized text length the model needs
// before it is asked.
const DefaultMinModelTextLength = 50

// Acquirer turns an upload into raw text.
type Acquirer interface {
	Acquire(ctx context.Context, in entity.ExtractionInput) acquire.Result
}

// Report is the outcome of one run with its provenance.
type Report struct {
	Fields       entity.ExtractedInvoiceFields `json:"fields"`
	States       []constants.Stage             `json:"states"`
	Method       string                        `json:"method"`
	AcquireError string                        `json:"acquire_error,omitempty"`
	Warnings     []string                      `json:"warnings,omitempty"`
	ModelUsed    bool                          `json:"model_used"`
	ModelError   string                        `json:"model_error,omitempty"`
	Sources      map[string]entity.FieldSource `json:"sources,omitempty"`
	Duration     time.Duration                 `json:"duration"`
}

// Engine is safe for concurrent use; runs share no mutable state.
type Engine struct {
	acquirer     Acquirer
	patterns     *patterns.Extractor
	model        llm.FieldExtractor
	minModelText int
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithAcquirer replaces the text acquirer.
func WithAcquirer(a Acquirer) Option {
	return func(e *Engine) { e.acquirer = a }
}

// WithPatterns replaces the deterministic extractor.
func WithPatterns(p *patterns.Extractor) Option {
	return func(e *Engine) { e.patterns = p }
}

// WithModel enables the model stage.
func WithModel(m llm.FieldExtractor) Option {
	return func(e *Engine) { e.model = m }
}

// WithMinModelTextLength sets the threshold below which the model is skipped.
func WithMinModelTextLength(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.minModelText = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New builds an Engine. Without options it reads PDFs and text, has no OCR
// backend and no model.
func New(opts ...Option) *Engine {
	e := &Engine{
		minModelText: DefaultMinModelTextLength,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.acquirer == nil {
		e.acquirer = acquire.New(acquire.WithLogger(e.logger))
	}
	if e.patterns == nil {
		e.patterns = patterns.New(patterns.WithLogger(e.logger))
	}
	return e
}

// Extract returns the best-effort fields for in. It never fails; unset fields
// are the only failure signal.
func (e *Engine) Extract(ctx context.Context, in entity.ExtractionInput) entity.ExtractedInvoiceFields {
	return e.Run(ctx, in).Fields
}

// Run extracts fields and reports how each was obtained.
func (e *Engine) Run(ctx context.Context, in entity.ExtractionInput) (rep Report) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, e.logger).With("filename", in.OriginalFilename)

	rep.Fields.Currency = constants.SupportedCurrency
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("extraction.panic", "stage", lastStage(rep.States), "error", fmt.Sprint(rec))
			rep.Fields = entity.ExtractedInvoiceFields{Currency: constants.SupportedCurrency}
			rep.Sources = nil
		}
		rep.enter(logger, constants.StageDone)
		rep.Duration = time.Since(start)
		logger.Info("extraction.done",
			"method", rep.Method,
			"model_used", rep.ModelUsed,
			"fields_set", countSet(rep.Fields),
			"elapsed_ms", rep.Duration.Milliseconds(),
		)
	}()

	rep.enter(logger, constants.StageStart)

	acq := e.acquirer.Acquire(ctx, in)
	rep.Method = acq.Method
	rep.Warnings = acq.Warnings
	if acq.Err != nil {
		rep.AcquireError = acq.Err.Error()
	}
	rep.enter(logger, constants.StageAcquired)

	text := textnorm.Normalize(acq.Text, in.OriginalFilename)
	rep.enter(logger, constants.StageNormalized)

	if e.model == nil || utf8.RuneCountInString(text) <= e.minModelText {
		rep.enter(logger, constants.StageSkippedAI)
		m := fromPatterns(e.patterns.All(text, in.OriginalFilename))
		rep.Fields, rep.Sources = m.fields(), m.sources()
		return rep
	}

	rep.enter(logger, constants.StageAIAttempted)
	mf, _, err := e.model.ExtractWithModel(ctx, text, in.OriginalFilename)
	if err != nil {
		// The model contributes nothing; patterns decide every field.
		rep.ModelError = err.Error()
		mf = llm.ModelFields{}
		logger.Warn("extraction.model.failed", "stage", "model", "reason", err.Error())
	} else {
		rep.ModelUsed = !mf.Empty()
	}

	m := merger{px: e.patterns, logger: logger}.merge(text, in.OriginalFilename, mf)
	rep.Fields, rep.Sources = m.fields(), m.sources()
	rep.enter(logger, constants.StageMerged)
	return rep
}

func (r *Report) enter(logger *slog.Logger, s constants.Stage) {
	r.States = append(r.States, s)
	logger.Debug("extraction.state", "state", string(s))
}

func lastStage(states []constants.Stage) string {
	if len(states) == 0 {
		return ""
	}
	return string(states[len(states)-1])
}

func countSet(f entity.ExtractedInvoiceFields) int {
	n := 0
	for _, s := range []string{f.InvoiceNumber, f.Provider, f.BillingDate, f.DueDate, f.Category} {
		if s != "" {
			n++
		}
	}
	if f.Amount != nil {
		n++
	}
	return n
}
