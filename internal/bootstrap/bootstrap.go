// Package bootstrap builds the extraction engine and run log from Config.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/acquire"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/dates"
	"github.com/joseph-ayodele/invoice-extractor/internal/extraction"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
	"github.com/joseph-ayodele/invoice-extractor/internal/patterns"
	"github.com/joseph-ayodele/invoice-extractor/internal/pdftext"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// Recognizer returns the configured OCR backend, or nil for "none".
func Recognizer(cfg common.OCRConfig, logger *slog.Logger) acquire.Recognizer {
	switch cfg.Backend {
	case "azure":
		return ocr.NewAzure(cfg, logger)
	case "none":
		return nil
	default:
		return ocr.NewTesseract(cfg, logger)
	}
}

// Patterns builds the rule tables, merging the operator's provider file over
// the built-in table when one is configured.
func Patterns(cfg common.ExtractionConfig, logger *slog.Logger) (*patterns.Extractor, error) {
	opts := []patterns.Option{
		patterns.WithLogger(logger),
		patterns.WithDateOrder(dates.ParseOrder(cfg.DateOrder)),
	}
	if cfg.ProvidersFile != "" {
		table, err := patterns.LoadProviderFile(cfg.ProvidersFile)
		if err != nil {
			return nil, fmt.Errorf("load providers: %w", err)
		}
		logger.Info("providers loaded", "path", cfg.ProvidersFile, "count", table.Len())
		opts = append(opts, patterns.WithProviders(table))
	}
	return patterns.New(opts...), nil
}

// Model returns the completion-backed field extractor, or nil when no API
// key is configured.
func Model(cfg *common.Config, logger *slog.Logger) llm.FieldExtractor {
	if !cfg.LLM.Enabled() {
		logger.Info("llm disabled; pattern extraction only")
		return nil
	}
	client := openai.NewClient(openai.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		Timeout:           cfg.LLM.Timeout,
		MaxTokens:         cfg.LLM.MaxTokens,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}, logger)
	return llm.NewExtractor(client, llm.ExtractorConfig{
		Timeout:    cfg.LLM.Timeout,
		MaxChars:   cfg.Extraction.ModelExcerptChars,
		Categories: constants.AsStringSlice(),
	}, logger)
}

// Engine wires acquisition, patterns and the optional model into an engine.
func Engine(cfg *common.Config, logger *slog.Logger) (*extraction.Engine, error) {
	px, err := Patterns(cfg.Extraction, logger)
	if err != nil {
		return nil, err
	}

	acqOpts := []acquire.Option{
		acquire.WithLogger(logger),
		acquire.WithMaxPages(cfg.Extraction.MaxPDFPages),
		acquire.WithPDFTextLayer(pdftext.NewReader(logger)),
	}
	if rec := Recognizer(cfg.OCR, logger); rec != nil {
		acqOpts = append(acqOpts, acquire.WithRecognizer(rec))
	}

	opts := []extraction.Option{
		extraction.WithLogger(logger),
		extraction.WithAcquirer(acquire.New(acqOpts...)),
		extraction.WithPatterns(px),
		extraction.WithMinModelTextLength(cfg.Extraction.MinModelTextLength),
	}
	if m := Model(cfg, logger); m != nil {
		opts = append(opts, extraction.WithModel(m))
	}

	logger.Info("engine ready",
		"ocr_backend", cfg.OCR.Backend,
		"date_order", cfg.Extraction.DateOrder,
		"llm_enabled", cfg.LLM.Enabled(),
	)
	return extraction.New(opts...), nil
}

// Runs opens the run log, or returns nil when no driver is configured.
func Runs(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repository.RunRepository, error) {
	if cfg.Driver == "" {
		logger.Info("run log disabled")
		return nil, nil
	}
	return repository.Open(ctx, cfg, logger)
}
