package bootstrap

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
	"github.com/joseph-ayodele/invoice-extractor/internal/ocr"
)

func testConfig() *common.Config {
	return &common.Config{
		Extraction: common.ExtractionConfig{
			MinModelTextLength: 50,
			ModelExcerptChars:  3000,
			MaxPDFPages:        3,
			DateOrder:          "DMY",
		},
		OCR: common.OCRConfig{Backend: "none"},
	}
}

func TestRecognizer(t *testing.T) {
	logger := slog.Default()

	assert.Nil(t, Recognizer(common.OCRConfig{Backend: "none"}, logger))
	assert.IsType(t, &ocr.Tesseract{}, Recognizer(common.OCRConfig{Backend: "tesseract"}, logger))
	assert.IsType(t, &ocr.Azure{}, Recognizer(common.OCRConfig{
		Backend:       "azure",
		AzureEndpoint: "https://example.cognitiveservices.azure.com/",
		AzureKey:      "key",
	}, logger))
}

func TestModelDisabledWithoutKey(t *testing.T) {
	assert.Nil(t, Model(testConfig(), slog.Default()))

	cfg := testConfig()
	cfg.LLM.APIKey = "sk-test"
	assert.NotNil(t, Model(cfg, slog.Default()))
}

func TestEngineUsesProviderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`providers:
  - name: Globex
    aliases: [globex corporation]
    category: Marketing & Advertising
`), 0o644))

	cfg := testConfig()
	cfg.Extraction.ProvidersFile = path
	engine, err := Engine(cfg, slog.Default())
	require.NoError(t, err)

	fields := engine.Extract(context.Background(), entity.ExtractionInput{
		Bytes:            []byte("Globex Corporation\nInvoice Number: GX-10042\nTotal: $99.00"),
		MIMEType:         "text/plain",
		OriginalFilename: "march.txt",
	})
	assert.Equal(t, "Globex", fields.Provider)
	assert.Equal(t, "Marketing & Advertising", fields.Category)
	assert.Equal(t, "GX-10042", fields.InvoiceNumber)
	assert.Equal(t, "USD", fields.Currency)
}

func TestEngineMissingProviderFile(t *testing.T) {
	cfg := testConfig()
	cfg.Extraction.ProvidersFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Engine(cfg, slog.Default())
	assert.Error(t, err)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()

	runs, err := Runs(ctx, common.DatabaseConfig{}, slog.Default())
	require.NoError(t, err)
	assert.Nil(t, runs)

	runs, err = Runs(ctx, common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, runs)
	assert.NoError(t, runs.HealthCheck(ctx, 0))
	assert.NoError(t, runs.Close())
}
