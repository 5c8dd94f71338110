package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Azure recognizes images with the Azure Computer Vision printed-text API.
type Azure struct {
	client computervision.BaseClient
	cfg    common.OCRConfig
	runner Runner
	logger *slog.Logger
}

// NewAzure creates an Azure recognizer for cfg.AzureEndpoint.
func NewAzure(cfg common.OCRConfig, logger *slog.Logger) *Azure {
	if logger == nil {
		logger = slog.Default()
	}
	client := computervision.New(cfg.AzureEndpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.AzureKey)
	return &Azure{
		client: client,
		cfg:    cfg,
		runner: ExecRunner{Logger: logger},
		logger: logger,
	}
}

// Recognize sends the image to Azure and joins the recognized words line by
// line, with a blank line between regions.
func (a *Azure) Recognize(ctx context.Context, image []byte, ext string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", common.ErrOCR)
	}
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	data, err := a.prepare(ctx, image, ext)
	if err != nil {
		return "", err
	}

	result, err := a.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(data)), computervision.OcrLanguages(computervision.En))
	if err != nil {
		a.logger.Error("ocr.azure.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: azure recognize: %w", common.ErrOCR, err)
	}

	text := joinRegions(result)
	a.logger.Info("ocr.azure.ok",
		"chars", len(text),
		"confidence", heuristicConfidence(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (a *Azure) prepare(ctx context.Context, image []byte, ext string) ([]byte, error) {
	data := image
	if constants.IsHEICExt(ext) {
		dir, err := os.MkdirTemp("", "invoice-azure-*")
		if err != nil {
			return nil, fmt.Errorf("%w: temp dir: %w", common.ErrOCR, err)
		}
		defer os.RemoveAll(dir)

		in := filepath.Join(dir, "input."+constants.NormalizeExt(ext))
		if err := os.WriteFile(in, image, 0o600); err != nil {
			return nil, fmt.Errorf("%w: write image: %w", common.ErrOCR, err)
		}
		out, err := convertHEICtoPNG(ctx, a.runner, a.cfg.HeicConverter, in, dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrOCR, err)
		}
		if data, err = os.ReadFile(out); err != nil {
			return nil, fmt.Errorf("%w: read converted image: %w", common.ErrOCR, err)
		}
	}
	if a.cfg.Preprocess {
		processed, err := Preprocess(data, a.cfg.MaxImagePixels)
		if err != nil {
			a.logger.Debug("ocr.preprocess.skipped", "error", err)
			return data, nil
		}
		return processed, nil
	}
	return data, nil
}

func joinRegions(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}
	var regions []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		var lines []string
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil && *word.Text != "" {
					words = append(words, *word.Text)
				}
			}
			if len(words) > 0 {
				lines = append(lines, strings.Join(words, " "))
			}
		}
		if len(lines) > 0 {
			regions = append(regions, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(regions, "\n\n")
}
