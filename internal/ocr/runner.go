package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

const maxLoggedStderr = 8 << 10

// Runner executes the external OCR tools (tesseract, pdftoppm, HEIC
// converters). Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs tools with os/exec. A tool missing from PATH is reported as
// common.ErrOCR so acquisition falls back instead of retrying.
type ExecRunner struct {
	Logger *slog.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := exec.LookPath(name); err != nil {
		logger.Error("ocr.exec.missing", "cmd", name, "error", err)
		return nil, nil, fmt.Errorf("%w: %s is not installed: %w", common.ErrOCR, name, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	attrs := []any{
		"cmd", name,
		"args", strings.Join(args, " "),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	switch {
	case err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("%w: %s timed out: %w", common.ErrOCR, name, ctx.Err())
		logger.Error("ocr.exec.timeout", attrs...)
	case err != nil:
		logger.Error("ocr.exec.failed", append(attrs, "error", err, "stderr", clip(stderr.String(), maxLoggedStderr))...)
	default:
		logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", stdout.Len())...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// clip shortens s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "...(truncated)"
}
