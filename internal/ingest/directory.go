package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// FileResult is one candidate file found by ScanDirectory.
type FileResult struct {
	Path         string
	Size         int64
	HashHex      string
	Deduplicated bool
	DuplicateOf  string
	Err          string
}

// DirStats aggregates a directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// ScanDirectory walks root, filters by includeExts (or the defaults), skips
// hidden entries if requested and hashes each match. Files whose content was
// already seen are marked Deduplicated.
func ScanDirectory(ctx context.Context, root string, includeExts []string, skipHidden bool, logger *slog.Logger) ([]FileResult, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}
	exts := extSet(includeExts)
	seen := map[string]string{}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !allowed(path, exts) {
			return nil
		}
		stats.Matched++

		sum, size, err := hashFile(path)
		if err != nil {
			logger.Warn("ingest.hash.failed", "path", path, "error", err)
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		res := FileResult{Path: path, Size: size, HashHex: sum}
		if first, dup := seen[sum]; dup {
			res.Deduplicated = true
			res.DuplicateOf = first
			stats.Deduplicated++
		} else {
			seen[sum] = path
		}
		results = append(results, res)
		stats.Succeeded++
		return nil
	})

	logger.Info("ingest.scan.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// ReadInput loads a file as an extraction input, sniffing its MIME type.
func ReadInput(path string) (entity.ExtractionInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.ExtractionInput{}, err
	}
	return entity.ExtractionInput{
		Bytes:            data,
		MIMEType:         mimetype.Detect(data).String(),
		OriginalFilename: filepath.Base(path),
	}, nil
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
