package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// convertHEICtoPNG converts in (a HEIC/HEIF file) into dir/converted.png with
// one of the supported converters: heif-convert, magick or sips.
func convertHEICtoPNG(ctx context.Context, r Runner, converter, in, dir string) (string, error) {
	out := filepath.Join(dir, "converted.png")

	var errb []byte
	var err error
	switch converter {
	case "heif-convert":
		_, errb, err = r.Run(ctx, "heif-convert", in, out)
	case "magick":
		_, errb, err = r.Run(ctx, "magick", in, out)
	case "sips":
		_, errb, err = r.Run(ctx, "sips", "-s", "format", "png", in, "--out", out)
	default:
		return "", fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if err != nil {
		return "", fmt.Errorf("%s convert failed: %w (%s)", converter, err, clip(string(errb), 512))
	}

	if _, statErr := os.Stat(out); statErr != nil {
		return "", fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}
	return out, nil
}
