package ocr

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()
	if f.fn == nil {
		return nil, nil, nil
	}
	return f.fn(name, args)
}

func (f *fakeRunner) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.name)
	}
	return out
}

func testConfig() common.OCRConfig {
	return common.OCRConfig{
		Tesseract:     "tesseract",
		Pdftoppm:      "pdftoppm",
		TesseractLang: "eng",
		PSM:           6,
		HeicConverter: "magick",
		Timeout:       5 * time.Second,
	}
}

func TestTesseractRecognize(t *testing.T) {
	runner := &fakeRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		return []byte("INVOICE #INV-1001  \n\fTotal $42.00\n"), nil, nil
	}}
	tess := NewTesseract(testConfig(), nil, WithRunner(runner))

	text, err := tess.Recognize(context.Background(), []byte("fake-png"), ".PNG")
	require.NoError(t, err)
	assert.Equal(t, "INVOICE #INV-1001\n\nTotal $42.00", text)

	require.Len(t, runner.calls, 1)
	c := runner.calls[0]
	assert.Equal(t, "tesseract", c.name)
	assert.True(t, strings.HasSuffix(c.args[0], "input.png"))
	assert.Equal(t, []string{"stdout", "-l", "eng", "--psm", "6"}, c.args[1:])
}

func TestTesseractRecognizeTessdataDir(t *testing.T) {
	runner := &fakeRunner{}
	cfg := testConfig()
	cfg.TessdataDir = "/opt/tessdata"
	tess := NewTesseract(cfg, nil, WithRunner(runner))

	_, err := tess.Recognize(context.Background(), []byte("x"), "jpg")
	require.NoError(t, err)
	args := runner.calls[0].args
	assert.Equal(t, []string{"--tessdata-dir", "/opt/tessdata"}, args[len(args)-2:])
}

func TestTesseractRecognizeErrors(t *testing.T) {
	t.Run("empty image", func(t *testing.T) {
		tess := NewTesseract(testConfig(), nil, WithRunner(&fakeRunner{}))
		_, err := tess.Recognize(context.Background(), nil, "png")
		assert.ErrorIs(t, err, common.ErrOCR)
	})

	t.Run("tesseract fails", func(t *testing.T) {
		runner := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
			return nil, []byte("Error opening data file"), errors.New("exit status 1")
		}}
		tess := NewTesseract(testConfig(), nil, WithRunner(runner))
		_, err := tess.Recognize(context.Background(), []byte("x"), "png")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrOCR)
		assert.Contains(t, err.Error(), "Error opening data file")
	})

	t.Run("unknown heic converter", func(t *testing.T) {
		cfg := testConfig()
		cfg.HeicConverter = "gimp"
		runner := &fakeRunner{}
		tess := NewTesseract(cfg, nil, WithRunner(runner))
		_, err := tess.Recognize(context.Background(), []byte("x"), "heic")
		assert.ErrorIs(t, err, common.ErrOCR)
		assert.Empty(t, runner.calls)
	})
}

func TestTesseractRecognizeHEIC(t *testing.T) {
	runner := &fakeRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		if name == "magick" {
			return nil, nil, os.WriteFile(args[1], []byte("png"), 0o600)
		}
		return []byte("Receipt"), nil, nil
	}}
	tess := NewTesseract(testConfig(), nil, WithRunner(runner))

	text, err := tess.Recognize(context.Background(), []byte("heic-bytes"), "heic")
	require.NoError(t, err)
	assert.Equal(t, "Receipt", text)
	assert.Equal(t, []string{"magick", "tesseract"}, runner.names())
	assert.True(t, strings.HasSuffix(runner.calls[1].args[0], "converted.png"))
}

func TestTesseractRecognizePDF(t *testing.T) {
	runner := &fakeRunner{}
	runner.fn = func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, n := range []string{"10", "2", "1"} {
				if err := os.WriteFile(prefix+"-"+n+".png", []byte("p"), 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		default:
			return []byte("page " + filepath.Base(args[0])), nil, nil
		}
	}
	tess := NewTesseract(testConfig(), nil, WithRunner(runner), WithDPI(200))

	text, err := tess.RecognizePDF(context.Background(), []byte("%PDF-1.4"), 3)
	require.NoError(t, err)
	assert.Equal(t, "page page-1.png\n\npage page-2.png\n\npage page-10.png", text)

	pdfArgs := runner.calls[0].args
	assert.Equal(t, []string{"-r", "200", "-png", "-f", "1", "-l", "3"}, pdfArgs[:7])
}

func TestTesseractRecognizePDFNoPages(t *testing.T) {
	tess := NewTesseract(testConfig(), nil, WithRunner(&fakeRunner{}))
	_, err := tess.RecognizePDF(context.Background(), []byte("%PDF-1.4"), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrOCR)
	assert.Contains(t, err.Error(), "no pages")
}

func TestPreprocess(t *testing.T) {
	src := imaging.New(3000, 1500, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, src, imaging.PNG))

	out, err := Preprocess(buf.Bytes(), 1200)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())

	r, g, b, _ := img.At(10, 10).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)

	_, err = Preprocess([]byte("not an image"), 0)
	assert.Error(t, err)
}

func TestTesseractPreprocessFallsBack(t *testing.T) {
	cfg := testConfig()
	cfg.Preprocess = true
	runner := &fakeRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return []byte("ok"), nil, nil
	}}
	tess := NewTesseract(cfg, nil, WithRunner(runner))

	text, err := tess.Recognize(context.Background(), []byte("undecodable"), "webp")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.True(t, strings.HasSuffix(runner.calls[0].args[0], "input.webp"))
}

func TestAzureRecognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/ocr")
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"language": "en",
			"regions": [
				{"lines": [
					{"words": [{"text": "INVOICE"}, {"text": "#A-77"}]},
					{"words": [{"text": "Total"}, {"text": "$12.50"}]}
				]},
				{"lines": [{"words": [{"text": "Thank"}, {"text": "you"}]}]}
			]
		}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.AzureEndpoint = srv.URL
	cfg.AzureKey = "secret"
	az := NewAzure(cfg, nil)

	text, err := az.Recognize(context.Background(), []byte("jpeg-bytes"), "jpg")
	require.NoError(t, err)
	assert.Equal(t, "INVOICE #A-77\nTotal $12.50\n\nThank you", text)
}

func TestAzureRecognizeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"InvalidImageFormat","message":"bad image"}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.AzureEndpoint = srv.URL
	cfg.AzureKey = "secret"

	_, err := NewAzure(cfg, nil).Recognize(context.Background(), []byte("x"), "png")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrOCR)
}

func TestHeuristicConfidence(t *testing.T) {
	low := heuristicConfidence("hello")
	high := heuristicConfidence("Invoice total due 12/01/2024 USD $1,234.56 " + strings.Repeat("x", 120))
	assert.InDelta(t, 0.2, low, 0.001)
	assert.InDelta(t, 1.0, high, 0.001)
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, _, err := ExecRunner{}.Run(context.Background(), "definitely-not-an-ocr-tool-7f3a")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrOCR)
	assert.Contains(t, err.Error(), "not installed")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abc...(truncated)", clip("abcdef", 3))
	// "é" is two bytes; cutting inside it backs up to the rune start.
	assert.Equal(t, "a...(truncated)", clip("aé", 2))
}
