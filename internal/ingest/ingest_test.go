package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "%PDF same")
	writeFile(t, filepath.Join(root, "b.PDF"), "%PDF same")
	writeFile(t, filepath.Join(root, "c.txt"), "Invoice 1")
	writeFile(t, filepath.Join(root, ".hidden.pdf"), "%PDF hidden")
	writeFile(t, filepath.Join(root, ".cache", "e.pdf"), "%PDF cached")
	writeFile(t, filepath.Join(root, "notes.doc"), "ignored")
	writeFile(t, filepath.Join(root, "sub", "d.png"), "png")

	results, stats, err := ScanDirectory(context.Background(), root, nil, true, nil)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), stats.Matched)
	assert.Equal(t, uint32(4), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Zero(t, stats.Failed)

	byName := map[string]FileResult{}
	for _, r := range results {
		byName[filepath.Base(r.Path)] = r
	}
	require.Contains(t, byName, "b.PDF")
	assert.True(t, byName["b.PDF"].Deduplicated)
	assert.Equal(t, filepath.Join(root, "a.pdf"), byName["b.PDF"].DuplicateOf)
	assert.Equal(t, byName["a.pdf"].HashHex, byName["b.PDF"].HashHex)
	assert.Len(t, byName["a.pdf"].HashHex, 64)
	assert.NotContains(t, byName, ".hidden.pdf")
	assert.NotContains(t, byName, "e.pdf")
	assert.NotContains(t, byName, "notes.doc")
}

func TestScanDirectoryFilters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "1")
	writeFile(t, filepath.Join(root, ".b.pdf"), "2")
	writeFile(t, filepath.Join(root, "c.png"), "3")

	results, stats, err := ScanDirectory(context.Background(), root, []string{".PDF"}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), stats.Matched)
	assert.Len(t, results, 2)

	_, _, err = ScanDirectory(context.Background(), "  ", nil, true, nil)
	assert.Error(t, err)
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bill.html")
	writeFile(t, path, "<html><body><p>Invoice 77</p></body></html>")

	in, err := ReadInput(path)
	require.NoError(t, err)
	assert.Equal(t, "bill.html", in.OriginalFilename)
	assert.Contains(t, in.MIMEType, "text/html")
	assert.NotEmpty(t, in.Bytes)

	_, err = ReadInput(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "channel closed")
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return ""
	}
}

func TestWatchEmitsNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.pdf")
	writeFile(t, existing, "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := Watch(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, existing, receive(t, events))

	writeFile(t, filepath.Join(root, ".tmp.pdf"), "partial")
	writeFile(t, filepath.Join(root, "skip.doc"), "ignored")
	fresh := filepath.Join(root, "new.pdf")
	writeFile(t, fresh, "new")
	assert.Equal(t, fresh, receive(t, events))

	cancel()
	for range events {
		// drain until closed
	}
}

func TestWatchRequiresRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/x/.git"))
	assert.False(t, IsHidden("/x/a.pdf"))
	assert.False(t, IsHidden("."))
	assert.True(t, AllowedExt(".HEIC"))
	assert.False(t, AllowedExt("exe"))
}
