package datasetimport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLDirSourceListReturnsIDsWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two-sum.html"), []byte("<html></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	src := HTMLDirSource{Dir: dir}
	ids, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"two-sum"}, ids)
}

func TestHTMLDirSourceFetchStripsMarkupAndScripts(t *testing.T) {
	dir := t.TempDir()
	page := `<html><head><style>.x{}</style></head><body>` +
		`<script>var x = 1;</script>` +
		`<h1>Two Sum</h1><p>Given an array of integers, return indices.</p>` +
		`</body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two-sum.html"), []byte(page), 0o644))

	src := HTMLDirSource{Dir: dir}
	bundle, err := src.Fetch(context.Background(), "two-sum")
	require.NoError(t, err)
	assert.Contains(t, bundle.Statement, "Two Sum")
	assert.Contains(t, bundle.Statement, "Given an array of integers, return indices.")
	assert.NotContains(t, bundle.Statement, "var x = 1")
}

func TestHTMLDirSourceFetchMissingFile(t *testing.T) {
	src := HTMLDirSource{Dir: t.TempDir()}
	_, err := src.Fetch(context.Background(), "missing")
	assert.Error(t, err)
}
