package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterHTML(t *testing.T) {
	e := NewExporter()

	doc, err := e.HTML("Sisli Liman", "tr", "# Bölüm 1\n\nDedektif rıhtıma indi.")
	require.NoError(t, err)

	assert.Contains(t, doc, `<html lang="tr">`)
	assert.Contains(t, doc, "<title>Sisli Liman</title>")
	assert.Contains(t, doc, "<h1")
	assert.Contains(t, doc, "Bölüm 1")
	assert.Contains(t, doc, "Dedektif rıhtıma indi.")
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
}

func TestExporterHTMLDefaultLang(t *testing.T) {
	e := NewExporter()

	doc, err := e.HTML("T", "", "metin")
	require.NoError(t, err)
	assert.Contains(t, doc, `<html lang="tr">`)
}

func TestExporterWriteFiles(t *testing.T) {
	e := NewExporter()
	dir := t.TempDir()

	mdPath := filepath.Join(dir, "out", "kitap.md")
	require.NoError(t, e.WriteMarkdown(mdPath, "# Başlık\n"))
	data, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Equal(t, "# Başlık\n", string(data))

	htmlPath := filepath.Join(dir, "out", "kitap.html")
	require.NoError(t, e.WriteHTML(htmlPath, "Başlık", "tr", "# Başlık\n"))
	data, err = os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>Başlık</title>")
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.txt")

	require.NoError(t, AtomicWriteFile(path, []byte("first")))
	require.NoError(t, AtomicWriteFile(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWriterAbort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	w, err := NewAtomicWriter(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("discarded"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
