package fs

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"
	"testing"

	"github.com/santiagomed/quill/llm"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal valid PNG header, enough for content sniffing.
var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1, 0, 0, 0, 1, 8, 2, 0, 0, 0}

func TestNewMemoryFileSystem(t *testing.T) {
	fs := NewMemoryFileSystem()
	assert.NotNil(t, fs)
	assert.IsType(t, &afero.MemMapFs{}, fs.Fs)
}

func TestNewOsFileSystem(t *testing.T) {
	fs := NewOsFileSystem()
	assert.NotNil(t, fs)
	assert.IsType(t, &afero.OsFs{}, fs.Fs)
}

func TestWriteFile(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.WriteFile("out/nested/file.txt", "Hello, World!")
	assert.NoError(t, err)

	content, err := afero.ReadFile(fs.Fs, "out/nested/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(content))
}

func TestExportDocument(t *testing.T) {
	fs := NewMemoryFileSystem()
	path, err := fs.ExportDocument("exports", "## Intro\n\nHello")
	require.NoError(t, err)
	assert.Equal(t, "exports/"+DocumentFileName, path)

	content, err := afero.ReadFile(fs.Fs, path)
	require.NoError(t, err)
	assert.Equal(t, "## Intro\n\nHello", string(content))

	_, err = fs.ExportDocument("exports", "## Intro\n\nReplaced")
	require.NoError(t, err)
	content, _ = afero.ReadFile(fs.Fs, path)
	assert.Equal(t, "## Intro\n\nReplaced", string(content))
}

func TestExportBundle(t *testing.T) {
	fs := NewMemoryFileSystem()
	chapters := []BundleChapter{
		{Title: "Market Analysis", Content: "Demand is rising.", ChartImage: llm.EncodeDataURI("image/png", pngBytes)},
		{Title: "Operations", Content: "Open at 7am.", ChartImage: "not a data uri"},
	}

	path, err := fs.ExportBundle("out", "whole document", chapters)
	require.NoError(t, err)
	assert.Equal(t, "out/"+BundleFileName, path)

	data, err := afero.ReadFile(fs.Fs, path)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := map[string][]byte{}
	var names []string
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = b
		names = append(names, f.Name)
	}
	sort.Strings(names)

	assert.Equal(t, []string{
		"chapters/01-market-analysis.md",
		"chapters/02-operations.md",
		DocumentFileName,
		"images/01-market-analysis.png",
	}, names)
	assert.Equal(t, "whole document", string(files[DocumentFileName]))
	assert.Equal(t, "## Operations\n\nOpen at 7am.\n", string(files["chapters/02-operations.md"]))
	assert.Equal(t, pngBytes, files["images/01-market-analysis.png"])
}

func TestReadImage(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, afero.WriteFile(fs.Fs, "chart.bin", pngBytes, 0644))

	uri, err := fs.ReadImage("chart.bin")
	require.NoError(t, err)

	img, ok := llm.ParseDataURI(uri)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	decoded, err := img.Bytes()
	require.NoError(t, err)
	assert.Equal(t, pngBytes, decoded)
}

func TestReadImage_Rejects(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("notes.txt", "just text"))

	_, err := fs.ReadImage("notes.txt")
	assert.ErrorContains(t, err, "not an image")

	_, err = fs.ReadImage("missing.png")
	assert.Error(t, err)
}

func TestWriteToZip_Empty(t *testing.T) {
	fs := NewMemoryFileSystem()
	var buf bytes.Buffer
	assert.ErrorContains(t, fs.WriteToZip(&buf), "no files to zip")
}
