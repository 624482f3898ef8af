package fs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/santiagomed/quill/llm"
	"github.com/santiagomed/quill/utils"
	"github.com/spf13/afero"
)

const (
	// DocumentFileName is the fixed name of the exported document.
	DocumentFileName = "document.md"
	MarkdownMIMEType = "text/markdown"
	BundleFileName   = "document.zip"

	maxImageSize = 20 << 20
)

// FileSystem wraps the Afero Fs interface
type FileSystem struct {
	Fs afero.Fs
}

// NewMemoryFileSystem creates a new in-memory file system
func NewMemoryFileSystem() *FileSystem {
	return &FileSystem{
		Fs: afero.NewMemMapFs(),
	}
}

// NewOsFileSystem creates a new OS-based file system
func NewOsFileSystem() *FileSystem {
	return &FileSystem{
		Fs: afero.NewOsFs(),
	}
}

// WriteFile creates or overwrites path with content, creating parent directories.
func (fs *FileSystem) WriteFile(path string, content string) error {
	return fs.writeBytes(path, []byte(content))
}

func (fs *FileSystem) writeBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory %s: %w", dir, err)
	}
	if err := afero.WriteFile(fs.Fs, path, data, 0644); err != nil {
		return fmt.Errorf("error writing file %s: %w", path, err)
	}
	return nil
}

// ExportDocument writes the assembled document to dir/document.md and returns the path.
func (fs *FileSystem) ExportDocument(dir, document string) (string, error) {
	path := filepath.Join(dir, DocumentFileName)
	if err := fs.WriteFile(path, document); err != nil {
		return "", fmt.Errorf("failed to export document: %w", err)
	}
	return path, nil
}

// BundleChapter is one chapter as it goes into a zip bundle.
type BundleChapter struct {
	Title      string
	Content    string
	ChartImage string
}

// ExportBundle writes dir/document.zip holding the document, one markdown file per chapter
// and every attached chart image.
func (fs *FileSystem) ExportBundle(dir, document string, chapters []BundleChapter) (string, error) {
	staging := NewMemoryFileSystem()
	if err := staging.WriteFile(DocumentFileName, document); err != nil {
		return "", err
	}

	for i, ch := range chapters {
		stem := fmt.Sprintf("%02d-%s", i+1, utils.FormatFileName(ch.Title))
		body := fmt.Sprintf("## %s\n\n%s\n", ch.Title, ch.Content)
		if err := staging.WriteFile(filepath.Join("chapters", stem+".md"), body); err != nil {
			return "", err
		}

		img, ok := llm.ParseDataURI(ch.ChartImage)
		if !ok {
			continue
		}
		data, err := img.Bytes()
		if err != nil {
			return "", fmt.Errorf("error decoding chart image for chapter %q: %w", ch.Title, err)
		}
		if err := staging.writeBytes(filepath.Join("images", stem+imageExtension(img.MIMEType)), data); err != nil {
			return "", err
		}
	}

	zipPath := filepath.Join(dir, BundleFileName)
	if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating directory %s: %w", dir, err)
	}
	zipFile, err := fs.Fs.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("error creating zip file: %w", err)
	}
	defer zipFile.Close()

	if err := staging.WriteToZip(zipFile); err != nil {
		return "", err
	}
	return zipPath, nil
}

func imageExtension(mimeType string) string {
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".img"
}

// ReadImage loads an image file and returns it as a data URI. The MIME type is sniffed from
// the content, not the extension.
func (fs *FileSystem) ReadImage(path string) (string, error) {
	info, err := fs.Fs.Stat(path)
	if err != nil {
		return "", fmt.Errorf("error reading image %s: %w", path, err)
	}
	if info.Size() > maxImageSize {
		return "", fmt.Errorf("image %s is larger than %d MB", path, maxImageSize>>20)
	}

	data, err := afero.ReadFile(fs.Fs, path)
	if err != nil {
		return "", fmt.Errorf("error reading image %s: %w", path, err)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", fmt.Errorf("%s is not an image (detected %s)", path, mime.String())
	}
	return llm.EncodeDataURI(mimeBase(mime.String()), data), nil
}

// mimeBase drops parameters such as "; charset=utf-8".
func mimeBase(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		return strings.TrimSpace(m[:i])
	}
	return m
}

// WriteToZip writes every file of the file system into a zip archive on w.
func (fs *FileSystem) WriteToZip(w io.Writer) error {
	zipWriter := zip.NewWriter(w)

	fileCount := 0
	err := afero.Walk(fs.Fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		writer, err := zipWriter.Create(filepath.ToSlash(path))
		if err != nil {
			return fmt.Errorf("error creating zip entry for file %s: %w", path, err)
		}

		file, err := fs.Fs.Open(path)
		if err != nil {
			return fmt.Errorf("error opening file %s: %w", path, err)
		}
		defer file.Close()

		if _, err := io.Copy(writer, file); err != nil {
			return fmt.Errorf("error writing file %s to zip: %w", path, err)
		}

		fileCount++
		return nil
	})

	if err != nil {
		return fmt.Errorf("error walking file system: %w", err)
	}

	if fileCount == 0 {
		return fmt.Errorf("no files to zip")
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("error closing zip writer: %w", err)
	}

	return nil
}
