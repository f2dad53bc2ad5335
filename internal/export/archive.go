// Package export packages a project as a downloadable zip archive.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/codeper/playground/internal/preview/composer"
)

// Archive entry names.
const (
	IndexFile  = "index.html"
	StylesFile = "styles.css"
	ScriptFile = "script.js"
)

// ErrArchive wraps every archive generation failure.
var ErrArchive = errors.New("archive generation failed")

var whitespace = regexp.MustCompile(`[\s\p{Z}\x{FEFF}]+`)

// Filename derives the download name from a project title: lowercased,
// whitespace runs replaced by "-", with a .zip suffix.
func Filename(title string) string {
	return whitespace.ReplaceAllString(strings.ToLower(title), "-") + ".zip"
}

// File is one archive entry.
type File struct {
	Name string
	Body []byte
}

// Files returns the archive entries for f in archive order.
func Files(f composer.Fragments) []File {
	return []File{
		{Name: IndexFile, Body: []byte(composer.ExportDocument(f.HTML))},
		{Name: StylesFile, Body: []byte(f.CSS)},
		{Name: ScriptFile, Body: []byte(f.JS)},
	}
}

// Write streams the archive for f to w. Entries carry modified as their
// timestamp.
func Write(w io.Writer, f composer.Fragments, modified time.Time) error {
	zw := zip.NewWriter(w)
	for _, file := range Files(f) {
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     file.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("%w: create %s: %v", ErrArchive, file.Name, err)
		}
		if _, err := entry.Write(file.Body); err != nil {
			return fmt.Errorf("%w: write %s: %v", ErrArchive, file.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrArchive, err)
	}
	return nil
}

// Build returns the archive for f in memory.
func Build(f composer.Fragments, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f, modified); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
