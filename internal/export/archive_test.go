package export

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeper/playground/internal/preview/composer"
)

func TestFilename(t *testing.T) {
	assert.Equal(t, "my-cool-pen.zip", Filename("My Cool Pen"))
	assert.Equal(t, "untitled-project.zip", Filename("Untitled Project"))
	assert.Equal(t, "a-b-c.zip", Filename("a \t b  c"))
	assert.Equal(t, "-lead.zip", Filename(" Lead"))
}

func TestBuildContainsFragments(t *testing.T) {
	fragments := composer.Fragments{HTML: "<h1>x</h1>", CSS: "h1{color:red}", JS: `console.log("é")`}
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	data, err := Build(fragments, modified)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	got := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		got[f.Name] = string(body)
		assert.True(t, f.Modified.Equal(modified), f.Name)
	}

	assert.Equal(t, composer.ExportDocument(fragments.HTML), got[IndexFile])
	assert.Equal(t, fragments.CSS, got[StylesFile])
	assert.Equal(t, fragments.JS, got[ScriptFile])
	assert.Contains(t, got[IndexFile], "<h1>x</h1>")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriteReportsArchiveError(t *testing.T) {
	err := Write(failingWriter{}, composer.Fragments{JS: "x"}, time.Now())
	require.ErrorIs(t, err, ErrArchive)
}
