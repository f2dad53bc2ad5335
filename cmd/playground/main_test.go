package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeper/playground/internal/export"
	"github.com/codeper/playground/internal/preview/composer"
	"github.com/codeper/playground/internal/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestComposeCommand(t *testing.T) {
	dir := t.TempDir()
	html := writeFile(t, dir, "index.html", "<p>hi</p>")
	js := writeFile(t, dir, "app.js", `console.log("x")`)

	out, err := run(t, "compose", "--html", html, "--js", js)
	require.NoError(t, err)
	assert.Equal(t, composer.Compose("<p>hi</p>", "", `console.log("x")`), out)
}

func TestComposeMissingFile(t *testing.T) {
	_, err := run(t, "compose", "--css", filepath.Join(t.TempDir(), "nope.css"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "project.json")
	st, err := store.OpenFile(storePath, 0, nil)
	require.NoError(t, err)
	require.NoError(t, st.Set(store.KeyTitle, "My Pen"))
	require.NoError(t, st.Set(store.KeyCSS, "p{}"))

	cfgPath := writeFile(t, dir, "playground.toml", "[store]\npath = \""+filepath.ToSlash(storePath)+"\"\n")
	outPath := filepath.Join(dir, "out.zip")

	out, err := run(t, "--config", cfgPath, "export", "--out", outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "wrote "))

	zr, err := zip.OpenReader(outPath)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 3)
	assert.Equal(t, export.IndexFile, zr.File[0].Name)
}

func TestExportRejectsEphemeralStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "playground.toml", "[store]\nephemeral = true\n")

	_, err := run(t, "--config", cfgPath, "export")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "playground dev\n", out)
}
