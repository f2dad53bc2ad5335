package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/codeper/playground/internal/export"
	"github.com/codeper/playground/internal/preview/composer"
	"github.com/codeper/playground/internal/preview/relay"
	"github.com/codeper/playground/internal/preview/sandbox"
	"github.com/codeper/playground/internal/share"
	"github.com/codeper/playground/internal/store"
	"github.com/codeper/playground/internal/testutil"
	"github.com/codeper/playground/internal/workspace"
)

const publicURL = "http://playground.test/"

type testServer struct {
	router    *gin.Engine
	ctrl      *workspace.Controller
	host      *sandbox.Host
	clipboard *testutil.MockClipboard
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	host := sandbox.NewHost(relay.NewBus(), sandbox.DefaultConfig(), logger, nil)
	ctrl := workspace.New(workspace.Options{
		Store:         store.NewMemoryStore(0),
		Sandbox:       host,
		AutosaveDelay: time.Hour,
		Logger:        logger,
	})
	require.NoError(t, ctrl.Start(context.Background()))
	t.Cleanup(func() {
		ctrl.Stop()
		_ = host.Close()
	})

	clipboard := &testutil.MockClipboard{}
	handlers := NewHandlers(Options{
		Workspace: ctrl,
		Documents: host,
		Sharer:    share.New(nil, clipboard, logger),
		PublicURL: publicURL,
		Logger:    logger,
	})
	handlers.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	router := gin.New()
	handlers.Register(router)
	return &testServer{router: router, ctrl: ctrl, host: host, clipboard: clipboard}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

type projectResponse struct {
	Project workspace.Project `json:"project"`
	Status  workspace.Status  `json:"status"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w = s.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), Version)
}

func TestProjectEditing(t *testing.T) {
	s := newTestServer(t)

	var got projectResponse
	w := s.do(t, http.MethodGet, "/project", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Equal(t, workspace.DefaultProject(), got.Project)
	assert.Equal(t, workspace.StateClean, got.Status.State)

	w = s.do(t, http.MethodPut, "/project/fragments/js", `{"value":"console.log(1)"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"dirty"`)

	w = s.do(t, http.MethodPost, "/project/save", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"saved":true`)

	w = s.do(t, http.MethodPost, "/project/save", "")
	assert.Contains(t, w.Body.String(), `"saved":false`)

	w = s.do(t, http.MethodGet, "/project", "")
	decode(t, w, &got)
	assert.Equal(t, "console.log(1)", got.Project.JS)
	assert.Equal(t, workspace.StateClean, got.Status.State)
}

func TestFragmentValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, "/project/fragments/ts", `{"value":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/project/fragments/css", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/project/fragments/css", `{"value":""}`)
	assert.Equal(t, http.StatusOK, w.Code, "empty fragments are valid edits")
}

func TestSetTitle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, "/project/title", `{"title":"  <b>My Pen</b>  "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"title":"<b>My Pen</b>"}`, w.Body.String(), "titles are literal text")

	w = s.do(t, http.MethodPut, "/project/title", `{"title":""}`)
	assert.JSONEq(t, `{"title":"Untitled Project"}`, w.Body.String())

	w = s.do(t, http.MethodPut, "/project/title", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsoleRoutes(t *testing.T) {
	s := newTestServer(t)

	s.ctrl.SetJS(`console.log("from page")`)
	require.True(t, s.ctrl.Save())

	var got struct {
		Entries []relay.Entry `json:"entries"`
	}
	require.Eventually(t, func() bool {
		decode(t, s.do(t, http.MethodGet, "/console", ""), &got)
		return len(got.Entries) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "> from page", got.Entries[0].Text)

	w := s.do(t, http.MethodDelete, "/console", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/console", "")
	assert.JSONEq(t, `{"entries":[]}`, w.Body.String())
}

func TestExport(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=untitled-project.zip", w.Header().Get("Content-Disposition"))

	data := w.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := []string{}
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{export.IndexFile, export.StylesFile, export.ScriptFile}, names)
}

func TestShareFallsBackToClipboard(t *testing.T) {
	s := newTestServer(t)
	s.clipboard.On("Copy", mock.Anything, publicURL).Return(nil).Once()

	w := s.do(t, http.MethodPost, "/share", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result share.Result
	decode(t, w, &result)
	assert.Equal(t, share.MethodClipboard, result.Method)
	assert.Equal(t, share.CopiedMessage, result.Message)
	assert.Equal(t, workspace.DefaultTitle, result.Payload.Title)
	assert.Equal(t, share.Text, result.Payload.Text)
	s.clipboard.AssertExpectations(t)
}

func TestShareCustomURL(t *testing.T) {
	s := newTestServer(t)
	s.clipboard.On("Copy", mock.Anything, "http://elsewhere/").Return(nil).Once()

	w := s.do(t, http.MethodPost, "/share", `{"url":"http://elsewhere/"}`)
	require.Equal(t, http.StatusOK, w.Code)
	s.clipboard.AssertExpectations(t)
}

func TestSandboxDocument(t *testing.T) {
	s := newTestServer(t)
	handle := s.ctrl.Status().Handle
	require.NotEmpty(t, handle)

	w := s.do(t, http.MethodGet, "/sandbox/"+handle, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sandbox allow-scripts allow-modals", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Body.String(), composer.MarkerAttr+`="`+composer.MarkerShim+`"`)
	assert.Contains(t, w.Body.String(), workspace.DefaultHTML)

	s.ctrl.SetHTML("<p>next</p>")
	require.True(t, s.ctrl.Save())
	assert.NotEqual(t, handle, s.ctrl.Status().Handle)

	w = s.do(t, http.MethodGet, "/sandbox/"+handle, "")
	assert.Equal(t, http.StatusNotFound, w.Code, "released handles are gone")

	w = s.do(t, http.MethodGet, "/sandbox/not-a-handle", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
