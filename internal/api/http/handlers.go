package http

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codeper/playground/internal/export"
	"github.com/codeper/playground/internal/preview/relay"
	"github.com/codeper/playground/internal/preview/sandbox"
	"github.com/codeper/playground/internal/share"
	"github.com/codeper/playground/internal/shared/id"
	"github.com/codeper/playground/internal/workspace"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Workspace is the controller surface the handlers drive.
type Workspace interface {
	Snapshot() workspace.Project
	Status() workspace.Status
	SetTitle(title string) string
	SetFragment(f workspace.Fragment, value string) bool
	Save() bool
	ClearConsole()
	Logs() []relay.Entry
}

// Documents serves mounted sandbox documents.
type Documents interface {
	Document(handle id.HandleID) ([]byte, error)
}

// Sharer publishes the project link.
type Sharer interface {
	Share(ctx context.Context, title, url string) share.Result
}

// Options configures Handlers.
type Options struct {
	Workspace Workspace
	Documents Documents
	Sharer    Sharer
	PublicURL string
	Logger    *zap.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	workspace Workspace
	documents Documents
	sharer    Sharer
	publicURL string
	logger    *zap.Logger
	now       func() time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sharer := opts.Sharer
	if sharer == nil {
		sharer = share.New(nil, nil, logger)
	}
	return &Handlers{
		workspace: opts.Workspace,
		documents: opts.Documents,
		sharer:    sharer,
		publicURL: opts.PublicURL,
		logger:    logger,
		now:       time.Now,
	}
}

// Register mounts the REST routes on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/project", h.GetProject)
	r.PUT("/project/title", h.SetTitle)
	r.PUT("/project/fragments/:name", h.SetFragment)
	r.POST("/project/save", h.Save)

	r.GET("/console", h.GetConsole)
	r.DELETE("/console", h.ClearConsole)

	r.GET("/export", h.Export)
	r.POST("/share", h.Share)

	r.GET("/sandbox/:handle", h.Sandbox)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "playground",
		"version": Version,
	})
}

// Health reports the workspace state
func (h *Handlers) Health(c *gin.Context) {
	status := h.workspace.Status()
	if status.State == workspace.StateLoading {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting", "workspace": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "workspace": status})
}

// GetProject returns the in-memory project and its state
func (h *Handlers) GetProject(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"project": h.workspace.Snapshot(),
		"status":  h.workspace.Status(),
	})
}

// TitleRequest is the body of PUT /project/title.
type TitleRequest struct {
	Title *string `json:"title" binding:"required"`
}

// SetTitle normalises and stores the title
func (h *Handlers) SetTitle(c *gin.Context) {
	var req TitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	title := h.workspace.SetTitle(*req.Title)
	c.JSON(http.StatusOK, gin.H{"title": title})
}

// FragmentRequest is the body of PUT /project/fragments/:name.
type FragmentRequest struct {
	Value *string `json:"value" binding:"required"`
}

// SetFragment applies an editor change
func (h *Handlers) SetFragment(c *gin.Context) {
	fragment, err := workspace.ParseFragment(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req FragmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return
	}

	if !h.workspace.SetFragment(fragment, *req.Value) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "workspace is not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": h.workspace.Status()})
}

// Save saves immediately when there are unsaved changes
func (h *Handlers) Save(c *gin.Context) {
	saved := h.workspace.Save()
	c.JSON(http.StatusOK, gin.H{
		"saved":  saved,
		"status": h.workspace.Status(),
	})
}

// GetConsole returns the console entries
func (h *Handlers) GetConsole(c *gin.Context) {
	entries := h.workspace.Logs()
	if entries == nil {
		entries = []relay.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ClearConsole empties the console
func (h *Handlers) ClearConsole(c *gin.Context) {
	h.workspace.ClearConsole()
	c.Status(http.StatusNoContent)
}

// Export downloads the project as a zip of three files
func (h *Handlers) Export(c *gin.Context) {
	project := h.workspace.Snapshot()
	data, err := export.Build(project.Fragments(), h.now())
	if err != nil {
		h.logger.Error("export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": export.Filename(project.Title),
	})
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, "application/zip", data)
}

// ShareRequest is the optional body of POST /share.
type ShareRequest struct {
	URL string `json:"url"`
}

// Share publishes the page URL under the project title
func (h *Handlers) Share(c *gin.Context) {
	var req ShareRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid share request"})
			return
		}
	}
	url := req.URL
	if url == "" {
		url = h.publicURL
	}

	result := h.sharer.Share(c.Request.Context(), h.workspace.Snapshot().Title, url)
	c.JSON(http.StatusOK, result)
}

// Sandbox headers applied to every mounted document. The CSP sandbox gives
// the document an opaque origin.
var sandboxHeaders = map[string]string{
	"Content-Security-Policy": "sandbox allow-scripts allow-modals",
	"Cache-Control":           "no-store",
	"X-Content-Type-Options":  "nosniff",
	"Referrer-Policy":         "no-referrer",
}

// Sandbox serves the document mounted under :handle while it is live
func (h *Handlers) Sandbox(c *gin.Context) {
	handle, err := id.ParseHandle(c.Param("handle"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.documents.Document(handle)
	if err != nil {
		if !errors.Is(err, sandbox.ErrReleased) {
			h.logger.Warn("sandbox document lookup failed", zap.Error(err))
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "sandbox handle is not live"})
		return
	}

	for k, v := range sandboxHeaders {
		c.Header(k, v)
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", doc)
}
