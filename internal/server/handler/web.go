package handler

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/koreanssam/docmark/internal/common"
	"github.com/koreanssam/docmark/internal/pipeline"
	"github.com/koreanssam/docmark/internal/server/session"
)

// Processor runs one upload through the extraction pipeline.
type Processor interface {
	Process(ctx context.Context, up pipeline.Upload) (*pipeline.Result, error)
}

// WebHandler serves the browser form and the per-session result.
type WebHandler struct {
	proc        Processor
	sessions    *session.Store
	markdown    *MarkdownRenderer
	maxUploadMB int
	logger      *slog.Logger
}

func NewWebHandler(proc Processor, sessions *session.Store, maxUploadMB int, logger *slog.Logger) *WebHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebHandler{
		proc:        proc,
		sessions:    sessions,
		markdown:    NewMarkdownRenderer(),
		maxUploadMB: maxUploadMB,
		logger:      logger,
	}
}

type pageView struct {
	MaxUploadMB int
	AllPages    bool
	Pages       string
	FileName    string
	Error       string
	Result      *pipeline.Result
	Preview     template.HTML
}

// Index renders the form and whatever this session last produced.
func (h *WebHandler) Index(c *gin.Context) {
	sid := session.EnsureID(c)
	view := pageView{MaxUploadMB: h.maxUploadMB, AllPages: true}
	if e, ok := h.sessions.Get(sid); ok {
		h.fill(c.Request.Context(), &view, e)
	}
	c.HTML(http.StatusOK, "index.html", view)
}

// Extract clears the session's previous result, runs the pipeline and renders
// the outcome or the failure.
func (h *WebHandler) Extract(c *gin.Context) {
	sid := session.EnsureID(c)
	h.sessions.Clear(sid)
	log := common.LoggerFromContext(c.Request.Context(), h.logger)

	// the multipart body is parsed by readUpload before any PostForm lookup
	up, err := readUpload(c)
	view := pageView{
		MaxUploadMB: h.maxUploadMB,
		AllPages:    c.PostForm(FieldPageMode) != PageModeSpecific,
		Pages:       c.PostForm(FieldPages),
	}
	if err != nil {
		view.Error = common.UserMessage(err)
		c.HTML(common.HTTPStatus(err), "index.html", view)
		return
	}
	view.FileName = up.FileName

	res, err := h.proc.Process(c.Request.Context(), up)
	if err != nil {
		log.Warn("web.extract.failed", "file_name", up.FileName, "err", err)
		entry := &session.Entry{Error: common.UserMessage(err), FileName: up.FileName}
		h.sessions.Put(sid, entry)
		view.Error = entry.Error
		c.HTML(common.HTTPStatus(err), "index.html", view)
		return
	}

	entry := &session.Entry{Result: res, FileName: up.FileName}
	h.sessions.Put(sid, entry)
	h.fill(c.Request.Context(), &view, entry)
	c.HTML(http.StatusOK, "index.html", view)
}

// Download returns the session's text with the derived file name and MIME type.
func (h *WebHandler) Download(c *gin.Context) {
	sid := session.EnsureID(c)
	e, ok := h.sessions.Get(sid)
	if !ok || e.Result == nil {
		c.String(http.StatusNotFound, "no extracted text to download")
		return
	}
	attachment(c, e.Result.Output.FileName, e.Result.Output.MimeType+"; charset=utf-8", []byte(e.Result.Text))
}

// Clear discards the session's result and goes back to the empty form.
func (h *WebHandler) Clear(c *gin.Context) {
	sid := session.EnsureID(c)
	h.sessions.Clear(sid)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *WebHandler) fill(ctx context.Context, view *pageView, e *session.Entry) {
	view.FileName = e.FileName
	view.Error = e.Error
	view.Result = e.Result
	if e.Result == nil {
		return
	}
	preview, err := h.markdown.Render(e.Result.Text)
	if err != nil {
		common.LoggerFromContext(ctx, h.logger).Warn("web.preview.failed", "err", err)
		return
	}
	view.Preview = preview
}
