package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/koreanssam/docmark/internal/common"
	"github.com/koreanssam/docmark/internal/entity"
)

// XLSXMimeType is the content type of the job workbook.
const XLSXMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultJobLimit = 50

type JobLister interface {
	List(ctx context.Context, limit int) ([]*entity.ExtractJob, error)
}

type JobExporter interface {
	ExportJobsXLSX(ctx context.Context, limit int) ([]byte, error)
}

// APIHandler serves the JSON API.
type APIHandler struct {
	proc     Processor
	jobs     JobLister
	exporter JobExporter
	logger   *slog.Logger
}

func NewAPIHandler(proc Processor, jobs JobLister, exporter JobExporter, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{proc: proc, jobs: jobs, exporter: exporter, logger: logger}
}

// Extract runs one multipart upload and returns the assembled result.
func (h *APIHandler) Extract(c *gin.Context) {
	up, err := readUpload(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.proc.Process(c.Request.Context(), up)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListJobs returns recent extract jobs, newest first.
func (h *APIHandler) ListJobs(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	jobs, err := h.jobs.List(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if jobs == nil {
		jobs = []*entity.ExtractJob{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// ExportJobs returns the job log as an XLSX download.
func (h *APIHandler) ExportJobs(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	data, err := h.exporter.ExportJobsXLSX(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, "extract_jobs.xlsx", XLSXMimeType, data)
}

func (h *APIHandler) fail(c *gin.Context, err error) {
	status := common.HTTPStatus(err)
	log := common.LoggerFromContext(c.Request.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		log.Error("api.request.failed", "path", c.FullPath(), "err", err)
	} else {
		log.Warn("api.request.rejected", "path", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":   common.ErrorCode(err),
		"message": common.UserMessage(err),
	})
}

func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultJobLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, common.NewAppError(common.CodeInvalidInput, "limit must be a non-negative integer", common.ErrInvalidInput)
	}
	return n, nil
}
