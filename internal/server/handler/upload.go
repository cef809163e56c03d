package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/koreanssam/docmark/internal/common"
	"github.com/koreanssam/docmark/internal/pipeline"
)

// Form fields shared by the browser form and the API.
const (
	FieldFile     = "file"
	FieldPageMode = "page_mode"
	FieldPages    = "pages"

	PageModeAll      = "all"
	PageModeSpecific = "specific"
)

// readUpload reads the multipart upload into memory. The body size is capped
// by middleware.BodyLimit upstream.
func readUpload(c *gin.Context) (pipeline.Upload, error) {
	fh, err := c.FormFile(FieldFile)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pipeline.Upload{}, common.NewAppError(common.CodeTooLarge,
				fmt.Sprintf("file exceeds the upload limit of %d bytes", tooLarge.Limit), common.ErrTooLarge)
		}
		return pipeline.Upload{}, common.NewAppError(common.CodeInvalidInput, "missing file", common.ErrInvalidInput)
	}

	f, err := fh.Open()
	if err != nil {
		return pipeline.Upload{}, common.NewAppError(common.CodeInvalidInput, "cannot read uploaded file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return pipeline.Upload{}, common.NewAppError(common.CodeInvalidInput, "cannot read uploaded file", err)
	}

	mode := c.PostForm(FieldPageMode)
	return pipeline.Upload{
		FileName:      filepath.Base(strings.ReplaceAll(fh.Filename, "\\", "/")),
		Data:          data,
		AllPages:      mode == PageModeAll,
		PageSelection: c.PostForm(FieldPages),
	}, nil
}

// attachment sends body as a download named fileName.
func attachment(c *gin.Context, fileName, mimeType string, body []byte) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, mimeType, body)
}
