package llm

import (
	"encoding/base64"
	"mime"
	"path/filepath"
	"strings"
)

// EncodeDataURL returns a data: URL for the image bytes.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// GuessMimeType resolves a MIME type from the file name, falling back to declared.
func GuessMimeType(fileName, declared string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if mt := mime.TypeByExtension("." + ext); mt != "" {
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		return mt
	}
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}
