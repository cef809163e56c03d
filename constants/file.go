package constants

import "strings"

// SourceKind is the document family an upload belongs to.
type SourceKind string

const (
	PDF   SourceKind = "PDF"
	IMAGE SourceKind = "IMAGE"
)

// FileTypes holds the allowed values for the source_kind column in extract_job.
var FileTypes = []string{string(PDF), string(IMAGE)}

// AllowedExtensions holds the file extensions the upload form accepts.
var AllowedExtensions = map[string]SourceKind{
	"pdf":  PDF,
	"png":  IMAGE,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"bmp":  IMAGE,
	"webp": IMAGE,
}

// Output MIME types for downloads.
const (
	MimeMarkdown  = "text/markdown"
	MimePlainText = "text/plain"
	MimePDF       = "application/pdf"
	MimePNG       = "image/png"
)

// MaxVisionMBDefault caps the size of a single image sent to a vision model.
const MaxVisionMBDefault = 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the source kind for an extension, or "" when unsupported.
func MapExtToFormat(ext string) SourceKind {
	return AllowedExtensions[NormalizeExt(ext)]
}
