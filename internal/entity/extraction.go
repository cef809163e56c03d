package entity

import "github.com/koreanssam/docmark/constants"

// ExtractionRequest is created once per "start extraction" action and consumed by a provider.
type ExtractionRequest struct {
	SourceKind       constants.SourceKind
	RequestedPages   []int  // nil = all pages; PDF only
	RawPageSelection string // as typed by the user, before normalization; feedback only
	FileName         string
	SystemPrompt     string
	Data             []byte
}

// AllPages reports whether the request covers the whole document.
func (r ExtractionRequest) AllPages() bool {
	return len(r.RequestedPages) == 0
}

// PageResult is the Markdown transcription of one page.
type PageResult struct {
	PageNumber    int    `json:"page"`
	Content       string `json:"content"`
	ContentLength int    `json:"content_length"`
}

// NewPageResult fills ContentLength from content.
func NewPageResult(page int, content string) PageResult {
	return PageResult{PageNumber: page, Content: content, ContentLength: len(content)}
}

// ExtractionOutcome is the complete, non-partial answer of a provider.
type ExtractionOutcome struct {
	Pages            []PageResult `json:"pages"`
	CompletionTimeMs float64      `json:"completion_time_ms"`
	InputTokens      int          `json:"input_tokens"`
	OutputTokens     int          `json:"output_tokens"`
	SourceFileName   string       `json:"file_name"`
	Model            string       `json:"model,omitempty"`
	Warnings         []string     `json:"warnings,omitempty"`
}

// AssembledText is the single displayable/downloadable document.
type AssembledText struct {
	FullText string
}

// OutputName is the download name and content type derived from the upload name.
type OutputName struct {
	FileName string
	MimeType string
}

// PageSelection is a normalized page filter. Pages == nil means all pages.
type PageSelection struct {
	Pages   []int
	Warning string
}
