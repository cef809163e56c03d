package entity

import (
	"time"

	"github.com/google/uuid"
)

// ExtractJob is one row of the extraction log. Page content is never stored.
type ExtractJob struct {
	ID             uuid.UUID  `json:"id"`
	FileName       string     `json:"file_name"`
	SourceKind     string     `json:"source_kind"`
	RequestedPages string     `json:"requested_pages,omitempty"`
	Status         string     `json:"status"`
	PageCount      int        `json:"page_count"`
	InputTokens    int        `json:"input_tokens"`
	OutputTokens   int        `json:"output_tokens"`
	CompletionMs   float64    `json:"completion_ms"`
	ModelName      *string    `json:"model_name,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}
