package llm

import "context"

// VisionRequest asks a model to transcribe one image.
type VisionRequest struct {
	Prompt     string
	Image      []byte
	MimeType   string
	PageNumber int // 0 for standalone images
	FileName   string
}

// VisionResponse is the model's transcription and usage.
type VisionResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Transcriber is the interface the extraction provider depends on.
type Transcriber interface {
	Transcribe(ctx context.Context, req VisionRequest) (VisionResponse, error)
	ModelName() string
}
