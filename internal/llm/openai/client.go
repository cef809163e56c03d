package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/koreanssam/docmark/internal/llm"
)

type chatCompletion struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Transcribe implements llm.Transcriber with a single vision chat/completions call:
// one user message carrying the prompt as text and the image as a data URL.
func (c *Client) Transcribe(ctx context.Context, req llm.VisionRequest) (llm.VisionResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.openai.transcribe.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"page", req.PageNumber,
		"mime", req.MimeType,
		"image_bytes", len(req.Image),
	)

	if len(req.Image) == 0 {
		return llm.VisionResponse{}, fmt.Errorf("openai: empty image")
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = llm.GuessMimeType(req.FileName, "")
	}

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": req.Prompt},
					{"type": "image_url", "image_url": map[string]any{
						"url":    llm.EncodeDataURL(mimeType, req.Image),
						"detail": c.cfg.Detail,
					}},
				},
			},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, httpErr := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if httpErr != nil {
		c.log.Error("llm.openai.http_error",
			"req_id", rid, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.VisionResponse{}, fmt.Errorf("openai: %w", httpErr)
	}

	if err := llm.ValidateJSONAgainstSchema(llm.ChatCompletionSchema(), raw); err != nil {
		c.log.Error("llm.openai.schema_validation_failed",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.VisionResponse{}, fmt.Errorf("openai: malformed response: %w", err)
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.openai.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.VisionResponse{}, fmt.Errorf("decode openai response: %w", err)
	}

	choice := cc.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}
	if choice.FinishReason != nil && *choice.FinishReason == "length" {
		c.log.Warn("llm.openai.truncated",
			"req_id", rid, "page", req.PageNumber, "max_tokens", c.cfg.MaxTokens)
	}

	model := cc.Model
	if model == "" {
		model = c.cfg.Model
	}
	out := llm.VisionResponse{
		Text:         content,
		InputTokens:  cc.Usage.PromptTokens,
		OutputTokens: cc.Usage.CompletionTokens,
		Model:        model,
	}

	c.log.Info("llm.openai.transcribe.ok",
		"req_id", rid,
		"page", req.PageNumber,
		"chars", len(out.Text),
		"input_tokens", out.InputTokens,
		"output_tokens", out.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
