// Package gemini implements llm.Transcriber on the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/koreanssam/docmark/internal/llm"
)

// Config for the Gemini client.
type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	Model       string // default gemini-2.0-flash
	Temperature float32
	MaxTokens   int
}

type Client struct {
	cfg    Config
	client *genai.Client
	model  *genai.GenerativeModel
	log    *slog.Logger
}

// NewClient builds a client for cfg.Model. Extra options are passed to genai,
// e.g. a custom endpoint.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not found")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))

	return &Client{cfg: cfg, client: client, model: model, log: logger}, nil
}

// ModelName reports the configured model.
func (c *Client) ModelName() string { return c.cfg.Model }

// Close releases the underlying connection.
func (c *Client) Close() error { return c.client.Close() }

// Transcribe sends the prompt and the image as one multimodal request.
func (c *Client) Transcribe(ctx context.Context, req llm.VisionRequest) (llm.VisionResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	format := strings.TrimPrefix(req.MimeType, "image/")
	if format == "" || format == req.MimeType {
		return llm.VisionResponse{}, fmt.Errorf("gemini: unsupported image type %q", req.MimeType)
	}

	c.log.Info("llm.gemini.transcribe.start",
		"req_id", rid, "model", c.cfg.Model, "page", req.PageNumber, "image_bytes", len(req.Image))

	resp, err := c.model.GenerateContent(ctx, genai.Text(req.Prompt), genai.ImageData(format, req.Image))
	if err != nil {
		c.log.Error("llm.gemini.generate_failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.VisionResponse{}, fmt.Errorf("gemini request failed: %w", err)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
	} else {
		c.log.Warn("llm.gemini.empty_candidates", "req_id", rid, "page", req.PageNumber)
	}

	out := llm.VisionResponse{Text: sb.String(), Model: c.cfg.Model}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	c.log.Info("llm.gemini.transcribe.ok",
		"req_id", rid,
		"page", req.PageNumber,
		"chars", len(out.Text),
		"input_tokens", out.InputTokens,
		"output_tokens", out.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
