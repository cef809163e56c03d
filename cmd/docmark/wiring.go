package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/koreanssam/docmark/internal/common"
	"github.com/koreanssam/docmark/internal/extract"
	"github.com/koreanssam/docmark/internal/llm"
	"github.com/koreanssam/docmark/internal/llm/gemini"
	"github.com/koreanssam/docmark/internal/llm/openai"
	"github.com/koreanssam/docmark/internal/ocr"
	"github.com/koreanssam/docmark/internal/pipeline"
)

// loadPrompt returns the prompt file's text and overrides, or the built-in prompt.
func loadPrompt(cfg *common.Config, logger *slog.Logger) (*llm.Prompt, error) {
	if cfg.LLM.SystemPromptFile == "" {
		return llm.DefaultPrompt(), nil
	}
	p, err := llm.LoadPrompt(cfg.LLM.SystemPromptFile)
	if err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}
	logger.Info("system prompt loaded", "path", cfg.LLM.SystemPromptFile, "model_override", p.Config.Model)
	return p, nil
}

// newTranscriber builds the configured vision client. The returned func releases it.
func newTranscriber(ctx context.Context, cfg *common.Config, prompt *llm.Prompt, logger *slog.Logger) (llm.Transcriber, func(), error) {
	temperature := cfg.LLM.Temperature
	if prompt.Config.Temperature != nil {
		temperature = *prompt.Config.Temperature
	}
	maxTokens := cfg.LLM.MaxTokens
	if prompt.Config.MaxTokens > 0 {
		maxTokens = prompt.Config.MaxTokens
	}

	switch cfg.LLM.Provider {
	case common.ProviderGemini:
		model := cfg.LLM.GeminiModel
		if prompt.Config.Model != "" {
			model = prompt.Config.Model
		}
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.LLM.GeminiAPIKey,
			Model:       model,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {
			if err := c.Close(); err != nil {
				logger.Warn("gemini client close failed", "err", err)
			}
		}, nil
	default:
		model := cfg.LLM.Model
		if prompt.Config.Model != "" {
			model = prompt.Config.Model
		}
		c := openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       model,
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
		return c, func() {}, nil
	}
}

// newProcessor wires rasterizer, transcriber and job log into a pipeline.
// jobs may be nil to run without the job log.
func newProcessor(ctx context.Context, cfg *common.Config, jobs pipeline.JobRecorder, logger *slog.Logger) (*pipeline.Processor, func(), error) {
	rasterizer := ocr.NewRasterizer(ocr.RasterConfig{
		Pdftoppm: cfg.OCR.Pdftoppm,
		Pdfinfo:  cfg.OCR.Pdfinfo,
		DPI:      cfg.OCR.DPI,
	}, ocr.ExecRunner{Logger: logger}, logger)
	if err := ocr.EnsureBinaries(rasterizer.Binaries()...); err != nil {
		return nil, nil, fmt.Errorf("poppler-utils required for PDF input: %w", err)
	}

	prompt, err := loadPrompt(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	transcriber, release, err := newTranscriber(ctx, cfg, prompt, logger)
	if err != nil {
		return nil, nil, err
	}

	provider := extract.NewVisionProvider(rasterizer, transcriber, extract.Config{
		PageConcurrency: cfg.OCR.PageConcurrency,
	}, logger)
	stage := pipeline.NewExtractStage(jobs, provider, logger)
	return pipeline.NewProcessor(logger, stage, prompt.Text), release, nil
}
