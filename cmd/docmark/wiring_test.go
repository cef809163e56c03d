package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koreanssam/docmark/internal/common"
	"github.com/koreanssam/docmark/internal/llm"
)

func TestLoadPrompt_Default(t *testing.T) {
	cfg := &common.Config{}

	p, err := loadPrompt(cfg, newTextLogger(0))

	require.NoError(t, err)
	assert.Equal(t, llm.DefaultSystemPrompt, p.Text)
}

func TestNewTranscriber_PromptOverridesModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocr.prompt")
	require.NoError(t, os.WriteFile(path, []byte("---\nmodel: gpt-4o\nmax_tokens: 1000\n---\nTranscribe exactly.\n"), 0o600))
	cfg := &common.Config{LLM: common.LLMConfig{
		Provider:         common.ProviderOpenAI,
		APIKey:           "sk-test",
		Model:            "gpt-4o-mini",
		SystemPromptFile: path,
	}}
	logger := newTextLogger(0)

	prompt, err := loadPrompt(cfg, logger)
	require.NoError(t, err)
	tr, release, err := newTranscriber(context.Background(), cfg, prompt, logger)
	require.NoError(t, err)
	defer release()

	assert.Equal(t, "gpt-4o", tr.ModelName())
	assert.Equal(t, "Transcribe exactly.", prompt.Text)
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{{"serve"}, {"extract"}, {"watch"}, {"jobs", "list"}, {"jobs", "export"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
