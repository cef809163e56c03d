package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompt_WithFrontmatter(t *testing.T) {
	content := `---
model: gpt-4o
temperature: 0.2
max_tokens: 2000
---
Transcribe the page as Markdown.
`
	path := filepath.Join(t.TempDir(), "ocr.prompt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	p, err := LoadPrompt(path)

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", p.Config.Model)
	require.NotNil(t, p.Config.Temperature)
	assert.InDelta(t, 0.2, *p.Config.Temperature, 1e-6)
	assert.Equal(t, 2000, p.Config.MaxTokens)
	assert.Equal(t, "Transcribe the page as Markdown.", p.Text)
}

func TestParsePrompt_PlainText(t *testing.T) {
	p, err := ParsePrompt("\n텍스트만 출력하세요.\n")

	require.NoError(t, err)
	assert.Equal(t, "텍스트만 출력하세요.", p.Text)
	assert.Nil(t, p.Config.Temperature)
}

func TestParsePrompt_Errors(t *testing.T) {
	_, err := ParsePrompt("   ")
	assert.Error(t, err)

	_, err = ParsePrompt("---\nmodel: x\n")
	assert.Error(t, err)

	_, err = ParsePrompt("---\nmodel: [unclosed\n---\nbody")
	assert.Error(t, err)

	_, err = ParsePrompt("---\nmodel: x\n---\n")
	assert.Error(t, err)
}

func TestDefaultPrompt(t *testing.T) {
	assert.Contains(t, DefaultPrompt().Text, "마크다운")
}
