package llm

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt asks for the file's text only, as Markdown, keeping tables and
// structure, with the printed page number appended as {p.#}.
const DefaultSystemPrompt = `
파일에 있는 텍스트만 출력하세요.
파일에서 텍스트를 추출하고 마크다운 형식으로 변환해주세요.
표와 구조를 최대한 유지해주세요.
페이지 번호가 나와있다면 내용의 가장 마지막에 {p.#}의 형태로 페이지 번호를 함께 제시해주세요.
`

// PromptConfig holds metadata from the YAML frontmatter.
type PromptConfig struct {
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// Prompt is a system prompt with optional model overrides.
type Prompt struct {
	Config PromptConfig
	Text   string
}

// DefaultPrompt returns the built-in prompt without overrides.
func DefaultPrompt() *Prompt {
	return &Prompt{Text: DefaultSystemPrompt}
}

// LoadPrompt reads a .prompt file. Frontmatter between "---" lines is optional;
// without it the whole file is the prompt text.
func LoadPrompt(path string) (*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}
	return ParsePrompt(string(data))
}

// ParsePrompt parses prompt file contents.
func ParsePrompt(content string) (*Prompt, error) {
	trimmed := strings.TrimLeft(content, "\ufeff \t\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		text := strings.TrimSpace(content)
		if text == "" {
			return nil, fmt.Errorf("prompt file is empty")
		}
		return &Prompt{Text: text}, nil
	}

	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid prompt format: missing frontmatter delimiters")
	}

	var config PromptConfig
	if err := yaml.Unmarshal([]byte(parts[1]), &config); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	text := strings.TrimSpace(parts[2])
	if text == "" {
		return nil, fmt.Errorf("prompt body is empty")
	}
	return &Prompt{Config: config, Text: text}, nil
}
