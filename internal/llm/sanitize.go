package llm

import (
	"regexp"
	"strings"
)

var reWrappingFence = regexp.MustCompile("(?s)^```(?:markdown|md)?[ \t]*\r?\n(.*?)\r?\n```[ \t]*$")

// StripMarkdownFence removes a code fence that wraps the whole answer, which
// vision models often add around Markdown output. The answer must both open and
// close with the fence; anything else is returned trimmed but otherwise unchanged.
func StripMarkdownFence(s string) string {
	t := strings.TrimSpace(s)
	m := reWrappingFence.FindStringSubmatch(t)
	if m == nil {
		return t
	}
	return strings.TrimSpace(m[1])
}
