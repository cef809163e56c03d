package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateChatCompletion(t *testing.T) {
	schema := ChatCompletionSchema()

	ok := `{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":2}}`
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(ok)))

	noChoices := `{"choices":[]}`
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(noChoices)))

	badUsage := `{"choices":[{"message":{"content":"x"}}],"usage":{"prompt_tokens":-1}}`
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(badUsage)))

	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte("not json")))
}
