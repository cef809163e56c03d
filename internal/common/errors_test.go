package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	provider := NewAppError(CodeProviderFailure, "extraction failed", fmt.Errorf("%w: %w", ErrProviderFailure, errors.New("timeout")))

	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(provider))
	assert.Equal(t, http.StatusUnsupportedMediaType, HTTPStatus(NewAppError(CodeUnsupportedType, "bad", ErrUnsupportedType)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(WrapError(ErrInvalidInput, "form")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "unsupported file type: text/html",
		UserMessage(NewAppError(CodeUnsupportedType, "unsupported file type: text/html", ErrUnsupportedType)))
	assert.Equal(t, "extraction failed: extraction provider failed: timeout",
		UserMessage(NewAppError(CodeProviderFailure, "extraction failed", fmt.Errorf("%w: %w", ErrProviderFailure, errors.New("timeout")))))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}

func TestWrapError_Nil(t *testing.T) {
	assert.NoError(t, WrapError(nil, "ignored"))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeTooLarge, ErrorCode(fmt.Errorf("form: %w", NewAppError(CodeTooLarge, "too big", ErrTooLarge))))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("boom")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, HTTPStatus(NewAppError(CodeTooLarge, "too big", ErrTooLarge)))
}
