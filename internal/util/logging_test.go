package util

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestLoggingErrors(t *testing.T) {
	t.Run("LoggingErrorMsg wraps and preserves the cause", func(t *testing.T) {
		cause := errors.New("the cause")
		err := LoggingErrorMsg(cause, "context")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "context")
		assert.ErrorIs(t, err, cause)
	})

	t.Run("LoggingErrorMsg with nil error still errors", func(t *testing.T) {
		err := LoggingErrorMsg(nil, "standalone message")
		assert.Error(t, err)
		assert.Equal(t, "standalone message", err.Error())
	})

	t.Run("LoggingNewErrorf formats", func(t *testing.T) {
		err := LoggingNewErrorf("bad value: %d", 42)
		assert.Error(t, err)
		assert.Equal(t, "bad value: 42", err.Error())
	})
}

func TestSanitizeLog(t *testing.T) {
	assert.Equal(t, "ab", SanitizeLog("a\nb\r"))
	assert.Equal(t, "clean", SanitizeLog("clean"))
}
