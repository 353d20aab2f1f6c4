package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := ConfigInvalid("TIVA_WORKERS must be positive")
	wrapped := Wrapf(base, "loading %s", "config")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.Equal(t, "loading config: TIVA_WORKERS must be positive", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, base))
}

func TestWrapForeignError(t *testing.T) {
	wrapped := Wrap(io.ErrUnexpectedEOF, "reading sheet")
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, io.ErrUnexpectedEOF))

	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Equal(t, "UNKNOWN", GetCode(io.EOF))
}

func TestIOError(t *testing.T) {
	err := IOError("open cases.csv", io.EOF)
	assert.Equal(t, CodeIOError, GetCode(err))
	assert.ErrorIs(t, err, io.EOF)
}
