package errcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, OK, CodeOf(nil))
	assert.Equal(t, NotFound, CodeOf(New("op", NotFound)))

	wrapped := Wrap("op", Busy, errors.New("underlying"))
	assert.Equal(t, Busy, CodeOf(wrapped))

	assert.Equal(t, Faulted, CodeOf(errors.New("plain error")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap("op", Faulted, cause)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "faulted")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap("op", Faulted, nil))
}
