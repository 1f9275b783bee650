package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	cause := errors.New("exit status 1")

	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message and cause",
			err:      &Error{Code: ETool, Msg: "nasm failed", Err: cause},
			expected: "nasm failed: exit status 1",
		},
		{
			name:     "message only",
			err:      &Error{Code: ECompile, Msg: "undefined variable y"},
			expected: "undefined variable y",
		},
		{
			name:     "cause only",
			err:      &Error{Code: EIO, Err: cause},
			expected: "exit status 1",
		},
		{
			name:     "code only",
			err:      &Error{Code: EAllocation},
			expected: "<allocation error>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestErrorCodeAndOp(t *testing.T) {
	inner := Errorf(ECompile, "codegen.Generate", "undefined variable %s", "x")
	wrapped := fmt.Errorf("compiling main.coki: %w", inner)
	outer := &Error{Op: "compiler.Run", Err: inner}

	assert.Equal(t, ECompile, ErrorCode(inner))
	assert.Equal(t, ECompile, ErrorCode(wrapped))
	assert.Equal(t, ECompile, ErrorCode(outer), "code is looked up through the chain")
	assert.Equal(t, "compiler.Run", ErrorOp(outer))
	assert.Equal(t, "codegen.Generate", ErrorOp(wrapped))

	assert.Equal(t, EInternal, ErrorCode(errors.New("plain")))
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "", ErrorOp(errors.New("plain")))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, EIO, "assembler.readArtifact"))

	cause := errors.New("no such file")
	err := Wrap(cause, EIO, "assembler.readArtifact")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, EIO, ErrorCode(err))
	assert.Equal(t, "assembler.readArtifact", ErrorOp(err))
}

func TestNewError(t *testing.T) {
	cause := errors.New("mprotect: permission denied")
	err := NewError(
		WithErrorCode(EAllocation),
		WithErrorOp("jit.Allocate"),
		WithErrorMsg("cannot make buffer executable"),
		WithErrorErr(cause),
	)

	assert.Equal(t, "cannot make buffer executable: mprotect: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)
}
