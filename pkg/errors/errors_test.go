package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(CodeConfiguration, "source filter not set", ErrConfiguration)
	assert.Equal(t, "[CONFIGURATION_ERROR] source filter not set: configuration error", err.Error())
	assert.True(t, IsConfiguration(err))

	bare := NewError(CodeUnknown, "boom", nil)
	assert.Equal(t, "[UNKNOWN_ERROR] boom", bare.Error())
}

func TestTypeMismatchError(t *testing.T) {
	var err error = &TypeMismatchError{Expected: "raw", Actual: "process-model", Unit: "parse"}
	assert.True(t, IsTypeMismatch(err))
	assert.Contains(t, err.Error(), `"parse"`)

	var tm *TypeMismatchError
	assert.True(t, errors.As(fmt.Errorf("append: %w", err), &tm))
	assert.Equal(t, "process-model", tm.Actual)
}

func TestItemErrorMatchesCauseAndSentinel(t *testing.T) {
	cause := Unsupported("conformance check")
	err := &ItemError{SourceID: "m-1", Unit: "conformance", Err: cause}

	assert.True(t, IsItemProcessing(err))
	assert.True(t, IsUnsupported(err))
	assert.Equal(t, CodeUnsupportedOperation, Code(err))
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"type mismatch", &TypeMismatchError{}, CodeTypeMismatch},
		{"invalid input", InvalidInput("parse"), CodeInvalidInput},
		{"not found", fmt.Errorf("load: %w", ErrNotFound), CodeNotFound},
		{"deadline", context.DeadlineExceeded, CodeTimeout},
		{"cancelled", context.Canceled, CodeCancelled},
		{"plain item failure", &ItemError{SourceID: "x", Err: errors.New("bad json")}, CodeItemProcessing},
		{"timeout text", errors.New("dial timed out"), CodeTimeout},
		{"unknown", errors.New("whatever"), CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}
