package errors

import (
	"context"
	"errors"
	"strings"
)

// Code maps an error to a stable error code for reports.
func Code(err error) string {
	if err == nil {
		return ""
	}

	var structured *Error
	if errors.As(err, &structured) && structured.Code != "" {
		return structured.Code
	}

	switch {
	case errors.Is(err, ErrTypeMismatch):
		return CodeTypeMismatch
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrConfiguration):
		return CodeConfiguration
	case errors.Is(err, ErrUnsupportedOperation):
		return CodeUnsupportedOperation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotConnected):
		return CodeNotConnected
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	case errors.Is(err, ErrItemProcessing):
		return CodeItemProcessing
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return CodeTimeout
	}
	return CodeUnknown
}
