package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"network error", fmt.Errorf("network connection failed"), true},
		{"protocol error mentioning timeout", fmt.Errorf("field timeout: %w", ErrMessageParse), false},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"fatal in message", fmt.Errorf("fatal: disk gone"), true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"panic in message", fmt.Errorf("panic: system failure"), true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsFatal(test.err))
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid data", ErrInvalidData, true},
		{"line too long", fmt.Errorf("line 4: %w", ErrLineTooLong), true},
		{"path syntax", fmt.Errorf("bad path: %w", ErrPathSyntax), true},
		{"unknown surface", ErrUnknownSurface, true},
		{"cycle", ErrCycle, true},
		{"connection timeout", ErrConnectionTimeout, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsInvalid(test.err))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorInvalid, Classify(ErrLineSyntax))
	assert.Equal(t, ErrorInvalid, Classify(fmt.Errorf("connection field: %w", ErrMessageParse)))
	assert.Equal(t, ErrorTransient, Classify(ErrConnectionLost))
	assert.Equal(t, ErrorFatal, Classify(ErrInvalidConfig))
	assert.Equal(t, ErrorTransient, Classify(errors.New("something odd")))
}

func TestWrap(t *testing.T) {
	base := errors.New("boom")

	assert.Nil(t, Wrap(nil, "Store", "Apply", "update"))

	wrapped := Wrap(base, "Store", "Apply", "update")
	assert.Equal(t, "Store.Apply: update failed: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)

	invalid := WrapInvalid(base, "Parser", "Feed", "decode")
	assert.True(t, IsInvalid(invalid))
	assert.ErrorIs(t, invalid, base)

	var ce *ClassifiedError
	assert.True(t, errors.As(invalid, &ce))
	assert.Equal(t, "Parser", ce.Component)
	assert.Equal(t, "Feed", ce.Operation)

	assert.True(t, IsTransient(WrapTransient(base, "Source", "Run", "dial")))
	assert.True(t, IsFatal(WrapFatal(base, "Config", "Load", "read")))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "none", Kind(nil))
	assert.Equal(t, "path_syntax", Kind(ErrPathSyntax))
	assert.Equal(t, "line_syntax", Kind(ErrLineSyntax))
	assert.Equal(t, "line_too_long", Kind(ErrLineTooLong))
	assert.Equal(t, "message_parse", Kind(ErrMessageParse))
	assert.Equal(t, "unknown_surface", Kind(ErrUnknownSurface))
	assert.Equal(t, "cycle", Kind(ErrCycle))
	assert.Equal(t, "transient", Kind(ErrConnectionLost))
}
