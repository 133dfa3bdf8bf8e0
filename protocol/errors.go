package protocol

import (
	"fmt"

	"github.com/c360/surfacestream/errors"
)

// ReasonCode is the machine-readable cause of a MessageParseError.
type ReasonCode string

const (
	ReasonNotObject      ReasonCode = "not_object"
	ReasonUnknownMessage ReasonCode = "unknown_message"
	ReasonAmbiguous      ReasonCode = "ambiguous_message"
	ReasonMissingField   ReasonCode = "missing_field"
	ReasonInvalidField   ReasonCode = "invalid_field"
)

// MessageParseError reports a decoded value that is not a valid message.
type MessageParseError struct {
	Reason ReasonCode
	// Field is the dotted location of the problem, empty for whole-message
	// failures.
	Field  string
	Detail string
	Raw    any
}

func (e *MessageParseError) Error() string {
	msg := "message parse error (" + string(e.Reason) + ")"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches errors.ErrMessageParse.
func (e *MessageParseError) Is(target error) bool {
	return target == errors.ErrMessageParse
}

func missingField(raw any, field string) *MessageParseError {
	return &MessageParseError{Reason: ReasonMissingField, Field: field, Raw: raw}
}

func invalidField(raw any, field, format string, args ...any) *MessageParseError {
	return &MessageParseError{
		Reason: ReasonInvalidField,
		Field:  field,
		Detail: fmt.Sprintf(format, args...),
		Raw:    raw,
	}
}
