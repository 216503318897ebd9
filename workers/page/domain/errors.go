package domain

import (
	"fmt"
	"strings"
)

// ConfigError means the page context is unusable (missing graduation year). It blocks all fetching.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("page configuration: %s is not defined", e.Field)
}

// HTTPError is a response outside the 2xx range.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// NetworkError wraps a transport failure, including timeouts and cancellation.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// ParseError wraps a body that is not the JSON document we expected.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ValidationError carries the per-field messages of a rejected fact submission.
type ValidationError struct {
	Fields FieldErrors
}

// Error returns the aggregated, human readable message shown to the visitor.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(MsgSubmitErrorsHeader)
	for _, f := range e.Fields {
		b.WriteString(f.Field)
		b.WriteString(": ")
		b.WriteString(strings.Join(f.Messages, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

// SubmissionTransportError is any failure to get a usable answer from the submission endpoint.
type SubmissionTransportError struct {
	Cause error
}

func (e *SubmissionTransportError) Error() string {
	return fmt.Sprintf("fact submission failed: %v", e.Cause)
}

func (e *SubmissionTransportError) Unwrap() error { return e.Cause }
