package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotReadOnly              = errors.New("statement is not read-only")
	ErrIntrospectionUnsupported = errors.New("engine does not support introspection")
	ErrInvalidCertificate       = errors.New("invalid server certificate")
)

// ParseError is returned when SQL text cannot be tokenized at all.
type ParseError struct {
	Position int
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sql parse error at position %d: %s", e.Position, e.Message)
}

// UnsupportedGrainError is returned when a duration token has no expression
// in the resolved grain map for an engine.
type UnsupportedGrainError struct {
	Engine string
	Grain  string
}

func (e *UnsupportedGrainError) Error() string {
	return fmt.Sprintf("time grain %q is not supported by engine %q", e.Grain, e.Engine)
}

// UnknownEngineError is returned on a registry miss. Registered lists the
// names that were available at lookup time.
type UnknownEngineError struct {
	Engine     string
	Registered []string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown engine %q (registered: %s)", e.Engine, strings.Join(e.Registered, ", "))
}

// DuplicateEngineError is returned when two adapters register the same name.
type DuplicateEngineError struct {
	Engine string
}

func (e *DuplicateEngineError) Error() string {
	return fmt.Sprintf("engine %q registered more than once", e.Engine)
}
