// Package dberrors converts raw database driver errors into structured
// errors that presentation layers can render uniformly across engines.
package dberrors

import (
	"fmt"
	"strings"
)

// ErrorKind is the closed set of structured error tags.
type ErrorKind string

const (
	KindGenericDBEngine ErrorKind = "GENERIC_DB_ENGINE_ERROR"
	KindGenericBackend  ErrorKind = "GENERIC_BACKEND_ERROR"

	KindConnectionMissingParameters ErrorKind = "CONNECTION_MISSING_PARAMETERS_ERROR"
	KindConnectionInvalidHostname   ErrorKind = "CONNECTION_INVALID_HOSTNAME_ERROR"
	KindConnectionPortClosed        ErrorKind = "CONNECTION_PORT_CLOSED_ERROR"
	KindConnectionInvalidPort       ErrorKind = "CONNECTION_INVALID_PORT_ERROR"
	KindConnectionHostDown          ErrorKind = "CONNECTION_HOST_DOWN_ERROR"
	KindConnectionUnknownDatabase   ErrorKind = "CONNECTION_UNKNOWN_DATABASE_ERROR"
	KindConnectionAccessDenied      ErrorKind = "CONNECTION_ACCESS_DENIED_ERROR"
	KindConnectionInvalidUsername   ErrorKind = "CONNECTION_INVALID_USERNAME_ERROR"
	KindConnectionInvalidPassword   ErrorKind = "CONNECTION_INVALID_PASSWORD_ERROR"
	KindConnectionDBPermissions     ErrorKind = "CONNECTION_DATABASE_PERMISSIONS_ERROR"
	KindConnectionInvalidParameter  ErrorKind = "CONNECTION_INVALID_PARAMETER_ERROR"

	KindTableDoesNotExist  ErrorKind = "TABLE_DOES_NOT_EXIST_ERROR"
	KindSchemaDoesNotExist ErrorKind = "SCHEMA_DOES_NOT_EXIST_ERROR"
	KindColumnDoesNotExist ErrorKind = "COLUMN_DOES_NOT_EXIST_ERROR"
	KindSyntax             ErrorKind = "SYNTAX_ERROR"

	KindTimeGrainNotSupported ErrorKind = "TIME_GRAIN_NOT_SUPPORTED_ERROR"
)

// ErrorLevel is the severity attached to every structured error.
type ErrorLevel string

const (
	LevelInfo    ErrorLevel = "INFO"
	LevelWarning ErrorLevel = "WARNING"
	LevelError   ErrorLevel = "ERROR"
)

// IssueCode points users at documentation for a class of problem.
type IssueCode struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var issueCodes = map[ErrorKind][]IssueCode{
	KindGenericBackend:              {{Code: 1011, Message: "Issue 1011 - The server encountered an unexpected error."}},
	KindConnectionInvalidHostname:   {{Code: 1007, Message: "Issue 1007 - The hostname provided can't be resolved."}},
	KindConnectionPortClosed:        {{Code: 1008, Message: "Issue 1008 - The port is closed."}},
	KindConnectionInvalidPort:       {{Code: 1034, Message: "Issue 1034 - The port number is invalid."}},
	KindConnectionHostDown:          {{Code: 1009, Message: "Issue 1009 - The host might be down, and can't be reached on the provided port."}},
	KindConnectionUnknownDatabase:   {{Code: 1015, Message: "Issue 1015 - Either the database is spelled incorrectly or does not exist."}},
	KindConnectionAccessDenied:      {{Code: 1014, Message: "Issue 1014 - Either the username or the password is wrong."}, {Code: 1015, Message: "Issue 1015 - Either the database is spelled incorrectly or does not exist."}},
	KindConnectionInvalidUsername:   {{Code: 1012, Message: "Issue 1012 - The username provided when connecting to a database is not valid."}},
	KindConnectionInvalidPassword:   {{Code: 1013, Message: "Issue 1013 - The password provided when connecting to a database is not valid."}},
	KindConnectionDBPermissions:     {{Code: 1017, Message: "Issue 1017 - User doesn't have the proper permissions."}},
	KindConnectionMissingParameters: {{Code: 1018, Message: "Issue 1018 - One or more parameters needed to configure a database are missing."}},
	KindTableDoesNotExist:           {{Code: 1003, Message: "Issue 1003 - There is a syntax error in the SQL query. Perhaps there was a misspelling or a typo."}, {Code: 1005, Message: "Issue 1005 - The table was deleted or renamed in the database."}},
	KindSchemaDoesNotExist:          {{Code: 1003, Message: "Issue 1003 - There is a syntax error in the SQL query. Perhaps there was a misspelling or a typo."}, {Code: 1016, Message: "Issue 1016 - The schema was deleted or renamed in the database."}},
	KindColumnDoesNotExist:          {{Code: 1003, Message: "Issue 1003 - There is a syntax error in the SQL query. Perhaps there was a misspelling or a typo."}, {Code: 1004, Message: "Issue 1004 - The column was deleted or renamed in the database."}},
	KindSyntax:                      {{Code: 1030, Message: "Issue 1030 - The query has a syntax error."}},
}

// IssueCodesFor returns the documentation issue codes attached to a kind.
func IssueCodesFor(kind ErrorKind) []IssueCode {
	codes := issueCodes[kind]
	if len(codes) == 0 {
		return nil
	}
	out := make([]IssueCode, len(codes))
	copy(out, codes)
	return out
}

// EngineError is a structured, user-facing error.
type EngineError struct {
	Message    string              `json:"message"`
	Kind       ErrorKind           `json:"error_type"`
	Level      ErrorLevel          `json:"level"`
	Extra      map[string][]string `json:"extra,omitempty"`
	IssueCodes []IssueCode         `json:"issue_codes,omitempty"`
}

func (e EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errors is a list of structured errors returned together, e.g. from
// parameter validation where the UI shows every problem at once.
type Errors []EngineError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Kinds returns the kind of each error, in order.
func (e Errors) Kinds() []ErrorKind {
	kinds := make([]ErrorKind, len(e))
	for i, err := range e {
		kinds[i] = err.Kind
	}
	return kinds
}
