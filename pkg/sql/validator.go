package sql

import (
	"errors"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
	// ErrEmptyStatement indicates the query has no statement after normalization.
	ErrEmptyStatement = errors.New("empty SQL statement")
)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Statement     *Statement
	Error         error
}

// ValidateAndNormalize checks that sqlQuery holds exactly one statement and
// strips the trailing semicolon and surrounding whitespace.
//
// The validation order is:
// 1. Tokenize (lexical errors are returned as *apperrors.ParseError)
// 2. Reject scripts with more than one statement
// 3. Return the statement text without its terminator
func ValidateAndNormalize(d Dialect, sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	statements, err := Parse(d, sqlQuery)
	if err != nil {
		return ValidationResult{Error: err}
	}
	switch len(statements) {
	case 0:
		return ValidationResult{Error: ErrEmptyStatement}
	case 1:
	default:
		return ValidationResult{Error: ErrMultipleStatements}
	}

	return ValidationResult{NormalizedSQL: statements[0].Raw, Statement: statements[0]}
}
