// Package sql provides lightweight SQL statement parsing, read-only
// detection, row-limit injection and validation utilities.
//
// The parser is token based rather than grammar based. It understands enough
// of each dialect's lexical rules (quoting, comments, escapes) to locate
// statement boundaries, referenced tables and limit clauses without being
// confused by literals.
package sql

import "strings"

// Dialect selects tokenization quirks. It never changes grammar.
type Dialect string

const (
	DialectANSI     Dialect = "ansi"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
	DialectMSSQL    Dialect = "mssql"
	DialectHive     Dialect = "hive"
	DialectPresto   Dialect = "presto"
	DialectDruid    Dialect = "druid"
)

// ParseDialect maps a dialect name to a Dialect, defaulting to ANSI.
func ParseDialect(name string) Dialect {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(name))); d {
	case DialectPostgres, DialectMySQL, DialectSQLite, DialectMSSQL, DialectHive, DialectPresto, DialectDruid:
		return d
	case "postgresql", "redshift":
		return DialectPostgres
	case "sqlserver":
		return DialectMSSQL
	case "trino":
		return DialectPresto
	default:
		return DialectANSI
	}
}

type quirks struct {
	backslashEscapes   bool // '\'' escapes inside string literals
	doubleQuoteStrings bool // "..." is a string literal, not an identifier
	hashComments       bool // # starts a line comment
	bracketIdents      bool // [...] is a quoted identifier
	dollarStrings      bool // $tag$...$tag$ literals and E'...' escapes
	hashIdents         bool // #temp is part of an identifier
}

func (d Dialect) quirks() quirks {
	switch d {
	case DialectPostgres:
		return quirks{dollarStrings: true}
	case DialectMySQL:
		return quirks{backslashEscapes: true, doubleQuoteStrings: true, hashComments: true}
	case DialectHive:
		return quirks{backslashEscapes: true, doubleQuoteStrings: true}
	case DialectMSSQL:
		return quirks{bracketIdents: true, hashIdents: true}
	case DialectSQLite:
		return quirks{bracketIdents: true}
	case DialectPresto:
		return quirks{}
	default:
		return quirks{bracketIdents: true}
	}
}
