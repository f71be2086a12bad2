package sql

import (
	"strings"
)

// Kind is the syntactic class of a statement, derived from its leading keyword.
type Kind string

const (
	KindRead    Kind = "READ"
	KindWrite   Kind = "WRITE"
	KindDDL     Kind = "DDL"
	KindExplain Kind = "EXPLAIN"
	KindShow    Kind = "SHOW"
	KindUnknown Kind = "UNKNOWN"
)

var leadingKinds = map[string]Kind{
	"SELECT":   KindRead,
	"VALUES":   KindRead,
	"TABLE":    KindRead,
	"INSERT":   KindWrite,
	"UPDATE":   KindWrite,
	"DELETE":   KindWrite,
	"MERGE":    KindWrite,
	"UPSERT":   KindWrite,
	"REPLACE":  KindWrite,
	"COPY":     KindWrite,
	"CREATE":   KindDDL,
	"DROP":     KindDDL,
	"ALTER":    KindDDL,
	"TRUNCATE": KindDDL,
	"GRANT":    KindDDL,
	"REVOKE":   KindDDL,
	"RENAME":   KindDDL,
	"COMMENT":  KindDDL,
	"EXPLAIN":  KindExplain,
	"SHOW":     KindShow,
	"DESCRIBE": KindShow,
	"DESC":     KindShow,
}

// TableReference is a table named by a statement. Parts are kept exactly as
// written, minus quoting. Catalog and Schema are empty when absent.
type TableReference struct {
	Catalog string
	Schema  string
	Table   string
}

// String renders the reference in dotted form.
func (t TableReference) String() string {
	parts := make([]string, 0, 3)
	if t.Catalog != "" {
		parts = append(parts, t.Catalog)
	}
	if t.Schema != "" {
		parts = append(parts, t.Schema)
	}
	return strings.Join(append(parts, t.Table), ".")
}

// Statement is one parsed SQL statement. It is immutable once returned
// from Parse.
type Statement struct {
	Raw     string
	Kind    Kind
	Dialect Dialect

	// byte offset of Raw within the parsed text
	offset int
	// significant tokens with offsets relative to Raw
	tokens []Token
	tables []TableReference
	limit  LimitClause
}

// Tables returns the referenced tables in first-seen order, deduplicated.
func (s *Statement) Tables() []TableReference {
	out := make([]TableReference, len(s.tables))
	copy(out, s.tables)
	return out
}

// Limit returns the outermost row-limit clause, if any.
func (s *Statement) Limit() LimitClause {
	return s.limit
}

// Tokens returns the statement's significant tokens.
func (s *Statement) Tokens() []Token {
	out := make([]Token, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// IsReadOnly reports whether executing the statement cannot modify data
// or schema.
func (s *Statement) IsReadOnly() bool {
	return isReadOnly(s)
}

// Parse splits text into statements on semicolons that are outside strings,
// quoted identifiers and comments. Empty input and empty statements (such as
// a trailing semicolon) produce no entries.
func Parse(d Dialect, text string) ([]*Statement, error) {
	tokens, err := Tokenize(d, text)
	if err != nil {
		return nil, err
	}

	var (
		statements []*Statement
		segment    []Token
	)
	flush := func() {
		if stmt := newStatement(d, text, segment); stmt != nil {
			statements = append(statements, stmt)
		}
		segment = segment[:0]
	}
	for _, tok := range tokens {
		if tok.IsPunct(";") {
			flush()
			continue
		}
		segment = append(segment, tok)
	}
	flush()

	return statements, nil
}

// ParseOne parses text that is expected to hold a single statement. Extra
// statements are ignored; the last one is returned. It returns nil for empty
// input.
func ParseOne(d Dialect, text string) (*Statement, error) {
	statements, err := Parse(d, text)
	if err != nil || len(statements) == 0 {
		return nil, err
	}
	return statements[len(statements)-1], nil
}

func newStatement(d Dialect, text string, segment []Token) *Statement {
	first, last := -1, -1
	for i, tok := range segment {
		if tok.Type == TokenWhitespace {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return nil
	}

	base := segment[first].Start
	stmt := &Statement{
		Raw:     text[base:segment[last].End],
		Dialect: d,
		offset:  base,
	}
	for _, tok := range segment[first : last+1] {
		if !tok.significant() {
			continue
		}
		tok.Start -= base
		tok.End -= base
		stmt.tokens = append(stmt.tokens, tok)
	}
	if len(stmt.tokens) == 0 {
		// comment-only segment
		return nil
	}

	stmt.Kind = classify(stmt.tokens)
	stmt.tables = extractTables(stmt)
	stmt.limit = findLimit(stmt.tokens)
	return stmt
}

// classify looks at the leading keyword. WITH is resolved to the kind of the
// statement body that follows the common table expressions.
func classify(tokens []Token) Kind {
	i := 0
	for i < len(tokens) && tokens[i].IsPunct("(") {
		i++
	}
	if i >= len(tokens) {
		return KindUnknown
	}

	lead := tokens[i].Upper()
	if lead == "WITH" {
		depth := 0
		for _, tok := range tokens[i+1:] {
			switch {
			case tok.IsPunct("("):
				depth++
			case tok.IsPunct(")"):
				depth--
			case depth == 0:
				switch tok.Upper() {
				case "SELECT", "VALUES", "TABLE":
					return KindRead
				case "INSERT", "UPDATE", "DELETE", "MERGE":
					return KindWrite
				}
			}
		}
		return KindUnknown
	}

	if kind, ok := leadingKinds[lead]; ok {
		return kind
	}
	return KindUnknown
}

// matchingParen returns the index of the parenthesis closing tokens[open],
// or len(tokens) if it is unbalanced.
func matchingParen(tokens []Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch {
		case tokens[i].IsPunct("("):
			depth++
		case tokens[i].IsPunct(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(tokens)
}
