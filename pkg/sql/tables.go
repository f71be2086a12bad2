package sql

import "strings"

// Keywords introducing a table reference.
var tableKeywords = map[string]bool{
	"FROM":     true,
	"JOIN":     true,
	"INTO":     true,
	"UPDATE":   true,
	"TABLE":    true,
	"TRUNCATE": true,
	"USING":    true,
}

// Functions whose argument syntax uses FROM without naming a table.
var fromArgFunctions = map[string]bool{
	"EXTRACT":   true,
	"SUBSTRING": true,
	"TRIM":      true,
	"POSITION":  true,
	"OVERLAY":   true,
}

// Words that can follow a table keyword but are never table names.
var notTableNames = map[string]bool{
	"SELECT": true, "WITH": true, "VALUES": true, "SET": true, "WHERE": true,
	"ON": true, "USING": true, "AS": true, "LATERAL": true, "ONLY": true,
	"TABLE": true, "IF": true, "EXISTS": true, "NOT": true, "OF": true,
	"NOWAIT": true, "SKIP": true, "UNNEST": true, "IGNORE": true,
	"GROUP": true, "ORDER": true, "LIMIT": true, "HAVING": true, "UNION": true,
	"DEFAULT": true, "DUAL": true,
}

// Words that end an implicit alias position.
var clauseWords = map[string]bool{
	"WHERE": true, "ON": true, "USING": true, "JOIN": true, "INNER": true,
	"LEFT": true, "RIGHT": true, "FULL": true, "OUTER": true, "CROSS": true,
	"NATURAL": true, "GROUP": true, "ORDER": true, "HAVING": true, "LIMIT": true,
	"OFFSET": true, "FETCH": true, "UNION": true, "INTERSECT": true, "EXCEPT": true,
	"WINDOW": true, "SET": true, "VALUES": true, "SELECT": true, "RETURNING": true,
	"FOR": true, "WITH": true, "PARTITION": true, "TABLESAMPLE": true, "QUALIFY": true,
	"STRAIGHT_JOIN": true, "LATERAL": true, "DEFAULT": true, "OVERWRITE": true,
	"MINUS": true, "PIVOT": true, "UNPIVOT": true, "USE": true, "FORCE": true,
}

func extractTables(stmt *Statement) []TableReference {
	refs := scanTables(stmt.tokens)
	refs = append(refs, astTables(stmt.Dialect, stmt.Raw)...)

	ctes := cteNames(stmt.tokens)
	seen := make(map[TableReference]bool, len(refs))
	out := make([]TableReference, 0, len(refs))
	for _, ref := range refs {
		if ref.Table == "" || seen[ref] {
			continue
		}
		if ref.Schema == "" && ref.Catalog == "" && ctes[strings.ToLower(ref.Table)] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

// scanTables walks the token stream and collects names following table
// keywords. Every token is visited, so FROM clauses inside subqueries and
// derived tables are picked up as the scan reaches them.
func scanTables(tokens []Token) []TableReference {
	var (
		refs []TableReference
		// for each open parenthesis, whether it belongs to a FROM-argument function
		parens []bool
	)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok.IsPunct("("):
			parens = append(parens, i > 0 && fromArgFunctions[tokens[i-1].Upper()])
			continue
		case tok.IsPunct(")"):
			if len(parens) > 0 {
				parens = parens[:len(parens)-1]
			}
			continue
		}

		kw := tok.Upper()
		if !tableKeywords[kw] || precededByDot(tokens, i) {
			continue
		}

		switch kw {
		case "FROM":
			if len(parens) > 0 && parens[len(parens)-1] {
				continue
			}
			if isDistinctFrom(tokens, i) {
				continue
			}
		case "UPDATE":
			if i > 0 && (tokens[i-1].Is("FOR") || tokens[i-1].Is("DO") || tokens[i-1].Is("KEY")) {
				continue
			}
		case "TABLE":
			// TRUNCATE TABLE x is handled by TRUNCATE
			if i > 0 && tokens[i-1].Is("TRUNCATE") {
				continue
			}
		}

		j := i + 1
		if kw == "TRUNCATE" && j < len(tokens) && tokens[j].Is("TABLE") {
			j++
		}
		list := kw == "FROM" || kw == "TABLE" || kw == "TRUNCATE"
		found, _ := readTableList(tokens, j, list, kw == "INTO" || kw == "TABLE" || kw == "TRUNCATE")
		refs = append(refs, found...)
	}
	return refs
}

// readTableList reads one table reference, or a comma separated list when
// list is set. allowColumnList permits "name (" to be a table followed by a
// column list rather than a function call.
func readTableList(tokens []Token, i int, list, allowColumnList bool) ([]TableReference, int) {
	var refs []TableReference
	for i < len(tokens) {
		for i < len(tokens) && (tokens[i].Is("ONLY") || tokens[i].Is("LATERAL") || tokens[i].Is("IF") ||
			tokens[i].Is("NOT") || tokens[i].Is("EXISTS") || tokens[i].Is("OVERWRITE")) {
			i++
		}
		if i >= len(tokens) {
			break
		}

		if tokens[i].IsPunct("(") {
			// derived table
			if !list {
				return refs, i
			}
			i = skipAlias(tokens, matchingParen(tokens, i)+1)
		} else {
			ref, next, ok := readQualifiedName(tokens, i)
			if !ok {
				return refs, i
			}
			if next < len(tokens) && tokens[next].IsPunct("(") && !allowColumnList {
				// table-valued function
				i = skipAlias(tokens, matchingParen(tokens, next)+1)
			} else {
				refs = append(refs, ref)
				i = next
				if !allowColumnList {
					i = skipAlias(tokens, i)
				}
			}
		}

		if !list || i >= len(tokens) || !tokens[i].IsPunct(",") {
			break
		}
		i++
	}
	return refs, i
}

// readQualifiedName reads name(.name)* starting at i.
func readQualifiedName(tokens []Token, i int) (TableReference, int, bool) {
	var parts []string
	for i < len(tokens) {
		tok := tokens[i]
		switch {
		case tok.Type == TokenQuotedIdent:
			parts = append(parts, Unquote(tok))
		case tok.Type == TokenWord && (len(parts) > 0 || !notTableNames[tok.Upper()]):
			parts = append(parts, tok.Text)
		default:
			return TableReference{}, i, false
		}
		i++
		if i < len(tokens) && tokens[i].IsPunct(".") {
			i++
			continue
		}
		break
	}
	if len(parts) == 0 {
		return TableReference{}, i, false
	}
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	ref := TableReference{Table: parts[len(parts)-1]}
	if len(parts) >= 2 {
		ref.Schema = parts[len(parts)-2]
	}
	if len(parts) == 3 {
		ref.Catalog = parts[0]
	}
	return ref, i, true
}

// skipAlias skips "[AS] alias [(columns)]" at i.
func skipAlias(tokens []Token, i int) int {
	if i < len(tokens) && tokens[i].Is("AS") {
		i++
	}
	if i < len(tokens) {
		tok := tokens[i]
		if tok.Type == TokenQuotedIdent || (tok.Type == TokenWord && !clauseWords[tok.Upper()]) {
			i++
			if i < len(tokens) && tokens[i].IsPunct("(") {
				i = matchingParen(tokens, i) + 1
			}
		}
	}
	return i
}

func precededByDot(tokens []Token, i int) bool {
	return i > 0 && tokens[i-1].IsPunct(".")
}

// isDistinctFrom matches IS [NOT] DISTINCT FROM.
func isDistinctFrom(tokens []Token, i int) bool {
	return i > 1 && tokens[i-1].Is("DISTINCT") && (tokens[i-2].Is("IS") || tokens[i-2].Is("NOT"))
}

// cteNames returns the lower-cased names of common table expressions
// defined by a leading WITH clause.
func cteNames(tokens []Token) map[string]bool {
	names := map[string]bool{}
	i := 0
	for i < len(tokens) && tokens[i].IsPunct("(") {
		i++
	}
	if i >= len(tokens) || !tokens[i].Is("WITH") {
		return names
	}
	i++
	if i < len(tokens) && tokens[i].Is("RECURSIVE") {
		i++
	}

	for i < len(tokens) {
		tok := tokens[i]
		if tok.IsPunct("(") {
			// WITH (subquery) alias
			i = matchingParen(tokens, i) + 1
			if i < len(tokens) && (tokens[i].Type == TokenWord || tokens[i].Type == TokenQuotedIdent) {
				names[strings.ToLower(Unquote(tokens[i]))] = true
				i++
			}
		} else {
			if tok.Type != TokenWord && tok.Type != TokenQuotedIdent {
				break
			}
			names[strings.ToLower(Unquote(tok))] = true
			i++
			if i < len(tokens) && tokens[i].IsPunct("(") {
				i = matchingParen(tokens, i) + 1
			}
			if i >= len(tokens) || !tokens[i].Is("AS") {
				break
			}
			i++
			for i < len(tokens) && (tokens[i].Is("NOT") || tokens[i].Is("MATERIALIZED")) {
				i++
			}
			if i >= len(tokens) || !tokens[i].IsPunct("(") {
				break
			}
			i = matchingParen(tokens, i) + 1
		}
		if i >= len(tokens) || !tokens[i].IsPunct(",") {
			break
		}
		i++
	}
	return names
}
