package sql

import "strings"

// Keywords that modify data or schema wherever they appear as a keyword.
var mutatingKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"MERGE":    true,
	"CREATE":   true,
	"DROP":     true,
	"ALTER":    true,
	"TRUNCATE": true,
	"GRANT":    true,
	"REVOKE":   true,
}

// IsReadOnly reports whether stmt is safe to run against a read-only
// connection. UNKNOWN statements are never read-only, except informational
// SET forms.
func IsReadOnly(stmt *Statement) bool {
	if stmt == nil {
		return false
	}
	return stmt.IsReadOnly()
}

// IsReadOnlyScript reports whether every statement in text is read-only.
// Empty input is read-only.
func IsReadOnlyScript(d Dialect, text string) (bool, error) {
	statements, err := Parse(d, text)
	if err != nil {
		return false, err
	}
	for _, stmt := range statements {
		if !stmt.IsReadOnly() {
			return false, nil
		}
	}
	return true, nil
}

func isReadOnly(s *Statement) bool {
	switch s.Kind {
	case KindShow:
		return true
	case KindRead:
		return !hasMutatingKeyword(s.tokens) && !hasSelectInto(s.tokens)
	case KindExplain:
		return explainIsReadOnly(s)
	case KindUnknown:
		return isInformationalSet(s.tokens)
	default:
		return false
	}
}

// hasMutatingKeyword finds a mutating keyword used as a keyword: not a
// qualified name part and not a function call.
func hasMutatingKeyword(tokens []Token) bool {
	for i, tok := range tokens {
		if !mutatingKeywords[tok.Upper()] {
			continue
		}
		if precededByDot(tokens, i) {
			continue
		}
		if i+1 < len(tokens) && (tokens[i+1].IsPunct(".") || tokens[i+1].IsPunct("(")) {
			continue
		}
		return true
	}
	return false
}

// hasSelectInto finds SELECT ... INTO, which creates a table (or writes a
// file with MySQL OUTFILE/DUMPFILE). Assigning to @variables only touches
// session state and stays read-only.
func hasSelectInto(tokens []Token) bool {
	for i, tok := range tokens {
		if !tok.Is("INTO") || precededByDot(tokens, i) {
			continue
		}
		if !intoVariables(tokens[i+1:]) {
			return true
		}
	}
	return false
}

// intoVariables reports whether the INTO target is a list of @variables.
func intoVariables(tokens []Token) bool {
	seen := false
	for _, tok := range tokens {
		switch {
		case tok.Type == TokenParam && strings.HasPrefix(tok.Text, "@"):
			seen = true
		case tok.IsPunct(",") && seen:
		default:
			return seen
		}
	}
	return seen
}

// explainIsReadOnly treats plain EXPLAIN as read-only. EXPLAIN ANALYZE
// executes its statement, so it inherits the statement's answer.
func explainIsReadOnly(s *Statement) bool {
	tokens := s.tokens
	i := 1
	analyze := false

	if i < len(tokens) && tokens[i].IsPunct("(") {
		end := matchingParen(tokens, i)
		for _, tok := range tokens[i+1 : min(end, len(tokens))] {
			if tok.Is("ANALYZE") || tok.Is("ANALYSE") {
				analyze = true
			}
		}
		i = end + 1
	}
	for i < len(tokens) {
		switch tokens[i].Upper() {
		case "ANALYZE", "ANALYSE":
			analyze = true
			i++
			continue
		case "VERBOSE", "EXTENDED", "QUERY", "PLAN", "FORMAT", "COSTS", "BUFFERS":
			i++
			continue
		}
		break
	}

	if !analyze {
		return true
	}
	if i >= len(tokens) {
		return false
	}
	inner, err := ParseOne(s.Dialect, s.Raw[tokens[i].Start:])
	if err != nil || inner == nil {
		return false
	}
	return inner.IsReadOnly()
}

// isInformationalSet matches SET forms that only display settings, such as
// a bare SET, rather than assigning a value. SET ROLE and SET SESSION
// AUTHORIZATION switch privileges and never qualify.
func isInformationalSet(tokens []Token) bool {
	if len(tokens) == 0 || !tokens[0].Is("SET") {
		return false
	}
	for i, tok := range tokens[1:min(len(tokens), 4)] {
		if tok.Is("ROLE") || tok.Is("AUTHORIZATION") {
			return false
		}
		if i == 0 && !(tok.Is("SESSION") || tok.Is("LOCAL")) {
			break
		}
	}
	for _, tok := range tokens[1:] {
		if tok.Is("TO") || (tok.Type == TokenOperator && (tok.Text == "=" || tok.Text == ":=")) {
			return false
		}
	}
	return true
}
