package sql

import (
	"strconv"
	"strings"
)

const limitTrimCutset = " \t\r\n;"

// LimitClause describes the outermost row-limit clause of a statement.
type LimitClause struct {
	// Keyword is LIMIT, FETCH or TOP; empty when the statement has no clause.
	Keyword string
	// Value is the row count when HasValue is set.
	Value    int
	HasValue bool
	// HasOffset is set for LIMIT a, b and LIMIT a OFFSET b.
	HasOffset bool

	// byte range of the count within Statement.Raw. For FETCH without a
	// count, start == end marks where one should be inserted.
	start, end int
	// rewritable is false when the clause exists but the count is not an
	// integer literal the engine can replace.
	rewritable bool
}

// Present reports whether the statement has a limit clause at all.
func (l LimitClause) Present() bool {
	return l.Keyword != ""
}

// findLimit locates the last LIMIT, FETCH FIRST|NEXT or TOP clause outside
// parentheses.
func findLimit(tokens []Token) LimitClause {
	var found LimitClause
	depth := 0
	for i, tok := range tokens {
		switch {
		case tok.IsPunct("("):
			depth++
			continue
		case tok.IsPunct(")"):
			depth--
			continue
		}
		if depth != 0 || precededByDot(tokens, i) {
			continue
		}
		switch tok.Upper() {
		case "LIMIT":
			found = parseLimit(tokens, i)
		case "FETCH":
			if i+1 < len(tokens) && (tokens[i+1].Is("FIRST") || tokens[i+1].Is("NEXT")) {
				found = parseFetch(tokens, i)
			}
		case "TOP":
			if i > 0 && (tokens[i-1].Is("SELECT") || tokens[i-1].Is("DISTINCT") || tokens[i-1].Is("ALL")) {
				found = parseTop(tokens, i)
			}
		}
	}
	return found
}

func integerLiteral(tok Token) (int, bool) {
	if tok.Type != TokenNumber {
		return 0, false
	}
	n, err := strconv.Atoi(tok.Text)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseLimit handles LIMIT n, LIMIT a, b, LIMIT n OFFSET m and LIMIT ALL.
func parseLimit(tokens []Token, i int) LimitClause {
	lc := LimitClause{Keyword: "LIMIT"}
	if i+1 >= len(tokens) {
		return lc
	}
	first := tokens[i+1]

	if first.Is("ALL") {
		lc.start, lc.end, lc.rewritable = first.Start, first.End, true
		return lc
	}

	n, ok := integerLiteral(first)
	if !ok {
		return lc
	}

	if i+2 < len(tokens) {
		next := tokens[i+2]
		switch {
		case next.IsPunct(","):
			lc.HasOffset = true
			if i+3 >= len(tokens) {
				return lc
			}
			count, ok := integerLiteral(tokens[i+3])
			if !ok {
				return lc
			}
			lc.Value, lc.HasValue = count, true
			lc.start, lc.end, lc.rewritable = tokens[i+3].Start, tokens[i+3].End, true
			return lc
		case next.Is("OFFSET"):
			lc.HasOffset = true
		}
	}

	lc.Value, lc.HasValue = n, true
	lc.start, lc.end, lc.rewritable = first.Start, first.End, true
	return lc
}

// parseFetch handles FETCH FIRST|NEXT [n] ROW|ROWS ONLY|WITH TIES.
func parseFetch(tokens []Token, i int) LimitClause {
	lc := LimitClause{Keyword: "FETCH"}
	j := i + 2
	if j >= len(tokens) {
		return lc
	}
	if n, ok := integerLiteral(tokens[j]); ok {
		lc.Value, lc.HasValue = n, true
		lc.start, lc.end, lc.rewritable = tokens[j].Start, tokens[j].End, true
		return lc
	}
	if tokens[j].Is("ROW") || tokens[j].Is("ROWS") {
		// implicit count of one
		lc.Value, lc.HasValue = 1, true
		lc.start, lc.end, lc.rewritable = tokens[i+1].End, tokens[i+1].End, true
	}
	return lc
}

// parseTop handles TOP n and TOP (n).
func parseTop(tokens []Token, i int) LimitClause {
	lc := LimitClause{Keyword: "TOP"}
	j := i + 1
	if j < len(tokens) && tokens[j].IsPunct("(") {
		if j+2 >= len(tokens) || !tokens[j+2].IsPunct(")") {
			return lc
		}
		j++
	}
	if j >= len(tokens) {
		return lc
	}
	if n, ok := integerLiteral(tokens[j]); ok {
		lc.Value, lc.HasValue = n, true
		lc.start, lc.end, lc.rewritable = tokens[j].Start, tokens[j].End, true
	}
	return lc
}

// ExtractLimit returns the row count of the outermost limit clause of the
// last statement. Counts given as expressions, parameters or non-integer
// literals are not evaluated and yield false.
func ExtractLimit(d Dialect, text string) (int, bool) {
	stmt, err := ParseOne(d, text)
	if err != nil || stmt == nil {
		return 0, false
	}
	lc := stmt.Limit()
	if !lc.HasValue {
		return 0, false
	}
	return lc.Value, true
}

// ApplyLimit enforces a row ceiling on the last statement of text.
//
// The text is trimmed of surrounding whitespace and semicolons. Earlier
// statements are returned unchanged. An existing count is replaced when it
// exceeds limit or when force is set; a count paired with an offset is
// always replaced. Without a clause, or when the existing count cannot be
// read, "\nLIMIT n" is appended.
func ApplyLimit(d Dialect, text string, limit int, force bool) string {
	text = strings.Trim(text, limitTrimCutset)

	statements, err := Parse(d, text)
	if err != nil || len(statements) == 0 {
		return text + "\nLIMIT " + strconv.Itoa(limit)
	}

	last := statements[len(statements)-1]
	end := last.offset + len(last.Raw)
	return text[:last.offset] + limitStatement(last, limit, force) + text[end:]
}

func limitStatement(stmt *Statement, limit int, force bool) string {
	raw := stmt.Raw
	lc := stmt.Limit()
	if !lc.Present() || !lc.rewritable {
		return raw + "\nLIMIT " + strconv.Itoa(limit)
	}

	replace := force || lc.HasOffset || !lc.HasValue || lc.Value > limit
	if !replace {
		return raw
	}

	count := strconv.Itoa(limit)
	if lc.start == lc.end {
		count = " " + count
	}
	return raw[:lc.start] + count + raw[lc.end:]
}

// LimitAction names the outcome of ApplyLimit for a statement.
type LimitAction string

const (
	LimitAppended  LimitAction = "appended"
	LimitRewritten LimitAction = "rewritten"
	LimitUnchanged LimitAction = "unchanged"
)

// ClassifyLimit reports what ApplyLimit does to text without rewriting it.
func ClassifyLimit(d Dialect, text string, limit int, force bool) LimitAction {
	stmt, err := ParseOne(d, strings.Trim(text, limitTrimCutset))
	if err != nil || stmt == nil {
		return LimitAppended
	}
	lc := stmt.Limit()
	switch {
	case !lc.Present() || !lc.rewritable:
		return LimitAppended
	case force || lc.HasOffset || !lc.HasValue || lc.Value > limit:
		return LimitRewritten
	default:
		return LimitUnchanged
	}
}

// WrapLimit limits text by nesting its last statement inside a template
// such as "SELECT * FROM ({sql}) AS inner_qry LIMIT {limit}". Earlier
// statements are returned unchanged.
func WrapLimit(d Dialect, text string, limit int, template string) string {
	text = strings.Trim(text, limitTrimCutset)
	body, prefix, suffix := text, "", ""
	if statements, err := Parse(d, text); err == nil && len(statements) > 0 {
		last := statements[len(statements)-1]
		body = last.Raw
		prefix = text[:last.offset]
		suffix = text[last.offset+len(body):]
	}
	r := strings.NewReplacer("{sql}", body, "{limit}", strconv.Itoa(limit))
	return prefix + r.Replace(template) + suffix
}
