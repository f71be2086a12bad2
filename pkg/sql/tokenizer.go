package sql

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ekaya-inc/ekaya-dialects/pkg/apperrors"
)

// TokenType classifies a lexical token.
type TokenType int

const (
	TokenWord TokenType = iota
	TokenQuotedIdent
	TokenString
	TokenNumber
	TokenPunct
	TokenOperator
	TokenParam
	TokenComment
	TokenWhitespace
)

// Token is a lexical unit with its byte offsets into the tokenized text.
type Token struct {
	Type  TokenType
	Text  string
	Start int
	End   int
}

// Upper returns the upper-cased text of a word token and "" otherwise.
func (t Token) Upper() string {
	if t.Type != TokenWord {
		return ""
	}
	return strings.ToUpper(t.Text)
}

// Is reports whether t is the (unquoted) keyword kw.
func (t Token) Is(kw string) bool {
	return t.Type == TokenWord && strings.EqualFold(t.Text, kw)
}

// IsPunct reports whether t is the punctuation p.
func (t Token) IsPunct(p string) bool {
	return t.Type == TokenPunct && t.Text == p
}

func (t Token) significant() bool {
	return t.Type != TokenWhitespace && t.Type != TokenComment
}

// Tokenize splits text into tokens following the dialect's lexical rules.
// It returns a ParseError for unterminated strings, quoted identifiers or
// block comments.
func Tokenize(d Dialect, text string) ([]Token, error) {
	lx := lexer{src: text, q: d.quirks()}
	return lx.run()
}

type lexer struct {
	src    string
	q      quirks
	pos    int
	tokens []Token
}

func (lx *lexer) emit(tt TokenType, start int) {
	lx.tokens = append(lx.tokens, Token{Type: tt, Text: lx.src[start:lx.pos], Start: start, End: lx.pos})
}

func (lx *lexer) peek(off int) byte {
	if lx.pos+off < len(lx.src) {
		return lx.src[lx.pos+off]
	}
	return 0
}

func (lx *lexer) run() ([]Token, error) {
	for lx.pos < len(lx.src) {
		start := lx.pos
		c := lx.src[lx.pos]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			for lx.pos < len(lx.src) && strings.IndexByte(" \t\n\r\f\v", lx.src[lx.pos]) >= 0 {
				lx.pos++
			}
			lx.emit(TokenWhitespace, start)

		case c == '-' && lx.peek(1) == '-', c == '#' && lx.q.hashComments:
			lx.skipLine()
			lx.emit(TokenComment, start)

		case c == '/' && lx.peek(1) == '*':
			end := strings.Index(lx.src[lx.pos+2:], "*/")
			if end < 0 {
				return nil, &apperrors.ParseError{Position: start, Message: "unterminated block comment"}
			}
			lx.pos += 2 + end + 2
			lx.emit(TokenComment, start)

		case c == '\'':
			if err := lx.quoted('\'', lx.q.backslashEscapes); err != nil {
				return nil, err
			}
			lx.emit(TokenString, start)

		case (c == 'E' || c == 'e') && lx.q.dollarStrings && lx.peek(1) == '\'':
			lx.pos++
			if err := lx.quoted('\'', true); err != nil {
				return nil, &apperrors.ParseError{Position: start, Message: "unterminated string literal"}
			}
			lx.emit(TokenString, start)

		case c == '$' && lx.q.dollarStrings && lx.dollarTag() != "":
			tag := lx.dollarTag()
			end := strings.Index(lx.src[lx.pos+len(tag):], tag)
			if end < 0 {
				return nil, &apperrors.ParseError{Position: start, Message: "unterminated dollar-quoted string"}
			}
			lx.pos += len(tag) + end + len(tag)
			lx.emit(TokenString, start)

		case c == '"':
			if lx.q.doubleQuoteStrings {
				if err := lx.quoted('"', lx.q.backslashEscapes); err != nil {
					return nil, err
				}
				lx.emit(TokenString, start)
				continue
			}
			if err := lx.quoted('"', false); err != nil {
				return nil, err
			}
			lx.emit(TokenQuotedIdent, start)

		case c == '`':
			if err := lx.quoted('`', false); err != nil {
				return nil, err
			}
			lx.emit(TokenQuotedIdent, start)

		case c == '[' && lx.q.bracketIdents:
			if err := lx.quoted(']', false); err != nil {
				return nil, err
			}
			lx.emit(TokenQuotedIdent, start)

		case isDigit(c) || (c == '.' && isDigit(lx.peek(1))):
			lx.number()
			lx.emit(TokenNumber, start)

		case c == '?':
			lx.pos++
			lx.emit(TokenParam, start)

		case c == '$' && isDigit(lx.peek(1)):
			lx.pos++
			for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
				lx.pos++
			}
			lx.emit(TokenParam, start)

		case (c == ':' || c == '@') && isIdentStart(lx.peek(1)) && !lx.prevIs(':'):
			lx.pos++
			lx.word()
			lx.emit(TokenParam, start)

		case c == '%' && (lx.peek(1) == 's' || lx.peek(1) == '('):
			if lx.peek(1) == 's' {
				lx.pos += 2
			} else if end := strings.Index(lx.src[lx.pos:], ")s"); end > 0 {
				lx.pos += end + 2
			} else {
				lx.pos++
				lx.emit(TokenOperator, start)
				continue
			}
			lx.emit(TokenParam, start)

		case c == '#' && lx.q.hashIdents && isIdentStart(lx.peek(1)):
			lx.pos++
			lx.word()
			lx.emit(TokenWord, start)

		case isIdentStart(c) || c >= utf8.RuneSelf:
			if c >= utf8.RuneSelf {
				r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
				if !unicode.IsLetter(r) {
					lx.pos += utf8.RuneLen(r)
					lx.emit(TokenOperator, start)
					continue
				}
			}
			lx.word()
			lx.emit(TokenWord, start)

		case strings.IndexByte("(),.;[]{}", c) >= 0:
			lx.pos++
			lx.emit(TokenPunct, start)

		default:
			lx.pos++
			if lx.pos < len(lx.src) {
				switch lx.src[start:lx.pos+1] {
				case "::", "<=", ">=", "<>", "!=", "||", "->", "=>":
					lx.pos++
					if lx.src[start:lx.pos] == "->" && lx.peek(0) == '>' {
						lx.pos++
					}
				}
			}
			lx.emit(TokenOperator, start)
		}
	}
	return lx.tokens, nil
}

func (lx *lexer) prevIs(b byte) bool {
	return lx.pos > 0 && lx.src[lx.pos-1] == b
}

func (lx *lexer) skipLine() {
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
		lx.pos++
	}
}

// quoted consumes a literal delimited by its opening byte and closing byte.
// A doubled closing byte is an escaped delimiter.
func (lx *lexer) quoted(closing byte, backslash bool) error {
	start := lx.pos
	lx.pos++
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case backslash && c == '\\':
			lx.pos += 2
			continue
		case c == closing:
			if lx.peek(1) == closing {
				lx.pos += 2
				continue
			}
			lx.pos++
			return nil
		}
		lx.pos++
	}
	lx.pos = len(lx.src)
	msg := "unterminated string literal"
	if closing != '\'' && !(closing == '"' && lx.q.doubleQuoteStrings) {
		msg = "unterminated quoted identifier"
	}
	return &apperrors.ParseError{Position: start, Message: msg}
}

// dollarTag returns the opening $tag$ at the current position, if any.
func (lx *lexer) dollarTag() string {
	i := lx.pos + 1
	for i < len(lx.src) && (isIdentStart(lx.src[i]) || (i > lx.pos+1 && isDigit(lx.src[i]))) {
		i++
	}
	if i < len(lx.src) && lx.src[i] == '$' {
		return lx.src[lx.pos : i+1]
	}
	return ""
}

func (lx *lexer) number() {
	for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
		lx.pos++
	}
	if lx.peek(0) == '.' && isDigit(lx.peek(1)) || lx.peek(0) == '.' && lx.pos > 0 && isDigit(lx.src[lx.pos-1]) {
		lx.pos++
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			lx.pos++
		}
	}
	if c := lx.peek(0); c == 'e' || c == 'E' {
		next := lx.peek(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(lx.peek(2))) {
			lx.pos += 2
			for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
				lx.pos++
			}
		}
	}
}

func (lx *lexer) word() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if isIdentStart(c) || isDigit(c) || c == '$' {
			lx.pos++
			continue
		}
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				lx.pos += size
				continue
			}
		}
		return
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Unquote strips identifier quoting and collapses doubled delimiters.
func Unquote(t Token) string {
	if t.Type != TokenQuotedIdent || len(t.Text) < 2 {
		return t.Text
	}
	inner := t.Text[1 : len(t.Text)-1]
	switch t.Text[0] {
	case '"':
		return strings.ReplaceAll(inner, `""`, `"`)
	case '`':
		return strings.ReplaceAll(inner, "``", "`")
	case '[':
		return strings.ReplaceAll(inner, "]]", "]")
	}
	return inner
}
