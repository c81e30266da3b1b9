package sql

import (
	"errors"
	"strings"
	"unicode"
)

// ErrUnterminated indicates a string literal, quoted identifier or block
// comment that never closes.
var ErrUnterminated = errors.New("unterminated literal, identifier or comment")

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenLiteral
	tokenIdentifier
	tokenSemicolon
	tokenOther
)

// token is a lexical unit outside comments. For literals and quoted
// identifiers, text is the unescaped content.
type token struct {
	kind tokenKind
	text string
}

// lex splits a query into tokens. It understands the quoting rules shared by
// SQLite, PostgreSQL and SQL Server: '' inside string literals, "" inside
// double-quoted identifiers, [bracketed] and `backticked` identifiers, and
// both comment styles.
func lex(query string) ([]token, error) {
	rs := []rune(query)
	var tokens []token

	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '-' && i+1 < len(rs) && rs[i+1] == '-':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}

		case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
			j := i + 2
			for j+1 < len(rs) && !(rs[j] == '*' && rs[j+1] == '/') {
				j++
			}
			if j+1 >= len(rs) {
				return nil, ErrUnterminated
			}
			i = j + 2

		case r == '\'':
			text, next, ok := readQuoted(rs, i, '\'')
			if !ok {
				return nil, ErrUnterminated
			}
			tokens = append(tokens, token{kind: tokenLiteral, text: text})
			i = next

		case r == '"' || r == '`':
			text, next, ok := readQuoted(rs, i, r)
			if !ok {
				return nil, ErrUnterminated
			}
			tokens = append(tokens, token{kind: tokenIdentifier, text: text})
			i = next

		case r == '[':
			j := i + 1
			for j < len(rs) && rs[j] != ']' {
				j++
			}
			if j == len(rs) {
				return nil, ErrUnterminated
			}
			tokens = append(tokens, token{kind: tokenIdentifier, text: string(rs[i+1 : j])})
			i = j + 1

		case r == ';':
			tokens = append(tokens, token{kind: tokenSemicolon, text: ";"})
			i++

		case r == '_' || unicode.IsLetter(r):
			j := i + 1
			for j < len(rs) && (rs[j] == '_' || rs[j] == '$' || unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j])) {
				j++
			}
			tokens = append(tokens, token{kind: tokenWord, text: string(rs[i:j])})
			i = j

		default:
			tokens = append(tokens, token{kind: tokenOther, text: string(r)})
			i++
		}
	}
	return tokens, nil
}

// readQuoted reads a quoted run starting at rs[start] == quote. A doubled
// quote is an escaped quote character.
func readQuoted(rs []rune, start int, quote rune) (string, int, bool) {
	var b strings.Builder
	for i := start + 1; i < len(rs); i++ {
		if rs[i] != quote {
			b.WriteRune(rs[i])
			continue
		}
		if i+1 < len(rs) && rs[i+1] == quote {
			b.WriteRune(quote)
			i++
			continue
		}
		return b.String(), i + 1, true
	}
	return "", 0, false
}
