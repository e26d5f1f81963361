package template

import (
	"strings"

	"daogen/internal/sqlutil"
)

// TokenKind classifies a lexed token.
type TokenKind int

const (
	// Literal is query text passed through unchanged.
	Literal TokenKind = iota
	// EntityRef is @entity [AS] [alias].
	EntityRef
	// ColumnRef is @alias.* , @alias.column or @:alias.column.
	ColumnRef
	// Placeholder is a bare ?.
	Placeholder
	// NamedParam is :name.
	NamedParam
)

func (k TokenKind) String() string {
	switch k {
	case EntityRef:
		return "entity"
	case ColumnRef:
		return "column"
	case Placeholder:
		return "placeholder"
	case NamedParam:
		return "param"
	default:
		return "literal"
	}
}

// Wildcard is the Column of a ColumnRef that selects every column.
const Wildcard = "*"

// Token is one lexed unit. Text always holds the source text, so any token
// can be emitted verbatim.
type Token struct {
	Kind   TokenKind
	Text   string
	Entity string
	Alias  string
	Column string
	Direct bool
	Name   string
}

// reservedAliases are words that follow an entity reference without naming
// an alias for it.
var reservedAliases = map[string]struct{}{
	"ON": {}, "WHERE": {}, "JOIN": {}, "INNER": {}, "LEFT": {}, "RIGHT": {},
	"FULL": {}, "OUTER": {}, "CROSS": {}, "NATURAL": {}, "STRAIGHT_JOIN": {},
	"GROUP": {}, "ORDER": {}, "LIMIT": {}, "OFFSET": {}, "FETCH": {},
	"HAVING": {}, "WINDOW": {}, "UNION": {}, "INTERSECT": {}, "EXCEPT": {},
	"USING": {}, "SET": {}, "VALUES": {}, "RETURNING": {}, "FOR": {},
	"LATERAL": {}, "AND": {}, "OR": {}, "NOT": {}, "FROM": {}, "SELECT": {},
	"INTO": {}, "WITH": {}, "AS": {}, "DEFAULT": {}, "TABLESAMPLE": {},
}

// IsReservedAlias reports whether word can never serve as an entity alias.
func IsReservedAlias(word string) bool {
	_, ok := reservedAliases[strings.ToUpper(word)]
	return ok
}

const (
	sText = iota
	sSingleQuote
	sEscapeString
	sDoubleQuote
	sBacktick
	sLineComment
	sBlockComment
	sDollarQuote
)

type lexer struct {
	q       string
	dialect sqlutil.Dialect
	tokens  []Token
	lit     strings.Builder
}

// Tokenize splits query text into tokens. Quoted strings, quoted identifiers,
// comments and dollar-quoted blocks are always literal.
func Tokenize(q string, dialect sqlutil.Dialect) []Token {
	l := &lexer{q: q, dialect: dialect}
	l.run()
	return l.tokens
}

func (l *lexer) run() {
	q := l.q
	state := sText
	var dollarTag string

	for i := 0; i < len(q); {
		c := q[i]
		switch state {
		case sText:
			if next, n, tag, ok := l.enterSpecial(i); ok {
				l.lit.WriteString(q[i:n])
				state, i, dollarTag = next, n, tag
				continue
			}
			switch {
			case c == '@':
				if tok, n, ok := l.readRef(i); ok {
					l.emit(tok)
					i = n
					continue
				}
				// @@system_var and operators such as @> stay literal.
				if i+1 < len(q) && q[i+1] == '@' {
					l.lit.WriteString("@@")
					i += 2
					continue
				}
			case c == '?':
				if i+1 < len(q) && q[i+1] == '?' {
					l.lit.WriteByte('?')
					i += 2
					continue
				}
				l.emit(Token{Kind: Placeholder, Text: "?"})
				i++
				continue
			case c == ':':
				if i+1 < len(q) && q[i+1] == ':' {
					l.lit.WriteString("::")
					i += 2
					continue
				}
				// Array slices such as tags[lo:hi] are not parameters.
				if i > 0 && (isIdentPart(q[i-1]) || q[i-1] == ']' || q[i-1] == ')') {
					break
				}
				if name, n, ok := readIdent(q, i+1); ok {
					l.emit(Token{Kind: NamedParam, Text: q[i:n], Name: name})
					i = n
					continue
				}
			}
			l.lit.WriteByte(c)
			i++

		case sSingleQuote, sEscapeString, sDoubleQuote, sBacktick:
			quote := closingQuote(state)
			if c == '\\' && (state == sEscapeString || (state != sBacktick && l.dialect == sqlutil.MySQL)) {
				l.lit.WriteByte(c)
				i++
				if i < len(q) {
					l.lit.WriteByte(q[i])
					i++
				}
				continue
			}
			l.lit.WriteByte(c)
			i++
			if c == quote {
				if i < len(q) && q[i] == quote {
					l.lit.WriteByte(q[i])
					i++
				} else {
					state = sText
				}
			}

		case sLineComment:
			l.lit.WriteByte(c)
			i++
			if c == '\n' || c == '\r' {
				state = sText
			}

		case sBlockComment:
			l.lit.WriteByte(c)
			i++
			if c == '*' && i < len(q) && q[i] == '/' {
				l.lit.WriteByte('/')
				i++
				state = sText
			}

		case sDollarQuote:
			p := strings.Index(q[i:], dollarTag)
			if p < 0 {
				l.lit.WriteString(q[i:])
				i = len(q)
				continue
			}
			l.lit.WriteString(q[i : i+p+len(dollarTag)])
			i += p + len(dollarTag)
			state = sText
		}
	}
	l.flush()
}

func closingQuote(state int) byte {
	switch state {
	case sDoubleQuote:
		return '"'
	case sBacktick:
		return '`'
	default:
		return '\''
	}
}

func (l *lexer) flush() {
	if l.lit.Len() == 0 {
		return
	}
	l.tokens = append(l.tokens, Token{Kind: Literal, Text: l.lit.String()})
	l.lit.Reset()
}

func (l *lexer) emit(tok Token) {
	l.flush()
	l.tokens = append(l.tokens, tok)
}

// enterSpecial detects the opener of a quoted or comment region at i and
// returns the new state and the index just past the opener.
func (l *lexer) enterSpecial(i int) (state, next int, tag string, ok bool) {
	q := l.q
	c := q[i]
	switch {
	case c == '-' && i+1 < len(q) && q[i+1] == '-':
		return sLineComment, i + 2, "", true
	case c == '#' && l.dialect == sqlutil.MySQL:
		return sLineComment, i + 1, "", true
	case c == '/' && i+1 < len(q) && q[i+1] == '*':
		return sBlockComment, i + 2, "", true
	case c == '\'':
		if l.dialect == sqlutil.Postgres && isEscapePrefix(q, i) {
			return sEscapeString, i + 1, "", true
		}
		return sSingleQuote, i + 1, "", true
	case c == '"':
		return sDoubleQuote, i + 1, "", true
	case c == '`' && l.dialect != sqlutil.Postgres:
		return sBacktick, i + 1, "", true
	case c == '$' && l.dialect == sqlutil.Postgres:
		if tag, ok := readDollarTag(q[i:]); ok {
			return sDollarQuote, i + len(tag), tag, true
		}
	}
	return 0, 0, "", false
}

// isEscapePrefix reports whether the quote at i opens a Postgres E'...'
// string, where backslash escapes the next character.
func isEscapePrefix(q string, i int) bool {
	if i == 0 || (q[i-1] != 'E' && q[i-1] != 'e') {
		return false
	}
	return i == 1 || !isIdentPart(q[i-2])
}

// readDollarTag reads $$ or $tag$ at the start of s. $1 style bindvars are
// not tags.
func readDollarTag(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	if s[1] == '$' {
		return "$$", true
	}
	if !isIdentStart(s[1]) {
		return "", false
	}
	for j := 2; j < len(s); j++ {
		switch {
		case s[j] == '$':
			return s[:j+1], true
		case !isIdentPart(s[j]):
			return "", false
		}
	}
	return "", false
}

// readRef parses an entity or column reference starting at the @ at i.
func (l *lexer) readRef(i int) (Token, int, bool) {
	q := l.q
	j := i + 1
	direct := false
	if j < len(q) && q[j] == ':' {
		direct = true
		j++
	}

	first, j, ok := readName(q, j)
	if !ok {
		return Token{}, i, false
	}

	if j < len(q) && q[j] == '.' {
		if j+1 < len(q) && q[j+1] == '*' && !direct {
			return Token{Kind: ColumnRef, Text: q[i : j+2], Alias: first, Column: Wildcard}, j + 2, true
		}
		column, k, ok := readName(q, j+1)
		if !ok {
			return Token{}, i, false
		}
		return Token{Kind: ColumnRef, Text: q[i:k], Alias: first, Column: column, Direct: direct}, k, true
	}
	if direct {
		return Token{}, i, false
	}

	tok := Token{Kind: EntityRef, Entity: first}
	end := j
	k := skipSpace(q, j)
	if k > j {
		word, n, ok := readName(q, k)
		if ok && strings.EqualFold(word, "AS") && q[k] != '"' && q[k] != '`' {
			if m := skipSpace(q, n); m > n {
				if alias, n2, ok := readName(q, m); ok && !isReservedWord(q, m, alias) {
					tok.Alias, end = alias, n2
				}
			}
		} else if ok && !isReservedWord(q, k, word) {
			tok.Alias, end = word, n
		}
	}
	tok.Text = q[i:end]
	return tok, end, true
}

// isReservedWord treats only unquoted keywords as reserved.
func isReservedWord(q string, start int, word string) bool {
	if q[start] == '"' || q[start] == '`' {
		return false
	}
	return IsReservedAlias(word)
}

// readName reads a bare or quoted identifier at j and returns it unquoted.
func readName(q string, j int) (string, int, bool) {
	if j >= len(q) {
		return "", j, false
	}
	if quote := q[j]; quote == '"' || quote == '`' {
		var b strings.Builder
		for k := j + 1; k < len(q); k++ {
			if q[k] != quote {
				b.WriteByte(q[k])
				continue
			}
			if k+1 < len(q) && q[k+1] == quote {
				b.WriteByte(quote)
				k++
				continue
			}
			if b.Len() == 0 {
				return "", j, false
			}
			return b.String(), k + 1, true
		}
		return "", j, false
	}
	return readIdent(q, j)
}

func readIdent(q string, j int) (string, int, bool) {
	if j >= len(q) || !isIdentStart(q[j]) {
		return "", j, false
	}
	k := j + 1
	for k < len(q) && isIdentPart(q[k]) {
		k++
	}
	return q[j:k], k, true
}

func skipSpace(q string, j int) int {
	for j < len(q) && (q[j] == ' ' || q[j] == '\t' || q[j] == '\n' || q[j] == '\r') {
		j++
	}
	return j
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
