package template

import (
	"testing"

	"daogen/internal/sqlutil"

	"github.com/stretchr/testify/assert"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeEntityRefs(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		entity string
		alias  string
		text   string
	}{
		{name: "bare", query: "@test", entity: "test", text: "@test"},
		{name: "implicit alias", query: "@test t WHERE", entity: "test", alias: "t", text: "@test t"},
		{name: "explicit AS", query: "@test AS t ON", entity: "test", alias: "t", text: "@test AS t"},
		{name: "lowercase as", query: "@test as t", entity: "test", alias: "t", text: "@test as t"},
		{name: "ON is not an alias", query: "@test ON x = y", entity: "test", text: "@test"},
		{name: "WHERE is not an alias", query: "@test WHERE id = 1", entity: "test", text: "@test"},
		{name: "JOIN is not an alias", query: "@test LEFT JOIN", entity: "test", text: "@test"},
		{name: "quoted entity", query: `@"Order Items" oi`, entity: "Order Items", alias: "oi", text: `@"Order Items" oi`},
		{name: "quoted alias may be a keyword", query: `@test "order"`, entity: "test", alias: "order", text: `@test "order"`},
		{name: "newline separated alias", query: "@test\n\tt", entity: "test", alias: "t", text: "@test\n\tt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.query, sqlutil.Postgres)
			if assert.NotEmpty(t, tokens) {
				tok := tokens[0]
				assert.Equal(t, EntityRef, tok.Kind)
				assert.Equal(t, tt.entity, tok.Entity)
				assert.Equal(t, tt.alias, tok.Alias)
				assert.Equal(t, tt.text, tok.Text)
			}
		})
	}
}

func TestTokenizeColumnRefs(t *testing.T) {
	tokens := Tokenize("SELECT @t.*, @t.name, @:t.id FROM x", sqlutil.Postgres)
	assert.Equal(t, []TokenKind{Literal, ColumnRef, Literal, ColumnRef, Literal, ColumnRef, Literal}, kinds(tokens))

	assert.Equal(t, Token{Kind: ColumnRef, Text: "@t.*", Alias: "t", Column: Wildcard}, tokens[1])
	assert.Equal(t, Token{Kind: ColumnRef, Text: "@t.name", Alias: "t", Column: "name"}, tokens[3])
	assert.Equal(t, Token{Kind: ColumnRef, Text: "@:t.id", Alias: "t", Column: "id", Direct: true}, tokens[5])
}

func TestTokenizeSkipsQuotedRegions(t *testing.T) {
	tests := []struct {
		name    string
		dialect sqlutil.Dialect
		query   string
	}{
		{name: "single quoted", dialect: sqlutil.Postgres, query: "SELECT '@test ? :name'"},
		{name: "double quoted identifier", dialect: sqlutil.Postgres, query: `SELECT "@test?"`},
		{name: "backtick identifier", dialect: sqlutil.MySQL, query: "SELECT `@test?`"},
		{name: "line comment", dialect: sqlutil.Postgres, query: "SELECT 1 -- @test ?\n"},
		{name: "hash comment", dialect: sqlutil.MySQL, query: "SELECT 1 # @test ?\n"},
		{name: "block comment", dialect: sqlutil.Postgres, query: "SELECT /* @t.* :p */ 1"},
		{name: "dollar quoted", dialect: sqlutil.Postgres, query: "SELECT $$ @test ? $$"},
		{name: "tagged dollar quote", dialect: sqlutil.Postgres, query: "SELECT $fn$ '@test' ? $fn$"},
		{name: "doubled quote inside string", dialect: sqlutil.Postgres, query: "SELECT 'it''s @test ?'"},
		{name: "mysql backslash escape", dialect: sqlutil.MySQL, query: `SELECT 'a\' @test ?'`},
		{name: "postgres escape string", dialect: sqlutil.Postgres, query: `SELECT E'it\'s @test ?'`},
		{name: "lower-case escape prefix", dialect: sqlutil.Postgres, query: `SELECT e'\\' || '@t.*'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.query, tt.dialect)
			assert.Equal(t, []TokenKind{Literal}, kinds(tokens))
			assert.Equal(t, tt.query, tokens[0].Text)
		})
	}
}

func TestTokenizePlaceholders(t *testing.T) {
	tokens := Tokenize("a = ? AND b ?? 'k' AND c = :c AND d::int = $1", sqlutil.Postgres)
	assert.Equal(t, []TokenKind{Literal, Placeholder, Literal, NamedParam, Literal}, kinds(tokens))
	assert.Equal(t, " AND b ? 'k' AND c = ", tokens[2].Text)
	assert.Equal(t, "c", tokens[3].Name)
	assert.Equal(t, " AND d::int = $1", tokens[4].Text)
}

func TestTokenizeEscapeStringEndsAtUnescapedQuote(t *testing.T) {
	tokens := Tokenize(`SELECT E'it\'s', @t.* FROM @test t`, sqlutil.Postgres)
	assert.Equal(t, []TokenKind{Literal, ColumnRef, Literal, EntityRef}, kinds(tokens))
	assert.Equal(t, `SELECT E'it\'s', `, tokens[0].Text)

	// Outside an E'' string a Postgres backslash is an ordinary character.
	tokens = Tokenize(`SELECT 'a\', @t.* FROM @test t`, sqlutil.Postgres)
	assert.Equal(t, []TokenKind{Literal, ColumnRef, Literal, EntityRef}, kinds(tokens))

	// A name ending in e is not an escape prefix.
	tokens = Tokenize(`SELECT name'x\', @t.*`, sqlutil.Postgres)
	assert.Equal(t, []TokenKind{Literal, ColumnRef}, kinds(tokens))
}

func TestTokenizeArraySliceIsNotNamedParam(t *testing.T) {
	for _, q := range []string{"SELECT tags[lo:hi] FROM t", "SELECT tags[1:n]", "SELECT (f(x))[a:b]"} {
		tokens := Tokenize(q, sqlutil.Postgres)
		assert.Equal(t, []TokenKind{Literal}, kinds(tokens), q)
		assert.Equal(t, q, tokens[0].Text)
	}

	tokens := Tokenize("WHERE id=:id AND x IN (:a)", sqlutil.Postgres)
	assert.Equal(t, []TokenKind{Literal, NamedParam, Literal, NamedParam, Literal}, kinds(tokens))
}

func TestTokenizeLeavesOperatorsAlone(t *testing.T) {
	for _, q := range []string{"SELECT @@version", "a @> b", "SELECT @ 5", "x := 1"} {
		tokens := Tokenize(q, sqlutil.MySQL)
		assert.Equal(t, []TokenKind{Literal}, kinds(tokens), q)
	}
}

func TestReadDollarTag(t *testing.T) {
	tag, ok := readDollarTag("$$ body")
	assert.True(t, ok)
	assert.Equal(t, "$$", tag)

	tag, ok = readDollarTag("$body$ x")
	assert.True(t, ok)
	assert.Equal(t, "$body$", tag)

	_, ok = readDollarTag("$1 AND")
	assert.False(t, ok)
}

func TestIsReservedAlias(t *testing.T) {
	assert.True(t, IsReservedAlias("on"))
	assert.True(t, IsReservedAlias("Where"))
	assert.False(t, IsReservedAlias("t"))
}
