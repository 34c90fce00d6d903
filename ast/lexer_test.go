package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subc/ast"
	"subc/ccerr"
)

func kinds(toks []ast.Token) []ast.TokenKind {
	out := make([]ast.TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexer_Keywords(t *testing.T) {
	toks, err := ast.NewLexer("int void return if else while do for break continue switch case default goto").Lex()
	require.NoError(t, err)
	assert.Equal(t, []ast.TokenKind{
		ast.INT, ast.VOID, ast.RETURN, ast.IF, ast.ELSE, ast.WHILE, ast.DO, ast.FOR,
		ast.BREAK, ast.CONTINUE, ast.SWITCH, ast.CASE, ast.DEFAULT, ast.GOTO, ast.TK_EOF,
	}, kinds(toks))
}

func TestLexer_LongestMatchPunctuation(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []ast.TokenKind
	}{
		{"shift assign over shift", "<<=", []ast.TokenKind{ast.LEFT_SHIFT_ASSIGN, ast.TK_EOF}},
		{"shift over less-than", "<<", []ast.TokenKind{ast.LEFT_SHIFT, ast.TK_EOF}},
		{"less-or-equal over less-than", "<=", []ast.TokenKind{ast.LESS_OR_EQUAL, ast.TK_EOF}},
		{"less-than alone", "<", []ast.TokenKind{ast.LESS_THAN, ast.TK_EOF}},
		{"increment over plus", "++", []ast.TokenKind{ast.INCREMENT, ast.TK_EOF}},
		{"plus-assign over plus", "+=", []ast.TokenKind{ast.ADD_ASSIGN, ast.TK_EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := ast.NewLexer(tt.src).Lex()
			require.NoError(t, err)
			assert.Equal(t, tt.want, kinds(toks))
		})
	}
}

func TestLexer_IdentifierAndConstant(t *testing.T) {
	toks, err := ast.NewLexer("foo_bar 42").Lex()
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, ast.IDENTIFIER, toks[0].Kind)
	assert.Equal(t, "foo_bar", toks[0].Lexeme)
	assert.Equal(t, ast.CONSTANT, toks[1].Kind)
	assert.Equal(t, "42", toks[1].Lexeme)
}

func TestLexer_SkipsLineAndBlockComments(t *testing.T) {
	toks, err := ast.NewLexer("// a comment\nint /* block\ncomment */ x;").Lex()
	require.NoError(t, err)
	assert.Equal(t, []ast.TokenKind{ast.INT, ast.IDENTIFIER, ast.SEMICOLON, ast.TK_EOF}, kinds(toks))
}

func TestLexer_SkipsPreprocessorLines(t *testing.T) {
	toks, err := ast.NewLexer("#include <stdio.h>\nint x;\n#define FOO 1\nint y;").Lex()
	require.NoError(t, err)
	assert.Equal(t, []ast.TokenKind{
		ast.INT, ast.IDENTIFIER, ast.SEMICOLON,
		ast.INT, ast.IDENTIFIER, ast.SEMICOLON,
		ast.TK_EOF,
	}, kinds(toks))
}

func TestLexer_PreprocessorLineAtEOFWithNoTrailingNewline(t *testing.T) {
	toks, err := ast.NewLexer("int x;\n#include <stdio.h>").Lex()
	require.NoError(t, err)
	assert.Equal(t, []ast.TokenKind{ast.INT, ast.IDENTIFIER, ast.SEMICOLON, ast.TK_EOF}, kinds(toks))
}

func TestLexer_MalformedConstantIsLexicalError(t *testing.T) {
	_, err := ast.NewLexer("1foo").Lex()
	require.Error(t, err)
	var lexErr *ccerr.LexicalError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, "1foo", lexErr.Snippet)
}

func TestLexer_UnrecognizedByteIsLexicalError(t *testing.T) {
	_, err := ast.NewLexer("@").Lex()
	require.Error(t, err)
	var lexErr *ccerr.LexicalError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, "@", lexErr.Snippet)
}

func TestLexer_TracksLineAndColumn(t *testing.T) {
	toks, err := ast.NewLexer("int\nx").Lex()
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, 1, toks[0].Pos.Line)
	assert.Equal(t, 2, toks[1].Pos.Line)
	assert.Equal(t, 1, toks[1].Pos.Col)
	assert.Equal(t, 2, toks[2].Pos.Col)
}
