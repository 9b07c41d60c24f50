package parser

import "testing"

func TestLexerStringLiteral(t *testing.T) {
	l := NewLexer("'hello world'")
	tok := l.NextToken()
	if tok.Type != TokenStrLit {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	if tok.Literal != "hello world" {
		t.Fatalf("expected hello world, got %q", tok.Literal)
	}
	if l.NextToken().Type != TokenEOF {
		t.Fatal("expected EOF")
	}
}

func TestLexerStringQuoteEscape(t *testing.T) {
	l := NewLexer("'it''s'")
	tok := l.NextToken()
	if tok.Type != TokenStrLit {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	if tok.Literal != "it's" {
		t.Fatalf("expected it's, got %q", tok.Literal)
	}
}

func TestLexerStringBackslashIsLiteral(t *testing.T) {
	// standard_conforming_strings: backslash has no special meaning.
	l := NewLexer(`'a\nb\'`)
	tok := l.NextToken()
	if tok.Type != TokenStrLit {
		t.Fatalf("expected STRING, got %s", tok.Type)
	}
	if tok.Literal != `a\nb\` {
		t.Fatalf("expected a\\nb\\, got %q", tok.Literal)
	}
}

func TestLexerParam(t *testing.T) {
	l := NewLexer("$1 $42")
	tok := l.NextToken()
	if tok.Type != TokenParam || tok.Literal != "1" {
		t.Fatalf("expected PARAM 1, got %s %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != TokenParam || tok.Literal != "42" {
		t.Fatalf("expected PARAM 42, got %s %q", tok.Type, tok.Literal)
	}
}

func TestLexerBareDollarIsIllegal(t *testing.T) {
	l := NewLexer("$")
	if tok := l.NextToken(); tok.Type != TokenIllegal {
		t.Fatalf("expected ILLEGAL, got %s", tok.Type)
	}
}

func TestLexerDoubleColon(t *testing.T) {
	l := NewLexer("$1::text")
	tests := []struct {
		typ TokenType
		lit string
	}{
		{TokenParam, "1"},
		{TokenDoubleColon, "::"},
		{TokenIdent, "text"},
		{TokenEOF, ""},
	}
	for _, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.typ {
			t.Fatalf("expected %s, got %s (literal %q)", tt.typ, tok.Type, tok.Literal)
		}
		if tt.lit != "" && tok.Literal != tt.lit {
			t.Fatalf("expected %q, got %q", tt.lit, tok.Literal)
		}
	}
}

func TestLexerFloatLiteral(t *testing.T) {
	l := NewLexer("3.14 1e10 .5E+2")
	for _, want := range []string{"3.14", "1e10", ".5E+2"} {
		tok := l.NextToken()
		if tok.Type != TokenFloatLit {
			t.Fatalf("expected FLOAT for %q, got %s", want, tok.Type)
		}
		if tok.Literal != want {
			t.Fatalf("expected %q, got %q", want, tok.Literal)
		}
	}
}

func TestLexerConcatOperator(t *testing.T) {
	l := NewLexer("'a' || 'b'")
	l.NextToken() // 'a'
	tok := l.NextToken()
	if tok.Type != TokenConcat {
		t.Fatalf("expected ||, got %s", tok.Type)
	}
}

func TestLexerKeywords(t *testing.T) {
	l := NewLexer("select union all begin start transaction commit end rollback current_timestamp")
	want := []TokenType{
		TokenSelect, TokenUnion, TokenAll, TokenBegin, TokenStart,
		TokenTransaction, TokenCommit, TokenEnd, TokenRollback, TokenCurrentTimestamp,
	}
	for _, w := range want {
		tok := l.NextToken()
		if tok.Type != w {
			t.Fatalf("expected %s, got %s (literal %q)", w, tok.Type, tok.Literal)
		}
	}
}

func TestLexerComments(t *testing.T) {
	l := NewLexer("SELECT /* block /* nested */ */ 1 -- trailing")
	if tok := l.NextToken(); tok.Type != TokenSelect {
		t.Fatalf("expected SELECT, got %s", tok.Type)
	}
	if tok := l.NextToken(); tok.Type != TokenIntLit || tok.Literal != "1" {
		t.Fatalf("expected INT 1, got %s %q", tok.Type, tok.Literal)
	}
	if l.NextToken().Type != TokenEOF {
		t.Fatal("expected EOF")
	}
}
