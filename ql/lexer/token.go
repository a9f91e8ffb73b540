// Package lexer implements the BlueQL tokenizer: keywords, symbols, identifiers, and literals, in both insecure
// (inline literals) and secure (out-of-band parameters) modes.
package lexer

import "github.com/driftdb/driftdb/gns"

// TokenKind discriminates the four token classes.
type TokenKind uint8

const (
	TokKeyword TokenKind = iota
	TokSymbol
	TokIdentifier
	TokLiteral
)

// Literal is a parsed literal value, tagged the same way a Datacell is.
type Literal struct {
	Kind gns.LayerKind
	// one of the following is meaningful, selected by Kind
	Bool  bool
	UInt  uint64
	SInt  int64
	Float float64
	Bytes []byte
	Null  bool
}

// Token is one lexical unit of a BlueQL source string.
type Token struct {
	Kind    TokenKind
	Keyword Keyword
	Symbol  Symbol
	Ident   string
	Literal Literal
}

func keywordToken(k Keyword) Token   { return Token{Kind: TokKeyword, Keyword: k} }
func symbolToken(s Symbol) Token     { return Token{Kind: TokSymbol, Symbol: s} }
func identToken(id string) Token     { return Token{Kind: TokIdentifier, Ident: id} }
func literalToken(l Literal) Token   { return Token{Kind: TokLiteral, Literal: l} }

// IsKeyword reports whether t is the given keyword.
func (t Token) IsKeyword(k Keyword) bool { return t.Kind == TokKeyword && t.Keyword == k }

// IsSymbol reports whether t is the given symbol.
func (t Token) IsSymbol(s Symbol) bool { return t.Kind == TokSymbol && t.Symbol == s }
