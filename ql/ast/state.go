// Package ast implements the BlueQL parser: a
// hand-written recursive-descent walk over a pre-lexed token slice, using
// an explicit cursor and a sticky poison flag instead of backtracking or
// error propagation through every call frame.
package ast

import (
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/ql/lexer"
)

// state is the parser's cursor over a token slice. Once poisoned, every
// further read degrades to a no-op and the statement is abandoned; the
// caller surfaces the first error recorded.
type state struct {
	toks    []lexer.Token
	pos     int
	poison  bool
	lastErr error
}

func newState(toks []lexer.Token) *state {
	return &state{toks: toks}
}

func (s *state) okay() bool { return !s.poison }

func (s *state) poisonWith(err error) {
	if !s.poison {
		s.poison = true
		s.lastErr = err
	}
}

func (s *state) poisonIfNot(cond bool, err error) {
	if !cond {
		s.poisonWith(err)
	}
}

func (s *state) exhausted() bool { return s.pos >= len(s.toks) }

func (s *state) remaining() int { return len(s.toks) - s.pos }

func (s *state) hasRemaining(n int) bool { return s.remaining() >= n }

// peek returns the token at the cursor without advancing. Panics if
// exhausted; callers must check hasRemaining/exhausted first.
func (s *state) peek() lexer.Token { return s.toks[s.pos] }

// advance moves the cursor forward by one.
func (s *state) advance() { s.pos++ }

// fwRead returns the token at the cursor and advances past it.
func (s *state) fwRead() lexer.Token {
	t := s.toks[s.pos]
	s.pos++
	return t
}

// cursorEqKeyword reports whether the current token is exactly keyword k,
// without consuming it.
func (s *state) cursorEqKeyword(k lexer.Keyword) bool {
	return !s.exhausted() && s.toks[s.pos].IsKeyword(k)
}

// cursorEqSymbol reports whether the current token is exactly symbol sym,
// without consuming it.
func (s *state) cursorEqSymbol(sym lexer.Symbol) bool {
	return !s.exhausted() && s.toks[s.pos].IsSymbol(sym)
}

// expectKeyword poisons unless the current token is k, then advances.
func (s *state) expectKeyword(k lexer.Keyword) {
	if !s.cursorEqKeyword(k) {
		s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "expected keyword not found"))
		return
	}
	s.advance()
}

// expectSymbol poisons unless the current token is sym, then advances.
func (s *state) expectSymbol(sym lexer.Symbol) {
	if !s.cursorEqSymbol(sym) {
		s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "expected symbol not found"))
		return
	}
	s.advance()
}

// readIdent consumes an identifier token, poisoning if the cursor isn't
// one.
func (s *state) readIdent() string {
	if s.exhausted() || s.toks[s.pos].Kind != lexer.TokIdentifier {
		s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "expected identifier"))
		return ""
	}
	id := s.toks[s.pos].Ident
	s.advance()
	return id
}

// finish returns the parser's terminal result: either the first poisoning
// error, or nil if the statement consumed every token without incident.
func (s *state) finish() error {
	if s.poison {
		if s.lastErr != nil {
			return s.lastErr
		}
		return ferr.New(ferr.QLInvalidSyntax, "malformed statement")
	}
	if !s.exhausted() {
		return ferr.New(ferr.QLInvalidSyntax, "trailing tokens after statement")
	}
	return nil
}
