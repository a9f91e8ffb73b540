package ast

import (
	"time"

	"github.com/google/uuid"

	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/ql/lexer"
)

// literalToDatacell converts a lexed literal into its storage cell. The
// lexer and the in-memory model share the same LayerKind enumeration, so
// no translation table is needed beyond the float-bits repack.
func literalToDatacell(lit lexer.Literal) gns.Datacell {
	switch lit.Kind {
	case gns.LayerBool:
		return gns.NewBool(lit.Bool)
	case gns.LayerUInt64:
		return gns.NewUInt(gns.LayerUInt64, lit.UInt)
	case gns.LayerSInt64:
		return gns.NewSInt(gns.LayerSInt64, lit.SInt)
	case gns.LayerFloat64:
		return gns.NewFloat64(lit.Float)
	case gns.LayerBin:
		return gns.NewBin(lit.Bytes)
	case gns.LayerStr:
		return gns.NewStr(lit.Bytes)
	default:
		return gns.NewNull(lit.Kind)
	}
}

// producerFn is a zero-argument value generator invocable as `@name()`
// inside insert/update value expressions.
type producerFn func() gns.Datacell

var producers = map[string]producerFn{
	"uuidstr": func() gns.Datacell {
		return gns.NewStr([]byte(uuid.New().String()))
	},
	"uuidbin": func() gns.Datacell {
		id := uuid.New()
		return gns.NewBin(append([]byte(nil), id[:]...))
	},
	"timesec": func() gns.Datacell {
		return gns.NewUInt(gns.LayerUInt64, uint64(time.Now().Unix()))
	},
}

// parseValueExpr parses one value position: a literal, `null`, a `[...]`
// list, or a `@producer()` call.
func parseValueExpr(s *state) gns.Datacell {
	if s.exhausted() {
		s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "expected a value"))
		return gns.Datacell{}
	}
	tok := s.peek()
	switch {
	case tok.Kind == lexer.TokLiteral:
		s.advance()
		return literalToDatacell(tok.Literal)
	case tok.IsKeyword(lexer.KwNull):
		s.advance()
		return gns.NewNull(gns.LayerStr)
	case tok.IsSymbol(lexer.SymLBracket):
		return parseListExpr(s)
	case tok.IsSymbol(lexer.SymAt):
		return parseProducerCall(s)
	default:
		s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "unrecognized value expression"))
		return gns.Datacell{}
	}
}

// parseListExpr parses `[v1, v2, ...]`, requiring every element to share
// the first element's tag.
func parseListExpr(s *state) gns.Datacell {
	s.expectSymbol(lexer.SymLBracket)
	var elems []gns.Datacell
	for s.okay() && !s.cursorEqSymbol(lexer.SymRBracket) {
		v := parseValueExpr(s)
		if !s.okay() {
			return gns.Datacell{}
		}
		if len(elems) > 0 && elems[0].Tag != v.Tag {
			s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "list elements must share one type"))
			return gns.Datacell{}
		}
		elems = append(elems, v)
		if s.cursorEqSymbol(lexer.SymComma) {
			s.advance()
			continue
		}
		break
	}
	s.expectSymbol(lexer.SymRBracket)
	if !s.okay() {
		return gns.Datacell{}
	}
	return gns.NewList(elems)
}

// parseProducerCall parses `@name()`.
func parseProducerCall(s *state) gns.Datacell {
	s.expectSymbol(lexer.SymAt)
	name := s.readIdent()
	s.expectSymbol(lexer.SymLParen)
	s.expectSymbol(lexer.SymRParen)
	if !s.okay() {
		return gns.Datacell{}
	}
	fn, ok := producers[name]
	if !ok {
		s.poisonWith(ferr.Newf(ferr.QLInvalidSyntax, "unknown producer function %q", name))
		return gns.Datacell{}
	}
	return fn()
}
