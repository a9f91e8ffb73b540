package ast

import (
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/ql/lexer"
)

// Entity names a model, optionally qualified by its owning space:
// `ident ('.' ident)?`.
type Entity struct {
	Space string // empty when unqualified; caller supplies the current space
	Model string
}

// Qualified reports whether the entity carried an explicit space prefix.
func (e Entity) Qualified() bool { return e.Space != "" }

func parseEntity(s *state) Entity {
	first := s.readIdent()
	if !s.okay() {
		return Entity{}
	}
	if s.cursorEqSymbol(lexer.SymDot) {
		s.advance()
		second := s.readIdent()
		return Entity{Space: first, Model: second}
	}
	return Entity{Model: first}
}

// parseTypeExpr parses `scalar_type | 'list' '<' type_expr '>'`.
// List nesting is capped at depth 2, matching the bound the model-code
// wire encoding can express.
const maxTypeExprListDepth = 2

var scalarTypeNames = map[string]scalarTypeTok{
	"bool":    {kind: scBool},
	"uint8":   {kind: scUInt, width: 8},
	"uint16":  {kind: scUInt, width: 16},
	"uint32":  {kind: scUInt, width: 32},
	"uint64":  {kind: scUInt, width: 64},
	"sint8":   {kind: scSInt, width: 8},
	"sint16":  {kind: scSInt, width: 16},
	"sint32":  {kind: scSInt, width: 32},
	"sint64":  {kind: scSInt, width: 64},
	"float32": {kind: scFloat, width: 32},
	"float64": {kind: scFloat, width: 64},
	"binary":  {kind: scBin},
	"string":  {kind: scStr},
}

type scalarKindTok uint8

const (
	scBool scalarKindTok = iota
	scUInt
	scSInt
	scFloat
	scBin
	scStr
)

type scalarTypeTok struct {
	kind  scalarKindTok
	width int
}

func parseTypeExpr(s *state, depth int) TypeExprNode {
	if s.exhausted() {
		s.poisonWith(ferr.New(ferr.QLInvalidTypeDefinitionSyntax, "unexpected end of type expression"))
		return TypeExprNode{}
	}
	if s.peek().Kind == lexer.TokKeyword && s.peek().Keyword == lexer.KwList {
		if depth+1 > maxTypeExprListDepth {
			s.poisonWith(ferr.New(ferr.QLInvalidTypeDefinitionSyntax, "list nesting exceeds the maximum depth of 2"))
			return TypeExprNode{}
		}
		s.advance()
		s.expectSymbol(lexer.SymLAngle)
		inner := parseTypeExpr(s, depth+1)
		s.expectSymbol(lexer.SymRAngle)
		if !s.okay() {
			return TypeExprNode{}
		}
		return TypeExprNode{IsList: true, Inner: &inner}
	}
	if s.peek().Kind != lexer.TokIdentifier {
		s.poisonWith(ferr.New(ferr.QLInvalidTypeDefinitionSyntax, "expected a scalar type name or 'list'"))
		return TypeExprNode{}
	}
	name := s.peek().Ident
	sc, ok := scalarTypeNames[name]
	if !ok {
		s.poisonWith(ferr.Newf(ferr.QLInvalidTypeDefinitionSyntax, "unknown scalar type %q", name))
		return TypeExprNode{}
	}
	s.advance()
	return TypeExprNode{Scalar: sc}
}

// TypeExprNode is the parser's recursive type-expression tree, later
// flattened into a gns.TypeExpr layer list by the statement's binder.
type TypeExprNode struct {
	IsList bool
	Inner  *TypeExprNode
	Scalar scalarTypeTok
}
