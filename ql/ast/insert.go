package ast

import (
	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/ql/lexer"
)

// InsertStatement is `insert into entity (v1, v2, ...)` or
// `insert into entity { field: v1, ... }`.
type InsertStatement struct {
	Entity Entity
	// Exactly one of Tuple/Map is non-nil, selected by the syntax used.
	Tuple []gns.Datacell
	Map   map[string]gns.Datacell
}

func parseInsert(s *state) (*InsertStatement, error) {
	s.expectKeyword(lexer.KwInto)
	entity := parseEntity(s)
	if !s.okay() {
		return nil, s.finish()
	}
	stmt := &InsertStatement{Entity: entity}
	if s.exhausted() {
		s.poisonWith(ferr.New(ferr.QLUnexpectedEndOfStatement, "insert missing value list"))
		return nil, s.finish()
	}
	switch {
	case s.cursorEqSymbol(lexer.SymLParen):
		stmt.Tuple = parseDataTuple(s)
	case s.cursorEqSymbol(lexer.SymLBrace):
		stmt.Map = parseDataMap(s)
	default:
		s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "expected '(' or '{' after insert entity"))
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseDataTuple parses `(v1, v2, ...)`.
func parseDataTuple(s *state) []gns.Datacell {
	s.expectSymbol(lexer.SymLParen)
	var data []gns.Datacell
	for s.okay() && !s.cursorEqSymbol(lexer.SymRParen) {
		data = append(data, parseValueExpr(s))
		if !s.okay() {
			return nil
		}
		if s.cursorEqSymbol(lexer.SymComma) {
			s.advance()
			continue
		}
		break
	}
	s.expectSymbol(lexer.SymRParen)
	return data
}

// parseDataMap parses `{ field: v1, other: v2, ... }`.
func parseDataMap(s *state) map[string]gns.Datacell {
	s.expectSymbol(lexer.SymLBrace)
	data := make(map[string]gns.Datacell)
	for s.okay() && !s.cursorEqSymbol(lexer.SymRBrace) {
		name := s.readIdent()
		s.expectSymbol(lexer.SymColon)
		if !s.okay() {
			return nil
		}
		v := parseValueExpr(s)
		if !s.okay() {
			return nil
		}
		if _, dup := data[name]; dup {
			s.poisonWith(ferr.Newf(ferr.QLInvalidSyntax, "field %q specified more than once", name))
			return nil
		}
		data[name] = v
		if s.cursorEqSymbol(lexer.SymComma) {
			s.advance()
			continue
		}
		break
	}
	s.expectSymbol(lexer.SymRBrace)
	return data
}

// Bind resolves the statement's values against m's field order, filling in
// Null cells with their declared field kind and returning a positional
// cell slice in field-insertion order (the order of m.Fields.Names()).
func (st *InsertStatement) Bind(m *gns.Model) ([]gns.Datacell, error) {
	names := m.Fields.Names()
	out := make([]gns.Datacell, len(names))
	switch {
	case st.Tuple != nil:
		if len(st.Tuple) != len(names) {
			return nil, ferr.Newf(ferr.QLInvalidSyntax, "expected %d values, got %d", len(names), len(st.Tuple))
		}
		for i, name := range names {
			f, _ := m.Fields.Get(name)
			out[i] = bindCell(st.Tuple[i], f)
		}
	case st.Map != nil:
		if len(st.Map) != len(names) {
			return nil, ferr.New(ferr.QLInvalidSyntax, "insert map must supply every field")
		}
		for i, name := range names {
			f, _ := m.Fields.Get(name)
			v, ok := st.Map[name]
			if !ok {
				return nil, ferr.Newf(ferr.QLInvalidSyntax, "missing field %q", name)
			}
			out[i] = bindCell(v, f)
		}
	default:
		return nil, ferr.New(ferr.QLInvalidSyntax, "insert statement carries no values")
	}
	return out, nil
}

// bindCell fixes up a parsed Null cell's declared kind to match the
// target field (the parser itself has no schema context to do this).
func bindCell(v gns.Datacell, f gns.Field) gns.Datacell {
	if v.Null {
		return gns.NewNull(f.Layers.ScalarKind())
	}
	return v
}
