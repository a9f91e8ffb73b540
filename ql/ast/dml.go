package ast

import (
	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/ql/lexer"
)

// WhereClause constrains a select/update/delete to a single row by primary
// key equality: `where pk_field = value`. BlueQL's storage model resolves
// all three DML forms through the primary index, so a
// single equality predicate on the primary key is the only form needed;
// there is no secondary index to plan a richer predicate against.
type WhereClause struct {
	Field string
	Value gns.Datacell
}

func parseWhere(s *state) WhereClause {
	s.expectKeyword(lexer.KwWhere)
	field := s.readIdent()
	s.expectSymbol(lexer.SymEquals)
	if !s.okay() {
		return WhereClause{}
	}
	v := parseValueExpr(s)
	return WhereClause{Field: field, Value: v}
}

// SelectStatement is `select ('*' | ident (',' ident)*) 'from' entity
// 'where' pk '=' value`.
type SelectStatement struct {
	Entity  Entity
	AllCols bool
	Columns []string
	Where   WhereClause
}

func parseSelect(s *state) (*SelectStatement, error) {
	stmt := &SelectStatement{}
	if s.cursorEqSymbol(lexer.SymAsterisk) {
		s.advance()
		stmt.AllCols = true
	} else {
		for {
			stmt.Columns = append(stmt.Columns, s.readIdent())
			if !s.okay() {
				return nil, s.finish()
			}
			if s.cursorEqSymbol(lexer.SymComma) {
				s.advance()
				continue
			}
			break
		}
	}
	s.expectKeyword(lexer.KwFrom)
	stmt.Entity = parseEntity(s)
	stmt.Where = parseWhere(s)
	if err := s.finish(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// UpdateStatement is `update entity 'set' ident '=' value (',' ident '='
// value)* 'where' pk '=' value`.
type UpdateStatement struct {
	Entity  Entity
	Assigns map[string]gns.Datacell
	Where   WhereClause
}

func parseUpdate(s *state) (*UpdateStatement, error) {
	stmt := &UpdateStatement{Entity: parseEntity(s), Assigns: map[string]gns.Datacell{}}
	s.expectKeyword(lexer.KwSet)
	if !s.okay() {
		return nil, s.finish()
	}
	for {
		name := s.readIdent()
		s.expectSymbol(lexer.SymEquals)
		if !s.okay() {
			return nil, s.finish()
		}
		v := parseValueExpr(s)
		if !s.okay() {
			return nil, s.finish()
		}
		if _, dup := stmt.Assigns[name]; dup {
			s.poisonWith(ferr.Newf(ferr.QLInvalidSyntax, "field %q assigned more than once", name))
			return nil, s.finish()
		}
		stmt.Assigns[name] = v
		if s.cursorEqSymbol(lexer.SymComma) {
			s.advance()
			continue
		}
		break
	}
	stmt.Where = parseWhere(s)
	if err := s.finish(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// DeleteStatement is `delete 'from' entity 'where' pk '=' value`.
type DeleteStatement struct {
	Entity Entity
	Where  WhereClause
}

func parseDelete(s *state) (*DeleteStatement, error) {
	s.expectKeyword(lexer.KwFrom)
	entity := parseEntity(s)
	where := parseWhere(s)
	if err := s.finish(); err != nil {
		return nil, err
	}
	return &DeleteStatement{Entity: entity, Where: where}, nil
}
