package ast

import (
	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/ql/lexer"
)

// FieldDef is one parsed `('primary'|'null')* ident ':' type_expr` entry
// from a create_model field list.
type FieldDef struct {
	Name     string
	Primary  bool
	Nullable bool
	Type     TypeExprNode
}

// CreateSpaceStatement is `create space ident ('with' dict)?`.
type CreateSpaceStatement struct {
	Name string
	With gns.Dict
}

// CreateModelStatement is `create model entity '(' field (',' field)+ ')'
// ('volatile')?`.
type CreateModelStatement struct {
	Entity   Entity
	Fields   []FieldDef
	Volatile bool
}

// DropSpaceStatement is `drop space ident ('force')?`.
type DropSpaceStatement struct {
	Name  string
	Force bool
}

// DropModelStatement is `drop model entity ('force')?`.
type DropModelStatement struct {
	Entity Entity
	Force  bool
}

// AlterSpaceStatement is `alter space ident 'with' dict`.
type AlterSpaceStatement struct {
	Name string
	With gns.Dict
}

// AlterKind discriminates the three alter-model sub-forms.
type AlterKind uint8

const (
	AlterAddField AlterKind = iota
	AlterRemoveField
	AlterUpdateField
)

// AlterModelStatement is `alter model entity ('add' field | 'remove' ident
// | 'update' field)`.
type AlterModelStatement struct {
	Entity Entity
	Kind   AlterKind
	Field  FieldDef // valid for Add/Update
	Remove string   // valid for Remove
}

// InspectTarget discriminates the three inspect sub-forms.
type InspectTarget uint8

const (
	InspectModel InspectTarget = iota
	InspectSpace
	InspectSpaces
)

// InspectStatement is `inspect ('model' entity? | 'space' ident? |
// 'spaces')`.
type InspectStatement struct {
	Target InspectTarget
	Entity Entity // valid for InspectModel
	Space  string // valid for InspectSpace
}

// UseStatement is `use ident`, selecting the default space for subsequent
// unqualified entities in the same session.
type UseStatement struct {
	Space string
}

func parseCreate(s *state) (any, error) {
	switch {
	case s.cursorEqKeyword(lexer.KwSpace):
		s.advance()
		name := s.readIdent()
		var with gns.Dict
		if s.cursorEqKeyword(lexer.KwWith) {
			s.advance()
			with = parseDictLiteral(s)
		}
		if err := s.finish(); err != nil {
			return nil, err
		}
		return &CreateSpaceStatement{Name: name, With: with}, nil
	case s.cursorEqKeyword(lexer.KwModel):
		s.advance()
		entity := parseEntity(s)
		fields := parseFieldList(s)
		volatile := false
		if s.cursorEqKeyword(lexer.KwVolatile) {
			s.advance()
			volatile = true
		}
		s.poisonIfNot(len(fields) >= 2, ferr.New(ferr.QLInvalidSyntax, "a model requires at least 2 fields"))
		if err := s.finish(); err != nil {
			return nil, err
		}
		return &CreateModelStatement{Entity: entity, Fields: fields, Volatile: volatile}, nil
	default:
		s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "expected 'space' or 'model' after create"))
		return nil, s.finish()
	}
}

func parseFieldList(s *state) []FieldDef {
	s.expectSymbol(lexer.SymLParen)
	var fields []FieldDef
	for s.okay() && !s.cursorEqSymbol(lexer.SymRParen) {
		fields = append(fields, parseFieldDef(s))
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
	return fields
}

func parseFieldDef(s *state) FieldDef {
	var fd FieldDef
	for {
		switch {
		case s.cursorEqKeyword(lexer.KwPrimary):
			fd.Primary = true
			s.advance()
		case s.cursorEqKeyword(lexer.KwNull):
			fd.Nullable = true
			s.advance()
		default:
			goto modifiersDone
		}
	}
modifiersDone:
	fd.Name = s.readIdent()
	s.expectSymbol(lexer.SymColon)
	if !s.okay() {
		return FieldDef{}
	}
	fd.Type = parseTypeExpr(s, 0)
	return fd
}

func parseDrop(s *state) (any, error) {
	switch {
	case s.cursorEqKeyword(lexer.KwSpace):
		s.advance()
		name := s.readIdent()
		force := false
		if s.cursorEqKeyword(lexer.KwForce) {
			s.advance()
			force = true
		}
		if err := s.finish(); err != nil {
			return nil, err
		}
		return &DropSpaceStatement{Name: name, Force: force}, nil
	case s.cursorEqKeyword(lexer.KwModel):
		s.advance()
		entity := parseEntity(s)
		force := false
		if s.cursorEqKeyword(lexer.KwForce) {
			s.advance()
			force = true
		}
		if err := s.finish(); err != nil {
			return nil, err
		}
		return &DropModelStatement{Entity: entity, Force: force}, nil
	default:
		s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "expected 'space' or 'model' after drop"))
		return nil, s.finish()
	}
}

func parseAlter(s *state) (any, error) {
	switch {
	case s.cursorEqKeyword(lexer.KwSpace):
		s.advance()
		name := s.readIdent()
		s.expectKeyword(lexer.KwWith)
		with := parseDictLiteral(s)
		if err := s.finish(); err != nil {
			return nil, err
		}
		return &AlterSpaceStatement{Name: name, With: with}, nil
	case s.cursorEqKeyword(lexer.KwModel):
		s.advance()
		entity := parseEntity(s)
		stmt := &AlterModelStatement{Entity: entity}
		switch {
		case s.cursorEqKeyword(lexer.KwAdd):
			s.advance()
			stmt.Kind = AlterAddField
			stmt.Field = parseFieldDef(s)
		case s.cursorEqKeyword(lexer.KwRemove):
			s.advance()
			stmt.Kind = AlterRemoveField
			stmt.Remove = s.readIdent()
		case s.cursorEqKeyword(lexer.KwUpdate):
			s.advance()
			stmt.Kind = AlterUpdateField
			stmt.Field = parseFieldDef(s)
		default:
			s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "expected 'add', 'remove' or 'update' after alter model entity"))
		}
		if err := s.finish(); err != nil {
			return nil, err
		}
		return stmt, nil
	default:
		s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "expected 'space' or 'model' after alter"))
		return nil, s.finish()
	}
}

func parseInspect(s *state) (*InspectStatement, error) {
	switch {
	case s.cursorEqKeyword(lexer.KwModel):
		s.advance()
		stmt := &InspectStatement{Target: InspectModel}
		if !s.exhausted() && s.peek().Kind == lexer.TokIdentifier {
			stmt.Entity = parseEntity(s)
		}
		if err := s.finish(); err != nil {
			return nil, err
		}
		return stmt, nil
	case s.cursorEqKeyword(lexer.KwSpace):
		s.advance()
		stmt := &InspectStatement{Target: InspectSpace}
		if !s.exhausted() && s.peek().Kind == lexer.TokIdentifier {
			stmt.Space = s.readIdent()
		}
		if err := s.finish(); err != nil {
			return nil, err
		}
		return stmt, nil
	case s.cursorEqKeyword(lexer.KwSpaces):
		s.advance()
		if err := s.finish(); err != nil {
			return nil, err
		}
		return &InspectStatement{Target: InspectSpaces}, nil
	default:
		s.poisonWith(ferr.New(ferr.QLInvalidSyntax, "expected 'model', 'space' or 'spaces' after inspect"))
		return nil, s.finish()
	}
}

func parseUse(s *state) (*UseStatement, error) {
	name := s.readIdent()
	if err := s.finish(); err != nil {
		return nil, err
	}
	return &UseStatement{Space: name}, nil
}

// parseDictLiteral parses `{ key: value | { nested } , ... }` into a
// gns.Dict, used by `with` clauses.
func parseDictLiteral(s *state) gns.Dict {
	s.expectSymbol(lexer.SymLBrace)
	dict := gns.Dict{}
	for s.okay() && !s.cursorEqSymbol(lexer.SymRBrace) {
		key := s.readIdent()
		s.expectSymbol(lexer.SymColon)
		if !s.okay() {
			return nil
		}
		if s.cursorEqSymbol(lexer.SymLBrace) {
			dict[key] = gns.Branch(parseDictLiteral(s))
		} else {
			dict[key] = gns.Leaf(parseValueExpr(s))
		}
		if !s.okay() {
			return nil
		}
		if s.cursorEqSymbol(lexer.SymComma) {
			s.advance()
			continue
		}
		break
	}
	s.expectSymbol(lexer.SymRBrace)
	return dict
}

// BuildFieldSet converts the parsed field-def list into a gns.FieldSet,
// validating each field's type expression along the way.
func BuildFieldSet(defs []FieldDef) (*gns.FieldSet, error) {
	fs := gns.NewFieldSet()
	for _, d := range defs {
		f := gns.Field{Layers: d.Type.ToTypeExpr(), Nullable: d.Nullable, Primary: d.Primary}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		fs.Add(d.Name, f)
	}
	return fs, nil
}
