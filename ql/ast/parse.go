package ast

import (
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/ql/lexer"
)

// Parse consumes a token slice produced by ql/lexer and returns the one
// statement it encodes. The returned value is one of the concrete
// statement types in this package (*CreateSpaceStatement,
// *CreateModelStatement, *DropSpaceStatement, *DropModelStatement,
// *AlterSpaceStatement, *AlterModelStatement, *InspectStatement,
// *UseStatement, *InsertStatement, *SelectStatement, *UpdateStatement,
// *DeleteStatement). The leading keyword picks the statement family;
// create, drop, alter and inspect then look at the second token to pick
// between their space and model forms.
func Parse(toks []lexer.Token) (any, error) {
	if len(toks) == 0 {
		return nil, ferr.New(ferr.QLUnexpectedEndOfStatement, "empty statement")
	}
	s := newState(toks)
	lead := s.fwRead()
	if lead.Kind != lexer.TokKeyword {
		return nil, ferr.New(ferr.QLExpectedStatement, "statement must begin with a keyword")
	}
	switch lead.Keyword {
	case lexer.KwUse:
		return parseUse(s)
	case lexer.KwCreate:
		return parseCreate(s)
	case lexer.KwDrop:
		return parseDrop(s)
	case lexer.KwAlter:
		return parseAlter(s)
	case lexer.KwInspect:
		return parseInspect(s)
	case lexer.KwInsert:
		return parseInsert(s)
	case lexer.KwSelect:
		return parseSelect(s)
	case lexer.KwUpdate:
		return parseUpdate(s)
	case lexer.KwDelete:
		return parseDelete(s)
	default:
		return nil, ferr.New(ferr.QLUnknownStatement, "unrecognized leading keyword")
	}
}
