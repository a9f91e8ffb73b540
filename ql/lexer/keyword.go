package lexer

import "strings"

// Keyword enumerates every BlueQL reserved word.
// Some engines classify keywords via a two-constant
// perfect hash; that is a pure optimization with
// no observable effect, so this lexer uses a plain map lookup instead.
type Keyword uint8

const (
	KwUse Keyword = iota
	KwCreate
	KwDrop
	KwAlter
	KwInspect
	KwSpace
	KwSpaces
	KwModel
	KwWith
	KwVolatile
	KwPrimary
	KwNull
	KwList
	KwAdd
	KwRemove
	KwUpdate
	KwForce
	KwInsert
	KwSelect
	KwFrom
	KwWhere
	KwInto
	KwValues
	KwSet
	KwDelete
	KwTrue
	KwFalse
)

var keywordNames = map[string]Keyword{
	"use":      KwUse,
	"create":   KwCreate,
	"drop":     KwDrop,
	"alter":    KwAlter,
	"inspect":  KwInspect,
	"space":    KwSpace,
	"spaces":   KwSpaces,
	"model":    KwModel,
	"with":     KwWith,
	"volatile": KwVolatile,
	"primary":  KwPrimary,
	"null":     KwNull,
	"list":     KwList,
	"add":      KwAdd,
	"remove":   KwRemove,
	"update":   KwUpdate,
	"force":    KwForce,
	"insert":   KwInsert,
	"select":   KwSelect,
	"from":     KwFrom,
	"where":    KwWhere,
	"into":     KwInto,
	"values":   KwValues,
	"set":      KwSet,
	"delete":   KwDelete,
	"true":     KwTrue,
	"false":    KwFalse,
}

// LookupKeyword reports whether s names a reserved word; s is lowercased
// first, so the match is case-insensitive.
func LookupKeyword(s string) (Keyword, bool) {
	k, ok := keywordNames[strings.ToLower(s)]
	return k, ok
}
