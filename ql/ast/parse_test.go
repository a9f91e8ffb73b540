package ast

import (
	"testing"

	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/ql/lexer"
	"github.com/stretchr/testify/require"
)

func tokenize(t *testing.T, src string) []lexer.Token {
	t.Helper()
	toks, err := lexer.New([]byte(src)).Tokenize()
	require.NoError(t, err)
	return toks
}

func TestParseUseStatement(t *testing.T) {
	res, err := Parse(tokenize(t, "use myspace"))
	require.NoError(t, err)
	stmt, ok := res.(*UseStatement)
	require.True(t, ok)
	require.Equal(t, "myspace", stmt.Space)
}

func TestParseCreateSpaceWithDict(t *testing.T) {
	res, err := Parse(tokenize(t, `create space app with { env: "prod" }`))
	require.NoError(t, err)
	stmt, ok := res.(*CreateSpaceStatement)
	require.True(t, ok)
	require.Equal(t, "app", stmt.Name)
	require.True(t, stmt.With["env"].Cell.Equal(gns.NewStr([]byte("prod"))))
}

func TestParseCreateSpaceWithoutDict(t *testing.T) {
	res, err := Parse(tokenize(t, "create space app"))
	require.NoError(t, err)
	stmt := res.(*CreateSpaceStatement)
	require.Equal(t, "app", stmt.Name)
	require.Nil(t, stmt.With)
}

// TestParseCreateModelScenario pins the canonical create-model form:
// `create model app.users (username: string, password: binary) volatile`.
func TestParseCreateModelScenario(t *testing.T) {
	res, err := Parse(tokenize(t, "create model app.users (username: string, password: binary) volatile"))
	require.NoError(t, err)
	stmt, ok := res.(*CreateModelStatement)
	require.True(t, ok)
	require.Equal(t, Entity{Space: "app", Model: "users"}, stmt.Entity)
	require.True(t, stmt.Volatile)
	require.Len(t, stmt.Fields, 2)
	require.Equal(t, "username", stmt.Fields[0].Name)
	require.Equal(t, "password", stmt.Fields[1].Name)

	fs, err := BuildFieldSet(stmt.Fields)
	require.NoError(t, err)
	uname, ok := fs.Get("username")
	require.True(t, ok)
	require.Equal(t, gns.LayerStr, uname.Layers.ScalarKind())
}

func TestParseCreateModelRejectsFewerThanTwoFields(t *testing.T) {
	_, err := Parse(tokenize(t, "create model app.users (username: string)"))
	require.Error(t, err)
}

func TestParseCreateModelWithPrimaryAndNullable(t *testing.T) {
	res, err := Parse(tokenize(t, "create model app.users (primary id: uint64, null name: string)"))
	require.NoError(t, err)
	stmt := res.(*CreateModelStatement)
	require.True(t, stmt.Fields[0].Primary)
	require.True(t, stmt.Fields[1].Nullable)
}

func TestParseCreateModelWithListType(t *testing.T) {
	res, err := Parse(tokenize(t, "create model app.users (id: uint64, tags: list<string>)"))
	require.NoError(t, err)
	stmt := res.(*CreateModelStatement)
	te := stmt.Fields[1].Type.ToTypeExpr()
	require.Equal(t, gns.LayerList, te[0].Kind)
	require.Equal(t, gns.LayerStr, te[1].Kind)
}

func TestParseCreateModelRejectsExcessiveListNesting(t *testing.T) {
	_, err := Parse(tokenize(t, "create model app.users (id: uint64, tags: list<list<list<string>>>)"))
	require.Error(t, err)
}

func TestParseDropSpaceWithAndWithoutForce(t *testing.T) {
	res, err := Parse(tokenize(t, "drop space app"))
	require.NoError(t, err)
	require.False(t, res.(*DropSpaceStatement).Force)

	res, err = Parse(tokenize(t, "drop space app force"))
	require.NoError(t, err)
	require.True(t, res.(*DropSpaceStatement).Force)
}

func TestParseDropModel(t *testing.T) {
	res, err := Parse(tokenize(t, "drop model app.users force"))
	require.NoError(t, err)
	stmt := res.(*DropModelStatement)
	require.Equal(t, Entity{Space: "app", Model: "users"}, stmt.Entity)
	require.True(t, stmt.Force)
}

func TestParseAlterModelAddRemoveUpdate(t *testing.T) {
	res, err := Parse(tokenize(t, "alter model app.users add age: uint8"))
	require.NoError(t, err)
	stmt := res.(*AlterModelStatement)
	require.Equal(t, AlterAddField, stmt.Kind)
	require.Equal(t, "age", stmt.Field.Name)

	res, err = Parse(tokenize(t, "alter model app.users remove age"))
	require.NoError(t, err)
	stmt = res.(*AlterModelStatement)
	require.Equal(t, AlterRemoveField, stmt.Kind)
	require.Equal(t, "age", stmt.Remove)

	res, err = Parse(tokenize(t, "alter model app.users update age: uint16"))
	require.NoError(t, err)
	stmt = res.(*AlterModelStatement)
	require.Equal(t, AlterUpdateField, stmt.Kind)
	require.Equal(t, "age", stmt.Field.Name)
}

func TestParseAlterSpace(t *testing.T) {
	res, err := Parse(tokenize(t, `alter space app with { env: "staging" }`))
	require.NoError(t, err)
	stmt := res.(*AlterSpaceStatement)
	require.Equal(t, "app", stmt.Name)
	require.True(t, stmt.With["env"].Cell.Equal(gns.NewStr([]byte("staging"))))
}

func TestParseInspectVariants(t *testing.T) {
	res, err := Parse(tokenize(t, "inspect spaces"))
	require.NoError(t, err)
	require.Equal(t, InspectSpaces, res.(*InspectStatement).Target)

	res, err = Parse(tokenize(t, "inspect space app"))
	require.NoError(t, err)
	stmt := res.(*InspectStatement)
	require.Equal(t, InspectSpace, stmt.Target)
	require.Equal(t, "app", stmt.Space)

	res, err = Parse(tokenize(t, "inspect model app.users"))
	require.NoError(t, err)
	stmt = res.(*InspectStatement)
	require.Equal(t, InspectModel, stmt.Target)
	require.Equal(t, Entity{Space: "app", Model: "users"}, stmt.Entity)
}

func TestParseInsertTupleForm(t *testing.T) {
	res, err := Parse(tokenize(t, `insert into app.users (1, "alice")`))
	require.NoError(t, err)
	stmt := res.(*InsertStatement)
	require.Len(t, stmt.Tuple, 2)
	require.Nil(t, stmt.Map)
}

func TestParseInsertMapForm(t *testing.T) {
	res, err := Parse(tokenize(t, `insert into app.users { id: 1, name: "alice" }`))
	require.NoError(t, err)
	stmt := res.(*InsertStatement)
	require.Nil(t, stmt.Tuple)
	require.Len(t, stmt.Map, 2)
	require.True(t, stmt.Map["name"].Equal(gns.NewStr([]byte("alice"))))
}

func TestInsertStatementBindTupleAndMap(t *testing.T) {
	fs := gns.NewFieldSet()
	fs.Add("id", gns.Field{Layers: gns.TypeExpr{{Kind: gns.LayerUInt64}}, Primary: true})
	fs.Add("name", gns.Field{Layers: gns.TypeExpr{{Kind: gns.LayerStr}}})
	name, _ := gns.NewObjectID("users")
	m, err := gns.NewModel(name, "id", fs, false)
	require.NoError(t, err)

	res, _ := Parse(tokenize(t, `insert into app.users (1, "alice")`))
	cells, err := res.(*InsertStatement).Bind(m)
	require.NoError(t, err)
	require.True(t, cells[0].Equal(gns.NewUInt(gns.LayerUInt64, 1)))
	require.True(t, cells[1].Equal(gns.NewStr([]byte("alice"))))

	res, _ = Parse(tokenize(t, `insert into app.users { id: 1, name: "alice" }`))
	cells, err = res.(*InsertStatement).Bind(m)
	require.NoError(t, err)
	require.True(t, cells[0].Equal(gns.NewUInt(gns.LayerUInt64, 1)))
}

func TestInsertStatementBindRejectsArityMismatch(t *testing.T) {
	fs := gns.NewFieldSet()
	fs.Add("id", gns.Field{Layers: gns.TypeExpr{{Kind: gns.LayerUInt64}}, Primary: true})
	fs.Add("name", gns.Field{Layers: gns.TypeExpr{{Kind: gns.LayerStr}}})
	name, _ := gns.NewObjectID("users")
	m, _ := gns.NewModel(name, "id", fs, false)

	res, _ := Parse(tokenize(t, `insert into app.users (1)`))
	_, err := res.(*InsertStatement).Bind(m)
	require.Error(t, err)
}

func TestParseSelectAllColumnsAndWhere(t *testing.T) {
	res, err := Parse(tokenize(t, "select * from app.users where id = 1"))
	require.NoError(t, err)
	stmt := res.(*SelectStatement)
	require.True(t, stmt.AllCols)
	require.Equal(t, "id", stmt.Where.Field)
	require.True(t, stmt.Where.Value.Equal(gns.NewUInt(gns.LayerUInt64, 1)))
}

func TestParseSelectColumnList(t *testing.T) {
	res, err := Parse(tokenize(t, "select name, age from app.users where id = 1"))
	require.NoError(t, err)
	stmt := res.(*SelectStatement)
	require.False(t, stmt.AllCols)
	require.Equal(t, []string{"name", "age"}, stmt.Columns)
}

func TestParseUpdateMultipleAssigns(t *testing.T) {
	res, err := Parse(tokenize(t, `update app.users set name = "bob", age = 30 where id = 1`))
	require.NoError(t, err)
	stmt := res.(*UpdateStatement)
	require.True(t, stmt.Assigns["name"].Equal(gns.NewStr([]byte("bob"))))
	require.True(t, stmt.Assigns["age"].Equal(gns.NewUInt(gns.LayerUInt64, 30)))
	require.Equal(t, "id", stmt.Where.Field)
}

func TestParseUpdateRejectsDuplicateAssign(t *testing.T) {
	_, err := Parse(tokenize(t, `update app.users set name = "bob", name = "carl" where id = 1`))
	require.Error(t, err)
}

func TestParseDeleteStatement(t *testing.T) {
	res, err := Parse(tokenize(t, "delete from app.users where id = 1"))
	require.NoError(t, err)
	stmt := res.(*DeleteStatement)
	require.Equal(t, Entity{Space: "app", Model: "users"}, stmt.Entity)
	require.Equal(t, "id", stmt.Where.Field)
}

func TestParseValueExprListRequiresSameTag(t *testing.T) {
	_, err := Parse(tokenize(t, `insert into app.users (1, [1, "x"])`))
	require.Error(t, err)
}

func TestParseValueExprProducerCall(t *testing.T) {
	res, err := Parse(tokenize(t, "insert into app.users (@uuidstr(), @timesec())"))
	require.NoError(t, err)
	stmt := res.(*InsertStatement)
	require.Equal(t, gns.LayerStr, stmt.Tuple[0].Tag)
	require.Equal(t, gns.LayerUInt64, stmt.Tuple[1].Tag)
}

func TestParseValueExprUnknownProducerErrors(t *testing.T) {
	_, err := Parse(tokenize(t, "insert into app.users (@nope())"))
	require.Error(t, err)
}

func TestParseEmptyStatementErrors(t *testing.T) {
	_, err := Parse(nil)
	require.Error(t, err)
}

func TestParseRejectsNonKeywordLead(t *testing.T) {
	_, err := Parse(tokenize(t, "foobar"))
	require.Error(t, err)
}

func TestParseRejectsUnrecognizedLeadKeyword(t *testing.T) {
	_, err := Parse(tokenize(t, "with stuff"))
	require.Error(t, err)
}

// TestParseRejectsTrailingTokens verifies the poison/totality contract
// a statement that doesn't consume every token fails.
func TestParseRejectsTrailingTokens(t *testing.T) {
	_, err := Parse(tokenize(t, "use app extra"))
	require.Error(t, err)
}

func TestParseNeverPanicsOnTruncatedInput(t *testing.T) {
	cases := []string{
		"create",
		"create model",
		"create model app.users (",
		"alter model app.users",
		"insert into",
		"select",
		"update app.users set",
		"delete from",
	}
	for _, src := range cases {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Parse panicked on %q: %v", src, r)
				}
			}()
			_, _ = Parse(tokenize(t, src))
		}()
	}
}
